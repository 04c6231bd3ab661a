// Package mockstorage provides a testify-based mock of the storage used by
// the service and router packages. Tests use it to simulate failures the
// in-memory storage never produces.
package mockstorage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// StorageMock implements every storage method of the application.
//
// Methods without an expectation panic, as testify mocks do, so tests only
// declare the calls they care about.
type StorageMock struct {
	mock.Mock

	// OnCountUsers, if set, is used instead of the generic mock handler.
	OnCountUsers func(ctx context.Context) (int64, error)

	// OnCountStories, if set, is used instead of the generic mock handler.
	OnCountStories func(ctx context.Context) (int64, error)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	args := m.Called(ctx, id)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error) {
	args := m.Called(ctx, googleID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// CountUsers delegates to OnCountUsers when it is set.
func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	if m.OnCountUsers != nil {
		return m.OnCountUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) CreateStory(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *StorageMock) GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StorageMock) UpdateStory(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *StorageMock) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StorageMock) ListStoriesByUser(
	ctx context.Context,
	userID primitive.ObjectID,
	publicOnly bool,
) ([]models.Story, error) {
	args := m.Called(ctx, userID, publicOnly)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}

func (m *StorageMock) ListPublicStories(
	ctx context.Context,
	author *primitive.ObjectID,
) ([]models.PopulatedStory, error) {
	args := m.Called(ctx, author)
	stories, _ := args.Get(0).([]models.PopulatedStory)
	return stories, args.Error(1)
}

// CountStories delegates to OnCountStories when it is set.
func (m *StorageMock) CountStories(ctx context.Context) (int64, error) {
	if m.OnCountStories != nil {
		return m.OnCountStories(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) SaveSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *StorageMock) GetSession(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *StorageMock) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StorageMock) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
