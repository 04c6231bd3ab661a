// Package memorystorage keeps users, stories and sessions in process memory.
// It is used when no MongoDB connection string is configured and in tests.
package memorystorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// MemoryStorage implements the storage contract of the application.
type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]user.User
	stories  map[primitive.ObjectID]models.Story
	sessions map[string]models.Session
}

// New returns an empty storage.
func New() *MemoryStorage {
	return &MemoryStorage{
		users:    map[primitive.ObjectID]user.User{},
		stories:  map[primitive.ObjectID]models.Story{},
		sessions: map[string]models.Session{},
	}
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStorage) Close() error {
	return nil
}

// CreateUser stores usr and assigns its ID. A second user with the same
// Google ID is rejected with models.ErrDuplicate.
func (s *MemoryStorage) CreateUser(ctx context.Context, usr *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.GoogleID == usr.GoogleID {
			return models.ErrDuplicate
		}
	}
	if usr.ID.IsZero() {
		usr.ID = primitive.NewObjectID()
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now().UTC()
	}
	s.users[usr.ID] = *usr

	return nil
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	return &usr, nil
}

func (s *MemoryStorage) FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.users {
		if usr.GoogleID == googleID {
			found := usr
			return &found, nil
		}
	}

	return nil, models.ErrNotFound
}

func (s *MemoryStorage) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

func (s *MemoryStorage) CreateStory(ctx context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}
	s.stories[story.ID] = *story

	return nil
}

func (s *MemoryStorage) GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	story, ok := s.stories[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	return &story, nil
}

func (s *MemoryStorage) UpdateStory(ctx context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stories[story.ID]; !ok {
		return models.ErrNotFound
	}
	s.stories[story.ID] = *story

	return nil
}

func (s *MemoryStorage) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stories[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.stories, id)

	return nil
}

// ListStoriesByUser returns the user's stories, newest first.
func (s *MemoryStorage) ListStoriesByUser(
	ctx context.Context,
	userID primitive.ObjectID,
	publicOnly bool,
) ([]models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Story{}
	for _, story := range s.stories {
		if story.User != userID || (publicOnly && !story.IsPublic()) {
			continue
		}
		result = append(result, story)
	}
	sortNewestFirst(result)

	return result, nil
}

// ListPublicStories returns public stories with their authors, newest first.
// A non-nil author restricts the list to that user's stories.
func (s *MemoryStorage) ListPublicStories(
	ctx context.Context,
	author *primitive.ObjectID,
) ([]models.PopulatedStory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stories := []models.Story{}
	for _, story := range s.stories {
		if !story.IsPublic() || (author != nil && story.User != *author) {
			continue
		}
		stories = append(stories, story)
	}
	sortNewestFirst(stories)

	result := make([]models.PopulatedStory, 0, len(stories))
	for _, story := range stories {
		populated := models.PopulatedStory{Story: story}
		if usr, ok := s.users[story.User]; ok {
			populated.Author = &usr
		}
		result = append(result, populated)
	}

	return result, nil
}

func (s *MemoryStorage) CountStories(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.stories)), nil
}

func (s *MemoryStorage) SaveSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session

	return nil
}

func (s *MemoryStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	return &session, nil
}

func (s *MemoryStorage) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)

	return nil
}

// DeleteExpiredSessions removes sessions expired at now and returns how many.
func (s *MemoryStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

func sortNewestFirst(stories []models.Story) {
	sort.Slice(stories, func(i, j int) bool {
		if !stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].CreatedAt.After(stories[j].CreatedAt)
		}
		return stories[i].ID.Hex() > stories[j].ID.Hex()
	})
}
