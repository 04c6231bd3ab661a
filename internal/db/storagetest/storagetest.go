// Package storagetest holds the behaviour every storage backend must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// Storage is the contract exercised by Run.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)
	FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CreateStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	UpdateStory(ctx context.Context, story *models.Story) error
	DeleteStory(ctx context.Context, id primitive.ObjectID) error
	ListStoriesByUser(ctx context.Context, userID primitive.ObjectID, publicOnly bool) ([]models.Story, error)
	ListPublicStories(ctx context.Context, author *primitive.ObjectID) ([]models.PopulatedStory, error)
	CountStories(ctx context.Context) (int64, error)
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Run exercises theStorage, which must be empty.
func Run(t *testing.T, theStorage Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("users", func(t *testing.T) {
		alice := &user.User{GoogleID: "g-alice", DisplayName: "Alice Doe", FirstName: "Alice"}
		require.NoError(t, theStorage.CreateUser(ctx, alice))
		assert.False(t, alice.ID.IsZero())

		err := theStorage.CreateUser(ctx, &user.User{GoogleID: "g-alice"})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		found, err := theStorage.FindUserByGoogleID(ctx, "g-alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)
		assert.Equal(t, "Alice Doe", found.DisplayName)

		byID, err := theStorage.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "g-alice", byID.GoogleID)

		_, err = theStorage.GetUserByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = theStorage.FindUserByGoogleID(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)

		count, err := theStorage.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("stories", func(t *testing.T) {
		author := &user.User{GoogleID: "g-author", DisplayName: "Author"}
		require.NoError(t, theStorage.CreateUser(ctx, author))

		older := &models.Story{
			Title: "Older", Body: "<p>old</p>", Status: models.StatusPublic,
			User: author.ID, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
		}
		newer := &models.Story{
			Title: "Newer", Body: "<p>new</p>", Status: models.StatusPublic,
			User: author.ID, CreatedAt: now, UpdatedAt: now,
		}
		hidden := &models.Story{
			Title: "Hidden", Body: "secret diary", Status: models.StatusPrivate,
			User: author.ID, CreatedAt: now.Add(time.Minute), UpdatedAt: now,
		}
		for _, story := range []*models.Story{older, newer, hidden} {
			require.NoError(t, theStorage.CreateStory(ctx, story))
			assert.False(t, story.ID.IsZero())
		}

		all, err := theStorage.ListStoriesByUser(ctx, author.ID, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Hidden", all[0].Title)

		public, err := theStorage.ListStoriesByUser(ctx, author.ID, true)
		require.NoError(t, err)
		require.Len(t, public, 2)
		assert.Equal(t, "Newer", public[0].Title)
		assert.Equal(t, "Older", public[1].Title)

		populated, err := theStorage.ListPublicStories(ctx, &author.ID)
		require.NoError(t, err)
		require.Len(t, populated, 2)
		require.NotNil(t, populated[0].Author)
		assert.Equal(t, "Author", populated[0].Author.DisplayName)
		assert.Equal(t, "Newer", populated[0].Title)

		stranger := primitive.NewObjectID()
		none, err := theStorage.ListPublicStories(ctx, &stranger)
		require.NoError(t, err)
		assert.Empty(t, none)

		hidden.Title = "Hidden, edited"
		hidden.Status = models.StatusPublic
		require.NoError(t, theStorage.UpdateStory(ctx, hidden))
		got, err := theStorage.GetStory(ctx, hidden.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hidden, edited", got.Title)
		assert.True(t, got.IsPublic())

		err = theStorage.UpdateStory(ctx, &models.Story{ID: primitive.NewObjectID()})
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, theStorage.DeleteStory(ctx, older.ID))
		_, err = theStorage.GetStory(ctx, older.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, theStorage.DeleteStory(ctx, older.ID), models.ErrNotFound)

		count, err := theStorage.CountStories(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("sessions", func(t *testing.T) {
		userID := primitive.NewObjectID()
		live := &models.Session{ID: "live", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		stale := &models.Session{ID: "stale", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(-time.Second)}
		require.NoError(t, theStorage.SaveSession(ctx, live))
		require.NoError(t, theStorage.SaveSession(ctx, stale))

		got, err := theStorage.GetSession(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, userID, got.UserID)

		removed, err := theStorage.DeleteExpiredSessions(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = theStorage.GetSession(ctx, "stale")
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, theStorage.DeleteSession(ctx, "live"))
		_, err = theStorage.GetSession(ctx, "live")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	assert.NoError(t, theStorage.Ping(ctx))
}
