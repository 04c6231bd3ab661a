// Package models holds the persisted story and session records and the
// errors shared by every storage implementation.
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// Story visibility values.
const (
	StatusPublic  = "public"
	StatusPrivate = "private"
)

// Statuses lists the accepted story statuses, default first.
var Statuses = []string{StatusPublic, StatusPrivate}

const (
	StorageTypeUnknown = iota
	StorageTypeMongoDB
	StorageTypeMemory
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// Story is a piece of text owned by exactly one user.
type Story struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Body      string             `bson:"body"`
	Status    string             `bson:"status"`
	User      primitive.ObjectID `bson:"user"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// IsPublic reports whether everybody may read the story.
func (s *Story) IsPublic() bool {
	return s.Status != StatusPrivate
}

// PopulatedStory is a story with its owner resolved.
type PopulatedStory struct {
	Story  `bson:",inline"`
	Author *user.User `bson:"author,omitempty"`
}

// StoryForm carries the fields submitted by the add and edit forms.
type StoryForm struct {
	Title  string `validate:"required,max=200"`
	Body   string `validate:"required"`
	Status string `validate:"oneof=public private"`
}

// Session binds an opaque browser cookie to a signed-in user.
type Session struct {
	ID        string             `bson:"_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Stats is served by the internal stats endpoint.
type Stats struct {
	Users   int64 `json:"users"`
	Stories int64 `json:"stories"`
}
