// Package user defines the account record created on the first Google login.
package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a person known to the application through their Google identity.
type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`

	// GoogleID is the provider's stable subject identifier. It is unique.
	GoogleID string `bson:"google_id"`

	DisplayName string    `bson:"display_name"`
	FirstName   string    `bson:"first_name"`
	LastName    string    `bson:"last_name"`
	Image       string    `bson:"image,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

// SameAs reports whether u and other are the same stored user.
// A nil user is never the same as anything.
func (u *User) SameAs(other *User) bool {
	if u == nil || other == nil || u.ID.IsZero() {
		return false
	}

	return u.ID == other.ID
}
