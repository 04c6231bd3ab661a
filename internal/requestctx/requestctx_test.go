package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

func TestUserRoundTrip(t *testing.T) {
	assert.Nil(t, User(context.Background()))

	usr := &user.User{DisplayName: "Alice"}
	assert.Same(t, usr, User(WithUser(context.Background(), usr)))
}

func TestSessionRoundTrip(t *testing.T) {
	assert.Nil(t, Session(context.Background()))

	session := &models.Session{ID: "abc"}
	assert.Same(t, session, Session(WithSession(context.Background(), session)))
}
