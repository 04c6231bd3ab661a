// Package requestctx carries the request-scoped session and signed-in user
// through the handler chain.
package requestctx

import (
	"context"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

type userContextKey struct{}

type sessionContextKey struct{}

// WithUser stores the signed-in user in ctx.
func WithUser(ctx context.Context, usr *user.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, usr)
}

// User returns the signed-in user, or nil for anonymous requests.
func User(ctx context.Context) *user.User {
	usr, _ := ctx.Value(userContextKey{}).(*user.User)
	return usr
}

// WithSession stores the restored session in ctx.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// Session returns the restored session, or nil.
func Session(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*models.Session)
	return session
}
