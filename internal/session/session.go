// Package session implements store-backed browser sessions. The cookie only
// carries a signed session ID; the session record itself lives in the storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
)

type sessionKeeper interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// ErrMissingSecret is returned by New when no signing secret is configured.
var ErrMissingSecret = errors.New("session: signing secret is required")

// Claims is the payload of the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Options configures a Manager.
type Options struct {
	CookieName string
	Secret     []byte
	TTL        time.Duration

	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Manager creates, restores and destroys sessions.
type Manager struct {
	db         sessionKeeper
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// New returns a Manager. It refuses to work without a secret.
func New(db sessionKeeper, options Options) (*Manager, error) {
	if len(options.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if options.CookieName == "" {
		return nil, errors.New("session: cookie name is required")
	}
	if options.TTL <= 0 {
		return nil, errors.New("session: TTL must be positive")
	}

	return &Manager{
		db:         db,
		cookieName: options.CookieName,
		secret:     options.Secret,
		ttl:        options.TTL,
		secure:     options.Secure,
		now:        time.Now,
	}, nil
}

// LoadSession restores the session named by the cookie into the request
// context. Missing, forged or expired sessions leave the request anonymous.
func (m *Manager) LoadSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		sessionID := m.sessionIDFromCookie(request)
		if sessionID == "" {
			h.ServeHTTP(response, request)
			return
		}

		session, err := m.db.GetSession(request.Context(), sessionID)
		if errors.Is(err, models.ErrNotFound) {
			m.clearCookie(response)
			h.ServeHTTP(response, request)
			return
		}
		if err != nil {
			logger.Log.Errorw("loading session failed", zap.Error(err))
			http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if session.Expired(m.now()) {
			if err := m.db.DeleteSession(request.Context(), session.ID); err != nil {
				logger.Log.Warnw("deleting expired session failed", zap.Error(err))
			}
			m.clearCookie(response)
			h.ServeHTTP(response, request)
			return
		}

		ctx := requestctx.WithSession(request.Context(), session)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// Start replaces any current session with a new one for userID and sets the
// cookie. The returned request carries the new session in its context.
func (m *Manager) Start(
	response http.ResponseWriter,
	request *http.Request,
	userID primitive.ObjectID,
) (*http.Request, error) {
	if current := requestctx.Session(request.Context()); current != nil {
		if err := m.db.DeleteSession(request.Context(), current.ID); err != nil {
			return nil, fmt.Errorf("drop previous session: %w", err)
		}
	}

	now := m.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.db.SaveSession(request.Context(), session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := m.buildJWTString(session)
	if err != nil {
		return nil, err
	}

	http.SetCookie(response, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return request.WithContext(requestctx.WithSession(request.Context(), session)), nil
}

// Destroy deletes the current session and expires the cookie.
func (m *Manager) Destroy(response http.ResponseWriter, request *http.Request) error {
	m.clearCookie(response)

	current := requestctx.Session(request.Context())
	if current == nil {
		return nil
	}

	return m.db.DeleteSession(request.Context(), current.ID)
}

func (m *Manager) clearCookie(response http.ResponseWriter) {
	http.SetCookie(response, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sessionIDFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (m *Manager) buildJWTString(session *models.Session) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		SessionID: session.ID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}
