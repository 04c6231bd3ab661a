// Package auth implements delegated login through Google OAuth 2.0.
// A successful login finds or creates the local user keyed by the Google
// subject ID and stores that user's ID in the session; every later request
// gets the user restored into its context.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint of Google.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

const (
	flowCookieName = "storybooks.oauth"
	flowCookiePath = "/auth"
	flowTTL        = 10 * time.Minute

	successRedirect = "/dashboard"
	failureRedirect = "/"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)
	FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error)
}

type sessionManager interface {
	Start(response http.ResponseWriter, request *http.Request, userID primitive.ObjectID) (*http.Request, error)
	Destroy(response http.ResponseWriter, request *http.Request) error
}

// ErrInvalidProfile is returned when the provider profile has no subject ID.
var ErrInvalidProfile = errors.New("auth: provider profile has no id")

// Profile is the part of the userinfo document the application keeps.
type Profile struct {
	ID          string `json:"sub"`
	DisplayName string `json:"name"`
	FirstName   string `json:"given_name"`
	LastName    string `json:"family_name"`
	Picture     string `json:"picture"`
}

// Options configures the Google strategy.
type Options struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint

	// UserInfoURL defaults to GoogleUserInfoURL.
	UserInfoURL string

	// FlowSecret signs the cookie carrying state and PKCE verifier.
	FlowSecret []byte

	Secure bool
}

// Auth is the authentication strategy together with its middleware.
type Auth struct {
	db          userKeeper
	sessions    sessionManager
	oauth       *oauth2.Config
	userInfoURL string
	flowSecret  []byte
	secure      bool
	restClient  *resty.Client
}

// flowClaims travel from the login start to the callback.
type flowClaims struct {
	jwt.RegisteredClaims
	State    string `json:"state"`
	Verifier string `json:"verifier"`
}

// New builds the strategy. Nothing is registered globally; the router gets
// the returned value.
func New(db userKeeper, sessions sessionManager, options Options) *Auth {
	endpoint := options.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := options.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}

	return &Auth{
		db:       db,
		sessions: sessions,
		oauth: &oauth2.Config{
			ClientID:     options.ClientID,
			ClientSecret: options.ClientSecret,
			RedirectURL:  options.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile"},
		},
		userInfoURL: userInfoURL,
		flowSecret:  options.FlowSecret,
		secure:      options.Secure,
		restClient:  resty.New().SetTimeout(10 * time.Second),
	}
}

// BeginLogin redirects to the provider's consent screen.
func (a *Auth) BeginLogin(response http.ResponseWriter, request *http.Request) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	flowToken, err := a.buildFlowToken(state, verifier)
	if err != nil {
		logger.Log.Errorw("signing oauth flow cookie failed", zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.SetCookie(response, &http.Cookie{
		Name:     flowCookieName,
		Value:    flowToken,
		Path:     flowCookiePath,
		MaxAge:   int(flowTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(
		response,
		request,
		a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)),
		http.StatusFound,
	)
}

// Callback finishes the login. Every failure sends the browser back to the
// login page.
func (a *Auth) Callback(response http.ResponseWriter, request *http.Request) {
	flow, err := a.consumeFlowCookie(response, request)
	if err != nil {
		logger.Log.Debugw("oauth callback without a valid flow", zap.Error(err))
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	query := request.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		logger.Log.Infow("oauth provider refused the login", "error", providerErr)
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}
	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(flow.State)) != 1 {
		logger.Log.Warnw("oauth state mismatch")
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	token, err := a.oauth.Exchange(request.Context(), query.Get("code"), oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		logger.Log.Warnw("oauth code exchange failed", zap.Error(err))
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	profile, err := a.fetchProfile(request.Context(), token)
	if err != nil {
		logger.Log.Warnw("fetching the provider profile failed", zap.Error(err))
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	usr, err := a.Verify(request.Context(), profile)
	if err != nil {
		logger.Log.Errorw("find-or-create user failed", zap.Error(err))
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	if _, err := a.sessions.Start(response, request, usr.ID); err != nil {
		logger.Log.Errorw("starting session failed", zap.Error(err))
		http.Redirect(response, request, failureRedirect, http.StatusFound)
		return
	}

	http.Redirect(response, request, successRedirect, http.StatusFound)
}

// Logout ends the session.
func (a *Auth) Logout(response http.ResponseWriter, request *http.Request) {
	if err := a.sessions.Destroy(response, request); err != nil {
		logger.Log.Errorw("destroying session failed", zap.Error(err))
	}
	http.Redirect(response, request, "/", http.StatusFound)
}

// Verify returns the local user for profile, creating it on first login.
// Two concurrent first logins resolve to the same user.
func (a *Auth) Verify(ctx context.Context, profile *Profile) (*user.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, ErrInvalidProfile
	}

	usr, err := a.db.FindUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	usr = &user.User{
		GoogleID:    profile.ID,
		DisplayName: profile.DisplayName,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Image:       profile.Picture,
	}
	err = a.db.CreateUser(ctx, usr)
	if errors.Is(err, models.ErrDuplicate) {
		return a.db.FindUserByGoogleID(ctx, profile.ID)
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// RestoreUser loads the session's user into the request context.
func (a *Auth) RestoreUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		session := requestctx.Session(request.Context())
		if session == nil {
			h.ServeHTTP(response, request)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), session.UserID)
		if errors.Is(err, models.ErrNotFound) {
			h.ServeHTTP(response, request)
			return
		}
		if err != nil {
			logger.Log.Errorw("restoring user failed", zap.Error(err))
			http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		h.ServeHTTP(response, request.WithContext(requestctx.WithUser(request.Context(), usr)))
	}

	return http.HandlerFunc(middleware)
}

// EnsureAuth redirects anonymous visitors to the login page.
func (a *Auth) EnsureAuth(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if requestctx.User(request.Context()) == nil {
			http.Redirect(response, request, "/", http.StatusFound)
			return
		}
		h.ServeHTTP(response, request)
	})
}

// EnsureGuest redirects signed-in users to their dashboard.
func (a *Auth) EnsureGuest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if requestctx.User(request.Context()) != nil {
			http.Redirect(response, request, successRedirect, http.StatusFound)
			return
		}
		h.ServeHTTP(response, request)
	})
}

func (a *Auth) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	profile := &Profile{}
	resp, err := a.restClient.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(profile).
		Get(a.userInfoURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo responded %s", resp.Status())
	}

	return profile, nil
}

func (a *Auth) buildFlowToken(state, verifier string) (string, error) {
	claims := flowClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flowTTL)),
		},
		State:    state,
		Verifier: verifier,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.flowSecret)
}

func (a *Auth) consumeFlowCookie(response http.ResponseWriter, request *http.Request) (*flowClaims, error) {
	cookie, err := request.Cookie(flowCookieName)
	if err != nil {
		return nil, err
	}

	http.SetCookie(response, &http.Cookie{
		Name:     flowCookieName,
		Value:    "",
		Path:     flowCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	claims := &flowClaims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.flowSecret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.State == "" {
		return nil, errors.New("invalid oauth flow cookie")
	}

	return claims, nil
}
