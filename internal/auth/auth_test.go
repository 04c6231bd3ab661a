package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/patric-chuzhbe/storybooks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
	"github.com/patric-chuzhbe/storybooks/internal/session"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

const (
	testAccessToken = "access-token"
	testCode        = "auth-code"
)

var testProfile = Profile{
	ID:          "google-42",
	DisplayName: "Ada Lovelace",
	FirstName:   "Ada",
	LastName:    "Lovelace",
	Picture:     "https://example.com/ada.png",
}

// newFakeProvider serves the token and userinfo endpoints of an OAuth
// provider. The token endpoint insists on the PKCE verifier.
func newFakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != testCode || r.PostForm.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + testAccessToken + `","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAccessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testProfile)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

type testEnv struct {
	auth     *Auth
	db       *memorystorage.MemoryStorage
	sessions *session.Manager
}

func newTestEnv(t *testing.T, providerURL string) *testEnv {
	t.Helper()
	db := memorystorage.New()
	sessions, err := session.New(db, session.Options{
		CookieName: "test.sid",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		TTL:        time.Hour,
	})
	require.NoError(t, err)

	return &testEnv{
		auth: New(db, sessions, Options{
			ClientID:     "client",
			ClientSecret: "client-secret",
			CallbackURL:  "http://localhost/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  providerURL + "/authorize",
				TokenURL: providerURL + "/token",
			},
			UserInfoURL: providerURL + "/userinfo",
			FlowSecret:  []byte("0123456789abcdef0123456789abcdef"),
		}),
		db:       db,
		sessions: sessions,
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}

	return nil
}

// beginLogin returns the flow cookie and the state sent to the provider.
func beginLogin(t *testing.T, env *testEnv) (*http.Cookie, string) {
	t.Helper()
	recorder := httptest.NewRecorder()
	env.auth.BeginLogin(recorder, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	require.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)
	assert.Equal(t, "S256", location.Query().Get("code_challenge_method"))
	assert.NotEmpty(t, location.Query().Get("code_challenge"))
	assert.Equal(t, "openid profile", location.Query().Get("scope"))

	flowCookie := findCookie(recorder.Result().Cookies(), flowCookieName)
	require.NotNil(t, flowCookie)

	return flowCookie, location.Query().Get("state")
}

func callback(env *testEnv, flowCookie *http.Cookie, query url.Values) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query.Encode(), nil)
	if flowCookie != nil {
		request.AddCookie(flowCookie)
	}
	recorder := httptest.NewRecorder()
	env.auth.Callback(recorder, request)

	return recorder
}

func TestLoginRoundTrip(t *testing.T) {
	provider := newFakeProvider(t)
	env := newTestEnv(t, provider.URL)

	flowCookie, state := beginLogin(t, env)
	recorder := callback(env, flowCookie, url.Values{"state": {state}, "code": {testCode}})

	require.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/dashboard", recorder.Header().Get("Location"))
	assert.NotNil(t, findCookie(recorder.Result().Cookies(), "test.sid"))

	usr, err := env.db.FindUserByGoogleID(context.Background(), testProfile.ID)
	require.NoError(t, err)
	assert.Equal(t, testProfile.DisplayName, usr.DisplayName)
	assert.Equal(t, testProfile.Picture, usr.Image)

	// A second login reuses the same user.
	flowCookie, state = beginLogin(t, env)
	recorder = callback(env, flowCookie, url.Values{"state": {state}, "code": {testCode}})
	require.Equal(t, "/dashboard", recorder.Header().Get("Location"))

	count, err := env.db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCallbackFailuresRedirectToLogin(t *testing.T) {
	provider := newFakeProvider(t)
	env := newTestEnv(t, provider.URL)

	testCases := []struct {
		name       string
		withCookie bool
		query      func(state string) url.Values
	}{
		{
			name:       "no_flow_cookie",
			withCookie: false,
			query: func(state string) url.Values {
				return url.Values{"state": {state}, "code": {testCode}}
			},
		},
		{
			name:       "state_mismatch",
			withCookie: true,
			query: func(string) url.Values {
				return url.Values{"state": {"forged"}, "code": {testCode}}
			},
		},
		{
			name:       "provider_denied",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"state": {state}, "error": {"access_denied"}}
			},
		},
		{
			name:       "bad_code",
			withCookie: true,
			query: func(state string) url.Values {
				return url.Values{"state": {state}, "code": {"wrong"}}
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			flowCookie, state := beginLogin(t, env)
			if !testCase.withCookie {
				flowCookie = nil
			}

			recorder := callback(env, flowCookie, testCase.query(state))

			assert.Equal(t, http.StatusFound, recorder.Code)
			assert.Equal(t, "/", recorder.Header().Get("Location"))
			assert.Nil(t, findCookie(recorder.Result().Cookies(), "test.sid"))
		})
	}

	count, err := env.db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// racyKeeper loses the first lookup, as if another login created the user
// between the lookup and the insert.
type racyKeeper struct {
	*memorystorage.MemoryStorage
	lookups int
}

func (k *racyKeeper) FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error) {
	k.lookups++
	if k.lookups == 1 {
		return nil, models.ErrNotFound
	}

	return k.MemoryStorage.FindUserByGoogleID(ctx, googleID)
}

func TestVerify(t *testing.T) {
	t.Run("creates_then_finds", func(t *testing.T) {
		db := memorystorage.New()
		a := New(db, nil, Options{})

		created, err := a.Verify(context.Background(), &testProfile)
		require.NoError(t, err)
		assert.False(t, created.ID.IsZero())

		found, err := a.Verify(context.Background(), &testProfile)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("duplicate_insert_resolves_to_existing_user", func(t *testing.T) {
		db := memorystorage.New()
		existing := &user.User{GoogleID: testProfile.ID, DisplayName: "First"}
		require.NoError(t, db.CreateUser(context.Background(), existing))

		a := New(&racyKeeper{MemoryStorage: db}, nil, Options{})
		usr, err := a.Verify(context.Background(), &testProfile)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, usr.ID)
	})

	t.Run("empty_profile", func(t *testing.T) {
		a := New(memorystorage.New(), nil, Options{})
		_, err := a.Verify(context.Background(), &Profile{})
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

func TestGuards(t *testing.T) {
	a := New(memorystorage.New(), nil, Options{})
	signedIn := &user.User{DisplayName: "Ada"}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name         string
		guard        func(http.Handler) http.Handler
		user         *user.User
		wantStatus   int
		wantLocation string
	}{
		{name: "auth_anonymous", guard: a.EnsureAuth, user: nil, wantStatus: http.StatusFound, wantLocation: "/"},
		{name: "auth_signed_in", guard: a.EnsureAuth, user: signedIn, wantStatus: http.StatusOK},
		{name: "guest_anonymous", guard: a.EnsureGuest, user: nil, wantStatus: http.StatusOK},
		{name: "guest_signed_in", guard: a.EnsureGuest, user: signedIn, wantStatus: http.StatusFound, wantLocation: "/dashboard"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.user != nil {
				request = request.WithContext(requestctx.WithUser(request.Context(), testCase.user))
			}
			recorder := httptest.NewRecorder()

			testCase.guard(ok).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatus, recorder.Code)
			assert.Equal(t, testCase.wantLocation, recorder.Header().Get("Location"))
		})
	}
}

func TestRestoreUser(t *testing.T) {
	provider := newFakeProvider(t)
	env := newTestEnv(t, provider.URL)

	usr := &user.User{GoogleID: "g-1", DisplayName: "Grace"}
	require.NoError(t, env.db.CreateUser(context.Background(), usr))

	startRecorder := httptest.NewRecorder()
	_, err := env.sessions.Start(startRecorder, httptest.NewRequest(http.MethodGet, "/", nil), usr.ID)
	require.NoError(t, err)
	sessionCookie := findCookie(startRecorder.Result().Cookies(), "test.sid")
	require.NotNil(t, sessionCookie)

	var seen *user.User
	handler := env.sessions.LoadSession(env.auth.RestoreUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.User(r.Context())
	})))

	request := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	request.AddCookie(sessionCookie)
	handler.ServeHTTP(httptest.NewRecorder(), request)
	require.NotNil(t, seen)
	assert.Equal(t, usr.ID, seen.ID)

	seen = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Nil(t, seen)
}

func TestLogout(t *testing.T) {
	provider := newFakeProvider(t)
	env := newTestEnv(t, provider.URL)

	recorder := httptest.NewRecorder()
	env.sessions.LoadSession(http.HandlerFunc(env.auth.Logout)).
		ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))
}
