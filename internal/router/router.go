// Package router assembles the HTTP handler: the fixed middleware chain,
// the page routes and the service endpoints.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/storybooks/internal/authenticator"
	"github.com/patric-chuzhbe/storybooks/internal/bodyparser"
	"github.com/patric-chuzhbe/storybooks/internal/gzippedhttp"
	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/methodoverride"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

type storyService interface {
	Dashboard(ctx context.Context, owner *user.User) ([]models.Story, error)
	PublicStories(ctx context.Context) ([]models.PopulatedStory, error)
	UserStories(ctx context.Context, rawUserID string) (*user.User, []models.PopulatedStory, error)
	Create(ctx context.Context, owner *user.User, form models.StoryForm) (*models.Story, error)
	Show(ctx context.Context, viewer *user.User, rawID string) (*models.PopulatedStory, error)
	ForEdit(ctx context.Context, viewer *user.User, rawID string) (*models.Story, error)
	Update(ctx context.Context, viewer *user.User, rawID string, form models.StoryForm) (*models.Story, error)
	Delete(ctx context.Context, viewer *user.User, rawID string) error
}

type systemService interface {
	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
}

type service interface {
	storyService
	systemService
}

type renderer interface {
	Render(response http.ResponseWriter, request *http.Request, status int, page string, data any)

	RenderWithLayout(
		response http.ResponseWriter,
		request *http.Request,
		status int,
		layout string,
		page string,
		data any,
	)
}

type sessionLoader interface {
	LoadSession(h http.Handler) http.Handler
}

type subnetGuard interface {
	Guard(h http.Handler) http.Handler
}

// Router holds the dependencies of the handlers.
type Router struct {
	service   service
	views     renderer
	staticDir string
}

type initOptions struct {
	requestLogging bool
	staticDir      string
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithRequestLogging enables the request logging middleware.
func WithRequestLogging(enabled bool) InitOption {
	return func(o *initOptions) {
		o.requestLogging = enabled
	}
}

// WithStaticDir serves files from dir ahead of the routes.
func WithStaticDir(dir string) InitOption {
	return func(o *initOptions) {
		o.staticDir = dir
	}
}

// New returns the application handler. The middleware order matters: the
// body is parsed before the method override reads _method, and the session
// is loaded before the user is restored from it.
func New(
	svc service,
	views renderer,
	sessions sessionLoader,
	auth authenticator.Authenticator,
	trustedSubnet subnetGuard,
	optionsProto ...InitOption,
) http.Handler {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := &Router{
		service:   svc,
		views:     views,
		staticDir: options.staticDir,
	}

	router := chi.NewRouter()
	router.Use(
		gzippedhttp.UngzipRequest,
		bodyparser.ParseBody,
		methodoverride.Override,
	)
	if options.requestLogging {
		router.Use(logger.WithLoggingHTTPMiddleware)
	}
	router.Use(
		gzippedhttp.GzipResponse,
		sessions.LoadSession,
		auth.RestoreUser,
		myRouter.serveStatic,
	)

	router.With(auth.EnsureGuest).Get(`/`, myRouter.getIndex)
	router.With(auth.EnsureAuth).Get(`/dashboard`, myRouter.getDashboard)

	router.Route(`/auth`, func(r chi.Router) {
		r.Get(`/google`, auth.BeginLogin)
		r.Get(`/google/callback`, auth.Callback)
		r.Get(`/logout`, auth.Logout)
	})

	router.Route(`/stories`, func(r chi.Router) {
		r.Use(auth.EnsureAuth)
		r.Get(`/`, myRouter.getStories)
		r.Post(`/`, myRouter.postStories)
		r.Get(`/add`, myRouter.getStoriesAdd)
		r.Get(`/edit/{id}`, myRouter.getStoryEdit)
		r.Get(`/user/{userID}`, myRouter.getUserStories)
		r.Get(`/{id}`, myRouter.getStory)
		r.Put(`/{id}`, myRouter.putStory)
		r.Delete(`/{id}`, myRouter.deleteStory)
	})

	router.Get(`/ping`, myRouter.getPing)
	router.With(trustedSubnet.Guard).Get(`/internal/stats`, myRouter.getInternalStats)

	router.NotFound(myRouter.notFound)

	return router
}
