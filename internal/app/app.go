// Package app wires the storybooks server together: configuration, logging,
// storage, sessions, authentication, views and routing. It also owns the
// process lifecycle with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/auth"
	"github.com/patric-chuzhbe/storybooks/internal/config"
	"github.com/patric-chuzhbe/storybooks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/storybooks/internal/db/mongodb"
	"github.com/patric-chuzhbe/storybooks/internal/ipchecker"
	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/router"
	"github.com/patric-chuzhbe/storybooks/internal/service"
	"github.com/patric-chuzhbe/storybooks/internal/session"
	"github.com/patric-chuzhbe/storybooks/internal/sessionsweeper"
	"github.com/patric-chuzhbe/storybooks/internal/user"
	"github.com/patric-chuzhbe/storybooks/internal/views"
)

const shutdownTimeout = 10 * time.Second

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)
	FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type storiesKeeper interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	UpdateStory(ctx context.Context, story *models.Story) error
	DeleteStory(ctx context.Context, id primitive.ObjectID) error
	ListStoriesByUser(ctx context.Context, userID primitive.ObjectID, publicOnly bool) ([]models.Story, error)
	ListPublicStories(ctx context.Context, author *primitive.ObjectID) ([]models.PopulatedStory, error)
	CountStories(ctx context.Context) (int64, error)
}

type sessionsKeeper interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	storiesKeeper
	sessionsKeeper
	pinger
	Close() error
}

// App holds everything Run needs.
type App struct {
	cfg         *config.Config
	db          storage
	sweeper     *sessionsweeper.Sweeper
	stopSweeper context.CancelFunc
	httpHandler http.Handler
}

// New builds the application. A missing session secret, a broken template
// or an unreachable database are all fatal.
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel, app.cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.httpHandler, err = app.buildHandler()
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.sweeper = sessionsweeper.New(app.db, app.cfg.SessionSweepInterval, 16)
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	app.stopSweeper = stopSweeper
	app.sweeper.ListenErrors(func(err error) {
		logger.Log.Warnw("sweeping expired sessions failed", zap.Error(err))
	})
	app.sweeper.Run(sweeperCtx)

	return app, nil
}

func (a *App) buildHandler() (http.Handler, error) {
	secure := !a.cfg.IsDevelopment() && a.cfg.AppEnv != config.EnvTest

	sessions, err := session.New(a.db, session.Options{
		CookieName: a.cfg.SessionCookieName,
		Secret:     []byte(a.cfg.SessionSecret),
		TTL:        a.cfg.SessionTTL,
		Secure:     secure,
	})
	if err != nil {
		return nil, err
	}

	engine, err := views.New()
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(a.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(a.db, sessions, auth.Options{
		ClientID:     a.cfg.GoogleClientID,
		ClientSecret: a.cfg.GoogleClientSecret,
		CallbackURL:  a.cfg.GoogleCallbackURL,
		FlowSecret:   []byte(a.cfg.SessionSecret),
		Secure:       secure,
	})

	return router.New(
		service.New(a.db),
		engine,
		sessions,
		theAuth,
		checker,
		router.WithRequestLogging(a.cfg.IsDevelopment()),
		router.WithStaticDir(a.cfg.StaticDir),
	), nil
}

// Handler exposes the assembled HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts the server down within
// ten seconds, stops the sweeper and closes the store.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              a.cfg.RunAddr(),
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Log.Infof("Server running in %s mode on port %d", a.cfg.AppEnv, a.cfg.Port)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing connections and exiting...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		a.stopSweeper()
		<-a.sweeper.Done()
		closeErr := a.db.Close()

		if shutdownErr != nil {
			return fmt.Errorf("server shutdown error: %w", shutdownErr)
		}

		return closeErr

	case err := <-serverErrCh:
		a.stopSweeper()
		<-a.sweeper.Done()
		closeErr := a.db.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return closeErr
		}

		return errors.Join(fmt.Errorf("server error: %w", err), closeErr)
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.MongoURI != "" {
		return models.StorageTypeMongoDB
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeMongoDB:
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DBConnectRetries+1)*cfg.DBConnectionTimeout*2)
		defer cancel()

		db, err := mongodb.New(
			ctx,
			cfg.MongoURI,
			cfg.MongoDatabase,
			cfg.DBConnectionTimeout,
			mongodb.WithConnectRetries(cfg.DBConnectRetries),
		)
		if err != nil {
			return nil, err
		}
		logger.Log.Infow("MongoDB connected", "database", cfg.MongoDatabase)

		return db, nil

	case models.StorageTypeMemory:
		logger.Log.Warnln("MONGO_URI is empty, keeping everything in memory")
		return memorystorage.New(), nil
	}

	return nil, errors.New("unknown storage type")
}
