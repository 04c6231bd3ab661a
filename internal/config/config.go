// Package config loads the application settings from an env file, the process
// environment and command line flags, and validates the result.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Application environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DefaultEnvFile is loaded into the process environment before anything else.
const DefaultEnvFile = "config/config.env"

// Config holds every tunable of the storybooks server.
type Config struct {
	AppEnv               string        `env:"APP_ENV" validate:"oneof=development production test"`
	Port                 int           `env:"PORT" validate:"min=1,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL" validate:"loglevel"`
	MongoURI             string        `env:"MONGO_URI"`
	MongoDatabase        string        `env:"MONGO_DATABASE" validate:"required"`
	DBConnectionTimeout  time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	DBConnectRetries     uint          `env:"DB_CONNECT_RETRIES" validate:"min=1"`
	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID" validate:"required_unless=AppEnv test"`
	GoogleClientSecret   string        `env:"GOOGLE_CLIENT_SECRET" validate:"required_unless=AppEnv test"`
	GoogleCallbackURL    string        `env:"GOOGLE_CALLBACK_URL" validate:"url"`
	SessionSecret        string        `env:"SESSION_SECRET" validate:"required,min=16"`
	SessionCookieName    string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	SessionTTL           time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" validate:"gt=0"`
	StaticDir            string        `env:"STATIC_DIR" validate:"staticdir"`
	TrustedSubnet        string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
}

var defaultConfig = Config{
	AppEnv:               EnvProduction,
	Port:                 5000,
	LogLevel:             "info",
	MongoDatabase:        "storybooks",
	DBConnectionTimeout:  10 * time.Second,
	DBConnectRetries:     5,
	GoogleCallbackURL:    "http://localhost:5000/auth/google/callback",
	SessionCookieName:    "storybooks.sid",
	SessionTTL:           14 * 24 * time.Hour,
	SessionSweepInterval: time.Minute,
	StaticDir:            "public",
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// RunAddr is the TCP address the HTTP server listens on.
func (c *Config) RunAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func validateDirPath(fieldLevel validator.FieldLevel) bool {
	info, err := os.Stat(fieldLevel.Field().String())
	if err != nil {
		return os.IsNotExist(err)
	}

	return info.IsDir()
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("staticdir", validateDirPath); err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	envFile             string
	args                []string
}

// WithDisableFlagsParsing skips command line flags, which tests need.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithEnvFile replaces the env file path.
func WithEnvFile(path string) InitOption {
	return func(options *initOptions) {
		options.envFile = path
	}
}

// WithArgs replaces os.Args[1:] as the flag source.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("storybooks", flag.ContinueOnError)
	flags.IntVar(&c.Port, "p", c.Port, "TCP port to listen on")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.MongoURI, "d", c.MongoURI, "MongoDB connection string")
	flags.StringVar(&c.StaticDir, "s", c.StaticDir, "directory with static assets")

	return flags.Parse(args)
}

// New builds the configuration. Priority: flags > environment > env file > defaults.
// A missing env file is not an error.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		envFile:             os.Getenv("CONFIG_FILE"),
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.envFile == "" {
		options.envFile = DefaultEnvFile
	}

	if err := godotenv.Load(options.envFile); err != nil {
		log.Printf("Unable to load %s file: %v", options.envFile, err)
	}

	// Variables that are unset or empty keep the default.
	values := new(Config)
	*values = defaultConfig
	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, fmt.Errorf("parse flags: %w", err)
		}
	}

	if err := values.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return values, nil
}
