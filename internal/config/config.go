// Package config assembles the runtime configuration from defaults,
// command-line flags, a .env file, and environment variables, in that order
// of increasing priority, then validates the result.
package config

import (
	"flag"
	"log"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	funk "github.com/thoas/go-funk"
)

// Config holds every runtime setting of the service.
type Config struct {
	// RunAddr is the address the HTTP server listens on.
	RunAddr string `env:"SERVER_ADDRESS" validate:"hostname_port"`

	// ShortURLBase is the public base used to print shortened URLs.
	ShortURLBase string `env:"BASE_URL" validate:"url"`

	// LogLevel is the zap logging level.
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	// AuthCookieName is the name of the session cookie.
	AuthCookieName string `env:"AUTH_COOKIE_NAME" validate:"required"`

	// AuthCookieSigningSecretKey is the URL-safe base64 encoded HMAC key
	// used to sign session tokens.
	AuthCookieSigningSecretKey string `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" validate:"required,base64url"`
}

var defaultConfig = Config{
	RunAddr:        ":8080",
	ShortURLBase:   "http://localhost:8080",
	LogLevel:       "info",
	AuthCookieName: "tinylink_session",
	// Development key. Override in any real deployment.
	AuthCookieSigningSecretKey: "c2Vzc2lvbi1zaWduaW5nLWRldi1rZXk=",
}

var allowedLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flag parsing. Tests use it to
// keep the test binary's own flags intact.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration: defaults, then flags, then .env and
// environment variables, then validation.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.ShortURLBase, "b", values.ShortURLBase, "base address of the resulting shortened URL")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.Parse()
	}

	if err := env.Parse(&values); err != nil {
		return nil, err
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
