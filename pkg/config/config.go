package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the service reads at startup. The GitHub token is
// the only required value; everything else defaults to the tuning the
// upstream quota tolerates.
type Config struct {
	Port     string `default:"8080"`
	LogLevel string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`

	GithubToken string `split_words:"true" validate:"required"`

	// Throttling. SearchPageDelay applies between code-search pages,
	// RepoFetchDelay between any two per-repository calls.
	SearchPageDelay time.Duration `split_words:"true" default:"6s" validate:"gt=0"`
	RepoFetchDelay  time.Duration `split_words:"true" default:"2s" validate:"gt=0"`

	// Discovery tuning. Empirical constants, kept configurable on purpose:
	// oversampling compensates for repositories that fail the Move-file
	// check or contribute no qualifying committers.
	MaxSearchPages   int `split_words:"true" default:"10" validate:"gt=0"`
	OversampleFactor int `split_words:"true" default:"3" validate:"gt=0"`
	ScanFactor       int `split_words:"true" default:"2" validate:"gt=0"`

	Concurrency        int           `split_words:"true" default:"4" validate:"gt=0"`
	DetectionCacheSize int           `split_words:"true" default:"512" validate:"gt=0"`
	PipelineTimeout    time.Duration `split_words:"true" default:"5m" validate:"gt=0"`
	HTTPClientTimeout  time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	ReadTimeout        time.Duration `split_words:"true" default:"15s" validate:"gt=0"`
	WriteTimeout       time.Duration `split_words:"true" default:"10m" validate:"gt=0"`
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("env load: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	AppConfig = &cfg
	return nil
}
