package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load parses environment variables into a new T based on its field tags.
//
// The first call loads the default .env file if one exists. Variables that
// are already set in the process environment take precedence over the file.
//
// Example:
//
//	type Config struct {
//		AppName string `env:"APP_NAME" envDefault:"nimbu"`
//		Workers int    `env:"QUEUE_WORKERS" envDefault:"4"`
//	}
//
//	cfg, err := config.Load[Config]()
func Load[T any]() (T, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional
		_ = godotenv.Load()
	})

	cfg, err := env.ParseAs[T]()
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Useful for configuration the process cannot start without.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
	return cfg
}

// LoadFiles loads the given dotenv files into the process environment
// without overriding variables that are already set. Unlike the implicit
// .env lookup in Load, a missing file is an error.
func LoadFiles(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}
