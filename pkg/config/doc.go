// Package config loads typed configuration from environment variables.
//
// Structs describe their variables with caarlos0/env tags; a .env file in the
// working directory is picked up automatically on first use.
//
//	type AppConfig struct {
//		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//		HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	cfg, err := config.Load[AppConfig]()
//	if err != nil {
//		return err
//	}
//
// Additional files, such as per-environment overrides, can be loaded
// explicitly before the first Load:
//
//	if err := config.LoadFiles(".env.local"); err != nil {
//		return err
//	}
package config
