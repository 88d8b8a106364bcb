package main

import (
	"time"

	"github.com/dmitrymomot/nimbu/pkg/httpserver"
	"github.com/dmitrymomot/nimbu/pkg/queue"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Name      string `env:"APP_NAME" envDefault:"nimbu-scheduler"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	HTTP  httpserver.Config
	Queue queue.Config
	Demo  demoConfig
}

type demoConfig struct {
	Tasks       int           `env:"DEMO_TASKS" envDefault:"20"`
	DelayedRate float64       `env:"DEMO_DELAYED_RATE" envDefault:"0.3"`
	MaxDelay    time.Duration `env:"DEMO_MAX_DELAY" envDefault:"5s"`
	FailureRate float64       `env:"DEMO_FAILURE_RATE" envDefault:"0.3"`
	PoisonRate  float64       `env:"DEMO_POISON_RATE" envDefault:"0.05"`
	WorkTime    time.Duration `env:"DEMO_WORK_TIME" envDefault:"200ms"`
}
