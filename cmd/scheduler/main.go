// Command scheduler runs the task queue with a demo worker pool and serves
// health, stats and Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/nimbu/pkg/config"
	"github.com/dmitrymomot/nimbu/pkg/httpserver"
	"github.com/dmitrymomot/nimbu/pkg/logger"
	"github.com/dmitrymomot/nimbu/pkg/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[appConfig]()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithEnvironment(cfg.Env, cfg.Name),
	)
	logger.SetAsDefault(log)

	policy, err := cfg.Queue.RetryPolicy()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	q, err := queue.NewFromConfig(cfg.Queue,
		queue.WithLogger(log),
		queue.WithMetrics(queue.NewMetrics(registry)),
	)
	if err != nil {
		return err
	}

	worker, err := queue.NewWorker(q, demoHandler(cfg.Demo),
		queue.WithConcurrency(cfg.Queue.Workers),
		queue.WithTaskTimeout(cfg.Queue.TaskTimeout),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		q.Shutdown()
		return err
	}

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(worker.Run(ctx))
	g.Go(func() error {
		return server.Run(ctx, newRouter(q, registry, log))
	})
	g.Go(func() error {
		logEvents(ctx, q, log)
		return nil
	})
	g.Go(func() error {
		return seed(ctx, q, policy, cfg.Demo, log)
	})

	log.Info("scheduler started",
		logger.Capacity(q.Capacity()),
		slog.Int("workers", cfg.Queue.Workers),
		slog.String("http_addr", cfg.HTTP.Addr))

	<-ctx.Done()
	log.Info("shutdown signal received")

	// The worker stops first so in-flight outcomes still reach the scheduler.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var runErr error
	select {
	case runErr = <-done:
	case <-time.After(cfg.ShutdownTimeout):
		runErr = errors.New("graceful shutdown timed out")
	}

	q.Shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("scheduler stopped with error", logger.Error(runErr))
		return runErr
	}

	log.Info("scheduler stopped")
	return nil
}
