// Package httpserver runs the operational HTTP surface of a service: health
// checks, Prometheus metrics and whatever status routes the caller mounts.
//
// Server wraps http.Server with functional options and graceful shutdown.
// Run blocks until its context ends, then calls Shutdown with the configured
// deadline. Signal handling belongs to the caller, typically through
// signal.NotifyContext in main.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//
//	router := httpserver.NewOpsRouter(log, registry, func(ctx context.Context) error {
//		if q.Closed() {
//			return errors.New("queue closed")
//		}
//		return nil
//	})
//	router.Get("/stats", statsHandler)
//
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Start failures are wrapped with ErrStart and shutdown failures with
// ErrShutdown so they can be inspected with errors.Is.
package httpserver
