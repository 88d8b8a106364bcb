// Package logger provides a small factory around Go's slog package plus helper
// attribute constructors that keep key names consistent across the scheduler.
//
// New creates a *slog.Logger configured by Option functions:
//
//   - WithDevelopment / WithStaging / WithProduction / WithEnvironment pick
//     sensible defaults per environment.
//   - WithFormat selects text or json output; WithLevel / WithLevelName set the
//     minimum level.
//   - WithAttr attaches static attributes; WithOutput redirects output.
//
// Discard returns a logger that drops every record; library packages default
// to it so they stay silent until the process wires a real logger in.
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("production", "scheduler"))
//	logger.SetAsDefault(log)
//
//	log.Info("retry scheduled",
//	    logger.TaskID(t.ID),
//	    logger.Attempt(t.Attempts),
//	    logger.Delay(delay),
//	)
//
// # Error Handling
//
// Error produces an attribute only when the supplied error is non-nil, so
//
//	log.Info("operation finished", logger.Error(err))
//
// needs no nil check.
package logger
