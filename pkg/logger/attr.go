package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Reason records a failure message reported by a worker under the key "reason".
func Reason(msg string) slog.Attr {
	return slog.String("reason", msg)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// TaskID records the task identifier under the key "task_id".
// Accepts any fmt.Stringer or string-like value.
func TaskID(id any) slog.Attr {
	return slog.String("task_id", stringify(id))
}

// JobID records the job identifier under the key "job_id".
func JobID(id any) slog.Attr {
	return slog.String("job_id", stringify(id))
}

// WorkerID records the worker identifier under the key "worker_id".
func WorkerID(id any) slog.Attr {
	return slog.String("worker_id", stringify(id))
}

// Attempt records the failed attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// MaxRetries records the retry budget under the key "max_retries".
func MaxRetries(n int) slog.Attr {
	return slog.Int("max_retries", n)
}

// Delay records a scheduling delay under the key "delay".
func Delay(d time.Duration) slog.Attr {
	return slog.Duration("delay", d)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Status records a task status under the key "status".
func Status(s any) slog.Attr {
	return slog.String("status", stringify(s))
}

// Capacity records a queue capacity under the key "capacity".
func Capacity(n int) slog.Attr {
	return slog.Int("capacity", n)
}

// Count records a number of items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
