package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

type (
	// Handler executes a single task attempt. A nil error completes the task,
	// an error wrapped with Permanent fails it for good, any other error is
	// retried according to the task's retry policy.
	Handler interface {
		Handle(ctx context.Context, t *task.Task) error
	}

	HandlerFunc            func(ctx context.Context, t *task.Task) error
	TaskHandlerFunc[T any] func(ctx context.Context, payload T) error
)

func (f HandlerFunc) Handle(ctx context.Context, t *task.Task) error {
	return f(ctx, t)
}

// NewTaskHandler decodes the JSON payload into T before calling handler.
// A payload that does not decode is never retried.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	return &typedHandler[T]{handler: handler}
}

type typedHandler[T any] struct {
	handler TaskHandlerFunc[T]
}

func (h *typedHandler[T]) Handle(ctx context.Context, t *task.Task) error {
	var payload T
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return Permanent(fmt.Errorf("failed to decode payload: %w", err))
	}
	return h.handler(ctx, payload)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
