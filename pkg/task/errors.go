package task

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryLimitExceeded is returned when a failure would push the attempt count past MaxRetries
	ErrRetryLimitExceeded = errors.New("retry limit exceeded")

	// ErrInvalidAttempt is returned when a failure carries an attempt that is zero or goes backwards
	ErrInvalidAttempt = errors.New("attempt must be positive and non-decreasing")

	// ErrInvalidRetryPolicy is returned for negative retry budgets or a missing backoff strategy
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")
)

// IllegalTransitionError identifies an edge that is not part of the task lifecycle.
type IllegalTransitionError struct {
	From State
	To   State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal task transition from %s to %s", e.From, e.To)
}

// IsIllegalTransition reports whether err is (or wraps) an *IllegalTransitionError.
func IsIllegalTransition(err error) bool {
	var e *IllegalTransitionError
	return errors.As(err, &e)
}
