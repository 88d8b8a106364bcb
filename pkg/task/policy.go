package task

import "time"

// DefaultMaxRetries is the retry budget attached to tasks created without a policy.
const DefaultMaxRetries = 3

// BackoffStrategy computes how long a failed task waits before redelivery.
// The set of strategies is closed: Fixed and Exponential.
type BackoffStrategy interface {
	backoffStrategy()
}

// Fixed waits the same delay before every retry.
type Fixed struct {
	Delay time.Duration `json:"delay"`
}

func (Fixed) backoffStrategy() {}

// Exponential waits Base * Factor^attempt, clamped to MaxDelay.
// A MaxDelay of zero or less leaves the delay uncapped (it still saturates).
type Exponential struct {
	Base     time.Duration `json:"base"`
	Factor   uint32        `json:"factor"`
	MaxDelay time.Duration `json:"max_delay"`
}

func (Exponential) backoffStrategy() {}

// RetryPolicy is attached to a task at creation and never changes afterwards.
type RetryPolicy struct {
	MaxRetries int             `json:"max_retries"`
	Strategy   BackoffStrategy `json:"strategy"`
}

// DefaultRetryPolicy returns 3 retries with exponential backoff (1s, doubling, capped at 1m).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Strategy: Exponential{
			Base:     time.Second,
			Factor:   2,
			MaxDelay: time.Minute,
		},
	}
}

// Validate checks the policy for values that can never be honoured.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidRetryPolicy
	}
	if p.Strategy == nil {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// Allows reports whether a task may enter Failed{attempt}.
// It returns ErrRetryLimitExceeded once attempt goes past MaxRetries.
func (p RetryPolicy) Allows(attempt int) error {
	if attempt > p.MaxRetries {
		return ErrRetryLimitExceeded
	}
	return nil
}
