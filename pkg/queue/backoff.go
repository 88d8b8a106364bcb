package queue

import (
	"math"
	"time"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

// ComputeBackoff maps an attempt count and a strategy to a retry delay.
// It is pure and never fails: Fixed ignores attempt, Exponential computes
// Base * Factor^attempt with saturating arithmetic and clamps to MaxDelay.
// Unknown or nil strategies yield zero.
func ComputeBackoff(attempt int, strategy task.BackoffStrategy) time.Duration {
	switch s := strategy.(type) {
	case task.Fixed:
		return max(s.Delay, 0)
	case task.Exponential:
		return exponentialBackoff(attempt, s)
	default:
		return 0
	}
}

func exponentialBackoff(attempt int, s task.Exponential) time.Duration {
	if s.Base <= 0 {
		return 0
	}

	limit := time.Duration(math.MaxInt64)
	if s.MaxDelay > 0 {
		limit = s.MaxDelay
	}

	delay := s.Base
	if attempt > 0 {
		switch s.Factor {
		case 0:
			delay = 0
		case 1:
		default:
			// Stops as soon as the limit is reached, so large attempts cost at most ~63 rounds
			factor := time.Duration(s.Factor)
			for i := 0; i < attempt && delay < limit; i++ {
				if delay > math.MaxInt64/factor {
					delay = math.MaxInt64
					break
				}
				delay *= factor
			}
		}
	}

	return min(delay, limit)
}
