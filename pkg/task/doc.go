// Package task defines the unit of work handled by the scheduling core: its
// identity, opaque payload, retry policy and lifecycle status.
//
// # Lifecycle
//
// A task starts Pending and moves along a fixed set of edges:
//
//	pending  --assign-->          assigned
//	failed   --assign-->          assigned   (redelivery of a retried task)
//	assigned --start-->           running
//	running  --complete-->        completed
//	running  --fail-->            failed{1}
//	failed   --fail-->            failed{a+1}
//	running  --fail_permanent-->  failed_permanent
//	failed   --fail_permanent-->  failed_permanent
//
// Completed and FailedPermanent are terminal. Status is an immutable value and
// every transition method returns a new Status or an *IllegalTransitionError,
// never mutating the receiver. The retry budget is a separate check
// (RetryPolicy.Allows) layered over the structural table, so "is this edge
// legal" and "is there budget left" fail with different errors.
//
// # Usage
//
//	t := task.New([]byte(`{"user_id":42}`),
//	    task.WithRetryPolicy(task.RetryPolicy{
//	        MaxRetries: 2,
//	        Strategy:   task.Fixed{Delay: 100 * time.Millisecond},
//	    }),
//	)
//
//	_ = t.Assign()
//	_ = t.Start()
//	if err := t.Fail("upstream timeout"); errors.Is(err, task.ErrRetryLimitExceeded) {
//	    _ = t.FailPermanent("upstream timeout")
//	}
package task
