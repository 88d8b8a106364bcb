package task

import (
	"time"
)

// Task is a unit of work. A task has exactly one owner at a time (a queue,
// the scheduler, or a worker); ownership moves by handing the pointer over a
// channel, never by sharing it.
type Task struct {
	ID          TaskID      `json:"id"`
	JobID       JobID       `json:"job_id"`
	Payload     []byte      `json:"payload,omitempty"`
	Status      Status      `json:"status"`
	Attempts    int         `json:"attempts"`
	RetryPolicy RetryPolicy `json:"retry_policy"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Option is a functional option for New.
type Option func(*Task)

// WithID sets the task identifier instead of issuing a new one.
func WithID(id TaskID) Option {
	return func(t *Task) {
		if id != "" {
			t.ID = id
		}
	}
}

// WithJobID attaches the task to an existing job.
func WithJobID(id JobID) Option {
	return func(t *Task) {
		if id != "" {
			t.JobID = id
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(t *Task) {
		t.RetryPolicy = p
	}
}

// WithStatus sets the initial status. Useful for restoring a task snapshot.
// A Failed status also raises Attempts to its attempt number.
func WithStatus(s Status) Option {
	return func(t *Task) {
		t.Status = s
		if s.State == StateFailed && s.Attempt > t.Attempts {
			t.Attempts = s.Attempt
		}
	}
}

// WithAttempts sets the number of failed attempts already recorded.
func WithAttempts(n int) Option {
	return func(t *Task) {
		if n >= 0 {
			t.Attempts = n
		}
	}
}

// WithCreatedAt overrides the creation timestamp.
func WithCreatedAt(ts time.Time) Option {
	return func(t *Task) {
		if !ts.IsZero() {
			t.CreatedAt = ts
		}
	}
}

// New builds a Pending task with fresh identifiers and the default retry policy.
func New(payload []byte, opts ...Option) *Task {
	now := time.Now()
	t := &Task{
		ID:          NewTaskID(),
		JobID:       NewJobID(),
		Payload:     payload,
		Status:      Pending(),
		RetryPolicy: DefaultRetryPolicy(),
		CreatedAt:   now,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.UpdatedAt = t.CreatedAt
	return t
}

// Assign marks the task as claimed by a worker.
func (t *Task) Assign() error {
	return t.set(t.Status.Assign())
}

// Start marks the task as executing.
func (t *Task) Start() error {
	return t.set(t.Status.Start())
}

// Complete marks the task as successfully finished.
func (t *Task) Complete() error {
	return t.set(t.Status.Complete())
}

// Fail records a retryable failure as Failed{Attempts+1}. The structural check
// runs first, then the retry budget: a task that exhausted its budget gets
// ErrRetryLimitExceeded and is left untouched.
func (t *Task) Fail(reason string) error {
	attempt := t.Attempts + 1

	next, err := t.Status.Fail(attempt, reason)
	if err != nil {
		return err
	}
	if err := t.RetryPolicy.Allows(attempt); err != nil {
		return err
	}

	t.Attempts = attempt
	return t.set(next, nil)
}

// FailPermanent records a failure that must never be retried.
func (t *Task) FailPermanent(reason string) error {
	return t.set(t.Status.FailPermanent(reason))
}

// IsTerminal reports whether the task reached Completed or FailedPermanent.
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Clone returns a deep copy, safe to hand to observers while the original keeps moving.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Payload != nil {
		c.Payload = make([]byte, len(t.Payload))
		copy(c.Payload, t.Payload)
	}
	return &c
}

func (t *Task) set(next Status, err error) error {
	if err != nil {
		return err
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	return nil
}
