package task

import "github.com/google/uuid"

// TaskID identifies a single task. Values are opaque and compared by value.
type TaskID string

// NewTaskID issues a fresh random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

func (id TaskID) String() string {
	return string(id)
}

// JobID identifies the job a task belongs to.
type JobID string

// NewJobID issues a fresh random job identifier.
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

func (id JobID) String() string {
	return string(id)
}
