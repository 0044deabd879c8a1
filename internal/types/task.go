package types

import "time"

type TaskState string

const (
	TaskStatePending TaskState = "pending"
	TaskStateRunning TaskState = "running"
	TaskStateSuccess TaskState = "success"
	TaskStateFailure TaskState = "failure"
)

// IsDone reports whether the task reached a terminal state.
func (s TaskState) IsDone() bool {
	return s == TaskStateSuccess || s == TaskStateFailure
}

// TaskStatus is the externally visible state of a queued run.
type TaskStatus struct {
	ID      string     `json:"id"`
	State   TaskState  `json:"state"`
	Request RunRequest `json:"request"`
	Result  *RunResult `json:"result,omitempty"`
	// Error is a human readable message, set only on failure.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
