package app

import "time"

// Operation tracks one CLI invocation. Its ID tags every log line written
// during the invocation, and Close logs how it ended.
type Operation struct {
	ID      string
	Name    string
	User    string
	Started time.Time
	Status  string // "success" or "error"
}

// NewOperation creates an operation that started at now.
func NewOperation(name, user string, now time.Time) *Operation {
	now = now.UTC()
	return &Operation{
		ID:      now.Format("20060102T150405Z"),
		Name:    name,
		User:    user,
		Started: now,
		Status:  "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed returns true once Fail has been called.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// Elapsed is the time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.Started)
}
