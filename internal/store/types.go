package store

import "time"

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// Run is one recorded setup invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
}

// StageEvent is one recorded stage outcome within a run.
type StageEvent struct {
	ID         int64
	RunID      int64
	Stage      string
	Status     string
	Detail     string
	Duration   time.Duration
	RecordedAt time.Time
}
