package anonymizer

import (
	"fmt"
	"time"
)

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// ModelStats records what happened to one type.
type ModelStats struct {
	Model     string
	Table     string
	Total     int64 // eligible records counted before the first chunk
	Processed int64 // records in committed chunks
	Chunks    int
	Duration  time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Environment string
	Status      Status
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Models      []*ModelStats
	FailedModel string
	Err         error
}

// TotalRecords sums Processed over every type.
func (r *Report) TotalRecords() int64 {
	var n int64
	for _, m := range r.Models {
		n += m.Processed
	}
	return n
}

// TotalChunks sums committed chunks over every type.
func (r *Report) TotalChunks() int {
	n := 0
	for _, m := range r.Models {
		n += m.Chunks
	}
	return n
}

func (r *Report) finish(status Status) *Report {
	r.Status = status
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
	return r
}

// ModelError reports a chunk that failed and was rolled back. Chunks
// committed before it stay committed.
type ModelError struct {
	Model string
	Chunk int
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s chunk %d: %v", e.Model, e.Chunk, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
