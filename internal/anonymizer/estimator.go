package anonymizer

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goanonymize/internal/logger"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// Counter counts the records a type would anonymize. *Engine implements it.
type Counter interface {
	Count(ctx context.Context, t *anonymize.Type) (int64, error)
}

// Estimate is the dry-run projection for one type.
type Estimate struct {
	Model     string
	Table     string
	Priority  bool
	Records   int64
	Chunks    int64
	Relations int
}

// EstimateResult is the dry-run projection for a plan.
type EstimateResult struct {
	ChunkSize int
	Models    []Estimate
}

// TotalRecords sums Records over every type.
func (r *EstimateResult) TotalRecords() int64 {
	var n int64
	for _, m := range r.Models {
		n += m.Records
	}
	return n
}

// TotalChunks sums Chunks over every type.
func (r *EstimateResult) TotalChunks() int64 {
	var n int64
	for _, m := range r.Models {
		n += m.Chunks
	}
	return n
}

// Estimator counts records and chunks for a plan without writing.
type Estimator struct {
	counter   Counter
	chunkSize int
	logger    *logger.Logger
}

// NewEstimator creates an estimator.
func NewEstimator(counter Counter, chunkSize int, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewNop()
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Estimator{counter: counter, chunkSize: chunkSize, logger: log}
}

// Estimate counts every planned type in run order.
func (e *Estimator) Estimate(ctx context.Context, plan *RunPlan) (*EstimateResult, error) {
	result := &EstimateResult{ChunkSize: e.chunkSize}
	priority := make(map[string]bool, len(plan.Priority))
	for _, t := range plan.Priority {
		priority[t.Name] = true
	}

	for _, t := range plan.Types() {
		count, err := e.counter.Count(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to estimate %s: %w", t.Name, err)
		}
		est := Estimate{
			Model:     t.Name,
			Table:     t.Table,
			Priority:  priority[t.Name],
			Records:   count,
			Relations: len(t.Relations),
		}
		if count > 0 {
			est.Chunks = (count + int64(e.chunkSize) - 1) / int64(e.chunkSize)
		}
		e.logger.Debugf("Estimated %s: %d records, %d chunks", t.Name, est.Records, est.Chunks)
		result.Models = append(result.Models, est)
	}
	return result, nil
}
