package anonymizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/goanonymize/internal/logger"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// Processor anonymizes one type. *Engine is the production implementation.
type Processor interface {
	Process(ctx context.Context, t *anonymize.Type, progress ProgressReporter) (*ModelStats, error)
}

// Gate decides whether a run may write. *guard.Guard implements it.
type Gate interface {
	IsRestricted() bool
	ConfirmToProceed(ctx context.Context, promptContext string, check func() bool) (bool, error)
}

// RunOptions selects what a run touches.
type RunOptions struct {
	Include []string // only these types, when non-empty
	Exclude []string
}

// Orchestrator runs the guard, builds the plan and drives the engine over
// each planned type in order, one at a time.
type Orchestrator struct {
	registry    *anonymize.Registry
	processor   Processor
	gate        Gate
	priority    []string
	environment string
	progress    ProgressReporter
	logger      *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgress sets the progress reporter handed to the processor.
func WithProgress(p ProgressReporter) Option {
	return func(o *Orchestrator) { o.progress = p }
}

// WithEnvironment records the environment name in reports.
func WithEnvironment(env string) Option {
	return func(o *Orchestrator) { o.environment = env }
}

// NewOrchestrator creates an orchestrator. priority is the configured
// priority_models list.
func NewOrchestrator(reg *anonymize.Registry, p Processor, gate Gate, priority []string, opts ...Option) (*Orchestrator, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if p == nil {
		return nil, errors.New("processor is nil")
	}
	if gate == nil {
		return nil, errors.New("guard is nil")
	}

	o := &Orchestrator{
		registry:  reg,
		processor: p,
		gate:      gate,
		priority:  priority,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}
	if o.progress == nil {
		o.progress = NopProgress{}
	}
	return o, nil
}

// Plan builds the run order for the registered types. Every planned type
// is validated so a bad declaration fails before anything is written.
func (o *Orchestrator) Plan(include, exclude []string) (*RunPlan, error) {
	return PlanRegistry(o.registry, o.priority, include, exclude)
}

// Run executes a full anonymization. A declined confirmation returns an
// aborted report and no error. When a type fails the run stops, types
// already processed stay committed, and the failed report is returned
// along with the error.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	report := &Report{
		RunID:       uuid.NewString(),
		Environment: o.environment,
		StartedAt:   time.Now(),
	}
	log := o.logger.WithRun(report.RunID)

	ok, err := o.gate.ConfirmToProceed(ctx, "Anonymize records", o.gate.IsRestricted)
	if err != nil {
		report.Err = err
		return report.finish(StatusFailed), fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		log.Warn("Anonymization aborted by operator")
		return report.finish(StatusAborted), nil
	}

	plan, err := o.Plan(opts.Include, opts.Exclude)
	if err != nil {
		report.Err = err
		return report.finish(StatusFailed), fmt.Errorf("failed to plan run: %w", err)
	}

	log.Infow("Starting anonymization",
		"environment", o.environment,
		"models", plan.Names(),
	)

	for _, t := range plan.Types() {
		stats, err := o.processor.Process(ctx, t, o.progress)
		if stats != nil {
			report.Models = append(report.Models, stats)
		}
		if err != nil {
			report.FailedModel = t.Name
			report.Err = err
			log.Errorw("Anonymization failed", "model", t.Name, "error", err)
			return report.finish(StatusFailed), fmt.Errorf("anonymizing %s: %w", t.Name, err)
		}
	}

	report.finish(StatusCompleted)
	log.Infow("Anonymization completed",
		"models", len(report.Models),
		"records", report.TotalRecords(),
		"duration", report.Duration,
	)
	return report, nil
}
