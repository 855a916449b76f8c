package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Planner produces the step list of a source.
type Planner interface {
	Steps(system domain.SourceSystem) ([]Step, error)
}

// Runner conforms several sources one after another.
type Runner struct {
	orchestrator *Orchestrator
	planner      Planner
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	dryRun       bool
}

// NewRunner instantiates the runner.
func NewRunner(orchestrator *Orchestrator, planner Planner, dispatcher events.Dispatcher, logger *zap.Logger, dryRun bool) *Runner {
	return &Runner{orchestrator: orchestrator, planner: planner, dispatcher: dispatcher, logger: logger, dryRun: dryRun}
}

// Run processes sources in the given order and stops at the first failed step.
// The summary is returned in both cases; on failure the error is a *StepError.
func (r *Runner) Run(ctx context.Context, sources []domain.SourceSystem) (events.RunPayload, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))
	start := time.Now()

	summary := events.RunPayload{DryRun: r.dryRun}
	for _, s := range sources {
		summary.Sources = append(summary.Sources, string(s))
	}
	r.publish(ctx, runID, events.EventRunStarted, summary)
	logger.Info("run started", zap.Strings("sources", summary.Sources), zap.Bool("dry_run", r.dryRun))

	err := r.run(ctx, runID, sources, &summary)
	summary.Duration = time.Since(start)
	summary.ExitCode = apperrors.ExitCode(err)

	if err != nil {
		summary.Error = err.Error()
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			logger.Error("run failed",
				zap.String("source", string(stepErr.Source)),
				zap.String("step", stepErr.Step),
				zap.Int("exit_code", stepErr.ExitCode),
				zap.Error(stepErr.Err),
			)
		} else {
			logger.Error("run failed", zap.Error(err))
		}
		r.publish(ctx, runID, events.EventRunFailed, summary)
		return summary, err
	}

	logger.Info("run succeeded", zap.Duration("duration", summary.Duration))
	r.publish(ctx, runID, events.EventRunSucceeded, summary)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, runID string, sources []domain.SourceSystem, summary *events.RunPayload) error {
	for _, system := range sources {
		steps, err := r.planner.Steps(system)
		if err != nil {
			return err
		}
		payloads, err := r.orchestrator.Run(ctx, runID, system, steps)
		summary.Steps = append(summary.Steps, payloads...)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, runID string, eventType events.EventType, payload events.RunPayload) {
	if r.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, runID, payload)
	if err := r.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
