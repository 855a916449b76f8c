package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	"github.com/spec-kit/ticket-warehouse/internal/observability"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// StepStats is what a step reports on success.
type StepStats struct {
	Rows    int
	Skipped int
}

// StepFunc runs one step. logger also feeds the step's captured output.
type StepFunc func(ctx context.Context, logger *zap.Logger) (StepStats, error)

// Step is one named unit of a source run. Exclusive steps run while holding
// the cross-process dimension lock.
type Step struct {
	Name      string
	Exclusive bool
	Run       StepFunc
}

// StepError reports the first failed step of a run.
type StepError struct {
	Step     string
	Source   domain.SourceSystem
	ExitCode int
	Output   string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Locker serializes dimension writes across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl, retry time.Duration) (func(context.Context) error, error)
}

// LockConfig configures the dimension lock.
type LockConfig struct {
	Key   string
	TTL   time.Duration
	Retry time.Duration
}

// Orchestrator runs a fixed step list sequentially and stops at the first failure.
type Orchestrator struct {
	dispatcher events.Dispatcher
	locker     Locker
	lock       LockConfig
	logger     *zap.Logger
}

// NewOrchestrator instantiates the orchestrator. A nil locker runs exclusive
// steps without locking.
func NewOrchestrator(dispatcher events.Dispatcher, locker Locker, lock LockConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{dispatcher: dispatcher, locker: locker, lock: lock, logger: logger}
}

// Run executes steps for source in order. Every step commits before the next
// starts; a failed step aborts the run with a *StepError and later steps
// never run. The returned payloads cover every step that ran.
func (o *Orchestrator) Run(ctx context.Context, runID string, source domain.SourceSystem, steps []Step) ([]events.StepPayload, error) {
	logger := o.logger.With(zap.String("source", string(source)))

	var release func(context.Context) error
	unlock := func() {
		if release == nil {
			return
		}
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("releasing dimension lock", zap.Error(err))
		}
		release = nil
	}
	defer unlock()

	payloads := make([]events.StepPayload, 0, len(steps))
	for _, step := range steps {
		if !step.Exclusive {
			unlock()
		} else if release == nil && o.locker != nil {
			var err error
			release, err = o.locker.Acquire(ctx, o.lock.Key, o.lock.TTL, o.lock.Retry)
			if err != nil {
				stepErr := o.fail(step, source, apperrors.NewStepError(step.Name, fmt.Errorf("acquire dimension lock: %w", err)), "")
				payload := events.StepPayload{Source: string(source), Step: step.Name, ExitCode: stepErr.ExitCode, Error: stepErr.Err.Error()}
				payloads = append(payloads, payload)
				o.publish(ctx, runID, events.EventStepFailed, payload)
				return payloads, stepErr
			}
		}

		payload, err := o.runStep(ctx, runID, source, step, logger)
		payloads = append(payloads, payload)
		if err != nil {
			return payloads, err
		}
	}
	return payloads, nil
}

func (o *Orchestrator) runStep(ctx context.Context, runID string, source domain.SourceSystem, step Step, logger *zap.Logger) (events.StepPayload, error) {
	payload := events.StepPayload{Source: string(source), Step: step.Name}
	o.publish(ctx, runID, events.EventStepStarted, payload)

	stepLogger, capture := observability.Tee(logger.With(zap.String("step", step.Name)))
	stepLogger.Info("step started")

	start := time.Now()
	stats, err := step.Run(ctx, stepLogger)
	payload.Duration = time.Since(start)
	payload.Rows = stats.Rows
	payload.Skipped = stats.Skipped

	if err != nil {
		stepLogger.Error("step failed", zap.Error(err))
		stepErr := o.fail(step, source, apperrors.NewStepError(step.Name, err), capture.String())
		payload.ExitCode = stepErr.ExitCode
		payload.Error = err.Error()
		o.publish(ctx, runID, events.EventStepFailed, payload)
		return payload, stepErr
	}

	stepLogger.Info("step committed",
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", payload.Duration),
	)
	o.publish(ctx, runID, events.EventStepSucceeded, payload)
	return payload, nil
}

func (o *Orchestrator) fail(step Step, source domain.SourceSystem, err error, output string) *StepError {
	return &StepError{
		Step:     step.Name,
		Source:   source,
		ExitCode: apperrors.ExitCode(err),
		Output:   output,
		Err:      err,
	}
}

func (o *Orchestrator) publish(ctx context.Context, runID string, eventType events.EventType, payload any) {
	if o.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, runID, payload)
	if err := o.dispatcher.Publish(ctx, event); err != nil {
		o.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
