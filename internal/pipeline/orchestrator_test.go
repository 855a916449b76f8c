package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}

func recordingStep(rec *recorder, name string, exclusive bool, err error) Step {
	return Step{
		Name:      name,
		Exclusive: exclusive,
		Run: func(_ context.Context, logger *zap.Logger) (StepStats, error) {
			rec.add(name)
			logger.Info("working on " + name)
			if err != nil {
				return StepStats{}, err
			}
			return StepStats{Rows: 1}, nil
		},
	}
}

func standardSteps(rec *recorder, failing string, err error) []Step {
	steps := make([]Step, 0, len(StepNames))
	for _, name := range StepNames {
		var stepErr error
		if name == failing {
			stepErr = err
		}
		steps = append(steps, recordingStep(rec, name, name != StepFact, stepErr))
	}
	return steps
}

type fakeLocker struct {
	rec        *recorder
	acquireErr error
	held       bool
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration, time.Duration) (func(context.Context) error, error) {
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	l.held = true
	l.rec.add("lock")
	return func(context.Context) error {
		l.held = false
		l.rec.add("unlock")
		return nil
	}, nil
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator(events.NewInMemoryDispatcher(), nil, LockConfig{}, zap.NewNop())

	payloads, err := o.Run(context.Background(), "run-1", domain.SourceOcta, standardSteps(rec, "", nil))
	require.NoError(t, err)
	assert.Equal(t, StepNames, rec.list())
	require.Len(t, payloads, len(StepNames))
	for _, p := range payloads {
		assert.Equal(t, "Octa", p.Source)
		assert.Equal(t, 1, p.Rows)
		assert.Empty(t, p.Error)
	}
}

func TestFailedStepAbortsBeforeFact(t *testing.T) {
	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	var failedEvents []events.StepPayload
	dispatcher.Subscribe(events.EventStepFailed, func(_ context.Context, e events.Event) error {
		failedEvents = append(failedEvents, e.Payload.(events.StepPayload))
		return nil
	})
	o := NewOrchestrator(dispatcher, nil, LockConfig{}, zap.NewNop())

	payloads, err := o.Run(context.Background(), "run-1", domain.SourceSults,
		standardSteps(rec, StepStatus, errors.New("relation dim_status does not exist")))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepStatus, stepErr.Step)
	assert.Equal(t, domain.SourceSults, stepErr.Source)
	assert.Equal(t, apperrors.ExitFailure, stepErr.ExitCode)
	assert.Contains(t, stepErr.Output, "working on status")
	assert.Contains(t, stepErr.Output, "relation dim_status does not exist")
	assert.NotContains(t, stepErr.Output, "working on date-time")

	assert.Equal(t, []string{StepDateTime, StepResponsibleParty, StepStatus}, rec.list())
	assert.NotContains(t, rec.list(), StepFact)
	assert.Len(t, payloads, 3)
	require.Len(t, failedEvents, 1)
	assert.Equal(t, StepStatus, failedEvents[0].Step)
}

func TestConnectivityFailureExitsWithTwo(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator(nil, nil, LockConfig{}, zap.NewNop())
	cause := apperrors.NewConnectivityError("source:Octa", errors.New("dial tcp: connection refused"))

	_, err := o.Run(context.Background(), "run-1", domain.SourceOcta, standardSteps(rec, StepDateTime, cause))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, apperrors.ExitConnectivity, stepErr.ExitCode)
	assert.Equal(t, apperrors.ExitConnectivity, apperrors.ExitCode(err))
	assert.Equal(t, []string{StepDateTime}, rec.list())
}

func TestLockHeldOnlyAroundDimensionSteps(t *testing.T) {
	rec := &recorder{}
	locker := &fakeLocker{rec: rec}
	o := NewOrchestrator(nil, locker, LockConfig{Key: "k", TTL: time.Minute, Retry: time.Millisecond}, zap.NewNop())

	_, err := o.Run(context.Background(), "run-1", domain.SourceOcta, standardSteps(rec, "", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"lock", StepDateTime, StepResponsibleParty, StepStatus, StepInteraction, "unlock", StepFact,
	}, rec.list())
	assert.False(t, locker.held)
}

func TestLockReleasedWhenDimensionStepFails(t *testing.T) {
	rec := &recorder{}
	locker := &fakeLocker{rec: rec}
	o := NewOrchestrator(nil, locker, LockConfig{Key: "k"}, zap.NewNop())

	_, err := o.Run(context.Background(), "run-1", domain.SourceOcta, standardSteps(rec, StepResponsibleParty, errors.New("boom")))
	require.Error(t, err)
	assert.Equal(t, []string{"lock", StepDateTime, StepResponsibleParty, "unlock"}, rec.list())
	assert.False(t, locker.held)
}

func TestLockFailureStopsBeforeFirstStep(t *testing.T) {
	rec := &recorder{}
	locker := &fakeLocker{rec: rec, acquireErr: apperrors.NewConnectivityError("redis", errors.New("i/o timeout"))}
	o := NewOrchestrator(nil, locker, LockConfig{Key: "k"}, zap.NewNop())

	payloads, err := o.Run(context.Background(), "run-1", domain.SourceOcta, standardSteps(rec, "", nil))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDateTime, stepErr.Step)
	assert.Equal(t, apperrors.ExitConnectivity, stepErr.ExitCode)
	assert.Empty(t, rec.list())
	require.Len(t, payloads, 1)
	assert.NotEmpty(t, payloads[0].Error)
}
