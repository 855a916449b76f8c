package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

type fakePlanner struct {
	rec     *recorder
	failing map[domain.SourceSystem]string
	planned []domain.SourceSystem
}

func (p *fakePlanner) Steps(system domain.SourceSystem) ([]Step, error) {
	p.planned = append(p.planned, system)
	failing := p.failing[system]
	return standardSteps(p.rec, failing, errors.New("duplicate key value")), nil
}

func collectRuns(d events.Dispatcher) map[events.EventType][]events.RunPayload {
	seen := map[events.EventType][]events.RunPayload{}
	for _, et := range []events.EventType{events.EventRunStarted, events.EventRunSucceeded, events.EventRunFailed} {
		et := et
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			seen[et] = append(seen[et], e.Payload.(events.RunPayload))
			return nil
		})
	}
	return seen
}

func TestRunnerConformsEverySource(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	seen := collectRuns(dispatcher)
	planner := &fakePlanner{rec: &recorder{}}
	runner := NewRunner(NewOrchestrator(dispatcher, nil, LockConfig{}, zap.NewNop()), planner, dispatcher, zap.NewNop(), false)

	summary, err := runner.Run(context.Background(), []domain.SourceSystem{domain.SourceOcta, domain.SourceSults})
	require.NoError(t, err)

	assert.Equal(t, []string{"Octa", "Sults"}, summary.Sources)
	assert.Len(t, summary.Steps, 2*len(StepNames))
	assert.Equal(t, apperrors.ExitOK, summary.ExitCode)
	assert.Empty(t, summary.Error)
	assert.Len(t, seen[events.EventRunStarted], 1)
	assert.Len(t, seen[events.EventRunSucceeded], 1)
	assert.Empty(t, seen[events.EventRunFailed])
}

func TestRunnerStopsAtFirstFailedSource(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	seen := collectRuns(dispatcher)
	planner := &fakePlanner{rec: &recorder{}, failing: map[domain.SourceSystem]string{domain.SourceOcta: StepFact}}
	runner := NewRunner(NewOrchestrator(dispatcher, nil, LockConfig{}, zap.NewNop()), planner, dispatcher, zap.NewNop(), true)

	summary, err := runner.Run(context.Background(), []domain.SourceSystem{domain.SourceOcta, domain.SourceSults})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepFact, stepErr.Step)
	assert.Equal(t, []domain.SourceSystem{domain.SourceOcta}, planner.planned)
	assert.Len(t, summary.Steps, len(StepNames))
	assert.Equal(t, apperrors.ExitFailure, summary.ExitCode)
	assert.True(t, summary.DryRun)
	assert.Contains(t, summary.Error, "duplicate key value")
	require.Len(t, seen[events.EventRunFailed], 1)
	assert.Equal(t, apperrors.ExitFailure, seen[events.EventRunFailed][0].ExitCode)
	assert.Empty(t, seen[events.EventRunSucceeded])
}
