package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventStepFailed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("webhook down")
	})
	d.Subscribe(EventStepFailed, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventRunSucceeded, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventStepFailed, "run-1", StepPayload{Step: "fact"}))
	assert.EqualError(t, err, "step_failed handler: webhook down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSubscribeManyReceivesEachType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []EventType
	d.SubscribeMany(func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	}, EventRunSucceeded, EventRunFailed)

	for _, et := range []EventType{EventRunStarted, EventRunSucceeded, EventStepFailed, EventRunFailed} {
		require.NoError(t, d.Publish(context.Background(), NewEvent(et, "run-1", nil)))
	}
	assert.Equal(t, []EventType{EventRunSucceeded, EventRunFailed}, seen)
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventRunFailed, "run-1", RunPayload{ExitCode: 2})
	b := NewEvent(EventRunFailed, "run-1", RunPayload{ExitCode: 2})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "run-1", a.RunID)
	assert.False(t, a.Timestamp.IsZero())
	assert.True(t, a.Finished())
	assert.False(t, NewEvent(EventStepSucceeded, "run-1", nil).Finished())
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRunStarted}))
}
