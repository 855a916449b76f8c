package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/events"
)

func runEvent() events.Event {
	return events.Event{
		ID:        "evt-1",
		Type:      events.EventRunFailed,
		RunID:     "run-1",
		Timestamp: time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC),
		Payload: events.RunPayload{
			Sources:  []string{"Octa"},
			Steps:    []events.StepPayload{{Source: "Octa", Step: "status", Rows: 2, Skipped: 1, Duration: 1500 * time.Millisecond, Error: "boom"}},
			Duration: 3 * time.Second,
			ExitCode: 1,
			Error:    "Octa: status: boom",
		},
	}
}

func TestNotifyPostsRunSummary(t *testing.T) {
	received := make(chan RunNotification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body RunNotification
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			received <- body
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewNotificationService(zap.NewNop(), config.NotificationConfig{WebhookURL: server.URL})
	require.True(t, svc.Enabled())
	require.NoError(t, svc.Notify(context.Background(), runEvent()))

	select {
	case body := <-received:
		assert.Equal(t, "run-1", body.RunID)
		assert.Equal(t, string(events.EventRunFailed), body.Event)
		assert.Equal(t, 1, body.ExitCode)
		assert.Equal(t, []string{"Octa"}, body.Sources)
		require.Len(t, body.Steps, 1)
		assert.Equal(t, "status", body.Steps[0].Step)
		assert.InDelta(t, 1.5, body.Steps[0].DurationSeconds, 0.001)
	default:
		t.Fatal("webhook was not called")
	}
}

func TestNotifyReportsWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewNotificationService(zap.NewNop(), config.NotificationConfig{WebhookURL: server.URL})
	err := svc.Notify(context.Background(), runEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifyWithoutWebhookIsNoop(t *testing.T) {
	svc := NewNotificationService(zap.NewNop(), config.NotificationConfig{})
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Notify(context.Background(), runEvent()))
	assert.NoError(t, svc.Notify(context.Background(), events.Event{Type: events.EventStepStarted, Payload: events.StepPayload{}}))
}
