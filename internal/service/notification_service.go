package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/events"
)

const webhookTimeout = 10 * time.Second

// RunNotification is the webhook body sent when a run finishes.
type RunNotification struct {
	RunID           string             `json:"run_id"`
	Event           string             `json:"event"`
	Timestamp       time.Time          `json:"timestamp"`
	Sources         []string           `json:"sources"`
	DryRun          bool               `json:"dry_run"`
	ExitCode        int                `json:"exit_code"`
	Error           string             `json:"error,omitempty"`
	DurationSeconds float64            `json:"duration_seconds"`
	Steps           []StepNotification `json:"steps"`
}

// StepNotification summarizes one step in a RunNotification.
type StepNotification struct {
	Source          string  `json:"source"`
	Step            string  `json:"step"`
	Rows            int     `json:"rows"`
	Skipped         int     `json:"skipped"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// NotificationService posts run outcomes to the configured webhook.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
}

// Enabled reports whether a webhook is configured.
func (n *NotificationService) Enabled() bool {
	return strings.TrimSpace(n.cfg.WebhookURL) != ""
}

// Notify delivers a finished-run event. Other events are ignored.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) error {
	run, ok := event.Payload.(events.RunPayload)
	if !ok || !event.Finished() {
		return nil
	}
	n.logger.Info(string(event.Type),
		zap.String("run_id", event.RunID),
		zap.Strings("sources", run.Sources),
		zap.Int("exit_code", run.ExitCode),
	)
	if !n.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.post(NewRunNotification(event, run))
}

// NewRunNotification builds the webhook body for a run event.
func NewRunNotification(event events.Event, run events.RunPayload) RunNotification {
	body := RunNotification{
		RunID:           event.RunID,
		Event:           string(event.Type),
		Timestamp:       event.Timestamp,
		Sources:         run.Sources,
		DryRun:          run.DryRun,
		ExitCode:        run.ExitCode,
		Error:           run.Error,
		DurationSeconds: run.Duration.Seconds(),
		Steps:           make([]StepNotification, 0, len(run.Steps)),
	}
	for _, s := range run.Steps {
		body.Steps = append(body.Steps, StepNotification{
			Source:          s.Source,
			Step:            s.Step,
			Rows:            s.Rows,
			Skipped:         s.Skipped,
			DurationSeconds: s.Duration.Seconds(),
			Error:           s.Error,
		})
	}
	return body
}

func (n *NotificationService) post(body RunNotification) error {
	agent := fiber.Post(n.cfg.WebhookURL).JSON(body).Timeout(webhookTimeout)
	status, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post run notification: %w", errs[0])
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("post run notification: webhook returned %d: %s", status, strings.TrimSpace(string(resp)))
	}
	n.logger.Debug("run notification delivered", zap.String("run_id", body.RunID), zap.Int("status", status))
	return nil
}
