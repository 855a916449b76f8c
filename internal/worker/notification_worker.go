package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/events"
	"github.com/spec-kit/ticket-warehouse/internal/service"
)

const queueSize = 16

// NotificationWorker delivers run notifications off the publishing goroutine.
type NotificationWorker struct {
	logger *zap.Logger
	queue  chan events.Event
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// StartNotificationWorker subscribes to run outcome events and starts delivery.
// A nil service or dispatcher yields a worker that does nothing.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, svc *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	w := &NotificationWorker{logger: logger, queue: make(chan events.Event, queueSize)}
	if svc == nil || dispatcher == nil {
		return w
	}

	dispatcher.SubscribeMany(w.enqueue, events.EventRunSucceeded, events.EventRunFailed)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for event := range w.queue {
			if err := svc.Notify(ctx, event); err != nil {
				logger.Warn("run notification failed", zap.String("run_id", event.RunID), zap.Error(err))
			}
		}
	}()
	return w
}

func (w *NotificationWorker) enqueue(ctx context.Context, event events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Debug("notification worker stopped, dropping event", zap.String("run_id", event.RunID))
		return nil
	}
	select {
	case w.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop waits for queued notifications to be delivered. Events published after
// Stop are dropped.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
