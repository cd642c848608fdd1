package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/events"
)

// Notifier consumes lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// NotificationWorker decouples notification delivery from the request path.
// Events are queued by a wildcard subscription and drained by Run.
type NotificationWorker struct {
	notifier Notifier
	queue    chan events.Event
	logger   *zap.Logger
}

// NewNotificationWorker subscribes the worker to every event on dispatcher.
// When the queue is full new events are dropped with a warning.
func NewNotificationWorker(dispatcher events.Dispatcher, notifier Notifier, buffer int, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	w := &NotificationWorker{
		notifier: notifier,
		queue:    make(chan events.Event, buffer),
		logger:   logger.Named("notification_worker"),
	}
	dispatcher.Subscribe(events.AllEvents, w.enqueue)
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID))
	}
	return nil
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
func (w *NotificationWorker) Run(ctx context.Context) error {
	for {
		select {
		case event := <-w.queue:
			w.deliver(ctx, event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.deliver(context.WithoutCancel(ctx), event)
				default:
					return nil
				}
			}
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}
