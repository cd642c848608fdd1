package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/events"
)

// NotificationService turns lifecycle events into agent-facing notifications:
// a log line, plus a JSON POST to the configured webhook.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
	client *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger.Named("notifications"),
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Notify handles a single event. Unknown event types are ignored.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("request_id", event.RequestID),
		zap.String("actor", event.Actor),
	}

	switch event.Type {
	case events.EventRequestEscalated:
		if p, ok := event.Payload.(events.RequestEscalatedPayload); ok {
			fields = append(fields, zap.String("old_priority", string(p.OldPriority)), zap.Int("days_overdue", p.DaysOverdue))
		}
		n.logger.Warn("request escalated", fields...)
	case events.EventRequestAssigned:
		if p, ok := event.Payload.(events.RequestAssignedPayload); ok && p.NewAgentID != nil {
			fields = append(fields, zap.String("agent_id", *p.NewAgentID))
		}
		n.logger.Info("request assigned", fields...)
	case events.EventRequestStatusChanged:
		if p, ok := event.Payload.(events.RequestStatusChangedPayload); ok {
			fields = append(fields, zap.String("from", string(p.OldStatus)), zap.String("to", string(p.NewStatus)))
		}
		n.logger.Info("request status changed", fields...)
	case events.EventRequestCreated, events.EventRequestDeleted:
		n.logger.Info(string(event.Type), fields...)
	case events.EventCommentAdded:
		n.logger.Debug("comment added", fields...)
		return nil
	default:
		return nil
	}

	return n.sendWebhook(ctx, event)
}

type webhookBody struct {
	ID        string           `json:"id"`
	Type      events.EventType `json:"type"`
	RequestID string           `json:"requestId"`
	Actor     string           `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload,omitempty"`
}

// sendWebhook posts the event to NOTIFY_WEBHOOK_URL. Any non-2xx answer is an error.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	body, err := json.Marshal(webhookBody{
		ID:        event.ID,
		Type:      event.Type,
		RequestID: event.RequestID,
		Actor:     event.Actor,
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("deliver %s webhook: %w", event.Type, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver %s webhook: status %d", event.Type, resp.StatusCode)
	}
	n.logger.Debug("webhook delivered",
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
	return nil
}
