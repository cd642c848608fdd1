package events

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestEscalated     EventType = "request_escalated"
	EventRequestDeleted       EventType = "request_deleted"
	EventCommentAdded         EventType = "comment_added"
)

// Event represents a domain event emitted by the engine and services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Title    string          `json:"title"`
	Priority domain.Priority `json:"priority"`
	DueDate  string          `json:"due_date"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	OldAgentID *string `json:"old_agent_id,omitempty"`
	NewAgentID *string `json:"new_agent_id,omitempty"`
}

// RequestEscalatedPayload payload.
type RequestEscalatedPayload struct {
	OldPriority domain.Priority `json:"old_priority"`
	NewPriority domain.Priority `json:"new_priority"`
	DaysOverdue int             `json:"days_overdue"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string             `json:"comment_id"`
	Type        domain.CommentType `json:"type"`
	TextPreview string             `json:"text_preview"`
}
