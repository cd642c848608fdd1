package dto

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=4000"`
	Priority        string   `json:"priority" validate:"omitempty,priority"`
	DueDate         string   `json:"dueDate" validate:"required,isodate"`
	AssignedAgentID *string  `json:"assignedAgentId"`
	Tags            []string `json:"tags" validate:"max=20,dive,max=40"`
}

// ParsedDueDate returns the due date as UTC midnight.
func (r CreateRequestRequest) ParsedDueDate() (time.Time, error) {
	due, err := time.Parse(domain.DateLayout, r.DueDate)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid payload", map[string]any{"dueDate": "isodate"})
	}
	return due, nil
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,status"`
}

// AssignRequest payload. A null or empty agentId unassigns.
type AssignRequest struct {
	AgentID *string `json:"agentId"`
}

// CommentRequest payload.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// RequestResponse represents a request.
type RequestResponse struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          domain.Status   `json:"status"`
	Priority        domain.Priority `json:"priority"`
	DueDate         string          `json:"dueDate"`
	AssignedAgentID *string         `json:"assignedAgentId,omitempty"`
	Tags            []string        `json:"tags"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Version         int64           `json:"version"`
}

// NewRequestResponse maps a domain request.
func NewRequestResponse(req *domain.Request) RequestResponse {
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return RequestResponse{
		ID:              req.ID,
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		Priority:        req.Priority,
		DueDate:         req.DueDate.Format(domain.DateLayout),
		AssignedAgentID: req.AssignedAgentID,
		Tags:            tags,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
		Version:         req.Version,
	}
}

// CommentResponse represents a comment.
type CommentResponse struct {
	ID        string             `json:"id"`
	RequestID string             `json:"requestId"`
	Author    string             `json:"author"`
	Text      string             `json:"text"`
	Type      domain.CommentType `json:"type"`
	CreatedAt time.Time          `json:"createdAt"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		RequestID: c.RequestID,
		Author:    c.Author,
		Text:      c.Text,
		Type:      c.Type,
		CreatedAt: c.CreatedAt,
	}
}

// TransitionsResponse lists the statuses reachable from the current one.
type TransitionsResponse struct {
	RequestID string          `json:"requestId"`
	Current   domain.Status   `json:"current"`
	Allowed   []domain.Status `json:"allowed"`
	CanFinish bool            `json:"canFinish"`
}

// SweepFailureResponse describes one request a sweep could not process.
type SweepFailureResponse struct {
	RequestID string `json:"requestId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// SweepResponse summarizes an escalation sweep.
type SweepResponse struct {
	Escalated []string               `json:"escalated"`
	Count     int                    `json:"count"`
	Failures  []SweepFailureResponse `json:"failures"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewSweepResponse maps a sweep result.
func NewSweepResponse(result *lifecycle.SweepResult) SweepResponse {
	failures := make([]SweepFailureResponse, 0, len(result.Failures))
	for _, f := range result.Failures {
		message := ""
		if f.Err != nil {
			message = apperrors.ToDomainError(f.Err).Message
		}
		failures = append(failures, SweepFailureResponse{RequestID: f.RequestID, Code: f.Code, Message: message})
	}
	escalated := result.Escalated
	if escalated == nil {
		escalated = []string{}
	}
	return SweepResponse{
		Escalated: escalated,
		Count:     result.Count(),
		Failures:  failures,
		Timestamp: result.RanAt,
	}
}
