package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// RequestService coordinates request workflows around the lifecycle engine.
type RequestService struct {
	requests    repository.RequestRepository
	comments    repository.CommentRepository
	agents      repository.AgentRepository
	engine      *lifecycle.Engine
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	sweepOnRead bool
}

// RequestDependencies bundles repositories and collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	CommentRepo repository.CommentRepository
	AgentRepo   repository.AgentRepository
	Engine      *lifecycle.Engine
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// SweepOnRead runs an escalation sweep before every list.
	SweepOnRead bool
}

// RequestCreateInput describes request creation payload.
type RequestCreateInput struct {
	Title           string
	Description     string
	Priority        domain.Priority
	DueDate         time.Time
	AssignedAgentID *string
	Tags            []string
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:    deps.RequestRepo,
		comments:    deps.CommentRepo,
		agents:      deps.AgentRepo,
		engine:      deps.Engine,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		sweepOnRead: deps.SweepOnRead,
	}
}

// CreateRequest stores a new Open, unassigned request. When an initial agent
// is given it is applied through the engine afterwards, so the assignment is
// audited like any other.
func (s *RequestService) CreateRequest(ctx context.Context, actor string, input RequestCreateInput) (*domain.Request, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.DueDate.IsZero() {
		return nil, apperrors.NewValidationError("due date required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	var initialAgent *string
	if input.AssignedAgentID != nil && strings.TrimSpace(*input.AssignedAgentID) != "" {
		agentID := strings.TrimSpace(*input.AssignedAgentID)
		if _, err := s.agents.GetAgent(ctx, agentID); err != nil {
			return nil, mapRepoError(err, "agent")
		}
		initialAgent = &agentID
	}

	now := s.engine.Now()
	req := &domain.Request{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.StatusOpen,
		Priority:    priority,
		DueDate:     input.DueDate.UTC(),
		Tags:        normalizeTags(input.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, mapRepoError(err, "request")
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		Actor:     actor,
		Timestamp: now,
		Payload: events.RequestCreatedPayload{
			Title:    req.Title,
			Priority: req.Priority,
			DueDate:  req.DueDate.Format(domain.DateLayout),
		},
	})

	if initialAgent == nil {
		return req, nil
	}
	assigned, err := s.engine.Assign(ctx, req.ID, initialAgent, actor)
	if err != nil {
		s.logger.Warn("initial assignment failed, removing request",
			zap.String("request_id", req.ID), zap.Error(err))
		if delErr := s.requests.Delete(ctx, req.ID); delErr != nil {
			s.logger.Error("remove request after failed assignment", zap.String("request_id", req.ID), zap.Error(delErr))
		}
		return nil, err
	}
	return assigned, nil
}

// GetRequest fetches a single request.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "request")
	}
	return req, nil
}

// ListRequests returns requests newest first. With sweep-on-read enabled the
// escalation sweep runs first; its failures are logged and never fail the list.
func (s *RequestService) ListRequests(ctx context.Context, limit, offset int) ([]domain.Request, error) {
	if s.sweepOnRead {
		result, err := s.engine.RunEscalationSweep(ctx, s.engine.Now())
		if err != nil {
			s.logger.Warn("escalation sweep before list failed", zap.Error(err))
		} else if len(result.Failures) > 0 {
			s.logger.Warn("escalation sweep before list incomplete", zap.Error(result.Err()))
		}
	}
	list, err := s.requests.List(ctx, limit, offset)
	if err != nil {
		return nil, mapRepoError(err, "request")
	}
	if list == nil {
		list = []domain.Request{}
	}
	return list, nil
}

// ChangeStatus delegates to the lifecycle engine.
func (s *RequestService) ChangeStatus(ctx context.Context, id string, status domain.Status, actor string) (*domain.Request, error) {
	return s.engine.ChangeStatus(ctx, id, status, actor)
}

// Assign delegates to the lifecycle engine.
func (s *RequestService) Assign(ctx context.Context, id string, agentID *string, actor string) (*domain.Request, error) {
	return s.engine.Assign(ctx, id, agentID, actor)
}

// CheckEscalations runs an on-demand escalation sweep.
func (s *RequestService) CheckEscalations(ctx context.Context) (*lifecycle.SweepResult, error) {
	return s.engine.RunEscalationSweep(ctx, s.engine.Now())
}

// AllowedTransitions lists the statuses the request may move to next.
func (s *RequestService) AllowedTransitions(ctx context.Context, id string) (*domain.Request, []domain.Status, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return req, lifecycle.AllowedTransitions(req.Status), nil
}

// DeleteRequest removes the request and its comments.
func (s *RequestService) DeleteRequest(ctx context.Context, id, actor string) error {
	if err := s.requests.Delete(ctx, id); err != nil {
		return mapRepoError(err, "request")
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestDeleted,
		RequestID: id,
		Actor:     actor,
		Timestamp: s.engine.Now(),
	})
	return nil
}

// ListComments returns the request's comment thread, oldest first.
func (s *RequestService) ListComments(ctx context.Context, requestID string) ([]domain.Comment, error) {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	list, err := s.comments.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, mapRepoError(err, "comment")
	}
	if list == nil {
		list = []domain.Comment{}
	}
	return list, nil
}

// AddComment appends a General comment written by author.
func (s *RequestService) AddComment(ctx context.Context, requestID, author, text string) (*domain.Comment, error) {
	author = strings.TrimSpace(author)
	text = strings.TrimSpace(text)
	if author == "" || text == "" {
		return nil, apperrors.NewValidationError("author and text required", nil)
	}
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Author:    author,
		Text:      text,
		Type:      domain.CommentTypeGeneral,
		CreatedAt: s.engine.Now(),
	}
	if err := s.comments.AppendComment(ctx, comment); err != nil {
		return nil, mapRepoError(err, "request")
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventCommentAdded,
		RequestID: requestID,
		Actor:     author,
		Timestamp: comment.CreatedAt,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			Type:        comment.Type,
			TextPreview: stringPreview(comment.Text, 120),
		},
	})
	return comment, nil
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// mapRepoError converts repository sentinels into domain errors.
func mapRepoError(err error, resource string) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", nil)
	case errors.Is(err, repository.ErrAgentNotFound):
		return apperrors.NewNotFound("agent", nil)
	case errors.Is(err, repository.ErrAgentInUse):
		return apperrors.NewConflict("agent is assigned to open requests", nil)
	default:
		return apperrors.NewStoreUnavailable(err)
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
