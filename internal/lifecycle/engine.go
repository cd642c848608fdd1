package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/observability"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// RequestStore is the request storage the engine needs.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	ListActive(ctx context.Context) ([]domain.Request, error)
	SaveRequest(ctx context.Context, req *domain.Request, expectedVersion int64) error
}

// CommentStore receives audit comments.
type CommentStore interface {
	AppendComment(ctx context.Context, comment *domain.Comment) error
}

// AgentDirectory resolves agents referenced by assignments.
type AgentDirectory interface {
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
}

// Engine applies status changes, assignments and escalations to requests.
// Every write is a compare-and-swap on the request version.
type Engine struct {
	requests     RequestStore
	comments     CommentStore
	agents       AgentDirectory
	clock        Clock
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	storeTimeout time.Duration
	sweepWorkers int
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Requests   RequestStore
	Comments   CommentStore
	Agents     AgentDirectory
	Clock      Clock
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// StoreTimeout bounds each store call; zero leaves the caller's deadline alone.
	StoreTimeout time.Duration
	// SweepWorkers caps how many requests a sweep processes at once.
	SweepWorkers int
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := deps.SweepWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		requests:     deps.Requests,
		comments:     deps.Comments,
		agents:       deps.Agents,
		clock:        clock,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger.Named("lifecycle"),
		storeTimeout: deps.StoreTimeout,
		sweepWorkers: workers,
	}
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// errNoChange tells apply that the mutation has nothing to write.
var errNoChange = errors.New("no change")

type outcome struct {
	before  *domain.Request
	after   *domain.Request
	changed bool
}

// apply reads the request, lets mutate validate and change a copy, and saves it
// against the version it read. A version conflict is retried once on fresh state.
// When seed is set the first attempt uses it instead of reading.
func (e *Engine) apply(ctx context.Context, id string, seed *domain.Request, mutate func(*domain.Request) error) (outcome, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current := seed
		seed = nil
		if current == nil {
			var err error
			current, err = e.getRequest(ctx, id)
			if err != nil {
				return outcome{}, err
			}
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			if errors.Is(err, errNoChange) {
				return outcome{before: current, after: current}, nil
			}
			return outcome{}, err
		}

		err := e.withTimeout(ctx, func(ctx context.Context) error {
			return e.requests.SaveRequest(ctx, next, current.Version)
		})
		switch {
		case err == nil:
			return outcome{before: current, after: next, changed: true}, nil
		case errors.Is(err, repository.ErrVersionConflict):
			e.logger.Debug("version conflict, retrying on fresh state",
				zap.String("request_id", id), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, repository.ErrAgentNotFound):
			details := map[string]any{"request_id": id}
			if next.AssignedAgentID != nil {
				details["agent_id"] = *next.AssignedAgentID
			}
			return outcome{}, apperrors.NewNotFound("agent", details)
		default:
			return outcome{}, e.storeError(err, "request", id)
		}
	}
	return outcome{}, apperrors.NewConflict("request was modified concurrently", map[string]any{"request_id": id})
}

// ChangeStatus moves a request along the status graph on behalf of actor.
func (e *Engine) ChangeStatus(ctx context.Context, id string, requested domain.Status, actor string) (*domain.Request, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}

	now := e.clock.Now()
	res, err := e.apply(ctx, id, nil, func(req *domain.Request) error {
		if req.Status.Terminal() {
			return apperrors.NewTerminal(req.ID)
		}
		if !IsLegal(req.Status, requested) {
			return apperrors.NewInvalidTransition(string(req.Status), string(requested))
		}
		if requested == domain.StatusDone && !CanEnterDone(req.AssignedAgentID) {
			return apperrors.NewUnassignedDoneRejected(req.ID)
		}
		req.Status = requested
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	from, to := res.before.Status, res.after.Status
	e.metrics.RecordTransition(string(from), string(to))
	e.audit(ctx, "status_change", &domain.Comment{
		RequestID: id,
		Author:    actor,
		Text:      fmt.Sprintf("Status changed from %s to %s by %s", from, to, actor),
		Type:      domain.CommentTypeStatusUpdate,
		CreatedAt: now,
	})
	e.publish(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: id,
		Actor:     actor,
		Timestamp: now,
		Payload:   events.RequestStatusChangedPayload{OldStatus: from, NewStatus: to},
	})
	return res.after, nil
}

// Assign sets or clears the request's agent on behalf of actor. A nil or empty
// agentID unassigns. Assignment is allowed from every status, Done included.
func (e *Engine) Assign(ctx context.Context, id string, agentID *string, actor string) (*domain.Request, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, apperrors.NewValidationError("actor required", nil)
	}
	if agentID != nil && strings.TrimSpace(*agentID) == "" {
		agentID = nil
	}

	var newAgent *domain.Agent
	if agentID != nil {
		agent, err := e.getAgent(ctx, *agentID)
		if err != nil {
			return nil, err
		}
		newAgent = agent
	}

	now := e.clock.Now()
	res, err := e.apply(ctx, id, nil, func(req *domain.Request) error {
		if sameAgent(req.AssignedAgentID, agentID) {
			return errNoChange
		}
		if agentID == nil {
			req.AssignedAgentID = nil
		} else {
			assigned := *agentID
			req.AssignedAgentID = &assigned
		}
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.changed {
		return res.after, nil
	}

	previous := res.before.AssignedAgentID
	var text, kind string
	switch {
	case previous == nil:
		kind = "assigned"
		text = fmt.Sprintf("Assigned to %s by %s", newAgent.Name, actor)
	case newAgent == nil:
		kind = "unassigned"
		text = fmt.Sprintf("Unassigned %s by %s", e.agentName(ctx, *previous), actor)
	default:
		kind = "reassigned"
		text = fmt.Sprintf("Reassigned from %s to %s by %s", e.agentName(ctx, *previous), newAgent.Name, actor)
	}

	e.metrics.RecordAssignment(kind)
	e.audit(ctx, kind, &domain.Comment{
		RequestID: id,
		Author:    actor,
		Text:      text,
		Type:      domain.CommentTypeSystemGenerated,
		CreatedAt: now,
	})
	e.publish(ctx, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: id,
		Actor:     actor,
		Timestamp: now,
		Payload:   events.RequestAssignedPayload{OldAgentID: previous, NewAgentID: res.after.AssignedAgentID},
	})
	return res.after, nil
}

// SweepFailure describes a request the sweep could not fully process.
type SweepFailure struct {
	RequestID string
	Code      string
	Err       error
}

// SweepResult summarizes one escalation sweep.
type SweepResult struct {
	// Escalated lists the requests promoted to Critical by this run.
	Escalated []string
	Failures  []SweepFailure
	RanAt     time.Time
}

// Count returns how many requests this run escalated.
func (r *SweepResult) Count() int {
	return len(r.Escalated)
}

// Err joins every per-request failure, or returns nil.
func (r *SweepResult) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("request %s: %w", f.RequestID, f.Err))
	}
	return errors.Join(errs...)
}

type sweepItem struct {
	escalated bool
	failures  []SweepFailure
}

// RunEscalationSweep promotes every overdue request that is not Done to Critical.
// Each request is read, evaluated and written on its own; a failure on one
// request is collected and the rest are still processed. The returned error is
// only set when the active requests could not be listed.
func (e *Engine) RunEscalationSweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	started := time.Now()

	var active []domain.Request
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		active, err = e.requests.ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, e.storeError(err, "request", "")
	}

	items := make([]sweepItem, len(active))
	e.forEachLimited(len(active), func(i int) {
		items[i] = e.escalateOne(ctx, &active[i], now)
	})

	result := &SweepResult{Escalated: []string{}, RanAt: now}
	for i, item := range items {
		if item.escalated {
			result.Escalated = append(result.Escalated, active[i].ID)
		}
		result.Failures = append(result.Failures, item.failures...)
	}

	for _, f := range result.Failures {
		e.metrics.RecordSweepFailure(f.Code)
	}
	e.metrics.RecordSweep(result.Count(), time.Since(started))
	e.logger.Info("escalation sweep finished",
		zap.Int("scanned", len(active)),
		zap.Int("escalated", result.Count()),
		zap.Int("failures", len(result.Failures)))
	return result, nil
}

func (e *Engine) escalateOne(ctx context.Context, snapshot *domain.Request, now time.Time) sweepItem {
	if !ShouldEscalate(snapshot, now) {
		return sweepItem{}
	}

	seed := snapshot.Clone()
	res, err := e.apply(ctx, snapshot.ID, seed, func(req *domain.Request) error {
		if !ShouldEscalate(req, now) {
			return errNoChange
		}
		req.Priority = domain.PriorityCritical
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		code := apperrors.ToDomainError(err).Code
		e.logger.Warn("escalation failed",
			zap.String("request_id", snapshot.ID), zap.String("code", code), zap.Error(err))
		return sweepItem{failures: []SweepFailure{{RequestID: snapshot.ID, Code: code, Err: err}}}
	}
	if !res.changed {
		return sweepItem{}
	}

	item := sweepItem{escalated: true}
	days := DaysOverdue(res.before, now)
	comment := &domain.Comment{
		RequestID: snapshot.ID,
		Author:    domain.SystemAuthor,
		Text:      fmt.Sprintf("Priority automatically escalated from %s to Critical (%d days overdue)", res.before.Priority, days),
		Type:      domain.CommentTypeSystemGenerated,
		CreatedAt: now,
	}
	if err := e.audit(ctx, "escalation", comment); err != nil {
		item.failures = append(item.failures, SweepFailure{RequestID: snapshot.ID, Code: "AUDIT_COMMENT_FAILED", Err: err})
	}
	e.publish(ctx, events.Event{
		Type:      events.EventRequestEscalated,
		RequestID: snapshot.ID,
		Actor:     domain.SystemAuthor,
		Timestamp: now,
		Payload: events.RequestEscalatedPayload{
			OldPriority: res.before.Priority,
			NewPriority: domain.PriorityCritical,
			DaysOverdue: days,
		},
	})
	return item
}

// forEachLimited runs fn for 0..n-1 with at most sweepWorkers calls in flight.
func (e *Engine) forEachLimited(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(e.sweepWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// audit appends comment after a successful mutation. A failure never undoes the
// mutation; it is logged, counted and returned for callers that report it.
func (e *Engine) audit(ctx context.Context, action string, comment *domain.Comment) error {
	comment.ID = uuid.NewString()
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.comments.AppendComment(ctx, comment)
	})
	if err != nil {
		e.metrics.RecordAuditFailure(action)
		e.logger.Error("audit comment not recorded",
			zap.String("request_id", comment.RequestID),
			zap.String("action", action),
			zap.String("text", comment.Text),
			zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := e.dispatcher.Publish(ctx, event); err != nil {
		e.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

func (e *Engine) getRequest(ctx context.Context, id string) (*domain.Request, error) {
	var req *domain.Request
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		req, err = e.requests.GetRequest(ctx, id)
		return err
	})
	if err != nil {
		return nil, e.storeError(err, "request", id)
	}
	return req, nil
}

func (e *Engine) getAgent(ctx context.Context, id string) (*domain.Agent, error) {
	var agent *domain.Agent
	err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		agent, err = e.agents.GetAgent(ctx, id)
		return err
	})
	if err != nil {
		return nil, e.storeError(err, "agent", id)
	}
	return agent, nil
}

// agentName resolves a display name, falling back to the id for agents that no longer exist.
func (e *Engine) agentName(ctx context.Context, id string) string {
	agent, err := e.getAgent(ctx, id)
	if err != nil {
		return id
	}
	return agent.Name
}

func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if e.storeTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	return fn(ctx)
}

// storeError maps a store failure onto the caller-facing taxonomy.
func (e *Engine) storeError(err error, resource, id string) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("request was modified concurrently", map[string]any{"request_id": id})
	default:
		return apperrors.NewStoreUnavailable(err)
	}
}

func sameAgent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
