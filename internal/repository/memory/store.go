package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// Store is an in-memory implementation of the request, comment and agent repositories.
// It is NOT persistent and is only suitable for tests and local mode.
type Store struct {
	mu       sync.RWMutex
	requests map[string]*domain.Request
	comments map[string][]domain.Comment
	agents   map[string]*domain.Agent

	Requests *RequestStore
	Comments *CommentStore
	Agents   *AgentStore
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		requests: make(map[string]*domain.Request),
		comments: make(map[string][]domain.Comment),
		agents:   make(map[string]*domain.Agent),
	}
	s.Requests = &RequestStore{s: s}
	s.Comments = &CommentStore{s: s}
	s.Agents = &AgentStore{s: s}
	return s
}

// RequestStore implements repository.RequestRepository.
type RequestStore struct{ s *Store }

var _ repository.RequestRepository = (*RequestStore)(nil)

func (r *RequestStore) Create(_ context.Context, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.Version = 1
	r.s.requests[req.ID] = req.Clone()
	return nil
}

func (r *RequestStore) GetRequest(_ context.Context, id string) (*domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req.Clone(), nil
}

func (r *RequestStore) ListActive(_ context.Context) ([]domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Request, 0, len(r.s.requests))
	for _, req := range r.s.requests {
		if req.Status == domain.StatusDone {
			continue
		}
		out = append(out, *req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RequestStore) List(_ context.Context, limit, offset int) ([]domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Request, 0, len(r.s.requests))
	for _, req := range r.s.requests {
		out = append(out, *req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []domain.Request{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *RequestStore) SaveRequest(_ context.Context, req *domain.Request, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.requests[req.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	if req.AssignedAgentID != nil {
		if _, ok := r.s.agents[*req.AssignedAgentID]; !ok {
			return repository.ErrAgentNotFound
		}
	}
	stored := req.Clone()
	stored.Version = expectedVersion + 1
	stored.CreatedAt = current.CreatedAt
	r.s.requests[req.ID] = stored
	req.Version = stored.Version
	return nil
}

func (r *RequestStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.requests, id)
	delete(r.s.comments, id)
	return nil
}

func (r *RequestStore) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.requests), nil
}

// CommentStore implements repository.CommentRepository.
type CommentStore struct{ s *Store }

var _ repository.CommentRepository = (*CommentStore)(nil)

func (c *CommentStore) AppendComment(_ context.Context, comment *domain.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.requests[comment.RequestID]; !ok {
		return repository.ErrNotFound
	}
	c.s.comments[comment.RequestID] = append(c.s.comments[comment.RequestID], *comment)
	return nil
}

func (c *CommentStore) ListByRequest(_ context.Context, requestID string) ([]domain.Comment, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := append([]domain.Comment{}, c.s.comments[requestID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *CommentStore) Count(_ context.Context) (int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	n := 0
	for _, list := range c.s.comments {
		n += len(list)
	}
	return n, nil
}

// AgentStore implements repository.AgentRepository.
type AgentStore struct{ s *Store }

var _ repository.AgentRepository = (*AgentStore)(nil)

func (a *AgentStore) Create(_ context.Context, agent *domain.Agent) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	cp := *agent
	a.s.agents[agent.ID] = &cp
	return nil
}

func (a *AgentStore) Update(_ context.Context, agent *domain.Agent) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	current, ok := a.s.agents[agent.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Name = agent.Name
	current.Role = agent.Role
	return nil
}

func (a *AgentStore) GetAgent(_ context.Context, id string) (*domain.Agent, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	agent, ok := a.s.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (a *AgentStore) List(_ context.Context) ([]domain.Agent, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := make([]domain.Agent, 0, len(a.s.agents))
	for _, agent := range a.s.agents {
		out = append(out, *agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *AgentStore) Delete(_ context.Context, id string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.agents[id]; !ok {
		return repository.ErrNotFound
	}
	for _, req := range a.s.requests {
		if req.Status != domain.StatusDone && req.AssignedAgentID != nil && *req.AssignedAgentID == id {
			return repository.ErrAgentInUse
		}
	}
	delete(a.s.agents, id)
	return nil
}

func (a *AgentStore) Count(_ context.Context) (int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return len(a.s.agents), nil
}
