package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// AgentService manages the agents requests can be assigned to.
type AgentService struct {
	agents repository.AgentRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		agents: agents,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AgentInput carries the editable agent fields.
type AgentInput struct {
	Name string
	Role domain.Role
}

// CreateAgent registers a new agent.
func (s *AgentService) CreateAgent(ctx context.Context, input AgentInput) (*domain.Agent, error) {
	name, role, err := validateAgentInput(input)
	if err != nil {
		return nil, err
	}
	agent := &domain.Agent{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, mapRepoError(err, "agent")
	}
	return agent, nil
}

// ListAgents returns every agent ordered by name.
func (s *AgentService) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	list, err := s.agents.List(ctx)
	if err != nil {
		return nil, mapRepoError(err, "agent")
	}
	if list == nil {
		list = []domain.Agent{}
	}
	return list, nil
}

// GetAgent fetches a single agent.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "agent")
	}
	return agent, nil
}

// UpdateAgent renames an agent or changes its role.
func (s *AgentService) UpdateAgent(ctx context.Context, id string, input AgentInput) (*domain.Agent, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		input.Name = agent.Name
	}
	if input.Role == "" {
		input.Role = agent.Role
	}
	name, role, err := validateAgentInput(input)
	if err != nil {
		return nil, err
	}
	agent.Name = name
	agent.Role = role
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, mapRepoError(err, "agent")
	}
	return agent, nil
}

// DeleteAgent removes an agent. It fails with CONFLICT while the agent is
// assigned to any request that is not Done.
func (s *AgentService) DeleteAgent(ctx context.Context, id string) error {
	if err := s.agents.Delete(ctx, id); err != nil {
		return mapRepoError(err, "agent")
	}
	return nil
}

// DemoAgents are inserted by SeedDemoAgents.
var DemoAgents = []domain.Agent{
	{ID: "agent-1", Name: "Alice Johnson", Role: domain.RoleAdmin},
	{ID: "agent-2", Name: "Bob Smith", Role: domain.RoleAgent},
	{ID: "agent-3", Name: "Carol Davis", Role: domain.RoleAgent},
	{ID: "agent-4", Name: "Dan Wilson", Role: domain.RoleAgent},
}

// SeedDemoAgents inserts DemoAgents when no agent exists yet. It reports how many were inserted.
func (s *AgentService) SeedDemoAgents(ctx context.Context) (int, error) {
	n, err := s.agents.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for _, demo := range DemoAgents {
		agent := demo
		agent.CreatedAt = s.now()
		if err := s.agents.Create(ctx, &agent); err != nil {
			return 0, err
		}
	}
	s.logger.Info("seeded demo agents", zap.Int("count", len(DemoAgents)))
	return len(DemoAgents), nil
}

func validateAgentInput(input AgentInput) (string, domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", "", apperrors.NewValidationError("name required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleAgent
	}
	if !role.Valid() {
		return "", "", apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	return name, role, nil
}
