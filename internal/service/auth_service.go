package service

import (
	"context"
	"strings"

	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// AuthService issues tokens naming the agent acting on requests.
type AuthService struct {
	agents   repository.AgentRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, agents repository.AgentRepository) *AuthService {
	return &AuthService{
		agents:   agents,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
	}
}

// IssueToken signs a token for an existing agent. Agents are trusted; there
// are no credentials to check.
func (s *AuthService) IssueToken(ctx context.Context, agentID string) (*domain.Token, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, apperrors.NewValidationError("agent_id required", nil)
	}
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, mapRepoError(err, "agent")
	}
	token, err := s.tokenMgr.GenerateToken(domain.Principal{
		AgentID: agent.ID,
		Name:    agent.Name,
		Role:    agent.Role,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
