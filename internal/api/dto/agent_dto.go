package dto

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Role string `json:"role" validate:"required,role"`
}

// UpdateAgentRequest payload. Empty fields keep their current value.
type UpdateAgentRequest struct {
	Name string `json:"name" validate:"max=100"`
	Role string `json:"role" validate:"omitempty,role"`
}

// AgentResponse represents an agent.
type AgentResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewAgentResponse maps a domain agent.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	return AgentResponse{ID: a.ID, Name: a.Name, Role: a.Role, CreatedAt: a.CreatedAt}
}

// TokenRequest payload.
type TokenRequest struct {
	AgentID string `json:"agentId" validate:"required"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	AgentID   string      `json:"agentId"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(token *domain.Token) AuthResponse {
	return AuthResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		AgentID:   token.Principal.AgentID,
		Name:      token.Principal.Name,
		Role:      token.Principal.Role,
	}
}
