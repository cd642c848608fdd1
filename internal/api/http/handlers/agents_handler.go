package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/api/dto"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/service"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// AgentsHandler exposes agent management endpoints.
type AgentsHandler struct {
	service *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{service: agentService}
}

// ListAgents GET /api/agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	list, err := h.service.ListAgents(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewAgentResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /api/agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.service.GetAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// CreateAgent POST /api/agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	agent, err := h.service.CreateAgent(c.UserContext(), service.AgentInput{Name: req.Name, Role: domain.Role(req.Role)})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// UpdateAgent PUT /api/agents/:id.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	agent, err := h.service.UpdateAgent(c.UserContext(), c.Params("id"), service.AgentInput{Name: req.Name, Role: domain.Role(req.Role)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// DeleteAgent DELETE /api/agents/:id.
func (h *AgentsHandler) DeleteAgent(c *fiber.Ctx) error {
	if err := h.service.DeleteAgent(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
