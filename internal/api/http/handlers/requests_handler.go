package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/api/dto"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	"github.com/spec-kit/request-tracker/internal/service"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// RequestsHandler exposes request lifecycle endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// CreateRequest POST /api/requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	due, err := req.ParsedDueDate()
	if err != nil {
		return err
	}

	created, err := h.service.CreateRequest(c.UserContext(), principal.Name, service.RequestCreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        domain.Priority(req.Priority),
		DueDate:         due,
		AssignedAgentID: req.AssignedAgentID,
		Tags:            req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created)})
}

// ListRequests GET /api/requests.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	list, err := h.service.ListRequests(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewRequestResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /api/requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	req, err := h.service.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(req)})
}

// DeleteRequest DELETE /api/requests/:id.
func (h *RequestsHandler) DeleteRequest(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteRequest(c.UserContext(), c.Params("id"), principal.Name); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateStatus PUT /api/requests/:id/status.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	updated, err := h.service.ChangeStatus(c.UserContext(), c.Params("id"), domain.Status(req.Status), principal.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated)})
}

// Assign PUT /api/requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.Assign(c.UserContext(), c.Params("id"), req.AgentID, principal.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated)})
}

// Transitions GET /api/requests/:id/transitions.
func (h *RequestsHandler) Transitions(c *fiber.Ctx) error {
	req, allowed, err := h.service.AllowedTransitions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionsResponse{
		RequestID: req.ID,
		Current:   req.Status,
		Allowed:   allowed,
		CanFinish: lifecycle.IsLegal(req.Status, domain.StatusDone) && lifecycle.CanEnterDone(req.AssignedAgentID),
	}})
}

// ListComments GET /api/requests/:id/comments.
func (h *RequestsHandler) ListComments(c *fiber.Ctx) error {
	list, err := h.service.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewCommentResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /api/requests/:id/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), c.Params("id"), principal.Name, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// CheckEscalations POST /api/requests/check-escalations.
func (h *RequestsHandler) CheckEscalations(c *fiber.Ctx) error {
	result, err := h.service.CheckEscalations(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSweepResponse(result)})
}

func requirePrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
