package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/api/dto"
	"github.com/spec-kit/dorm-maintenance/internal/service"
)

// TicketsHandler manages ticket and comment endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketListQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), query.ToQuery())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// UpdateTicket PUT /tickets/:id. Requires a role.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	role, err := callerRole(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), id, req.ToInput(), role)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments. Requires a role.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	role, err := callerRole(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), id, req.Message, role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewCommentResponse(comment))
}

// UpdateStatus PUT /tickets/:id/status. Requires a role.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	role, err := callerRole(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), id, req.Status, role)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}
