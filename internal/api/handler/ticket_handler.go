package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// TicketHandler handles HTTP requests for the support-ticket lifecycle.
type TicketHandler struct {
	tickets ports.TicketService
}

func NewTicketHandler(tickets ports.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

type openTicketRequest struct {
	Subject string `json:"subject" validate:"required,min=3"`
	Message string `json:"message" validate:"required"`
}

type ticketMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

type ticketStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=resolved closed"`
}

type ticketResponse struct {
	ID          string                      `json:"id"`
	UserID      string                      `json:"user_id"`
	Subject     string                      `json:"subject"`
	Status      string                      `json:"status"`
	AgentID     string                      `json:"agent_id,omitempty"`
	ReopenCount int                         `json:"reopen_count"`
	Version     int64                       `json:"version"`
	Messages    []domain.TicketMessage      `json:"messages"`
	History     []domain.TicketHistoryEntry `json:"history"`
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Subject:     t.Subject,
		Status:      string(t.Status),
		AgentID:     t.AgentID,
		ReopenCount: t.ReopenCount,
		Version:     t.Version,
		Messages:    t.Messages,
		History:     t.History,
	}
}

// Open creates a new support ticket.
//
// @Summary      Open a ticket
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      openTicketRequest  true  "Ticket subject and first message"
// @Success      201   {object}  ticketResponse
// @Failure      401   {object}  map[string]string
// @Router       /tickets [post]
func (h *TicketHandler) Open(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req openTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ticket, err := h.tickets.Open(c.Request().Context(), p, ports.OpenTicketInput{
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toTicketResponse(ticket))
}

// Get returns a single ticket.
//
// @Summary      Get a ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket id"
// @Success      200  {object}  ticketResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tickets/{id} [get]
func (h *TicketHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toTicketResponse(ticket))
}

// ListMine returns the authenticated user's tickets.
//
// @Summary      List own tickets
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  ticketResponse
// @Router       /tickets [get]
func (h *TicketHandler) ListMine(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.ListMine(c.Request().Context(), p)
	if err != nil {
		return err
	}

	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	return respond(c, http.StatusOK, out)
}

// Claim binds the acting support agent to an open ticket.
//
// @Summary      Claim a ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket id"
// @Success      200  {object}  ticketResponse
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /tickets/{id}/claim [post]
func (h *TicketHandler) Claim(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.Claim(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toTicketResponse(ticket))
}

// AddMessage appends a message to the ticket conversation.
//
// @Summary      Add a ticket message
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Ticket id"
// @Param        body  body      ticketMessageRequest  true  "Message body"
// @Success      200   {object}  ticketResponse
// @Failure      403   {object}  map[string]string
// @Router       /tickets/{id}/messages [post]
func (h *TicketHandler) AddMessage(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req ticketMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ticket, err := h.tickets.AddMessage(c.Request().Context(), p, c.Param("id"), req.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toTicketResponse(ticket))
}

// UpdateStatus advances the ticket to resolved or closed.
//
// @Summary      Advance ticket status
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Ticket id"
// @Param        body  body      ticketStatusRequest  true  "Target status"
// @Success      200   {object}  ticketResponse
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /tickets/{id}/status [patch]
func (h *TicketHandler) UpdateStatus(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req ticketStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ticket, err := h.tickets.Advance(c.Request().Context(), p, c.Param("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toTicketResponse(ticket))
}

// Reopen moves a closed ticket back to open. Once per ticket.
//
// @Summary      Reopen a closed ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket id"
// @Success      200  {object}  ticketResponse
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /tickets/{id}/reopen [post]
func (h *TicketHandler) Reopen(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.Reopen(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toTicketResponse(ticket))
}
