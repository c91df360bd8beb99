package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// OrderHandler handles HTTP requests for the order lifecycle.
type OrderHandler struct {
	orders     ports.OrderService
	assignment ports.AssignmentService
}

func NewOrderHandler(orders ports.OrderService, assignment ports.AssignmentService) *OrderHandler {
	return &OrderHandler{orders: orders, assignment: assignment}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=out_for_delivery delivered"`
}

type orderResponse struct {
	ID      string                     `json:"id"`
	UserID  string                     `json:"user_id"`
	Status  string                     `json:"status"`
	AgentID string                     `json:"agent_id,omitempty"`
	Version int64                      `json:"version"`
	Items   []domain.LineItem          `json:"items"`
	History []domain.OrderHistoryEntry `json:"history"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:      o.ID,
		UserID:  o.UserID,
		Status:  string(o.Status),
		AgentID: o.AgentID,
		Version: o.Version,
		Items:   o.Items,
		History: o.History,
	}
}

// Checkout creates an order from the authenticated user's cart.
//
// @Summary      Place an order from the cart
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  orderResponse
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /orders [post]
func (h *OrderHandler) Checkout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Checkout(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toOrderResponse(order))
}

// Get returns a single order.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(order))
}

// ListMine returns the authenticated user's orders.
//
// @Summary      List own orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  orderResponse
// @Router       /orders [get]
func (h *OrderHandler) ListMine(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	orders, err := h.orders.ListMine(c.Request().Context(), p)
	if err != nil {
		return err
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return respond(c, http.StatusOK, out)
}

// Confirm moves the order to confirmed and queues it for assignment.
//
// @Summary      Confirm an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Confirm(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(order))
}

// Assign triggers delivery assignment for a confirmed order. This is the
// manual trigger; confirmation normally enqueues assignment automatically.
//
// @Summary      Assign a delivery agent
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /orders/{id}/assign [post]
func (h *OrderHandler) Assign(c echo.Context) error {
	if _, err := ctxPrincipal(c); err != nil {
		return err
	}

	result, err := h.assignment.Assign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(result.Order))
}

// UpdateStatus advances the order to out_for_delivery or delivered.
//
// @Summary      Advance delivery status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Order id"
// @Param        body  body      orderStatusRequest  true  "Target status"
// @Success      200   {object}  orderResponse
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req orderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	order, err := h.orders.Advance(c.Request().Context(), p, c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(order))
}

// Cancel cancels a placed or confirmed order.
//
// @Summary      Cancel an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Cancel(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(order))
}

// Return moves a delivered order to returned within the return window.
//
// @Summary      Return a delivered order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  orderResponse
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /orders/{id}/return [post]
func (h *OrderHandler) Return(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Return(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrderResponse(order))
}
