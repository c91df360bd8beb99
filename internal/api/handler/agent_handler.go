package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// AgentHandler handles delivery-agent availability reporting.
type AgentHandler struct {
	agents     ports.AgentRepository
	pool       ports.AgentPool
	assignment ports.AssignmentService
	queue      ports.AssignmentQueue
}

func NewAgentHandler(
	agents ports.AgentRepository,
	pool ports.AgentPool,
	assignment ports.AssignmentService,
	queue ports.AssignmentQueue,
) *AgentHandler {
	return &AgentHandler{agents: agents, pool: pool, assignment: assignment, queue: queue}
}

type availabilityRequest struct {
	Available bool `json:"available"`
	// AgentID lets an admin toggle another agent; delivery agents may
	// only toggle themselves and leave this empty.
	AgentID string `json:"agent_id,omitempty"`
}

type availabilityResponse struct {
	AgentID        string   `json:"agent_id"`
	Available      bool     `json:"available"`
	ReleasedOrders []string `json:"released_orders,omitempty"`
}

// Heartbeat refreshes the acting agent's availability lease.
//
// @Summary      Report agent heartbeat
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  availabilityResponse
// @Failure      401  {object}  map[string]string
// @Router       /agents/heartbeat [post]
func (h *AgentHandler) Heartbeat(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	agent, err := h.agents.FindByUserID(c.Request().Context(), p.SubjectID)
	if err != nil {
		return err
	}

	if err := h.pool.Heartbeat(c.Request().Context(), agent.ID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, availabilityResponse{AgentID: agent.ID, Available: true})
}

// SetAvailability toggles an agent in or out of the assignment pool.
// Marking an agent unavailable releases the assigned orders it holds and
// re-enqueues them for assignment.
//
// @Summary      Set agent availability
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      availabilityRequest  true  "Desired availability"
// @Success      200   {object}  availabilityResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /agents/availability [patch]
func (h *AgentHandler) SetAvailability(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	agentID, err := h.resolveAgentID(c, p, req.AgentID)
	if err != nil {
		return err
	}

	if req.Available {
		if err := h.pool.MarkAvailable(c.Request().Context(), agentID); err != nil {
			return err
		}
		return respond(c, http.StatusOK, availabilityResponse{AgentID: agentID, Available: true})
	}

	released, err := h.assignment.ReleaseAgent(c.Request().Context(), agentID)
	if err != nil {
		return err
	}
	for _, orderID := range released {
		h.queue.Enqueue(orderID)
	}
	return respond(c, http.StatusOK, availabilityResponse{
		AgentID:        agentID,
		Available:      false,
		ReleasedOrders: released,
	})
}

// resolveAgentID maps the request to a concrete agent id: admins may name
// any agent, everyone else acts on their own record.
func (h *AgentHandler) resolveAgentID(c echo.Context, p *domain.Principal, requested string) (string, error) {
	if requested != "" {
		if !domain.Has(p.Mask, domain.CapAdmin) {
			return "", echo.NewHTTPError(http.StatusForbidden, "only admins may toggle other agents")
		}
		if _, err := h.agents.FindByID(c.Request().Context(), requested); err != nil {
			return "", err
		}
		return requested, nil
	}

	agent, err := h.agents.FindByUserID(c.Request().Context(), p.SubjectID)
	if err != nil {
		return "", err
	}
	return agent.ID, nil
}
