package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// OrderService defines the gated order lifecycle operations. Every method
// takes the acting principal explicitly; there is no ambient identity.
type OrderService interface {
	// Checkout snapshots the principal's cart into a new placed order
	// and clears the cart.
	Checkout(ctx context.Context, p *domain.Principal) (*domain.Order, error)
	// Get returns the order when the principal is its owner, its assigned
	// agent, a support agent, or an admin.
	Get(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error)
	ListMine(ctx context.Context, p *domain.Principal) ([]*domain.Order, error)
	// Confirm moves placed → confirmed and enqueues the order for
	// delivery assignment.
	Confirm(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error)
	// Advance moves assigned → out_for_delivery or out_for_delivery →
	// delivered; only the assigned agent or an admin may call it.
	Advance(ctx context.Context, p *domain.Principal, orderID string, target domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error)
	// Return moves delivered → returned when requested by the owner
	// within the return window.
	Return(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error)
}

// AssignmentResult reports the outcome of one assignment attempt.
type AssignmentResult struct {
	Order   *domain.Order
	AgentID string
}

// AssignmentService binds confirmed orders to delivery agents.
type AssignmentService interface {
	// Assign atomically moves the order from confirmed to assigned,
	// binding the least-loaded available agent. Fails with
	// domain.ErrNoAgentAvailable when the pool is empty and
	// domain.ErrAlreadyAssigned when the order left confirmed first.
	Assign(ctx context.Context, orderID string) (*AssignmentResult, error)
	// ReleaseAgent returns every assigned order the agent holds to
	// confirmed and reports the released order ids.
	ReleaseAgent(ctx context.Context, agentID string) ([]string, error)
}

// AssignmentQueue decouples transition handlers from assignment execution.
// Enqueued order ids are processed asynchronously with per-order ordering.
type AssignmentQueue interface {
	Enqueue(orderID string)
}
