package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// OrderWrite describes a conditional state-mutating write on an order.
// The write matches only when the stored document still has FromStatus and
// FromVersion; on success the version is incremented and Entry is appended
// to the history. AgentID, when non-nil, replaces the assigned agent
// (an empty string clears it).
type OrderWrite struct {
	FromStatus  domain.OrderStatus
	FromVersion int64
	ToStatus    domain.OrderStatus
	AgentID     *string
	Entry       domain.OrderHistoryEntry
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// ApplyTransition performs the conditional write described by w.
	// Returns domain.ErrOrderNotFound when no order with the id exists and
	// domain.ErrStaleVersion when the order exists but the condition did
	// not match (the version has moved or the status changed).
	ApplyTransition(ctx context.Context, id string, w OrderWrite) error
	// CountActiveByAgent returns, per agent id, how many orders the agent
	// currently holds in assigned or out_for_delivery state.
	CountActiveByAgent(ctx context.Context, agentIDs []string) (map[string]int, error)
	// FindHeldByAgent returns the orders an agent holds in assigned state.
	FindHeldByAgent(ctx context.Context, agentID string) ([]*domain.Order, error)
}
