package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateMask(ctx context.Context, id string, mask domain.Mask) error
	ReplaceCart(ctx context.Context, id string, cart []domain.CartItem) error
}

// AgentRepository defines persistence operations for delivery agents.
type AgentRepository interface {
	Create(ctx context.Context, a *domain.DeliveryAgent) (*domain.DeliveryAgent, error)
	FindByID(ctx context.Context, id string) (*domain.DeliveryAgent, error)
	FindByUserID(ctx context.Context, userID string) (*domain.DeliveryAgent, error)
}

// AgentPool tracks which delivery agents are currently marked available.
// How an agent drops out of the pool is a deployment policy: heartbeat
// expiry or an explicit toggle.
type AgentPool interface {
	// Heartbeat refreshes the agent's availability lease.
	Heartbeat(ctx context.Context, agentID string) error
	MarkAvailable(ctx context.Context, agentID string) error
	MarkUnavailable(ctx context.Context, agentID string) error
	// Available returns the ids of agents currently in the pool.
	Available(ctx context.Context) ([]string, error)
}
