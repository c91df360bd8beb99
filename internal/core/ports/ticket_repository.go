package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// TicketWrite describes a conditional state-mutating write on a ticket,
// mirroring OrderWrite. IncReopen bumps the reopen counter alongside the
// transition (used only for the closed → open path).
type TicketWrite struct {
	FromStatus  domain.TicketStatus
	FromVersion int64
	ToStatus    domain.TicketStatus
	AgentID     *string
	IncReopen   bool
	Entry       domain.TicketHistoryEntry
}

// TicketRepository defines persistence operations for support tickets.
type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error)
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error)
	// ApplyTransition performs the conditional write described by w.
	// Error contract matches OrderRepository.ApplyTransition.
	ApplyTransition(ctx context.Context, id string, w TicketWrite) error
	AppendMessage(ctx context.Context, id string, msg domain.TicketMessage) error
}
