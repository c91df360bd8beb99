package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// OpenTicketInput carries the data for a new support ticket.
type OpenTicketInput struct {
	Subject string
	Message string
}

// TicketService defines the gated ticket lifecycle operations.
type TicketService interface {
	Open(ctx context.Context, p *domain.Principal, in OpenTicketInput) (*domain.Ticket, error)
	// Get returns the ticket when the principal is its owner, its
	// claiming agent, a support agent, or an admin.
	Get(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error)
	ListMine(ctx context.Context, p *domain.Principal) ([]*domain.Ticket, error)
	// Claim moves open → in_progress and binds the acting support agent.
	// First claim wins; later attempts fail with domain.ErrAlreadyClaimed.
	Claim(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error)
	AddMessage(ctx context.Context, p *domain.Principal, ticketID, body string) (*domain.Ticket, error)
	// Advance moves in_progress → resolved or resolved → closed.
	Advance(ctx context.Context, p *domain.Principal, ticketID string, target domain.TicketStatus) (*domain.Ticket, error)
	// Reopen moves closed → open, owner only, at most once per ticket.
	Reopen(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error)
}
