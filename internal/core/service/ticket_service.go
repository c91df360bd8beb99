package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// TicketService implements the support-ticket lifecycle. Claiming follows
// the same conditional-write pattern as order assignment: first claim wins,
// later claims observe AlreadyClaimed.
type TicketService struct {
	tickets ports.TicketRepository
	log     zerolog.Logger
	now     func() time.Time
}

func NewTicketService(tickets ports.TicketRepository, log zerolog.Logger) *TicketService {
	return &TicketService{
		tickets: tickets,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *TicketService) Open(ctx context.Context, p *domain.Principal, in ports.OpenTicketInput) (*domain.Ticket, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		UserID:    p.SubjectID,
		Subject:   in.Subject,
		Status:    domain.TicketOpen,
		Version:   1,
		CreatedAt: now,
		Messages: []domain.TicketMessage{
			{AuthorID: p.SubjectID, Body: in.Message, Timestamp: now},
		},
		History: []domain.TicketHistoryEntry{
			{Status: domain.TicketOpen, ActorID: p.SubjectID, Timestamp: now},
		},
	}

	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("ticket", string(domain.TicketOpen)).Inc()
	s.log.Info().Str("ticket_id", created.ID).Str("user_id", p.SubjectID).Msg("ticket opened")
	return created, nil
}

func (s *TicketService) Get(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != p.SubjectID &&
		ticket.AgentID != p.SubjectID &&
		!domain.Has(p.Mask, domain.CapSupportAgent) &&
		!domain.Has(p.Mask, domain.CapAdmin) {
		return nil, domain.ErrForbidden
	}
	return ticket, nil
}

func (s *TicketService) ListMine(ctx context.Context, p *domain.Principal) ([]*domain.Ticket, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}
	return s.tickets.ListByUser(ctx, p.SubjectID)
}

// Claim moves open → in_progress, binding the acting support agent.
func (s *TicketService) Claim(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error) {
	if err := gate(p, domain.RequireCap(domain.CapSupportAgent)); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketOpen {
		if ticket.AgentID != "" {
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("%w: cannot claim from %s", domain.ErrIllegalTransition, ticket.Status)
	}

	agentID := p.SubjectID
	err = s.tickets.ApplyTransition(ctx, ticketID, ports.TicketWrite{
		FromStatus:  domain.TicketOpen,
		FromVersion: ticket.Version,
		ToStatus:    domain.TicketInProgress,
		AgentID:     &agentID,
		Entry: domain.TicketHistoryEntry{
			Status:    domain.TicketInProgress,
			ActorID:   agentID,
			Timestamp: s.now(),
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, err
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("ticket", string(domain.TicketInProgress)).Inc()
	s.log.Info().Str("ticket_id", ticketID).Str("agent_id", agentID).Msg("ticket claimed")
	return s.tickets.FindByID(ctx, ticketID)
}

func (s *TicketService) AddMessage(ctx context.Context, p *domain.Principal, ticketID, body string) (*domain.Ticket, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != p.SubjectID && ticket.AgentID != p.SubjectID && !domain.Has(p.Mask, domain.CapAdmin) {
		return nil, domain.ErrForbidden
	}

	msg := domain.TicketMessage{AuthorID: p.SubjectID, Body: body, Timestamp: s.now()}
	if err := s.tickets.AppendMessage(ctx, ticketID, msg); err != nil {
		return nil, err
	}
	return s.tickets.FindByID(ctx, ticketID)
}

// Advance moves in_progress → resolved or resolved → closed.
// Resolving requires the claiming agent or an admin; closing additionally
// allows the owning user.
func (s *TicketService) Advance(ctx context.Context, p *domain.Principal, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch target {
	case domain.TicketResolved:
		if ticket.AgentID != p.SubjectID && !domain.Has(p.Mask, domain.CapAdmin) {
			return nil, domain.ErrForbidden
		}
	case domain.TicketClosed:
		if ticket.UserID != p.SubjectID && ticket.AgentID != p.SubjectID && !domain.Has(p.Mask, domain.CapAdmin) {
			return nil, domain.ErrForbidden
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a direct target", domain.ErrIllegalTransition, target)
	}

	if !ticket.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrIllegalTransition, ticket.Status, target)
	}

	err = s.tickets.ApplyTransition(ctx, ticketID, ports.TicketWrite{
		FromStatus:  ticket.Status,
		FromVersion: ticket.Version,
		ToStatus:    target,
		Entry: domain.TicketHistoryEntry{
			Status:    target,
			ActorID:   p.SubjectID,
			Timestamp: s.now(),
		},
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("ticket", string(target)).Inc()
	s.log.Info().Str("ticket_id", ticketID).Str("actor_id", p.SubjectID).Str("to", string(target)).Msg("ticket transition")
	return s.tickets.FindByID(ctx, ticketID)
}

// Reopen moves closed → open. Owner only, at most once per ticket; the
// bound agent is cleared so the reopened ticket can be claimed afresh.
func (s *TicketService) Reopen(ctx context.Context, p *domain.Principal, ticketID string) (*domain.Ticket, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != p.SubjectID {
		return nil, domain.ErrForbidden
	}
	if !ticket.Status.CanTransitionTo(domain.TicketOpen) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrIllegalTransition, ticket.Status, domain.TicketOpen)
	}
	if !ticket.CanReopen() {
		return nil, domain.ErrReopenLimitExceeded
	}

	cleared := ""
	err = s.tickets.ApplyTransition(ctx, ticketID, ports.TicketWrite{
		FromStatus:  domain.TicketClosed,
		FromVersion: ticket.Version,
		ToStatus:    domain.TicketOpen,
		AgentID:     &cleared,
		IncReopen:   true,
		Entry: domain.TicketHistoryEntry{
			Status:    domain.TicketOpen,
			ActorID:   p.SubjectID,
			Timestamp: s.now(),
		},
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("ticket", string(domain.TicketOpen)).Inc()
	s.log.Info().Str("ticket_id", ticketID).Str("user_id", p.SubjectID).Msg("ticket reopened")
	return s.tickets.FindByID(ctx, ticketID)
}
