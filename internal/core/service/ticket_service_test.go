package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

func seedTicket(r *stubTicketRepo, id, userID string, status domain.TicketStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.tickets[id] = &domain.Ticket{
		ID:        id,
		UserID:    userID,
		Subject:   "order never arrived",
		Status:    status,
		Version:   1,
		CreatedAt: now,
		Messages:  []domain.TicketMessage{{AuthorID: userID, Body: "hello", Timestamp: now}},
		History:   []domain.TicketHistoryEntry{{Status: domain.TicketOpen, ActorID: userID, Timestamp: now}},
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestTicketService_Open(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)

	ticket, err := svc.Open(context.Background(), principalWith("user_1", domain.CapUser), ports.OpenTicketInput{
		Subject: "wrong size delivered",
		Message: "I ordered M, received XL",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ticket.Status != domain.TicketOpen {
		t.Errorf("status: want %q, got %q", domain.TicketOpen, ticket.Status)
	}
	if ticket.Version != 1 {
		t.Errorf("version: want 1, got %d", ticket.Version)
	}
	if len(ticket.Messages) != 1 || ticket.Messages[0].Body != "I ordered M, received XL" {
		t.Errorf("expected opening message, got %+v", ticket.Messages)
	}
	if len(ticket.History) != 1 || ticket.History[0].Status != domain.TicketOpen {
		t.Errorf("expected single open history entry, got %+v", ticket.History)
	}
	if ticket.AgentID != "" {
		t.Errorf("new ticket must not be claimed, got agent %q", ticket.AgentID)
	}
}

func TestTicketService_Open_RequiresAuth(t *testing.T) {
	svc := NewTicketService(newStubTicketRepo(), discardLogger)

	_, err := svc.Open(context.Background(), nil, ports.OpenTicketInput{Subject: "x", Message: "y"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestTicketService_Get_Access(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketInProgress)
	repo.mu.Lock()
	repo.tickets["tkt_1"].AgentID = "support_1"
	repo.mu.Unlock()

	cases := []struct {
		name    string
		p       *domain.Principal
		wantErr error
	}{
		{"owner", principalWith("user_1", domain.CapUser), nil},
		{"claiming agent", principalWith("support_1", domain.CapSupportAgent), nil},
		{"other support agent", principalWith("support_2", domain.CapSupportAgent), nil},
		{"admin", principalWith("admin_1", domain.CapAdmin), nil},
		{"stranger", principalWith("user_2", domain.CapUser), domain.ErrForbidden},
		{"delivery agent", principalWith("courier_1", domain.CapDeliveryAgent), domain.ErrForbidden},
	}
	for _, tc := range cases {
		_, err := svc.Get(context.Background(), tc.p, "tkt_1")
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: want %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Claim
// ---------------------------------------------------------------------------

func TestTicketService_Claim(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	ticket, err := svc.Claim(context.Background(), principalWith("support_1", domain.CapSupportAgent), "tkt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketInProgress {
		t.Errorf("status: want %q, got %q", domain.TicketInProgress, ticket.Status)
	}
	if ticket.AgentID != "support_1" {
		t.Errorf("ticket must be bound to support_1, got %q", ticket.AgentID)
	}
}

func TestTicketService_Claim_FirstClaimWins(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	if _, err := svc.Claim(context.Background(), principalWith("support_1", domain.CapSupportAgent), "tkt_1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err := svc.Claim(context.Background(), principalWith("support_2", domain.CapSupportAgent), "tkt_1")
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim: expected ErrAlreadyClaimed, got %v", err)
	}

	// The binding must not have moved.
	ticket, _ := repo.FindByID(context.Background(), "tkt_1")
	if ticket.AgentID != "support_1" {
		t.Errorf("agent binding must not change on a lost claim, got %q", ticket.AgentID)
	}
}

func TestTicketService_Claim_ConcurrentSingleWinner(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	const claimers = 6
	var wg sync.WaitGroup
	errs := make([]error, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := principalWith("support_"+string(rune('a'+i)), domain.CapSupportAgent)
			_, errs[i] = svc.Claim(context.Background(), p, "tkt_1")
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyClaimed):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("exactly one claim must win, got %d", wins)
	}
}

func TestTicketService_Claim_RequiresSupportCapability(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	_, err := svc.Claim(context.Background(), principalWith("user_1", domain.CapUser), "tkt_1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestTicketService_AddMessage(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketInProgress)
	repo.mu.Lock()
	repo.tickets["tkt_1"].AgentID = "support_1"
	repo.mu.Unlock()

	ticket, err := svc.AddMessage(context.Background(), principalWith("support_1", domain.CapSupportAgent), "tkt_1", "looking into it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ticket.Messages) != 2 {
		t.Fatalf("messages: want 2, got %d", len(ticket.Messages))
	}
	last := ticket.Messages[len(ticket.Messages)-1]
	if last.AuthorID != "support_1" || last.Body != "looking into it" {
		t.Errorf("unexpected last message: %+v", last)
	}
}

func TestTicketService_AddMessage_StrangerDenied(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	_, err := svc.AddMessage(context.Background(), principalWith("user_2", domain.CapUser), "tkt_1", "me too")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Advance
// ---------------------------------------------------------------------------

func TestTicketService_Advance_ResolveByClaimingAgent(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketInProgress)
	repo.mu.Lock()
	repo.tickets["tkt_1"].AgentID = "support_1"
	repo.mu.Unlock()

	ticket, err := svc.Advance(context.Background(), principalWith("support_1", domain.CapSupportAgent), "tkt_1", domain.TicketResolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketResolved {
		t.Errorf("status: want %q, got %q", domain.TicketResolved, ticket.Status)
	}
}

func TestTicketService_Advance_ResolveByOtherAgentDenied(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketInProgress)
	repo.mu.Lock()
	repo.tickets["tkt_1"].AgentID = "support_1"
	repo.mu.Unlock()

	_, err := svc.Advance(context.Background(), principalWith("support_2", domain.CapSupportAgent), "tkt_1", domain.TicketResolved)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-claiming agent, got %v", err)
	}
}

func TestTicketService_Advance_CloseByOwner(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketResolved)

	ticket, err := svc.Advance(context.Background(), principalWith("user_1", domain.CapUser), "tkt_1", domain.TicketClosed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketClosed {
		t.Errorf("status: want %q, got %q", domain.TicketClosed, ticket.Status)
	}
}

func TestTicketService_Advance_NoSkipping(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketOpen)

	_, err := svc.Advance(context.Background(), principalWith("admin_1", domain.CapAdmin), "tkt_1", domain.TicketResolved)
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("open -> resolved must be rejected, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reopen
// ---------------------------------------------------------------------------

func TestTicketService_Reopen(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketClosed)
	repo.mu.Lock()
	repo.tickets["tkt_1"].AgentID = "support_1"
	repo.mu.Unlock()

	ticket, err := svc.Reopen(context.Background(), principalWith("user_1", domain.CapUser), "tkt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketOpen {
		t.Errorf("status: want %q, got %q", domain.TicketOpen, ticket.Status)
	}
	if ticket.ReopenCount != 1 {
		t.Errorf("reopen count: want 1, got %d", ticket.ReopenCount)
	}
	// The previous binding is cleared so the ticket can be claimed afresh.
	if ticket.AgentID != "" {
		t.Errorf("agent must be cleared on reopen, got %q", ticket.AgentID)
	}
}

func TestTicketService_Reopen_OnlyOnce(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketClosed)
	owner := principalWith("user_1", domain.CapUser)

	if _, err := svc.Reopen(context.Background(), owner, "tkt_1"); err != nil {
		t.Fatalf("first reopen: %v", err)
	}

	// Close it again through the normal path.
	agent := principalWith("support_1", domain.CapSupportAgent)
	if _, err := svc.Claim(context.Background(), agent, "tkt_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Advance(context.Background(), agent, "tkt_1", domain.TicketResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := svc.Advance(context.Background(), owner, "tkt_1", domain.TicketClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := svc.Reopen(context.Background(), owner, "tkt_1")
	if !errors.Is(err, domain.ErrReopenLimitExceeded) {
		t.Errorf("second reopen: expected ErrReopenLimitExceeded, got %v", err)
	}
}

func TestTicketService_Reopen_OwnerOnly(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketClosed)

	_, err := svc.Reopen(context.Background(), principalWith("admin_1", domain.CapAdmin, domain.CapUser), "tkt_1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestTicketService_Reopen_NotClosed(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewTicketService(repo, discardLogger)
	seedTicket(repo, "tkt_1", "user_1", domain.TicketInProgress)

	_, err := svc.Reopen(context.Background(), principalWith("user_1", domain.CapUser), "tkt_1")
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}
