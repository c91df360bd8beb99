package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

func TestAssignmentService_Assign(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1")
	svc := NewAssignmentService(orders, pool, discardLogger)
	orders.seedOrder("ord_1", "user_1", domain.OrderConfirmed)

	result, err := svc.Assign(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AgentID != "agent_1" {
		t.Errorf("agent: want agent_1, got %s", result.AgentID)
	}
	if result.Order.Status != domain.OrderAssigned {
		t.Errorf("status: want %q, got %q", domain.OrderAssigned, result.Order.Status)
	}
	if result.Order.AgentID != "agent_1" {
		t.Errorf("order must be bound to agent_1, got %q", result.Order.AgentID)
	}
	if result.Order.Version != 2 {
		t.Errorf("version must increment, got %d", result.Order.Version)
	}
}

func TestAssignmentService_Assign_LeastLoaded(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1", "agent_2", "agent_3")
	svc := NewAssignmentService(orders, pool, discardLogger)

	// agent_1 holds two active orders, agent_2 one, agent_3 one.
	orders.seedOrder("held_1", "user_9", domain.OrderAssigned)
	orders.seedOrder("held_2", "user_9", domain.OrderOutForDelivery)
	orders.seedOrder("held_3", "user_9", domain.OrderAssigned)
	orders.seedOrder("held_4", "user_9", domain.OrderAssigned)
	orders.mu.Lock()
	orders.orders["held_1"].AgentID = "agent_1"
	orders.orders["held_2"].AgentID = "agent_1"
	orders.orders["held_3"].AgentID = "agent_2"
	orders.orders["held_4"].AgentID = "agent_3"
	orders.mu.Unlock()

	orders.seedOrder("ord_1", "user_1", domain.OrderConfirmed)

	result, err := svc.Assign(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// agent_2 and agent_3 tie on load 1; the smaller id wins.
	if result.AgentID != "agent_2" {
		t.Errorf("tie on load must break by id ordering: want agent_2, got %s", result.AgentID)
	}
}

func TestAssignmentService_Assign_TieBreakIsDeterministic(t *testing.T) {
	// With equal loads across the whole pool the lexicographically smallest
	// id must always win, regardless of pool enumeration order.
	for i := 0; i < 5; i++ {
		orders := newStubOrderRepo()
		pool := newStubAgentPool("agent_c", "agent_a", "agent_b")
		svc := NewAssignmentService(orders, pool, discardLogger)
		orders.seedOrder("ord_1", "user_1", domain.OrderConfirmed)

		result, err := svc.Assign(context.Background(), "ord_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.AgentID != "agent_a" {
			t.Fatalf("run %d: want agent_a, got %s", i, result.AgentID)
		}
	}
}

func TestAssignmentService_Assign_NoAgentAvailable(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool()
	svc := NewAssignmentService(orders, pool, discardLogger)
	orders.seedOrder("ord_1", "user_1", domain.OrderConfirmed)

	_, err := svc.Assign(context.Background(), "ord_1")
	if !errors.Is(err, domain.ErrNoAgentAvailable) {
		t.Fatalf("expected ErrNoAgentAvailable, got %v", err)
	}

	// The order must stay confirmed, ready for a later attempt.
	stored, _ := orders.FindByID(context.Background(), "ord_1")
	if stored.Status != domain.OrderConfirmed {
		t.Errorf("order must remain confirmed, got %q", stored.Status)
	}
	if stored.Version != 1 {
		t.Errorf("version must not move on a failed attempt, got %d", stored.Version)
	}
}

func TestAssignmentService_Assign_AlreadyAssigned(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1")
	svc := NewAssignmentService(orders, pool, discardLogger)

	for _, status := range []domain.OrderStatus{
		domain.OrderAssigned,
		domain.OrderOutForDelivery,
		domain.OrderDelivered,
	} {
		orders.seedOrder("ord_"+string(status), "user_1", status)
		_, err := svc.Assign(context.Background(), "ord_"+string(status))
		if !errors.Is(err, domain.ErrAlreadyAssigned) {
			t.Errorf("status %s: expected ErrAlreadyAssigned, got %v", status, err)
		}
	}
}

func TestAssignmentService_Assign_NotYetConfirmed(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1")
	svc := NewAssignmentService(orders, pool, discardLogger)
	orders.seedOrder("ord_1", "user_1", domain.OrderPlaced)

	_, err := svc.Assign(context.Background(), "ord_1")
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition for a placed order, got %v", err)
	}
}

func TestAssignmentService_Assign_ConcurrentSingleWinner(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1", "agent_2")
	svc := NewAssignmentService(orders, pool, discardLogger)
	orders.seedOrder("ord_1", "user_1", domain.OrderConfirmed)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Assign(context.Background(), "ord_1")
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyAssigned):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("exactly one attempt must win, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("losers must observe ErrAlreadyAssigned, got %d of %d", conflicts, attempts-1)
	}

	stored, _ := orders.FindByID(context.Background(), "ord_1")
	if stored.Status != domain.OrderAssigned {
		t.Errorf("status: want %q, got %q", domain.OrderAssigned, stored.Status)
	}
	if stored.AgentID == "" {
		t.Error("order must be bound to exactly one agent")
	}
	// One accepted write: one version bump, one history entry.
	if stored.Version != 2 {
		t.Errorf("version: want 2, got %d", stored.Version)
	}
	if len(stored.History) != 2 {
		t.Errorf("history: want 2 entries, got %d", len(stored.History))
	}
}

func TestAssignmentService_ReleaseAgent(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1", "agent_2")
	svc := NewAssignmentService(orders, pool, discardLogger)

	orders.seedOrder("ord_1", "user_1", domain.OrderAssigned)
	orders.seedOrder("ord_2", "user_2", domain.OrderAssigned)
	orders.seedOrder("ord_3", "user_3", domain.OrderOutForDelivery)
	orders.mu.Lock()
	orders.orders["ord_1"].AgentID = "agent_1"
	orders.orders["ord_2"].AgentID = "agent_1"
	orders.orders["ord_3"].AgentID = "agent_1"
	orders.mu.Unlock()

	released, err := svc.ReleaseAgent(context.Background(), "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(released) != 2 {
		t.Fatalf("expected 2 released orders, got %v", released)
	}

	// Released orders are back in confirmed with the agent cleared.
	for _, id := range released {
		o, _ := orders.FindByID(context.Background(), id)
		if o.Status != domain.OrderConfirmed {
			t.Errorf("%s: want confirmed, got %q", id, o.Status)
		}
		if o.AgentID != "" {
			t.Errorf("%s: agent must be cleared, got %q", id, o.AgentID)
		}
	}

	// An order already out for delivery stays with the agent.
	o3, _ := orders.FindByID(context.Background(), "ord_3")
	if o3.Status != domain.OrderOutForDelivery || o3.AgentID != "agent_1" {
		t.Errorf("out_for_delivery order must not be released: %+v", o3)
	}

	// The agent is out of the pool.
	available, _ := pool.Available(context.Background())
	for _, id := range available {
		if id == "agent_1" {
			t.Error("released agent must not remain available")
		}
	}
}

func TestAssignmentService_ReleaseAgent_NothingHeld(t *testing.T) {
	orders := newStubOrderRepo()
	pool := newStubAgentPool("agent_1")
	svc := NewAssignmentService(orders, pool, discardLogger)

	released, err := svc.ReleaseAgent(context.Background(), "agent_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(released) != 0 {
		t.Errorf("expected no released orders, got %v", released)
	}
}
