package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// AssignmentService binds confirmed orders to delivery agents. The
// exclusivity invariant is enforced by the repository's version-conditioned
// write: when two attempts race, exactly one write matches and the loser
// observes AlreadyAssigned.
type AssignmentService struct {
	orders ports.OrderRepository
	pool   ports.AgentPool
	log    zerolog.Logger
	now    func() time.Time
}

func NewAssignmentService(orders ports.OrderRepository, pool ports.AgentPool, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		orders: orders,
		pool:   pool,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Assign moves the order from confirmed to assigned, binding the
// least-loaded available agent. Ties break by agent id ordering so the
// choice is deterministic.
func (s *AssignmentService) Assign(ctx context.Context, orderID string) (*ports.AssignmentResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.OrderConfirmed:
		// eligible
	case domain.OrderAssigned, domain.OrderOutForDelivery, domain.OrderDelivered, domain.OrderReturned:
		return nil, domain.ErrAlreadyAssigned
	default:
		return nil, fmt.Errorf("%w: cannot assign from %s", domain.ErrIllegalTransition, order.Status)
	}

	agentID, err := s.selectAgent(ctx)
	if err != nil {
		return nil, err
	}

	err = s.orders.ApplyTransition(ctx, orderID, ports.OrderWrite{
		FromStatus:  domain.OrderConfirmed,
		FromVersion: order.Version,
		ToStatus:    domain.OrderAssigned,
		AgentID:     &agentID,
		Entry: domain.OrderHistoryEntry{
			Status:    domain.OrderAssigned,
			ActorID:   agentID,
			Timestamp: s.now(),
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			// The order left confirmed between read and write: another
			// assignment won the race.
			metrics.AssignmentConflictsTotal.Inc()
			metrics.AssignmentsTotal.WithLabelValues("already_assigned").Inc()
			return nil, domain.ErrAlreadyAssigned
		}
		metrics.AssignmentsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.AssignmentsTotal.WithLabelValues("assigned").Inc()
	s.log.Info().Str("order_id", orderID).Str("agent_id", agentID).Msg("order assigned")

	assigned, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ports.AssignmentResult{Order: assigned, AgentID: agentID}, nil
}

// ReleaseAgent drops the agent from the pool and returns every assigned
// order it holds to confirmed, making them eligible for re-assignment.
// This is the only backward edge of the order state machine.
func (s *AssignmentService) ReleaseAgent(ctx context.Context, agentID string) ([]string, error) {
	if err := s.pool.MarkUnavailable(ctx, agentID); err != nil {
		return nil, err
	}

	held, err := s.orders.FindHeldByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	cleared := ""
	var released []string
	for _, order := range held {
		err := s.orders.ApplyTransition(ctx, order.ID, ports.OrderWrite{
			FromStatus:  domain.OrderAssigned,
			FromVersion: order.Version,
			ToStatus:    domain.OrderConfirmed,
			AgentID:     &cleared,
			Entry: domain.OrderHistoryEntry{
				Status:    domain.OrderConfirmed,
				Timestamp: s.now(),
				Notes:     "agent unavailable, released for re-assignment",
			},
		})
		if err != nil {
			// Moved on concurrently (e.g. out_for_delivery); leave it be.
			if errors.Is(err, domain.ErrStaleVersion) {
				continue
			}
			return released, err
		}
		metrics.LifecycleTransitionsTotal.WithLabelValues("order", string(domain.OrderConfirmed)).Inc()
		released = append(released, order.ID)
	}

	s.log.Info().Str("agent_id", agentID).Int("released", len(released)).Msg("agent released")
	return released, nil
}

// selectAgent picks the available agent with the fewest active orders
// (assigned or out_for_delivery), ties broken by id ordering.
func (s *AssignmentService) selectAgent(ctx context.Context) (string, error) {
	available, err := s.pool.Available(ctx)
	if err != nil {
		return "", err
	}
	if len(available) == 0 {
		metrics.AssignmentsTotal.WithLabelValues("no_agent").Inc()
		return "", domain.ErrNoAgentAvailable
	}

	loads, err := s.orders.CountActiveByAgent(ctx, available)
	if err != nil {
		return "", err
	}

	sort.Strings(available)
	best := available[0]
	for _, id := range available[1:] {
		if loads[id] < loads[best] {
			best = id
		}
	}
	return best, nil
}
