package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// OrderService implements the order lifecycle. Every transition is checked
// against the fixed adjacency table, gated on the acting principal, and
// written conditionally against the order's version counter.
type OrderService struct {
	orders       ports.OrderRepository
	users        ports.UserRepository
	agents       ports.AgentRepository
	queue        ports.AssignmentQueue
	returnWindow time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

func NewOrderService(
	orders ports.OrderRepository,
	users ports.UserRepository,
	agents ports.AgentRepository,
	queue ports.AssignmentQueue,
	returnWindow time.Duration,
	log zerolog.Logger,
) *OrderService {
	if returnWindow <= 0 {
		returnWindow = 72 * time.Hour
	}
	return &OrderService{
		orders:       orders,
		users:        users,
		agents:       agents,
		queue:        queue,
		returnWindow: returnWindow,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Checkout snapshots the principal's cart into a new placed order and
// clears the cart.
func (s *OrderService) Checkout(ctx context.Context, p *domain.Principal) (*domain.Order, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, p.SubjectID)
	if err != nil {
		return nil, err
	}
	if len(user.Cart) == 0 {
		return nil, domain.ErrEmptyCart
	}

	now := s.now()
	items := make([]domain.LineItem, 0, len(user.Cart))
	for _, c := range user.Cart {
		items = append(items, domain.LineItem{
			ProductID: c.ProductID,
			Size:      c.Size,
			Color:     c.Color,
			Quantity:  c.Quantity,
		})
	}

	order := &domain.Order{
		UserID:    user.ID,
		Items:     items,
		Status:    domain.OrderPlaced,
		Version:   1,
		CreatedAt: now,
		History: []domain.OrderHistoryEntry{
			{Status: domain.OrderPlaced, ActorID: user.ID, Timestamp: now},
		},
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to create order")
		return nil, err
	}

	if err := s.users.ReplaceCart(ctx, user.ID, nil); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to clear cart after checkout")
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("order", string(domain.OrderPlaced)).Inc()
	s.log.Info().Str("order_id", created.ID).Str("user_id", user.ID).Int("items", len(items)).Msg("order placed")
	return created, nil
}

// Get returns the order when the principal is its owner, its assigned
// agent, a support agent, or an admin.
func (s *OrderService) Get(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID == p.SubjectID ||
		domain.Has(p.Mask, domain.CapAdmin) ||
		domain.Has(p.Mask, domain.CapSupportAgent) ||
		s.isAssignedAgent(ctx, p, order) {
		return order, nil
	}
	return nil, domain.ErrForbidden
}

func (s *OrderService) ListMine(ctx context.Context, p *domain.Principal) ([]*domain.Order, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, p.SubjectID)
}

// Confirm moves placed → confirmed and hands the order to the assignment
// queue. ADMIN or SUPPORT_AGENT only.
func (s *OrderService) Confirm(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	if err := gate(p, domain.AnyOf(domain.CapAdmin, domain.CapSupportAgent)); err != nil {
		return nil, err
	}

	order, err := s.transition(ctx, p, orderID, domain.OrderConfirmed, "")
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		s.queue.Enqueue(order.ID)
	}
	return order, nil
}

// Advance moves assigned → out_for_delivery or out_for_delivery → delivered.
// Only the order's currently assigned agent or an admin may call it.
func (s *OrderService) Advance(ctx context.Context, p *domain.Principal, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	if target != domain.OrderOutForDelivery && target != domain.OrderDelivered {
		return nil, fmt.Errorf("%w: %s is not an agent transition", domain.ErrIllegalTransition, target)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.Has(p.Mask, domain.CapAdmin) && !s.isAssignedAgent(ctx, p, order) {
		return nil, domain.ErrForbidden
	}

	return s.transition(ctx, p, orderID, target, "")
}

// Cancel moves placed/confirmed → cancelled. Owner or admin only.
func (s *OrderService) Cancel(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.SubjectID && !domain.Has(p.Mask, domain.CapAdmin) {
		return nil, domain.ErrForbidden
	}

	return s.transition(ctx, p, orderID, domain.OrderCancelled, "")
}

// Return moves delivered → returned when requested by the owning user
// within the return window, measured from the delivered timestamp.
func (s *OrderService) Return(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.SubjectID {
		return nil, domain.ErrForbidden
	}

	deliveredAt := order.DeliveredAt()
	if deliveredAt.IsZero() || s.now().Sub(deliveredAt) > s.returnWindow {
		return nil, fmt.Errorf("%w: return window elapsed", domain.ErrIllegalTransition)
	}

	return s.transition(ctx, p, orderID, domain.OrderReturned, "")
}

// transition loads the order, validates the edge, and performs the
// version-conditioned write. History already recorded is never touched;
// the accepted write appends one entry and bumps the version.
func (s *OrderService) transition(ctx context.Context, p *domain.Principal, orderID string, target domain.OrderStatus, notes string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is terminal", domain.ErrIllegalTransition, order.Status)
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrIllegalTransition, order.Status, target)
	}

	err = s.orders.ApplyTransition(ctx, orderID, ports.OrderWrite{
		FromStatus:  order.Status,
		FromVersion: order.Version,
		ToStatus:    target,
		Entry: domain.OrderHistoryEntry{
			Status:    target,
			ActorID:   p.SubjectID,
			Timestamp: s.now(),
			Notes:     notes,
		},
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitionsTotal.WithLabelValues("order", string(target)).Inc()
	s.log.Info().
		Str("order_id", orderID).
		Str("actor_id", p.SubjectID).
		Str("from", string(order.Status)).
		Str("to", string(target)).
		Msg("order transition")

	return s.orders.FindByID(ctx, orderID)
}

// isAssignedAgent reports whether the principal's delivery-agent record is
// the one currently bound to the order.
func (s *OrderService) isAssignedAgent(ctx context.Context, p *domain.Principal, order *domain.Order) bool {
	if order.AgentID == "" || !domain.Has(p.Mask, domain.CapDeliveryAgent) {
		return false
	}
	agent, err := s.agents.FindByUserID(ctx, p.SubjectID)
	if err != nil {
		return false
	}
	return agent.ID == order.AgentID
}
