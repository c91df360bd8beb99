package domain

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderPlaced         OrderStatus = "placed"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderAssigned       OrderStatus = "assigned"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderReturned       OrderStatus = "returned"
)

// orderTransitions is the fixed adjacency table for the order state machine.
// It only holds forward edges. The single backward path, assigned back to
// confirmed when an agent is released, is not listed here: it belongs to the
// release flow alone and is written through the repository's conditioned
// update, never through a caller-requested transition.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:         {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderAssigned, OrderCancelled},
	OrderAssigned:       {OrderOutForDelivery},
	OrderOutForDelivery: {OrderDelivered},
	OrderDelivered:      {OrderReturned},
}

// CanTransitionTo reports whether a transition from the current status to next
// is an edge of the order state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
// Returned orders are settled on entry; delivered orders remain open only
// for the return window, which the service checks separately.
func (s OrderStatus) Terminal() bool {
	return s == OrderCancelled || s == OrderReturned
}

// LineItem is a snapshot of one cart entry taken at checkout. It never
// changes after the order is placed.
type LineItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Size      string `json:"size,omitempty" bson:"size,omitempty"`
	Color     string `json:"color,omitempty" bson:"color,omitempty"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// OrderHistoryEntry records a single accepted transition. History is
// append-only: entries already recorded are never mutated.
type OrderHistoryEntry struct {
	Status    OrderStatus `json:"status" bson:"status"`
	ActorID   string      `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Notes     string      `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Order is the fulfillment aggregate root. Version is the optimistic
// concurrency counter: every accepted write increments it, and conditional
// writes are rejected when it has moved.
type Order struct {
	ID         string              `json:"id" bson:"_id,omitempty"`
	UserID     string              `json:"user_id" bson:"user_id"`
	Items      []LineItem          `json:"items" bson:"items"`
	Status     OrderStatus         `json:"status" bson:"status"`
	AgentID    string              `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	Version    int64               `json:"version" bson:"version"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
	History    []OrderHistoryEntry `json:"history" bson:"history"`
}

// DeliveredAt returns the timestamp of the delivered transition, or zero if
// the order has never been delivered. Used for the return-window check.
func (o *Order) DeliveredAt() time.Time {
	for i := len(o.History) - 1; i >= 0; i-- {
		if o.History[i].Status == OrderDelivered {
			return o.History[i].Timestamp
		}
	}
	return time.Time{}
}
