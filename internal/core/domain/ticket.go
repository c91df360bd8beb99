package domain

import "time"

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// maxReopens bounds how many times a closed ticket may come back.
const maxReopens = 1

// ticketTransitions is the fixed adjacency table for the ticket state machine.
// closed → open is the reopen path, limited by ReopenCount.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress},
	TicketInProgress: {TicketResolved},
	TicketResolved:   {TicketClosed},
	TicketClosed:     {TicketOpen},
}

// CanTransitionTo reports whether a transition from the current status to
// next is an edge of the ticket state machine.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TicketMessage is one entry in the ticket's conversation log.
type TicketMessage struct {
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Body      string    `json:"body" bson:"body"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// TicketHistoryEntry records one accepted status transition.
type TicketHistoryEntry struct {
	Status    TicketStatus `json:"status" bson:"status"`
	ActorID   string       `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// Ticket is the support aggregate root. At most one agent holds the ticket
// at a time; AgentID is set exactly once per claim, first claim wins.
type Ticket struct {
	ID          string               `json:"id" bson:"_id,omitempty"`
	UserID      string               `json:"user_id" bson:"user_id"`
	Subject     string               `json:"subject" bson:"subject"`
	Status      TicketStatus         `json:"status" bson:"status"`
	AgentID     string               `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	ReopenCount int                  `json:"reopen_count" bson:"reopen_count"`
	Version     int64                `json:"version" bson:"version"`
	Messages    []TicketMessage      `json:"messages" bson:"messages"`
	History     []TicketHistoryEntry `json:"history" bson:"history"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
}

// CanReopen reports whether the ticket is still within its reopen allowance.
func (t *Ticket) CanReopen() bool {
	return t.ReopenCount < maxReopens
}
