package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Principal helpers
// ---------------------------------------------------------------------------

func principalWith(subjectID string, caps ...domain.Capability) *domain.Principal {
	var mask domain.Mask
	for _, c := range caps {
		mask = domain.Combine(mask, domain.Mask(c))
	}
	return &domain.Principal{
		SubjectID: subjectID,
		Mask:      mask,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

// ---------------------------------------------------------------------------
// In-memory order repository
// ---------------------------------------------------------------------------

type stubOrderRepo struct {
	mu     sync.Mutex
	seq    int
	orders map[string]*domain.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	clone := *o
	clone.Items = append([]domain.LineItem(nil), o.Items...)
	clone.History = append([]domain.OrderHistoryEntry(nil), o.History...)
	return &clone
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := cloneOrder(o)
	clone.ID = fmt.Sprintf("ord_%d", r.seq)
	r.orders[clone.ID] = clone
	return cloneOrder(clone), nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *stubOrderRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

// ApplyTransition enforces the same condition the real Mongo repo puts in its
// filter: id, status, and version must all still match.
func (r *stubOrderRepo) ApplyTransition(_ context.Context, id string, w ports.OrderWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != w.FromStatus || o.Version != w.FromVersion {
		return domain.ErrStaleVersion
	}
	o.Status = w.ToStatus
	if w.AgentID != nil {
		o.AgentID = *w.AgentID
	}
	o.Version++
	o.History = append(o.History, w.Entry)
	return nil
}

func (r *stubOrderRepo) CountActiveByAgent(_ context.Context, agentIDs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	for _, o := range r.orders {
		if o.Status != domain.OrderAssigned && o.Status != domain.OrderOutForDelivery {
			continue
		}
		if _, tracked := counts[o.AgentID]; tracked {
			counts[o.AgentID]++
		}
	}
	return counts, nil
}

func (r *stubOrderRepo) FindHeldByAgent(_ context.Context, agentID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.AgentID == agentID && o.Status == domain.OrderAssigned {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

// seedOrder stores an order directly, bypassing the service.
func (r *stubOrderRepo) seedOrder(id, userID string, status domain.OrderStatus) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	o := &domain.Order{
		ID:        id,
		UserID:    userID,
		Items:     []domain.LineItem{{ProductID: "sku_1", Quantity: 1}},
		Status:    status,
		Version:   1,
		CreatedAt: now,
		History:   []domain.OrderHistoryEntry{{Status: domain.OrderPlaced, ActorID: userID, Timestamp: now}},
	}
	r.orders[id] = o
	return cloneOrder(o)
}

// ---------------------------------------------------------------------------
// In-memory ticket repository
// ---------------------------------------------------------------------------

type stubTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.Messages = append([]domain.TicketMessage(nil), t.Messages...)
	clone.History = append([]domain.TicketHistoryEntry(nil), t.History...)
	return &clone
}

func (r *stubTicketRepo) Create(_ context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := cloneTicket(t)
	clone.ID = fmt.Sprintf("tkt_%d", r.seq)
	r.tickets[clone.ID] = clone
	return cloneTicket(clone), nil
}

func (r *stubTicketRepo) FindByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

func (r *stubTicketRepo) ListByUser(_ context.Context, userID string) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

func (r *stubTicketRepo) ApplyTransition(_ context.Context, id string, w ports.TicketWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if t.Status != w.FromStatus || t.Version != w.FromVersion {
		return domain.ErrStaleVersion
	}
	t.Status = w.ToStatus
	if w.AgentID != nil {
		t.AgentID = *w.AgentID
	}
	if w.IncReopen {
		t.ReopenCount++
	}
	t.Version++
	t.History = append(t.History, w.Entry)
	return nil
}

func (r *stubTicketRepo) AppendMessage(_ context.Context, id string, msg domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	t.Messages = append(t.Messages, msg)
	return nil
}

// ---------------------------------------------------------------------------
// In-memory user / agent repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Cart = append([]domain.CartItem(nil), u.Cart...)
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	clone := cloneUser(u)
	clone.ID = fmt.Sprintf("user_%d", r.seq)
	r.users[clone.ID] = clone
	return cloneUser(clone), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateMask(_ context.Context, id string, mask domain.Mask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Mask = mask
	return nil
}

func (r *stubUserRepo) ReplaceCart(_ context.Context, id string, cart []domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Cart = append([]domain.CartItem(nil), cart...)
	return nil
}

func (r *stubUserRepo) seedUser(id, username string, mask domain.Mask, cart []domain.CartItem) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	u := &domain.User{ID: id, Username: username, Mask: mask, Cart: cart, CreatedAt: now, UpdatedAt: now}
	r.users[id] = u
	return cloneUser(u)
}

type stubAgentRepo struct {
	mu     sync.Mutex
	seq    int
	agents map[string]*domain.DeliveryAgent
}

func newStubAgentRepo() *stubAgentRepo {
	return &stubAgentRepo{agents: make(map[string]*domain.DeliveryAgent)}
}

func (r *stubAgentRepo) Create(_ context.Context, a *domain.DeliveryAgent) (*domain.DeliveryAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := *a
	clone.ID = fmt.Sprintf("agent_%d", r.seq)
	r.agents[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubAgentRepo) FindByID(_ context.Context, id string) (*domain.DeliveryAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAgentRepo) FindByUserID(_ context.Context, userID string) (*domain.DeliveryAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.UserID == userID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAgentNotFound
}

func (r *stubAgentRepo) seedAgent(id, userID string) *domain.DeliveryAgent {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &domain.DeliveryAgent{ID: id, UserID: userID, Name: userID, CreatedAt: time.Now().UTC()}
	r.agents[id] = a
	clone := *a
	return &clone
}

// ---------------------------------------------------------------------------
// In-memory agent pool
// ---------------------------------------------------------------------------

type stubAgentPool struct {
	mu        sync.Mutex
	available map[string]bool
}

func newStubAgentPool(agentIDs ...string) *stubAgentPool {
	p := &stubAgentPool{available: make(map[string]bool)}
	for _, id := range agentIDs {
		p.available[id] = true
	}
	return p
}

func (p *stubAgentPool) Heartbeat(_ context.Context, agentID string) error {
	return p.MarkAvailable(context.Background(), agentID)
}

func (p *stubAgentPool) MarkAvailable(_ context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available[agentID] = true
	return nil
}

func (p *stubAgentPool) MarkUnavailable(_ context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.available, agentID)
	return nil
}

func (p *stubAgentPool) Available(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.available))
	for id := range p.available {
		out = append(out, id)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Recording assignment queue
// ---------------------------------------------------------------------------

type stubQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (q *stubQueue) Enqueue(orderID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, orderID)
}

func (q *stubQueue) ids() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.enqueued...)
}
