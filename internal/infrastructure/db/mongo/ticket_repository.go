package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

const collectionTickets = "tickets"

type TicketRepository struct {
	col *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{col: db.Collection(collectionTickets)}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	t.ID = primitive.NewObjectID().Hex()
	if _, err := r.col.InsertOne(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Ticket
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tickets []*domain.Ticket
	for cur.Next(ctx) {
		var t domain.Ticket
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t)
	}
	return tickets, cur.Err()
}

// ApplyTransition performs the version-conditioned status write, mirroring
// the order repository's contract.
func (r *TicketRepository) ApplyTransition(ctx context.Context, id string, w ports.TicketWrite) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":     id,
		"version": w.FromVersion,
		"status":  string(w.FromStatus),
	}

	set := bson.M{"status": string(w.ToStatus)}
	if w.AgentID != nil {
		set["agent_id"] = *w.AgentID
	}

	inc := bson.M{"version": 1}
	if w.IncReopen {
		inc["reopen_count"] = 1
	}

	update := bson.M{
		"$set":  set,
		"$inc":  inc,
		"$push": bson.M{"history": w.Entry},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrTicketNotFound
		}
		return domain.ErrStaleVersion
	}
	return nil
}

func (r *TicketRepository) AppendMessage(ctx context.Context, id string, msg domain.TicketMessage) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"messages": msg}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the ticket queries rely on.
func (r *TicketRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
