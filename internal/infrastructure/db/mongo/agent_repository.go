package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

const collectionAgents = "delivery_agents"

type AgentRepository struct {
	col *mongo.Collection
}

func NewAgentRepository(db *mongo.Database) *AgentRepository {
	return &AgentRepository{col: db.Collection(collectionAgents)}
}

func (r *AgentRepository) Create(ctx context.Context, a *domain.DeliveryAgent) (*domain.DeliveryAgent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a.ID = primitive.NewObjectID().Hex()
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AgentRepository) FindByID(ctx context.Context, id string) (*domain.DeliveryAgent, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AgentRepository) FindByUserID(ctx context.Context, userID string) (*domain.DeliveryAgent, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *AgentRepository) findOne(ctx context.Context, filter bson.M) (*domain.DeliveryAgent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.DeliveryAgent
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// EnsureIndexes creates the unique user_id index; one agent record per user.
func (r *AgentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
