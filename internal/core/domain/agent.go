package domain

import "time"

// DeliveryAgent is a courier account eligible for order assignment.
// Availability lives in the agent pool, not on this record; what is stored
// here is identity and registration state.
type DeliveryAgent struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
