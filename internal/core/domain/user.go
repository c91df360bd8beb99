package domain

import "time"

// CartItem is one entry in a user's embedded cart. Cart mutations are
// confined to the owning user's record and never touch the lifecycle
// state machines.
type CartItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Size      string `json:"size,omitempty" bson:"size,omitempty"`
	Color     string `json:"color,omitempty" bson:"color,omitempty"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// User models an account in the platform. Mask is the stored capability
// bitmask; a Principal is derived from it at token issuance time.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Mask         Mask       `json:"mask"`
	Cart         []CartItem `json:"cart"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
