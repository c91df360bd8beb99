package ports

import (
	"context"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// RegisterInput carries the data needed to create an account. Roles is a
// list of role names; anything beyond USER requires an ADMIN actor.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Roles    []string
	// Actor is the principal performing the registration, nil for
	// public self-registration.
	Actor *domain.Principal
}

// RoleChangeInput carries a capability-mask update for a user. Grant and
// Revoke are role names resolved through the capability registry.
type RoleChangeInput struct {
	UserID string
	Grant  []string
	Revoke []string
	Actor  *domain.Principal
}

// AuthService defines registration, login, and role administration.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// Login verifies credentials and returns a signed token encoding
	// the subject id, capability mask, and expiry.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	ChangeRoles(ctx context.Context, in RoleChangeInput) (*domain.User, error)
}

// UserService defines self-service profile and cart operations.
type UserService interface {
	Me(ctx context.Context, p *domain.Principal) (*domain.User, error)
	ReplaceCart(ctx context.Context, p *domain.Principal, cart []domain.CartItem) (*domain.User, error)
	AddCartItem(ctx context.Context, p *domain.Principal, item domain.CartItem) (*domain.User, error)
	RemoveCartItem(ctx context.Context, p *domain.Principal, productID string) (*domain.User, error)
}
