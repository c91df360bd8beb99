package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// UserService implements self-service profile and cart operations. Cart
// writes touch only the owning user's record; they never interact with the
// order or ticket state machines.
type UserService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

func NewUserService(users ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) Me(ctx context.Context, p *domain.Principal) (*domain.User, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, p.SubjectID)
}

func (s *UserService) ReplaceCart(ctx context.Context, p *domain.Principal, cart []domain.CartItem) (*domain.User, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}
	if err := s.users.ReplaceCart(ctx, p.SubjectID, cart); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, p.SubjectID)
}

func (s *UserService) AddCartItem(ctx context.Context, p *domain.Principal, item domain.CartItem) (*domain.User, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	user, err := s.users.FindByID(ctx, p.SubjectID)
	if err != nil {
		return nil, err
	}

	// Same product/size/color lines merge instead of duplicating.
	merged := false
	for i, existing := range user.Cart {
		if existing.ProductID == item.ProductID && existing.Size == item.Size && existing.Color == item.Color {
			user.Cart[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		user.Cart = append(user.Cart, item)
	}

	if err := s.users.ReplaceCart(ctx, user.ID, user.Cart); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now().UTC()
	return user, nil
}

func (s *UserService) RemoveCartItem(ctx context.Context, p *domain.Principal, productID string) (*domain.User, error) {
	if err := gate(p, domain.RequireCap(domain.CapUser)); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, p.SubjectID)
	if err != nil {
		return nil, err
	}

	kept := user.Cart[:0]
	for _, item := range user.Cart {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	user.Cart = kept

	if err := s.users.ReplaceCart(ctx, user.ID, user.Cart); err != nil {
		return nil, err
	}
	return user, nil
}
