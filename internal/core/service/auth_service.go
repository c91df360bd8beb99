package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

// AuthService implements registration, login, and role administration.
type AuthService struct {
	users     ports.UserRepository
	agents    ports.AgentRepository
	registry  *domain.CapabilityRegistry
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	agents ports.AgentRepository,
	registry *domain.CapabilityRegistry,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		agents:    agents,
		registry:  registry,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Register creates an account. Public registration always yields a plain
// USER mask; granting anything more requires an ADMIN actor.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	mask := domain.Mask(domain.CapUser)
	for _, name := range in.Roles {
		c, ok := s.registry.Lookup(name)
		if !ok {
			return nil, domain.ErrUnknownRole
		}
		mask = domain.Combine(mask, domain.Mask(c))
	}
	if mask != domain.Mask(domain.CapUser) {
		if err := gate(in.Actor, domain.RequireCap(domain.CapAdmin)); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Mask:         mask,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAgentRecord(ctx, created); err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("failed to create agent record")
	}

	s.log.Info().Str("user_id", created.ID).Strs("roles", s.registry.Names(created.Mask)).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a signed token carrying the
// subject id, capability mask, and expiry.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// ChangeRoles applies grant/revoke lists to a user's capability mask.
// ADMIN only.
func (s *AuthService) ChangeRoles(ctx context.Context, in ports.RoleChangeInput) (*domain.User, error) {
	if err := gate(in.Actor, domain.RequireCap(domain.CapAdmin)); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	mask := user.Mask
	for _, name := range in.Grant {
		c, ok := s.registry.Lookup(name)
		if !ok {
			return nil, domain.ErrUnknownRole
		}
		mask = domain.Combine(mask, domain.Mask(c))
	}
	for _, name := range in.Revoke {
		c, ok := s.registry.Lookup(name)
		if !ok {
			return nil, domain.ErrUnknownRole
		}
		mask = domain.Revoke(mask, c)
	}

	if err := s.users.UpdateMask(ctx, user.ID, mask); err != nil {
		return nil, err
	}
	user.Mask = mask

	if err := s.ensureAgentRecord(ctx, user); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to create agent record")
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("actor_id", in.Actor.SubjectID).
		Strs("roles", s.registry.Names(mask)).
		Msg("roles changed")
	return user, nil
}

// ensureAgentRecord creates the delivery-agent record backing assignment
// identity the first time a user holds the DELIVERY_AGENT capability.
func (s *AuthService) ensureAgentRecord(ctx context.Context, user *domain.User) error {
	if !domain.Has(user.Mask, domain.CapDeliveryAgent) {
		return nil
	}
	if _, err := s.agents.FindByUserID(ctx, user.ID); err == nil {
		return nil
	}
	_, err := s.agents.Create(ctx, &domain.DeliveryAgent{
		UserID:    user.ID,
		Name:      user.Username,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"caps": uint64(user.Mask),
		"exp":  jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
