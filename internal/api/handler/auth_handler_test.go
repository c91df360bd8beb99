package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn    func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn       func(ctx context.Context, username, password string) (string, *domain.User, error)
	changeRolesFn func(ctx context.Context, in ports.RoleChangeInput) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) ChangeRoles(ctx context.Context, in ports.RoleChangeInput) (*domain.User, error) {
	return s.changeRolesFn(ctx, in)
}

func newJSONContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Password != "long-enough" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Actor != nil {
				t.Fatal("anonymous registration must carry no actor")
			}
			return &domain.User{ID: "user_1", Username: in.Username, Mask: domain.Mask(domain.CapUser)}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/auth/register",
		`{"username":"alice","password":"long-enough","email":"a@example.com"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Body    struct {
			User map[string]any `json:"user"`
		} `json:"body"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}
	if resp.Body.User["username"] != "alice" {
		t.Errorf("unexpected user payload: %+v", resp.Body.User)
	}
	if resp.Body.User["mask"] != float64(domain.CapUser) {
		t.Errorf("mask: want %d, got %v", domain.CapUser, resp.Body.User["mask"])
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	// Password below the minimum length.
	c, _ := newJSONContext(e, http.MethodPost, "/auth/register",
		`{"username":"alice","password":"short"}`)
	err := h.Register(c)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(e, http.MethodPost, "/auth/register", "not-json")
	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Register_ServiceErrorPassesThrough(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newJSONContext(e, http.MethodPost, "/auth/register",
		`{"username":"alice","password":"long-enough"}`)
	// Taxonomy errors are returned untouched; the central error handler
	// owns the status mapping.
	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, username, password string) (string, *domain.User, error) {
			if username != "alice" || password != "secret-pass" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return "token123", &domain.User{ID: "user_1", Username: "alice", Mask: domain.Mask(domain.CapUser)}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret-pass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Body    struct {
			Token string `json:"token"`
		} `json:"body"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Body.Token != "token123" {
		t.Errorf("expected token in envelope body, got %q", resp.Body.Token)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newJSONContext(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"bad"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
