package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/api/middleware"
	"github.com/quickcart/commerce-api/internal/core/domain"
)

// envelope is the canonical response shape: success plus a payload or
// error detail body.
type envelope struct {
	Success bool `json:"success"`
	Body    any  `json:"body"`
}

// respond writes a successful envelope.
func respond(c echo.Context, status int, body any) error {
	return c.JSON(status, envelope{Success: true, Body: body})
}

// ctxPrincipal extracts the Principal injected by the Auth middleware and
// fast-fails when it is absent: presence proves the middleware ran.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.Principal(c)
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
