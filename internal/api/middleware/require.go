package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
)

// Require enforces a capability requirement on a route. The decision is
// made by the pure authorization gate; this middleware only translates a
// deny into the HTTP response and halts the chain.
func Require(req domain.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			d := domain.Authorize(p, req, time.Now().UTC())
			if d.Allowed {
				return next(c)
			}

			metrics.AuthzDenialsTotal.WithLabelValues(string(d.Reason)).Inc()
			switch d.Reason {
			case domain.DenyNoPrincipal, domain.DenyExpiredPrincipal:
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			default:
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role for "+req.String())
			}
		}
	}
}
