package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/quickcart/commerce-api/internal/core/domain"
)

// principalKey is the echo context key the verified Principal is stored
// under. Handlers read it through handler.CtxPrincipal.
const principalKey = "principal"

// Auth verifies the bearer token and attaches the derived Principal to the
// request context. The Principal carries the subject id, capability mask,
// and expiry taken from the verified claims; nothing ambient holds it.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			p, err := principalFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// OptionalAuth verifies the bearer token when one is present and otherwise
// lets the request through with no Principal. Used on registration, where
// an anonymous caller self-registers but an admin may grant extra roles.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	auth := Auth(jwtSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return auth(next)(c)
		}
	}
}

// principalFromClaims builds a Principal from verified claims. Numeric
// claims arrive as float64 after JSON decoding.
func principalFromClaims(claims jwt.MapClaims) (*domain.Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}

	caps, ok := claims["caps"].(float64)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return &domain.Principal{
		SubjectID: sub,
		Mask:      domain.Mask(uint64(caps)),
		ExpiresAt: exp.Time,
	}, nil
}

// Principal returns the Principal attached by Auth, or nil when absent.
func Principal(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// SetPrincipal attaches a Principal directly. Test hook.
func SetPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}
