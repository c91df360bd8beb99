package service

import (
	"time"

	"github.com/quickcart/commerce-api/internal/api/metrics"
	"github.com/quickcart/commerce-api/internal/core/domain"
)

// gate runs the authorization decision for a requirement and converts a deny
// into the matching taxonomy error. Denials are counted by reason.
func gate(p *domain.Principal, req domain.Requirement) error {
	d := domain.Authorize(p, req, time.Now().UTC())
	if d.Allowed {
		return nil
	}

	metrics.AuthzDenialsTotal.WithLabelValues(string(d.Reason)).Inc()
	switch d.Reason {
	case domain.DenyNoPrincipal, domain.DenyExpiredPrincipal:
		return domain.ErrUnauthenticated
	default:
		return domain.ErrForbidden
	}
}

// authenticated checks only that the principal exists and has not expired.
// Used before ownership checks that have no single capability requirement.
func authenticated(p *domain.Principal) error {
	if p == nil || p.SubjectID == "" {
		metrics.AuthzDenialsTotal.WithLabelValues(string(domain.DenyNoPrincipal)).Inc()
		return domain.ErrUnauthenticated
	}
	if p.Expired(time.Now().UTC()) {
		metrics.AuthzDenialsTotal.WithLabelValues(string(domain.DenyExpiredPrincipal)).Inc()
		return domain.ErrUnauthenticated
	}
	return nil
}
