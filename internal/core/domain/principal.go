package domain

import (
	"strings"
	"time"
)

// Principal is the authenticated identity attached to a request. It is
// derived from a verified token per request and never persisted; no ambient
// global holds authentication state.
type Principal struct {
	SubjectID string
	Mask      Mask
	ExpiresAt time.Time
}

// Expired reports whether the principal's token has elapsed at the given instant.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// RequireMode selects how a Requirement combines its capabilities.
type RequireMode string

const (
	RequireAny RequireMode = "any"
	RequireAll RequireMode = "all"
)

// Requirement is a capability expression a principal must satisfy. It is a
// small tagged value rather than a predicate function so decisions can be
// logged and enumerated in tests.
type Requirement struct {
	Mode RequireMode
	Caps []Capability
}

// RequireCap demands a single capability.
func RequireCap(c Capability) Requirement {
	return Requirement{Mode: RequireAny, Caps: []Capability{c}}
}

// AnyOf demands at least one of the given capabilities.
func AnyOf(caps ...Capability) Requirement {
	return Requirement{Mode: RequireAny, Caps: caps}
}

// AllOf demands every one of the given capabilities.
func AllOf(caps ...Capability) Requirement {
	return Requirement{Mode: RequireAll, Caps: caps}
}

// String renders the requirement for logs, e.g. "any(SUPPORT_AGENT|ADMIN)".
func (r Requirement) String() string {
	names := make([]string, 0, len(r.Caps))
	for _, c := range r.Caps {
		switch c {
		case CapUser:
			names = append(names, "USER")
		case CapDeliveryAgent:
			names = append(names, "DELIVERY_AGENT")
		case CapSupportAgent:
			names = append(names, "SUPPORT_AGENT")
		case CapAdmin:
			names = append(names, "ADMIN")
		}
	}
	return string(r.Mode) + "(" + strings.Join(names, "|") + ")"
}

// DenyReason classifies why an authorization decision denied a request.
type DenyReason string

const (
	DenyNone             DenyReason = ""
	DenyNoPrincipal      DenyReason = "no_principal"
	DenyExpiredPrincipal DenyReason = "expired_principal"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Authorize decides whether the principal satisfies the requirement at the
// given instant. It is a pure function with no side effects; the caller is
// responsible for halting request processing on a deny.
func Authorize(p *Principal, req Requirement, now time.Time) Decision {
	if p == nil || p.SubjectID == "" {
		return Decision{Reason: DenyNoPrincipal}
	}
	if p.Expired(now) {
		return Decision{Reason: DenyExpiredPrincipal}
	}

	switch req.Mode {
	case RequireAll:
		for _, c := range req.Caps {
			if !Has(p.Mask, c) {
				return Decision{Reason: DenyInsufficientRole}
			}
		}
		return Decision{Allowed: true}
	default: // RequireAny
		for _, c := range req.Caps {
			if Has(p.Mask, c) {
				return Decision{Allowed: true}
			}
		}
		return Decision{Reason: DenyInsufficientRole}
	}
}
