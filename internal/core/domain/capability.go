package domain

import (
	"fmt"
	"strings"
)

// Capability is a single named permission, represented as one bit in a mask.
type Capability uint64

// Mask is a combination of capabilities held by a principal.
type Mask uint64

const (
	CapUser          Capability = 1 << 0
	CapDeliveryAgent Capability = 1 << 1
	CapSupportAgent  Capability = 1 << 2
	CapAdmin         Capability = 1 << 3
)

// CapabilityRegistry is the closed set of capabilities the platform knows about.
// The bitmask space is fixed at construction; there is no runtime role creation.
type CapabilityRegistry struct {
	byName map[string]Capability
	byBit  map[Capability]string
}

// NewCapabilityRegistry builds the registry from the fixed capability set.
// It fails fast if a bit is reused or a capability is not a power of two.
func NewCapabilityRegistry() (*CapabilityRegistry, error) {
	entries := []struct {
		name string
		cap  Capability
	}{
		{"USER", CapUser},
		{"DELIVERY_AGENT", CapDeliveryAgent},
		{"SUPPORT_AGENT", CapSupportAgent},
		{"ADMIN", CapAdmin},
	}

	r := &CapabilityRegistry{
		byName: make(map[string]Capability, len(entries)),
		byBit:  make(map[Capability]string, len(entries)),
	}
	for _, e := range entries {
		if e.cap == 0 || e.cap&(e.cap-1) != 0 {
			return nil, fmt.Errorf("capability %s: %d is not a power of two", e.name, e.cap)
		}
		if taken, ok := r.byBit[e.cap]; ok {
			return nil, fmt.Errorf("capability %s: bit %d already held by %s", e.name, e.cap, taken)
		}
		if _, ok := r.byName[e.name]; ok {
			return nil, fmt.Errorf("capability %s: name already registered", e.name)
		}
		r.byName[e.name] = e.cap
		r.byBit[e.cap] = e.name
	}
	return r, nil
}

// Lookup returns the capability for a role name, case-insensitive.
func (r *CapabilityRegistry) Lookup(name string) (Capability, bool) {
	c, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	return c, ok
}

// Name returns the role name bound to a capability bit.
func (r *CapabilityRegistry) Name(c Capability) (string, bool) {
	n, ok := r.byBit[c]
	return n, ok
}

// Names expands a mask into the sorted role names it carries.
func (r *CapabilityRegistry) Names(m Mask) []string {
	var names []string
	for c := Capability(1); c != 0; c <<= 1 {
		if n, ok := r.byBit[c]; ok && Has(m, c) {
			names = append(names, n)
		}
	}
	return names
}

// Combine merges capability masks with bitwise OR. Combining is associative,
// commutative, and idempotent.
func Combine(masks ...Mask) Mask {
	var out Mask
	for _, m := range masks {
		out |= m
	}
	return out
}

// Has reports whether the mask carries the given capability.
func Has(m Mask, c Capability) bool {
	return m&Mask(c) != 0
}

// Revoke clears the given capability from the mask.
func Revoke(m Mask, c Capability) Mask {
	return m &^ Mask(c)
}
