package enums

import (
	"fmt"
	"strings"
)

// CartStatus maps to the cart_status column. A customer owns at most one
// active cart; converted carts are kept for history and never mutated.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

func (c CartStatus) String() string {
	return string(c)
}

func (c CartStatus) IsValid() bool {
	switch c {
	case CartStatusActive, CartStatusConverted:
		return true
	default:
		return false
	}
}

// IsMutable reports whether items may still be added to or removed from the cart.
func (c CartStatus) IsMutable() bool {
	return c == CartStatusActive
}

// ParseCartStatus accepts the stored value in any case.
func ParseCartStatus(value string) (CartStatus, error) {
	status := CartStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid cart status %q", value)
	}
	return status, nil
}
