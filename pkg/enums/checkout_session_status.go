package enums

import "fmt"

// CheckoutSessionStatus mirrors the lifecycle of a hosted checkout session.
//
//	created -> open -> completed -> fulfilled
//	created -> open -> expired
type CheckoutSessionStatus string

const (
	CheckoutSessionCreated   CheckoutSessionStatus = "created"
	CheckoutSessionOpen      CheckoutSessionStatus = "open"
	CheckoutSessionCompleted CheckoutSessionStatus = "completed"
	CheckoutSessionFulfilled CheckoutSessionStatus = "fulfilled"
	CheckoutSessionExpired   CheckoutSessionStatus = "expired"
)

var validCheckoutSessionStatuses = []CheckoutSessionStatus{
	CheckoutSessionCreated,
	CheckoutSessionOpen,
	CheckoutSessionCompleted,
	CheckoutSessionFulfilled,
	CheckoutSessionExpired,
}

var checkoutSessionTransitions = map[CheckoutSessionStatus][]CheckoutSessionStatus{
	CheckoutSessionCreated:   {CheckoutSessionOpen},
	CheckoutSessionOpen:      {CheckoutSessionCompleted, CheckoutSessionExpired},
	CheckoutSessionCompleted: {CheckoutSessionFulfilled},
}

// String implements fmt.Stringer.
func (s CheckoutSessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutSessionStatus.
func (s CheckoutSessionStatus) IsValid() bool {
	for _, candidate := range validCheckoutSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s CheckoutSessionStatus) IsTerminal() bool {
	return s == CheckoutSessionFulfilled || s == CheckoutSessionExpired
}

// CanTransition reports whether moving from s to next is allowed.
func (s CheckoutSessionStatus) CanTransition(next CheckoutSessionStatus) bool {
	for _, candidate := range checkoutSessionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionSources lists the statuses allowed to move to next.
func TransitionSources(next CheckoutSessionStatus) []CheckoutSessionStatus {
	var sources []CheckoutSessionStatus
	for _, candidate := range validCheckoutSessionStatuses {
		if candidate.CanTransition(next) {
			sources = append(sources, candidate)
		}
	}
	return sources
}

// ParseCheckoutSessionStatus converts raw input into a CheckoutSessionStatus.
func ParseCheckoutSessionStatus(value string) (CheckoutSessionStatus, error) {
	for _, candidate := range validCheckoutSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout session status %q", value)
}
