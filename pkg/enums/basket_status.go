package enums

import "fmt"

// BasketStatus tracks whether a requester basket is still claimable.
type BasketStatus string

const (
	BasketStatusPending BasketStatus = "pending"
	BasketStatusClaimed BasketStatus = "claimed"
)

var validBasketStatuses = []BasketStatus{
	BasketStatusPending,
	BasketStatusClaimed,
}

// String implements fmt.Stringer.
func (b BasketStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BasketStatus.
func (b BasketStatus) IsValid() bool {
	for _, candidate := range validBasketStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBasketStatus converts raw input into a BasketStatus.
func ParseBasketStatus(value string) (BasketStatus, error) {
	for _, candidate := range validBasketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid basket status %q", value)
}
