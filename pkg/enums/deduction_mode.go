package enums

import "fmt"

// DeductionMode selects the stock path taken after a sale. RemoteConfirmed
// delegates per line to the remote inventory collaborator; LocalOptimistic
// decrements only the local cache and is never replayed during sync.
type DeductionMode string

const (
	DeductionModeRemoteConfirmed DeductionMode = "remote_confirmed"
	DeductionModeLocalOptimistic DeductionMode = "local_optimistic"
)

var validDeductionModes = []DeductionMode{
	DeductionModeRemoteConfirmed,
	DeductionModeLocalOptimistic,
}

// String implements fmt.Stringer.
func (d DeductionMode) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeductionMode.
func (d DeductionMode) IsValid() bool {
	for _, candidate := range validDeductionModes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeductionMode converts raw input into a DeductionMode.
func ParseDeductionMode(value string) (DeductionMode, error) {
	for _, candidate := range validDeductionModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deduction mode %q", value)
}
