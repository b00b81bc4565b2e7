package enums

import "fmt"

// CashDirection marks an e-wallet cash movement line.
type CashDirection string

const (
	CashDirectionIn  CashDirection = "cash_in"
	CashDirectionOut CashDirection = "cash_out"
)

var validCashDirections = []CashDirection{
	CashDirectionIn,
	CashDirectionOut,
}

// String implements fmt.Stringer.
func (c CashDirection) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CashDirection.
func (c CashDirection) IsValid() bool {
	for _, candidate := range validCashDirections {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCashDirection converts raw input into a CashDirection.
func ParseCashDirection(value string) (CashDirection, error) {
	for _, candidate := range validCashDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash direction %q", value)
}
