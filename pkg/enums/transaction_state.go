package enums

import "fmt"

// TransactionState tracks which durable partition a transaction lives in.
// Pending records are owed to the remote store; completed records are kept
// permanently for audit and offline receipt replay.
type TransactionState string

const (
	TransactionStatePending   TransactionState = "pending"
	TransactionStateCompleted TransactionState = "completed"
)

var validTransactionStates = []TransactionState{
	TransactionStatePending,
	TransactionStateCompleted,
}

// String implements fmt.Stringer.
func (s TransactionState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionState.
func (s TransactionState) IsValid() bool {
	for _, candidate := range validTransactionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionState converts raw input into a TransactionState.
func ParseTransactionState(value string) (TransactionState, error) {
	for _, candidate := range validTransactionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction state %q", value)
}
