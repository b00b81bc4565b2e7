package enums

import "fmt"

// SyncOutcome summarizes a sync pass so callers can tell "tried and failed"
// apart from "nothing to do".
type SyncOutcome string

const (
	SyncOutcomeIdle      SyncOutcome = "idle"
	SyncOutcomeDrained   SyncOutcome = "drained"
	SyncOutcomePartial   SyncOutcome = "partial"
	SyncOutcomeAllFailed SyncOutcome = "all_failed"
)

var validSyncOutcomes = []SyncOutcome{
	SyncOutcomeIdle,
	SyncOutcomeDrained,
	SyncOutcomePartial,
	SyncOutcomeAllFailed,
}

// String implements fmt.Stringer.
func (s SyncOutcome) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncOutcome.
func (s SyncOutcome) IsValid() bool {
	for _, candidate := range validSyncOutcomes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncOutcome converts raw input into a SyncOutcome.
func ParseSyncOutcome(value string) (SyncOutcome, error) {
	for _, candidate := range validSyncOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync outcome %q", value)
}
