package enums

import "fmt"

// JourneyStatus tracks where a fuel record sits in its truck's queue.
type JourneyStatus string

const (
	JourneyStatusActive    JourneyStatus = "active"
	JourneyStatusQueued    JourneyStatus = "queued"
	JourneyStatusCompleted JourneyStatus = "completed"
	JourneyStatusCancelled JourneyStatus = "cancelled"
)

var validJourneyStatuses = []JourneyStatus{
	JourneyStatusActive,
	JourneyStatusQueued,
	JourneyStatusCompleted,
	JourneyStatusCancelled,
}

func (s JourneyStatus) String() string {
	return string(s)
}

func (s JourneyStatus) IsValid() bool {
	for _, candidate := range validJourneyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further queue transitions are allowed.
func (s JourneyStatus) IsTerminal() bool {
	return s == JourneyStatusCompleted || s == JourneyStatusCancelled
}

func ParseJourneyStatus(value string) (JourneyStatus, error) {
	for _, candidate := range validJourneyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journey status %q", value)
}

// PendingConfigReason explains why a fuel record is locked.
type PendingConfigReason string

const (
	PendingConfigNone               PendingConfigReason = "none"
	PendingConfigMissingTotalLiters PendingConfigReason = "missing_total_liters"
	PendingConfigMissingExtraFuel   PendingConfigReason = "missing_extra_fuel"
	PendingConfigBoth               PendingConfigReason = "both"
)

var validPendingConfigReasons = []PendingConfigReason{
	PendingConfigNone,
	PendingConfigMissingTotalLiters,
	PendingConfigMissingExtraFuel,
	PendingConfigBoth,
}

func (r PendingConfigReason) IsValid() bool {
	for _, candidate := range validPendingConfigReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// PendingConfigReasonFor derives the reason from which configured values are missing.
func PendingConfigReasonFor(missingTotal, missingExtra bool) PendingConfigReason {
	switch {
	case missingTotal && missingExtra:
		return PendingConfigBoth
	case missingTotal:
		return PendingConfigMissingTotalLiters
	case missingExtra:
		return PendingConfigMissingExtraFuel
	default:
		return PendingConfigNone
	}
}
