// Package fuel computes fuel ledger balances, lock state and journey completion.
package fuel

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// CheckpointTotal sums every checkpoint draw by magnitude.
func CheckpointTotal(cp models.Checkpoints) decimal.Decimal {
	total := decimal.Zero
	for _, v := range cp.All() {
		total = total.Add(v.Abs())
	}
	return total
}

// Balance is (total ?? 0) + (extra ?? 0) minus all checkpoint draws.
func Balance(record *models.FuelRecord) decimal.Decimal {
	issued := valueOrZero(record.TotalLiters).Add(valueOrZero(record.ExtraLiters))
	return issued.Sub(CheckpointTotal(record.Checkpoints))
}

// Recompute refreshes the stored balance from the full current snapshot and
// reports whether it changed.
func Recompute(record *models.FuelRecord) bool {
	next := Balance(record)
	if next.Equal(record.Balance) {
		return false
	}
	record.Balance = next
	return true
}

// LockReason derives the lock reason from which configured volumes are missing.
func LockReason(record *models.FuelRecord) enums.PendingConfigReason {
	return enums.PendingConfigReasonFor(!record.TotalLiters.Valid, !record.ExtraLiters.Valid)
}

// ApplyLockState sets IsLocked and PendingConfigReason from the record's
// nullable volumes. It returns the previous lock flag.
func ApplyLockState(record *models.FuelRecord) (wasLocked bool) {
	wasLocked = record.IsLocked
	reason := LockReason(record)
	record.PendingConfigReason = reason
	record.IsLocked = reason != enums.PendingConfigNone
	return wasLocked
}

func valueOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// Liters builds a present volume.
func Liters(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(v)
}

// Missing is an absent volume.
func Missing() decimal.NullDecimal {
	return decimal.NullDecimal{}
}
