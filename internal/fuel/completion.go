package fuel

import (
	"strings"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// DestinationClassifier decides whether a destination belongs to the MSA
// corridor, which closes on the Tanga return checkpoint.
type DestinationClassifier interface {
	IsMSA(destination string) bool
}

// PatternClassifier matches destinations containing any configured pattern,
// case-insensitively.
type PatternClassifier struct {
	patterns []string
}

func NewPatternClassifier(patterns []string) PatternClassifier {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			clean = append(clean, p)
		}
	}
	return PatternClassifier{patterns: clean}
}

func (c PatternClassifier) IsMSA(destination string) bool {
	dest := strings.ToUpper(destination)
	for _, p := range c.patterns {
		if strings.Contains(dest, p) {
			return true
		}
	}
	return false
}

// ClosingCheckpoint returns the draw that must be recorded before the journey
// can complete.
func ClosingCheckpoint(record *models.FuelRecord, classifier DestinationClassifier) decimal.Decimal {
	if classifier.IsMSA(record.To) {
		return record.Checkpoints.TangaReturn
	}
	return record.Checkpoints.MbeyaReturn
}

// IsComplete reports whether the journey has balanced out and recorded its
// closing draw. Locked or cancelled ledgers never complete.
func IsComplete(record *models.FuelRecord, classifier DestinationClassifier) bool {
	if record.IsCancelled || record.IsLocked {
		return false
	}
	if !record.TotalLiters.Valid || !record.ExtraLiters.Valid {
		return false
	}
	if !Balance(record).IsZero() {
		return false
	}
	return !ClosingCheckpoint(record, classifier).IsZero()
}
