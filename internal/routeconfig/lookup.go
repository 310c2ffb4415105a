package routeconfig

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
)

// Normalize canonicalizes place names and truck suffixes for matching.
func Normalize(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), " "))
}

// Lookup resolves configured fuel volumes. A miss is reported as ok=false,
// never as an error.
type Lookup struct {
	repo Repository
}

func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

// TotalLiters returns the route volume for origin and destination, falling
// back to a destination-only entry.
func (l *Lookup) TotalLiters(ctx context.Context, origin, destination string) (decimal.Decimal, bool, error) {
	dest := Normalize(destination)
	if dest == "" {
		return decimal.Zero, false, nil
	}
	if from := Normalize(origin); from != "" {
		route, err := l.repo.FindRoute(ctx, from, dest)
		if err != nil {
			return decimal.Zero, false, err
		}
		if route != nil {
			return route.TotalLiters, true, nil
		}
	}
	route, err := l.repo.FindRouteByDestination(ctx, dest)
	if err != nil || route == nil {
		return decimal.Zero, false, err
	}
	return route.TotalLiters, true, nil
}

// ExtraLiters returns the truck-batch allowance for the truck. Rules bound to
// the destination win over the suffix default; longer suffixes win over shorter.
func (l *Lookup) ExtraLiters(ctx context.Context, truckNo, destination string) (decimal.Decimal, bool, error) {
	truck := strings.ReplaceAll(Normalize(truckNo), " ", "")
	if truck == "" {
		return decimal.Zero, false, nil
	}
	rules, err := l.repo.ListBatchRules(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	best := matchBatchRule(rules, truck, Normalize(destination))
	if best == nil {
		return decimal.Zero, false, nil
	}
	return best.ExtraLiters, true, nil
}

func matchBatchRule(rules []models.TruckBatchRule, truck, destination string) *models.TruckBatchRule {
	var (
		best      *models.TruckBatchRule
		bestScore int
	)
	for i := range rules {
		rule := &rules[i]
		suffix := strings.ReplaceAll(Normalize(rule.TruckSuffix), " ", "")
		if suffix == "" || !strings.HasSuffix(truck, suffix) {
			continue
		}
		score := len(suffix)
		if rule.Destination != nil {
			if Normalize(*rule.Destination) != destination {
				continue
			}
			score += 1000
		}
		if best == nil || score > bestScore {
			best = rule
			bestScore = score
		}
	}
	return best
}
