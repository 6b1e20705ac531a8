package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zone is a flat shipping bucket keyed by city. Matching is an ordered,
// case-insensitive containment check so "Dhaka North" still lands in the
// Dhaka zone; the last entry has no city and catches everything else.
type Zone struct {
	Name          string
	City          string
	Fee           decimal.Decimal
	FreeThreshold decimal.Decimal
}

func DefaultZones() []Zone {
	return []Zone{
		{Name: "Dhaka Metro", City: "dhaka", Fee: decimal.Zero, FreeThreshold: decimal.NewFromInt(2000)},
		{Name: "Chattogram", City: "chattogram", Fee: decimal.NewFromInt(100), FreeThreshold: decimal.NewFromInt(3000)},
		{Name: "Sylhet", City: "sylhet", Fee: decimal.NewFromInt(100), FreeThreshold: decimal.NewFromInt(3000)},
		{Name: "Khulna", City: "khulna", Fee: decimal.NewFromInt(120), FreeThreshold: decimal.NewFromInt(4000)},
		{Name: "Nationwide", City: "", Fee: decimal.NewFromInt(130), FreeThreshold: decimal.NewFromInt(5000)},
	}
}

func resolveZone(zones []Zone, city string) Zone {
	normalized := strings.ToLower(strings.TrimSpace(city))
	for _, z := range zones {
		if z.City == "" {
			return z
		}
		if strings.Contains(normalized, z.City) {
			return z
		}
	}
	// Table without a catch-all entry; treat the last zone as default.
	return zones[len(zones)-1]
}
