package economy

import (
	"fmt"
	"math/rand"
)

const (
	DriftBound       = 50
	RoundDriftBound  = 20
	FluctuationStep  = 5
	BurnDriftPerUnit = 3
)

// Market holds the cumulative percent drift per resource.
type Market map[Resource]int

// MarketEntry is the display form of one resource's drift.
type MarketEntry struct {
	Resource   Resource `json:"resource"`
	Change     int      `json:"change"`
	Percentage string   `json:"percentage"`
}

func NewMarket() Market {
	m := make(Market, len(Resources))
	for _, r := range Resources {
		m[r] = 0
	}
	return m
}

func (m Market) Drift(r Resource) int {
	return m[r]
}

// Burn adds amount*3 to r's drift. The result is not clamped; the next
// fluctuation tick pulls it back inside the bound.
func (m Market) Burn(r Resource, amount int) {
	m[r] += amount * BurnDriftPerUnit
}

// Fluctuate moves every drift by a random step in [-5,+5] and clamps to [-50,+50].
func (m Market) Fluctuate(rng *rand.Rand) {
	for _, r := range Resources {
		step := rng.Intn(2*FluctuationStep+1) - FluctuationStep
		m[r] = clamp(m[r]+step, -DriftBound, DriftBound)
	}
}

// Regenerate replaces every drift with a fresh random value in [-20,+20].
func (m Market) Regenerate(rng *rand.Rand) {
	for _, r := range Resources {
		m[r] = rng.Intn(2*RoundDriftBound+1) - RoundDriftBound
	}
}

func (m Market) Reset() {
	for _, r := range Resources {
		m[r] = 0
	}
}

func (m Market) Clone() Market {
	c := make(Market, len(m))
	for r, d := range m {
		c[r] = d
	}
	return c
}

func (m Market) Entries() []MarketEntry {
	entries := make([]MarketEntry, 0, len(Resources))
	for _, r := range Resources {
		entries = append(entries, MarketEntry{
			Resource:   r,
			Change:     m[r],
			Percentage: Percentage(m[r]),
		})
	}
	return entries
}

// Percentage formats a drift as a signed percent string, e.g. "+12%", "-3%", "+0%".
func Percentage(change int) string {
	return fmt.Sprintf("%+d%%", change)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
