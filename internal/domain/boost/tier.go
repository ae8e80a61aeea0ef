package boost

import "errors"

var ErrInvalidInput = errors.New("boost: price and rate must be positive finite numbers")

// Tier is one entry of the static promotion fee schedule. Price bands are in
// USD; MaxPriceUSD == 0 marks the open-ended top band and MaxUSD == 0 means
// the tier has no fee ceiling.
type Tier struct {
	ID           string
	Name         string
	MinPriceUSD  float64
	MaxPriceUSD  float64
	Percent      float64
	MinUSD       float64
	MaxUSD       float64
	DurationDays int
	Features     []string
}

// Unbounded reports whether the tier covers every price above its lower bound.
func (t Tier) Unbounded() bool {
	return t.MaxPriceUSD == 0
}

// tiers is ordered by band; lookups walk it front to back. Together the
// bands cover all of [0, inf): a price belongs to the first tier whose upper
// bound is at or above it.
var tiers = []Tier{
	{ID: "t1", Name: "Micro", MinPriceUSD: 0, MaxPriceUSD: 15, Percent: 10, MinUSD: 1, MaxUSD: 2, DurationDays: 3, Features: []string{"Basic badge"}},
	{ID: "t2", Name: "Essential", MinPriceUSD: 16, MaxPriceUSD: 50, Percent: 8, MinUSD: 2, MaxUSD: 4, DurationDays: 5, Features: []string{"Search priority"}},
	{ID: "t3", Name: "Popular", MinPriceUSD: 51, MaxPriceUSD: 250, Percent: 6, MinUSD: 4, MaxUSD: 15, DurationDays: 7, Features: []string{"Search priority", "Home grid"}},
	{ID: "t4", Name: "Pro", MinPriceUSD: 251, MaxPriceUSD: 1000, Percent: 4, MinUSD: 15, MaxUSD: 40, DurationDays: 14, Features: []string{"Home grid", "Social share"}},
	{ID: "t5", Name: "Elite", MinPriceUSD: 1001, Percent: 2, MinUSD: 40, DurationDays: 30, Features: []string{"Social share", "Top spot"}},
}

// Tiers returns the full schedule for display.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// tierFor selects the band containing priceUSD. Callers guarantee the price
// is a non-negative finite number, so the scan always terminates at a tier;
// there is no silent fallback.
func tierFor(priceUSD float64) Tier {
	for _, t := range tiers {
		if t.Unbounded() || priceUSD <= t.MaxPriceUSD {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
