package boost

import (
	"math"

	"quickswap/internal/domain/listing"
)

const (
	luxuryThresholdUSD = 1500
	luxurySurcharge    = 1.15
	emergencyDiscount  = 0.8
)

// Fee is the outcome of pricing one promotion. FeeLocal is the rounded
// amount shown at checkout; FeeUSD keeps the pre-rounding value for
// disclosure alongside the tier and the rate that produced it.
type Fee struct {
	FeeLocal    float64
	FeeUSD      float64
	Tier        Tier
	Rate        float64
	IsLuxury    bool
	IsEmergency bool
}

// CalculateFee prices a promotion for a listing priced in local currency
// units, given the local-currency-per-USD rate. Pure over its inputs and the
// static tier table.
//
// Order of operations: convert to USD, tier percent fee, clamp to the tier's
// [MinUSD, MaxUSD], luxury surcharge above $1500, emergency discount, convert
// back, psychological rounding. Surcharge and discount stack.
func CalculateFee(price, rate float64, category string, typ listing.Type) (Fee, error) {
	_ = category // informational only; tiers are price-banded, not per-category

	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Fee{}, ErrInvalidInput
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Fee{}, ErrInvalidInput
	}

	priceUSD := price / rate
	tier := tierFor(priceUSD)

	feeUSD := priceUSD * tier.Percent / 100
	feeUSD = math.Max(feeUSD, tier.MinUSD)
	if tier.MaxUSD > 0 {
		feeUSD = math.Min(feeUSD, tier.MaxUSD)
	}

	isLuxury := priceUSD > luxuryThresholdUSD
	if isLuxury {
		feeUSD *= luxurySurcharge
	}
	isEmergency := typ == listing.TypeEmergency
	if isEmergency {
		feeUSD *= emergencyDiscount
	}

	return Fee{
		FeeLocal:    applyPsychologicalRounding(feeUSD * rate),
		FeeUSD:      feeUSD,
		Tier:        tier,
		Rate:        rate,
		IsLuxury:    isLuxury,
		IsEmergency: isEmergency,
	}, nil
}

func roundToNearest(value, nearest float64) float64 {
	return math.Round(value/nearest) * nearest
}

// applyPsychologicalRounding snaps a local-currency fee to a charm step that
// grows with the amount: nearest 1 under 50, 5 under 200, 10 under 500,
// 25 under 1000, 50 above.
func applyPsychologicalRounding(amount float64) float64 {
	switch {
	case amount < 50:
		return roundToNearest(amount, 1)
	case amount < 200:
		return roundToNearest(amount, 5)
	case amount < 500:
		return roundToNearest(amount, 10)
	case amount < 1000:
		return roundToNearest(amount, 25)
	default:
		return roundToNearest(amount, 50)
	}
}
