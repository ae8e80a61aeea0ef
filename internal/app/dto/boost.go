package dto

import "quickswap/internal/domain/boost"

// BoostQuote is the promotion price disclosure shown before (and returned
// after) a promotion purchase.
type BoostQuote struct {
	FeeLocal     float64  `json:"fee_local"`
	FeeUSD       float64  `json:"fee_usd"`
	Rate         float64  `json:"rate"`
	TierID       string   `json:"tier_id"`
	TierName     string   `json:"tier_name"`
	DurationDays int      `json:"duration_days"`
	Features     []string `json:"features"`
	IsLuxury     bool     `json:"is_luxury"`
	IsEmergency  bool     `json:"is_emergency"`
}

func MapBoostQuote(fee boost.Fee) BoostQuote {
	return BoostQuote{
		FeeLocal:     fee.FeeLocal,
		FeeUSD:       fee.FeeUSD,
		Rate:         fee.Rate,
		TierID:       fee.Tier.ID,
		TierName:     fee.Tier.Name,
		DurationDays: fee.Tier.DurationDays,
		Features:     append([]string(nil), fee.Tier.Features...),
		IsLuxury:     fee.IsLuxury,
		IsEmergency:  fee.IsEmergency,
	}
}
