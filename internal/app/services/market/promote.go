package market

import (
	"context"
	"time"

	"quickswap/internal/domain/boost"
	"quickswap/internal/domain/listing"
)

// Quote prices a promotion for a listing without committing to it. The fee
// comes out of the static tier table at the current exchange rate.
func (s *Service) Quote(ctx context.Context, listingID string) (boost.Fee, error) {
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return boost.Fee{}, err
	}
	return boost.CalculateFee(l.Price, s.FX.Rate(ctx), l.Category, l.Type)
}

// Promote charges the seller the promotion fee and boosts the listing for the
// tier's duration.
func (s *Service) Promote(ctx context.Context, sellerID, listingID string) (boost.Fee, error) {
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return boost.Fee{}, err
	}
	if l.SellerID != sellerID {
		return boost.Fee{}, ErrNotSeller
	}
	if l.Status != listing.StatusActive && l.Status != listing.StatusOfferMade {
		return boost.Fee{}, ErrListingUnavailable
	}
	fee, err := boost.CalculateFee(l.Price, s.FX.Rate(ctx), l.Category, l.Type)
	if err != nil {
		return boost.Fee{}, err
	}
	if err := s.adjustBalance(ctx, sellerID, -fee.FeeLocal); err != nil {
		return boost.Fee{}, err
	}
	until := s.now().Add(time.Duration(fee.Tier.DurationDays) * 24 * time.Hour)
	if err := s.patchListing(ctx, listingID, map[string]any{
		"boosted_until": until.UnixMilli(),
		"updated_at":    s.now().UnixMilli(),
	}); err != nil {
		// the charge stands while the patch failed; give the money back
		_ = s.adjustBalance(ctx, sellerID, fee.FeeLocal)
		return boost.Fee{}, err
	}
	s.Logger.Info("listing promoted",
		"listing_id", listingID,
		"tier", fee.Tier.ID,
		"fee", fee.FeeLocal,
		"until", until.UnixMilli(),
	)
	return fee, nil
}
