package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/domain/order"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/wire"
)

var ErrOrderNotFound = errors.New("market: order not found")

// Checkout buys an active listing at asking price. The buyer is charged, the
// seller credited, the listing becomes SOLD and the seller receives exactly
// one high priority order notification.
func (s *Service) Checkout(ctx context.Context, buyerID, listingID string) (*order.Order, error) {
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != listing.StatusActive && l.Status != listing.StatusOfferMade {
		return nil, ErrListingUnavailable
	}
	o, err := s.settlePurchase(ctx, l, buyerID, l.Price)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   l.SellerID,
		Type:     notification.TypeOrder,
		Priority: notification.PriorityHigh,
		Title:    "Item sold",
		Message:  fmt.Sprintf("%q was purchased for %.2f. Prepare it for shipping.", l.Title, o.Price),
		Sender:   s.senderFor(ctx, buyerID),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedOrder, ID: o.ID, Preview: l.Title,
		},
	})
	s.Logger.Info("checkout completed", "listing_id", listingID, "order_id", o.ID, "buyer_id", buyerID)
	return o, nil
}

// settlePurchase moves the money, opens the order and marks the listing SOLD.
func (s *Service) settlePurchase(ctx context.Context, l *listing.Listing, buyerID string, price float64) (*order.Order, error) {
	if buyerID == l.SellerID {
		return nil, ErrOwnListing
	}
	if err := s.adjustBalance(ctx, buyerID, -price); err != nil {
		return nil, err
	}
	if err := s.adjustBalance(ctx, l.SellerID, price); err != nil {
		// hand the money back; the sale did not happen
		_ = s.adjustBalance(ctx, buyerID, price)
		return nil, err
	}
	o, err := order.NewOrder(order.CreateParams{
		ID:        uuid.NewString(),
		ListingID: string(l.ID),
		BuyerID:   buyerID,
		SellerID:  l.SellerID,
		Price:     price,
		Now:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	row, err := json.Marshal(wire.NewOrderRecord(o))
	if err != nil {
		return nil, fmt.Errorf("market: encode order: %w", err)
	}
	if err := s.Store.Insert(ctx, wire.TableOrders, row); err != nil {
		return nil, err
	}
	if err := s.patchListing(ctx, string(l.ID), map[string]any{
		"status":     string(listing.StatusSold),
		"updated_at": s.now().UnixMilli(),
	}); err != nil {
		return nil, err
	}
	if seller, err := s.Users.ByID(ctx, domainuser.ID(l.SellerID)); err == nil {
		seller.TotalSales++
		_ = s.Users.Save(ctx, seller)
	}
	return o, nil
}

// UpdateOrderShipping records carrier details, moves the order to SHIPPED and
// tells the buyer.
func (s *Service) UpdateOrderShipping(ctx context.Context, sellerID, orderID, carrier, trackingCode string) (*order.Order, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, ErrNotSeller
	}
	if err := o.Ship(carrier, trackingCode); err != nil {
		return nil, err
	}
	patch := map[string]any{
		"status": string(o.Status),
		"shipping_info": map[string]any{
			"carrier":       o.ShippingInfo.Carrier,
			"tracking_code": o.ShippingInfo.TrackingCode,
		},
	}
	if err := s.Store.Update(ctx, wire.TableOrders, patch, syncer.Filter{"id": orderID}); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   o.BuyerID,
		Type:     notification.TypeOrder,
		Priority: notification.PriorityMedium,
		Title:    "Order shipped",
		Message:  fmt.Sprintf("Your order is on its way with %s (tracking %s).", carrier, trackingCode),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedOrder, ID: orderID,
		},
	})
	s.Logger.Info("order shipped", "order_id", orderID, "carrier", carrier)
	return o, nil
}

func (s *Service) getOrder(ctx context.Context, id string) (*order.Order, error) {
	row, err := s.Store.SelectOne(ctx, wire.TableOrders, id)
	if errors.Is(err, syncer.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec wire.OrderRecord
	if err := json.Unmarshal(row, &rec); err != nil {
		return nil, fmt.Errorf("market: decode order: %w", err)
	}
	return rec.ToDomain(), nil
}
