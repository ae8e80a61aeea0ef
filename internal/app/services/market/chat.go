package market

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"quickswap/internal/domain/chat"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/infra/wire"
)

type SendMessageParams struct {
	ListingID  string
	ReceiverID string
	Text       string
}

// SendMessage appends a line to the conversation and raises a comment
// notification for the receiver with the sender's identity and the listing
// as context.
func (s *Service) SendMessage(ctx context.Context, senderID string, params SendMessageParams) (*chat.Message, error) {
	l, err := s.getListing(ctx, params.ListingID)
	if err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(chat.CreateParams{
		ID:         ulid.Make().String(),
		SenderID:   senderID,
		ReceiverID: params.ReceiverID,
		ListingID:  params.ListingID,
		Text:       params.Text,
		Now:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.insertMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   params.ReceiverID,
		Type:     notification.TypeComment,
		Priority: notification.PriorityMedium,
		Title:    "New message",
		Message:  msg.Text,
		Sender:   s.senderFor(ctx, senderID),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedListing, ID: params.ListingID, Preview: l.Title,
		},
	})
	return msg, nil
}

// MakeOffer places a below-asking offer on an active listing. The listing
// moves to OFFER_MADE carrying the amount, the thread records the offer and
// the seller gets a high priority notification.
func (s *Service) MakeOffer(ctx context.Context, buyerID, listingID string, amount float64) (*listing.Listing, error) {
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.SellerID == buyerID {
		return nil, ErrOwnListing
	}
	if l.Status != listing.StatusActive && l.Status != listing.StatusOfferMade {
		return nil, ErrListingUnavailable
	}
	if err := l.ValidateOffer(amount); err != nil {
		return nil, err
	}
	if err := s.patchListing(ctx, listingID, map[string]any{
		"status":       string(listing.StatusOfferMade),
		"offer_amount": amount,
		"updated_at":   s.now().UnixMilli(),
	}); err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(chat.CreateParams{
		ID:         ulid.Make().String(),
		SenderID:   buyerID,
		ReceiverID: l.SellerID,
		ListingID:  listingID,
		Text:       fmt.Sprintf("Offered %.2f for %q.", amount, l.Title),
		Now:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.insertMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   l.SellerID,
		Type:     notification.TypeOffer,
		Priority: notification.PriorityHigh,
		Title:    "New offer",
		Message:  fmt.Sprintf("You received an offer of %.2f for %q.", amount, l.Title),
		Sender:   s.senderFor(ctx, buyerID),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedListing, ID: listingID, Preview: l.Title,
		},
	})
	l.Status = listing.StatusOfferMade
	l.OfferAmount = amount
	s.Logger.Info("offer placed", "listing_id", listingID, "buyer_id", buyerID, "amount", amount)
	return l, nil
}

// AcceptOffer completes the sale at the pending offer amount: the buyer is
// charged, the seller credited, an order opens in PREPARING and the listing
// is marked SOLD.
func (s *Service) AcceptOffer(ctx context.Context, sellerID, listingID, buyerID string) (orderID string, err error) {
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return "", err
	}
	if l.SellerID != sellerID {
		return "", ErrNotSeller
	}
	if l.Status != listing.StatusOfferMade || l.OfferAmount <= 0 {
		return "", ErrNoOfferPending
	}
	o, err := s.settlePurchase(ctx, l, buyerID, l.OfferAmount)
	if err != nil {
		return "", err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   buyerID,
		Type:     notification.TypeOffer,
		Priority: notification.PriorityHigh,
		Title:    "Offer accepted",
		Message:  fmt.Sprintf("Your offer of %.2f for %q was accepted.", l.OfferAmount, l.Title),
		Sender:   s.senderFor(ctx, sellerID),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedOrder, ID: o.ID, Preview: l.Title,
		},
	})
	s.Logger.Info("offer accepted", "listing_id", listingID, "order_id", o.ID)
	return o.ID, nil
}

func (s *Service) insertMessage(ctx context.Context, msg *chat.Message) error {
	row, err := json.Marshal(wire.NewMessageRecord(msg))
	if err != nil {
		return fmt.Errorf("market: encode message: %w", err)
	}
	return s.Store.Insert(ctx, wire.TableChatMessages, row)
}
