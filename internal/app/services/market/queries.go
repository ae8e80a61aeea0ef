package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/chat"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/domain/order"
	"quickswap/internal/infra/wire"
)

var ErrNotificationNotFound = errors.New("market: notification not found")

type CatalogQuery struct {
	Category string
	Search   string
}

// Catalog returns the buyable grid: ACTIVE and OFFER_MADE listings, newest
// first, with currently boosted items lifted to the top.
func (s *Service) Catalog(ctx context.Context, q CatalogQuery) ([]*listing.Listing, error) {
	rows, err := s.Store.Select(ctx, wire.TableListings, nil, &syncer.OrderBy{Column: "created_at", Descending: true})
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	now := s.now()
	var out []*listing.Listing
	for _, row := range rows {
		l, err := decodeListing(row)
		if err != nil {
			return nil, err
		}
		if l.Status != listing.StatusActive && l.Status != listing.StatusOfferMade {
			continue
		}
		if q.Category != "" && l.Category != q.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Title), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Boosted(now) && !out[j].Boosted(now)
	})
	return out, nil
}

// Listing resolves a single listing by id.
func (s *Service) Listing(ctx context.Context, id string) (*listing.Listing, error) {
	return s.getListing(ctx, id)
}

// ListingsBySeller returns everything a seller has posted, any status.
func (s *Service) ListingsBySeller(ctx context.Context, sellerID string) ([]*listing.Listing, error) {
	rows, err := s.Store.Select(ctx, wire.TableListings,
		syncer.Filter{"seller_id": sellerID},
		&syncer.OrderBy{Column: "created_at", Descending: true})
	if err != nil {
		return nil, err
	}
	return decodeListings(rows)
}

// PendingListings returns the moderation queue, oldest first.
func (s *Service) PendingListings(ctx context.Context, adminID string) ([]*listing.Listing, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	rows, err := s.Store.Select(ctx, wire.TableListings,
		syncer.Filter{"status": string(listing.StatusPendingReview)},
		&syncer.OrderBy{Column: "created_at"})
	if err != nil {
		return nil, err
	}
	return decodeListings(rows)
}

// Thread returns the conversation between two users about a listing in
// chronological order.
func (s *Service) Thread(ctx context.Context, listingID, userA, userB string) ([]*chat.Message, error) {
	rows, err := s.Store.Select(ctx, wire.TableChatMessages,
		syncer.Filter{"listing_id": listingID},
		&syncer.OrderBy{Column: "timestamp"})
	if err != nil {
		return nil, err
	}
	var out []*chat.Message
	for _, row := range rows {
		var rec wire.MessageRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, fmt.Errorf("market: decode message: %w", err)
		}
		m := rec.ToDomain()
		if m.InThread(listingID, userA, userB) {
			out = append(out, m)
		}
	}
	return out, nil
}

// OrdersFor returns orders where the user is buyer or seller, newest first.
func (s *Service) OrdersFor(ctx context.Context, userID string) ([]*order.Order, error) {
	rows, err := s.Store.Select(ctx, wire.TableOrders, nil, &syncer.OrderBy{Column: "created_at", Descending: true})
	if err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, row := range rows {
		var rec wire.OrderRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, fmt.Errorf("market: decode order: %w", err)
		}
		if rec.BuyerID == userID || rec.SellerID == userID {
			out = append(out, rec.ToDomain())
		}
	}
	return out, nil
}

// NotificationsFor returns the user's notification feed, newest first.
func (s *Service) NotificationsFor(ctx context.Context, userID string) ([]*notification.Notification, error) {
	rows, err := s.Store.Select(ctx, wire.TableNotifications,
		syncer.Filter{"user_id": userID},
		&syncer.OrderBy{Column: "timestamp", Descending: true})
	if err != nil {
		return nil, err
	}
	var out []*notification.Notification
	for _, row := range rows {
		var rec wire.NotificationRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, fmt.Errorf("market: decode notification: %w", err)
		}
		out = append(out, rec.ToDomain())
	}
	return out, nil
}

// MarkNotificationRead flips the read flag; only the owner may do it.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if err := s.requireNotificationOwner(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.Store.Update(ctx, wire.TableNotifications,
		map[string]any{"read": true},
		syncer.Filter{"id": notificationID})
}

// MarkAllNotificationsRead marks the whole feed of the user read.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return s.Store.Update(ctx, wire.TableNotifications,
		map[string]any{"read": true},
		syncer.Filter{"user_id": userID})
}

// DeleteNotification removes one entry; only the owner may do it.
func (s *Service) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if err := s.requireNotificationOwner(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.Store.Delete(ctx, wire.TableNotifications, syncer.Filter{"id": notificationID})
}

func (s *Service) requireNotificationOwner(ctx context.Context, userID, notificationID string) error {
	row, err := s.Store.SelectOne(ctx, wire.TableNotifications, notificationID)
	if errors.Is(err, syncer.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	var rec wire.NotificationRecord
	if err := json.Unmarshal(row, &rec); err != nil {
		return fmt.Errorf("market: decode notification: %w", err)
	}
	if rec.UserID != userID {
		return ErrNotificationNotFound
	}
	return nil
}

func decodeListing(row json.RawMessage) (*listing.Listing, error) {
	var rec wire.ListingRecord
	if err := json.Unmarshal(row, &rec); err != nil {
		return nil, fmt.Errorf("market: decode listing: %w", err)
	}
	return rec.ToDomain(), nil
}

func decodeListings(rows []json.RawMessage) ([]*listing.Listing, error) {
	out := make([]*listing.Listing, 0, len(rows))
	for _, row := range rows {
		l, err := decodeListing(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
