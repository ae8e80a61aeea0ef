// Package market implements the marketplace actions: listing submission and
// moderation, chat, offers, checkout, promotion and admin broadcast. Every
// action writes through the store contract so connected synchronizers observe
// it as a change event.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/fx"
	"quickswap/internal/infra/genai"
	"quickswap/internal/infra/wire"
)

var (
	ErrNotAdmin            = errors.New("market: admin role required")
	ErrNotSeller           = errors.New("market: only the seller may do this")
	ErrOwnListing          = errors.New("market: sellers cannot act on their own listing")
	ErrListingUnavailable  = errors.New("market: listing is not available")
	ErrListingNotPending   = errors.New("market: listing is not awaiting review")
	ErrNoOfferPending      = errors.New("market: no offer pending on listing")
	ErrInsufficientBalance = errors.New("market: insufficient balance")
)

type Service struct {
	Store  syncer.Store
	Users  domainuser.Repository
	FX     *fx.Cache
	GenAI  *genai.Client
	Logger *slog.Logger
	Clock  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

type SubmitListingParams struct {
	Title       string
	Description string
	Price       float64
	Category    string
	SubCategory string
	Brand       string
	Condition   listing.Condition
	Type        listing.Type
	ImageURLs   []string
	// ImageBase64 feeds the visual check; submission succeeds without it.
	ImageBase64 string
}

// SubmitListing creates a listing awaiting moderation. The generative visual
// check is best-effort: a failure is logged and the listing is submitted
// without analysis.
func (s *Service) SubmitListing(ctx context.Context, sellerID string, params SubmitListingParams) (*listing.Listing, error) {
	if _, err := s.Users.ByID(ctx, domainuser.ID(sellerID)); err != nil {
		return nil, err
	}
	l, err := listing.New(listing.CreateParams{
		ID:          listing.ID(uuid.NewString()),
		Title:       params.Title,
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		SubCategory: params.SubCategory,
		Brand:       params.Brand,
		Condition:   params.Condition,
		Type:        params.Type,
		ImageURLs:   params.ImageURLs,
		SellerID:    sellerID,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	if params.ImageBase64 != "" && s.GenAI.Configured() {
		analysis, err := s.GenAI.AnalyzeListingVisuals(ctx, params.ImageBase64, l.Title)
		if err != nil {
			s.Logger.Warn("visual analysis skipped", "listing_id", l.ID, "err", err)
		} else {
			l.VisualAnalysis = analysis
		}
	}
	if err := s.insertListing(ctx, l); err != nil {
		return nil, err
	}
	s.Logger.Info("listing submitted", "listing_id", l.ID, "seller_id", sellerID)
	return l, nil
}

// ApproveListing moves a pending listing to ACTIVE and tells the seller.
func (s *Service) ApproveListing(ctx context.Context, adminID, listingID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}
	if l.Status != listing.StatusPendingReview {
		return ErrListingNotPending
	}
	if err := s.patchListing(ctx, listingID, map[string]any{
		"status":     string(listing.StatusActive),
		"updated_at": s.now().UnixMilli(),
	}); err != nil {
		return err
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   l.SellerID,
		Type:     notification.TypeSystem,
		Priority: notification.PriorityMedium,
		Title:    "Listing approved",
		Message:  fmt.Sprintf("%q is now live.", l.Title),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedListing, ID: listingID, Preview: l.Title,
		},
	})
	s.Logger.Info("listing approved", "listing_id", listingID, "admin_id", adminID)
	return nil
}

// RejectListing moves a pending listing to REJECTED with a warning to the
// seller carrying the reason.
func (s *Service) RejectListing(ctx context.Context, adminID, listingID, reason string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	l, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}
	if l.Status != listing.StatusPendingReview {
		return ErrListingNotPending
	}
	if err := s.patchListing(ctx, listingID, map[string]any{
		"status":     string(listing.StatusRejected),
		"updated_at": s.now().UnixMilli(),
	}); err != nil {
		return err
	}
	if reason == "" {
		reason = "It does not meet the marketplace guidelines."
	}
	s.notify(ctx, notification.CreateParams{
		UserID:   l.SellerID,
		Type:     notification.TypeWarning,
		Priority: notification.PriorityHigh,
		Title:    "Listing rejected",
		Message:  fmt.Sprintf("%q was rejected: %s", l.Title, reason),
		RelatedContent: &notification.RelatedContent{
			Type: notification.RelatedListing, ID: listingID, Preview: l.Title,
		},
	})
	s.Logger.Info("listing rejected", "listing_id", listingID, "admin_id", adminID)
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, userID string) error {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

func (s *Service) getListing(ctx context.Context, id string) (*listing.Listing, error) {
	row, err := s.Store.SelectOne(ctx, wire.TableListings, id)
	if errors.Is(err, syncer.ErrNotFound) {
		return nil, ErrListingUnavailable
	}
	if err != nil {
		return nil, err
	}
	var rec wire.ListingRecord
	if err := json.Unmarshal(row, &rec); err != nil {
		return nil, fmt.Errorf("market: decode listing: %w", err)
	}
	return rec.ToDomain(), nil
}

func (s *Service) insertListing(ctx context.Context, l *listing.Listing) error {
	row, err := json.Marshal(wire.NewListingRecord(l))
	if err != nil {
		return fmt.Errorf("market: encode listing: %w", err)
	}
	return s.Store.Insert(ctx, wire.TableListings, row)
}

func (s *Service) patchListing(ctx context.Context, id string, patch map[string]any) error {
	return s.Store.Update(ctx, wire.TableListings, patch, syncer.Filter{"id": id})
}

// notify inserts a notification; failures are logged, never propagated. The
// triggering action has already committed by the time this runs.
func (s *Service) notify(ctx context.Context, params notification.CreateParams) {
	params.ID = ulid.Make().String()
	if params.Now.IsZero() {
		params.Now = s.now()
	}
	n, err := notification.New(params)
	if err != nil {
		s.Logger.Error("notification rejected", "user_id", params.UserID, "err", err)
		return
	}
	row, err := json.Marshal(wire.NewNotificationRecord(n))
	if err != nil {
		s.Logger.Error("notification encode failed", "user_id", params.UserID, "err", err)
		return
	}
	if err := s.Store.Insert(ctx, wire.TableNotifications, row); err != nil {
		s.Logger.Error("notification insert failed", "user_id", params.UserID, "err", err)
	}
}

func (s *Service) senderFor(ctx context.Context, userID string) *notification.Sender {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return &notification.Sender{ID: userID}
	}
	return &notification.Sender{ID: userID, Name: u.Name, Avatar: u.AvatarURL}
}

func (s *Service) adjustBalance(ctx context.Context, userID string, delta float64) error {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return err
	}
	if u.Balance+delta < 0 {
		return ErrInsufficientBalance
	}
	u.Balance += delta
	return s.Users.Save(ctx, u)
}
