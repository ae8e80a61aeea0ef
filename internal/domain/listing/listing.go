package listing

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTitleRequired    = errors.New("listing: title is required")
	ErrPriceInvalid     = errors.New("listing: price must be positive")
	ErrCategoryRequired = errors.New("listing: category is required")
	ErrSellerRequired   = errors.New("listing: seller id is required")
	ErrInvalidCondition = errors.New("listing: unknown condition")
	ErrInvalidStatus    = errors.New("listing: unknown status")
	ErrOfferOutOfBand   = errors.New("listing: offer amount outside allowed band")
)

type ID string

type Type string

const (
	TypeRegular   Type = "REGULAR"
	TypeEmergency Type = "EMERGENCY"
)

type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusActive        Status = "ACTIVE"
	StatusOfferMade     Status = "OFFER_MADE"
	StatusSold          Status = "SOLD"
	StatusRejected      Status = "REJECTED"
)

// ValidStatus reports whether the value is one of the known listing states.
// Status transitions are monotonic in practice (PENDING_REVIEW goes to ACTIVE
// or REJECTED, ACTIVE goes to SOLD) but the store does not enforce the order;
// callers validate the target value only.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPendingReview, StatusActive, StatusOfferMade, StatusSold, StatusRejected:
		return true
	}
	return false
}

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionUsed    Condition = "used"
	ConditionWorn    Condition = "worn"
)

func ValidCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionUsed, ConditionWorn:
		return true
	}
	return false
}

// VisualAnalysis is the best-effort result of the generative image check
// attached to a listing at submission time.
type VisualAnalysis struct {
	Brand                  string
	DetectedCondition      Condition
	AuthenticityConfidence float64
	VisualRedFlags         []string
	DescriptionMatch       bool
}

// Listing is a peer-to-peer marketplace item. Prices are in local currency
// units; timestamps are epoch milliseconds to match the wire format.
type Listing struct {
	ID             ID
	Title          string
	Description    string
	Price          float64
	Category       string
	SubCategory    string
	Brand          string
	Condition      Condition
	Type           Type
	Status         Status
	ImageURLs      []string
	SellerID       string
	CreatedAt      int64
	UpdatedAt      int64
	VisualAnalysis *VisualAnalysis
	BoostedUntil   int64
	OfferAmount    float64
}

type CreateParams struct {
	ID          ID
	Title       string
	Description string
	Price       float64
	Category    string
	SubCategory string
	Brand       string
	Condition   Condition
	Type        Type
	ImageURLs   []string
	SellerID    string
	Now         time.Time
}

// New validates the params and returns a listing awaiting moderation.
func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.Price <= 0 {
		return nil, ErrPriceInvalid
	}
	if strings.TrimSpace(params.Category) == "" {
		return nil, ErrCategoryRequired
	}
	if strings.TrimSpace(params.SellerID) == "" {
		return nil, ErrSellerRequired
	}
	if !ValidCondition(params.Condition) {
		return nil, ErrInvalidCondition
	}
	typ := params.Type
	if typ == "" {
		typ = TypeRegular
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	millis := now.UnixMilli()
	return &Listing{
		ID:          params.ID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		SubCategory: params.SubCategory,
		Brand:       params.Brand,
		Condition:   params.Condition,
		Type:        typ,
		Status:      StatusPendingReview,
		ImageURLs:   append([]string(nil), params.ImageURLs...),
		SellerID:    params.SellerID,
		CreatedAt:   millis,
		UpdatedAt:   millis,
	}, nil
}

// Boosted reports whether the listing promotion is still running at the
// given instant.
func (l *Listing) Boosted(at time.Time) bool {
	return l.BoostedUntil > 0 && l.BoostedUntil > at.UnixMilli()
}

// ValidateOffer checks an offer against the allowed band: strictly below the
// asking price and at least 40% of it.
func (l *Listing) ValidateOffer(amount float64) error {
	if amount <= 0 || amount >= l.Price || amount < l.Price*0.4 {
		return ErrOfferOutOfBand
	}
	return nil
}
