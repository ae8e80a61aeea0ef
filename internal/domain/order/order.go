package order

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrListingRequired = errors.New("order: listing id is required")
	ErrPartiesRequired = errors.New("order: buyer and seller are required")
	ErrPriceInvalid    = errors.New("order: price must be positive")
	ErrInvalidStatus   = errors.New("order: unknown status")
	ErrShippingInfo    = errors.New("order: carrier and tracking code are required")
)

type Status string

const (
	StatusPreparing Status = "PREPARING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type ShippingInfo struct {
	Carrier      string
	TrackingCode string
}

// Order links buyer, seller and listing; the triple is read-only once the
// order exists, only status and shipping info change afterwards.
type Order struct {
	ID              string
	ListingID       string
	BuyerID         string
	SellerID        string
	Status          Status
	Price           float64
	ShippingInfo    *ShippingInfo
	SystemCancelled bool
	CreatedAt       int64
}

type CreateParams struct {
	ID        string
	ListingID string
	BuyerID   string
	SellerID  string
	Price     float64
	Now       time.Time
}

func NewOrder(params CreateParams) (*Order, error) {
	if strings.TrimSpace(params.ListingID) == "" {
		return nil, ErrListingRequired
	}
	if strings.TrimSpace(params.BuyerID) == "" || strings.TrimSpace(params.SellerID) == "" {
		return nil, ErrPartiesRequired
	}
	if params.Price <= 0 {
		return nil, ErrPriceInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Order{
		ID:        params.ID,
		ListingID: params.ListingID,
		BuyerID:   params.BuyerID,
		SellerID:  params.SellerID,
		Status:    StatusPreparing,
		Price:     params.Price,
		CreatedAt: now.UnixMilli(),
	}, nil
}

// Ship records carrier details and moves the order to SHIPPED.
func (o *Order) Ship(carrier, trackingCode string) error {
	if strings.TrimSpace(carrier) == "" || strings.TrimSpace(trackingCode) == "" {
		return ErrShippingInfo
	}
	o.ShippingInfo = &ShippingInfo{Carrier: carrier, TrackingCode: trackingCode}
	o.Status = StatusShipped
	return nil
}
