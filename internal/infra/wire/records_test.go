package wire

import (
	"reflect"
	"testing"

	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
)

func TestListingRecordRoundTrip(t *testing.T) {
	t.Parallel()

	original := &listing.Listing{
		ID:          "lst-1",
		Title:       "Vintage camera",
		Description: "Working, some wear on the body",
		Price:       4200,
		Category:    "electronics",
		SubCategory: "cameras",
		Brand:       "Canon",
		Condition:   listing.ConditionUsed,
		Type:        listing.TypeEmergency,
		Status:      listing.StatusActive,
		ImageURLs:   []string{"https://cdn/a.jpg", "https://cdn/b.jpg"},
		SellerID:    "usr-7",
		CreatedAt:   1700000000000,
		UpdatedAt:   1700000500000,
		VisualAnalysis: &listing.VisualAnalysis{
			Brand:                  "Canon",
			DetectedCondition:      listing.ConditionUsed,
			AuthenticityConfidence: 0.91,
			VisualRedFlags:         []string{"scratched lens"},
			DescriptionMatch:       true,
		},
		BoostedUntil: 1700600000000,
		OfferAmount:  3000,
	}

	got := NewListingRecord(original).ToDomain()
	if !reflect.DeepEqual(original, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestNotificationRecordRoundTrip(t *testing.T) {
	t.Parallel()

	original := &notification.Notification{
		ID:       "ntf-1",
		UserID:   "usr-7",
		Type:     notification.TypeOrder,
		Priority: notification.PriorityHigh,
		Title:    "Item sold",
		Message:  "Your item was purchased.",
		Sender:   &notification.Sender{ID: "usr-3", Name: "Buyer", Avatar: "https://cdn/av.jpg"},
		RelatedContent: &notification.RelatedContent{
			Type:    notification.RelatedOrder,
			ID:      "ord-1",
			Preview: "Vintage camera",
		},
		Read:      true,
		Pinned:    false,
		Timestamp: 1700000000000,
	}

	got := NewNotificationRecord(original).ToDomain()
	if !reflect.DeepEqual(original, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}
