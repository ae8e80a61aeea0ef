// Package wire holds the one place where the external snake_case row format
// of each table is declared. Store implementations, broker payloads and HTTP
// responses all round-trip through these records instead of translating field
// names at call sites.
package wire

import (
	"quickswap/internal/domain/chat"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/notification"
	"quickswap/internal/domain/order"
	"quickswap/internal/domain/user"
)

// Table names as the remote store knows them.
const (
	TableListings      = "listings"
	TableUsers         = "users"
	TableChatMessages  = "chat_messages"
	TableOrders        = "orders"
	TableNotifications = "notifications"
)

type VisualAnalysisRecord struct {
	Brand                  string   `json:"brand,omitempty"`
	DetectedCondition      string   `json:"detected_condition"`
	AuthenticityConfidence float64  `json:"authenticity_confidence"`
	VisualRedFlags         []string `json:"visual_red_flags"`
	DescriptionMatch       bool     `json:"description_match"`
}

type ListingRecord struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Price          float64               `json:"price"`
	Category       string                `json:"category"`
	SubCategory    string                `json:"sub_category,omitempty"`
	Brand          string                `json:"brand,omitempty"`
	Condition      string                `json:"condition"`
	Type           string                `json:"type"`
	Status         string                `json:"status"`
	ImageURLs      []string              `json:"image_urls"`
	SellerID       string                `json:"seller_id"`
	CreatedAt      int64                 `json:"created_at"`
	UpdatedAt      int64                 `json:"updated_at"`
	VisualAnalysis *VisualAnalysisRecord `json:"visual_analysis,omitempty"`
	BoostedUntil   int64                 `json:"boosted_until,omitempty"`
	OfferAmount    float64               `json:"offer_amount,omitempty"`
}

func NewListingRecord(l *listing.Listing) ListingRecord {
	rec := ListingRecord{
		ID:           string(l.ID),
		Title:        l.Title,
		Description:  l.Description,
		Price:        l.Price,
		Category:     l.Category,
		SubCategory:  l.SubCategory,
		Brand:        l.Brand,
		Condition:    string(l.Condition),
		Type:         string(l.Type),
		Status:       string(l.Status),
		ImageURLs:    append([]string(nil), l.ImageURLs...),
		SellerID:     l.SellerID,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		BoostedUntil: l.BoostedUntil,
		OfferAmount:  l.OfferAmount,
	}
	if l.VisualAnalysis != nil {
		rec.VisualAnalysis = &VisualAnalysisRecord{
			Brand:                  l.VisualAnalysis.Brand,
			DetectedCondition:      string(l.VisualAnalysis.DetectedCondition),
			AuthenticityConfidence: l.VisualAnalysis.AuthenticityConfidence,
			VisualRedFlags:         append([]string(nil), l.VisualAnalysis.VisualRedFlags...),
			DescriptionMatch:       l.VisualAnalysis.DescriptionMatch,
		}
	}
	return rec
}

func (r ListingRecord) ToDomain() *listing.Listing {
	l := &listing.Listing{
		ID:           listing.ID(r.ID),
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		Category:     r.Category,
		SubCategory:  r.SubCategory,
		Brand:        r.Brand,
		Condition:    listing.Condition(r.Condition),
		Type:         listing.Type(r.Type),
		Status:       listing.Status(r.Status),
		ImageURLs:    append([]string(nil), r.ImageURLs...),
		SellerID:     r.SellerID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		BoostedUntil: r.BoostedUntil,
		OfferAmount:  r.OfferAmount,
	}
	if r.VisualAnalysis != nil {
		l.VisualAnalysis = &listing.VisualAnalysis{
			Brand:                  r.VisualAnalysis.Brand,
			DetectedCondition:      listing.Condition(r.VisualAnalysis.DetectedCondition),
			AuthenticityConfidence: r.VisualAnalysis.AuthenticityConfidence,
			VisualRedFlags:         append([]string(nil), r.VisualAnalysis.VisualRedFlags...),
			DescriptionMatch:       r.VisualAnalysis.DescriptionMatch,
		}
	}
	return l
}

type ReviewRecord struct {
	ID           string `json:"id"`
	SellerID     string `json:"seller_id"`
	BuyerID      string `json:"buyer_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	ReviewerName string `json:"reviewer_name"`
	Timestamp    int64  `json:"timestamp"`
}

type UserRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Username       string         `json:"username"`
	Email          string         `json:"email"`
	PasswordHash   string         `json:"password_hash,omitempty"`
	Role           string         `json:"role"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Balance        float64        `json:"balance"`
	JoinDate       int64          `json:"join_date"`
	Bio            string         `json:"bio,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	BirthDate      string         `json:"birth_date,omitempty"`
	Reviews        []ReviewRecord `json:"reviews,omitempty"`
	TotalSales     int            `json:"total_sales"`
	FollowersCount int            `json:"followers_count"`
}

func NewUserRecord(u *user.User) UserRecord {
	rec := UserRecord{
		ID:             string(u.ID),
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		AvatarURL:      u.AvatarURL,
		Balance:        u.Balance,
		JoinDate:       u.JoinDate,
		Bio:            u.Bio,
		Gender:         string(u.Gender),
		BirthDate:      u.BirthDate,
		TotalSales:     u.TotalSales,
		FollowersCount: u.FollowersCount,
	}
	for _, rv := range u.Reviews {
		rec.Reviews = append(rec.Reviews, ReviewRecord(rv))
	}
	return rec
}

func (r UserRecord) ToDomain() *user.User {
	u := &user.User{
		ID:             user.ID(r.ID),
		Name:           r.Name,
		Username:       r.Username,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Role:           user.Role(r.Role),
		AvatarURL:      r.AvatarURL,
		Balance:        r.Balance,
		JoinDate:       r.JoinDate,
		Bio:            r.Bio,
		Gender:         user.Gender(r.Gender),
		BirthDate:      r.BirthDate,
		TotalSales:     r.TotalSales,
		FollowersCount: r.FollowersCount,
	}
	for _, rv := range r.Reviews {
		u.Reviews = append(u.Reviews, user.Review(rv))
	}
	return u
}

type MessageRecord struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	ListingID  string `json:"listing_id"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

func NewMessageRecord(m *chat.Message) MessageRecord {
	return MessageRecord{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ListingID:  m.ListingID,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
	}
}

func (r MessageRecord) ToDomain() *chat.Message {
	return &chat.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		ListingID:  r.ListingID,
		Text:       r.Text,
		Timestamp:  r.Timestamp,
	}
}

type ShippingInfoRecord struct {
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"tracking_code"`
}

type OrderRecord struct {
	ID              string              `json:"id"`
	ListingID       string              `json:"listing_id"`
	BuyerID         string              `json:"buyer_id"`
	SellerID        string              `json:"seller_id"`
	Status          string              `json:"status"`
	Price           float64             `json:"price"`
	ShippingInfo    *ShippingInfoRecord `json:"shipping_info,omitempty"`
	SystemCancelled bool                `json:"is_system_cancelled,omitempty"`
	CreatedAt       int64               `json:"created_at"`
}

func NewOrderRecord(o *order.Order) OrderRecord {
	rec := OrderRecord{
		ID:              o.ID,
		ListingID:       o.ListingID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Status:          string(o.Status),
		Price:           o.Price,
		SystemCancelled: o.SystemCancelled,
		CreatedAt:       o.CreatedAt,
	}
	if o.ShippingInfo != nil {
		rec.ShippingInfo = &ShippingInfoRecord{
			Carrier:      o.ShippingInfo.Carrier,
			TrackingCode: o.ShippingInfo.TrackingCode,
		}
	}
	return rec
}

func (r OrderRecord) ToDomain() *order.Order {
	o := &order.Order{
		ID:              r.ID,
		ListingID:       r.ListingID,
		BuyerID:         r.BuyerID,
		SellerID:        r.SellerID,
		Status:          order.Status(r.Status),
		Price:           r.Price,
		SystemCancelled: r.SystemCancelled,
		CreatedAt:       r.CreatedAt,
	}
	if r.ShippingInfo != nil {
		o.ShippingInfo = &order.ShippingInfo{
			Carrier:      r.ShippingInfo.Carrier,
			TrackingCode: r.ShippingInfo.TrackingCode,
		}
	}
	return o
}

type SenderRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type RelatedContentRecord struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Preview string `json:"preview,omitempty"`
}

type NotificationRecord struct {
	ID             string                `json:"id"`
	UserID         string                `json:"user_id"`
	Type           string                `json:"type"`
	Priority       string                `json:"priority"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	Sender         *SenderRecord         `json:"sender,omitempty"`
	RelatedContent *RelatedContentRecord `json:"related_content,omitempty"`
	Read           bool                  `json:"read"`
	Pinned         bool                  `json:"pinned"`
	Timestamp      int64                 `json:"timestamp"`
}

func NewNotificationRecord(n *notification.Notification) NotificationRecord {
	rec := NotificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		Pinned:    n.Pinned,
		Timestamp: n.Timestamp,
	}
	if n.Sender != nil {
		rec.Sender = &SenderRecord{ID: n.Sender.ID, Name: n.Sender.Name, Avatar: n.Sender.Avatar}
	}
	if n.RelatedContent != nil {
		rec.RelatedContent = &RelatedContentRecord{
			Type:    string(n.RelatedContent.Type),
			ID:      n.RelatedContent.ID,
			Preview: n.RelatedContent.Preview,
		}
	}
	return rec
}

func (r NotificationRecord) ToDomain() *notification.Notification {
	n := &notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      notification.Type(r.Type),
		Priority:  notification.Priority(r.Priority),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		Pinned:    r.Pinned,
		Timestamp: r.Timestamp,
	}
	if r.Sender != nil {
		n.Sender = &notification.Sender{ID: r.Sender.ID, Name: r.Sender.Name, Avatar: r.Sender.Avatar}
	}
	if r.RelatedContent != nil {
		n.RelatedContent = &notification.RelatedContent{
			Type:    notification.RelatedType(r.RelatedContent.Type),
			ID:      r.RelatedContent.ID,
			Preview: r.RelatedContent.Preview,
		}
	}
	return n
}
