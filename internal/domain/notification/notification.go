package notification

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRecipientRequired = errors.New("notification: recipient is required")
	ErrTitleRequired     = errors.New("notification: title is required")
	ErrMessageRequired   = errors.New("notification: message is required")
)

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
	TypeSystem  Type = "system"
	TypeWarning Type = "warning"
	TypeOffer   Type = "offer"
	TypeOrder   Type = "order"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Sender identifies who triggered the notification; the zero value means a
// system-originated one.
type Sender struct {
	ID     string
	Name   string
	Avatar string
}

type RelatedType string

const (
	RelatedListing RelatedType = "listing"
	RelatedOrder   RelatedType = "order"
	RelatedMessage RelatedType = "message"
)

// RelatedContent points at the entity the notification is about, with an
// optional short preview for the panel.
type RelatedContent struct {
	Type    RelatedType
	ID      string
	Preview string
}

// Notification is owned by its recipient: only the recipient marks it read,
// pins it or deletes it, while any sender-side action may create one.
type Notification struct {
	ID             string
	UserID         string
	Type           Type
	Priority       Priority
	Title          string
	Message        string
	Sender         *Sender
	RelatedContent *RelatedContent
	Read           bool
	Pinned         bool
	Timestamp      int64
}

type CreateParams struct {
	ID             string
	UserID         string
	Type           Type
	Priority       Priority
	Title          string
	Message        string
	Sender         *Sender
	RelatedContent *RelatedContent
	Now            time.Time
}

func New(params CreateParams) (*Notification, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return nil, ErrRecipientRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Message) == "" {
		return nil, ErrMessageRequired
	}
	typ := params.Type
	if typ == "" {
		typ = TypeSystem
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityLow
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Notification{
		ID:             params.ID,
		UserID:         params.UserID,
		Type:           typ,
		Priority:       priority,
		Title:          params.Title,
		Message:        params.Message,
		Sender:         params.Sender,
		RelatedContent: params.RelatedContent,
		Timestamp:      now.UnixMilli(),
	}, nil
}
