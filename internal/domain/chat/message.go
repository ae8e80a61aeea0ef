package chat

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTextRequired         = errors.New("chat: message text is required")
	ErrParticipantsRequired = errors.New("chat: sender and receiver are required")
	ErrListingRequired      = errors.New("chat: listing id is required")
)

// Message is one line of a two-party conversation about a listing. A listing
// may have many independent threads; the (listing, sender, receiver) triad
// identifies one.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	ListingID  string
	Text       string
	Timestamp  int64
}

type CreateParams struct {
	ID         string
	SenderID   string
	ReceiverID string
	ListingID  string
	Text       string
	Now        time.Time
}

func NewMessage(params CreateParams) (*Message, error) {
	if strings.TrimSpace(params.SenderID) == "" || strings.TrimSpace(params.ReceiverID) == "" {
		return nil, ErrParticipantsRequired
	}
	if strings.TrimSpace(params.ListingID) == "" {
		return nil, ErrListingRequired
	}
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, ErrTextRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:         params.ID,
		SenderID:   params.SenderID,
		ReceiverID: params.ReceiverID,
		ListingID:  params.ListingID,
		Text:       text,
		Timestamp:  now.UnixMilli(),
	}, nil
}

// InThread reports whether the message belongs to the conversation between
// the two users about the given listing, in either direction.
func (m *Message) InThread(listingID, userA, userB string) bool {
	if m.ListingID != listingID {
		return false
	}
	return (m.SenderID == userA && m.ReceiverID == userB) ||
		(m.SenderID == userB && m.ReceiverID == userA)
}
