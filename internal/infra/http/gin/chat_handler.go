package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/services/market"
	"quickswap/internal/infra/wire"
)

// ChatHandler serves conversation threads and the notification feed.
type ChatHandler struct {
	Market *market.Service
	Logger *slog.Logger
}

func (h ChatHandler) Thread(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	listingID := c.Query("listing_id")
	peerID := c.Query("peer_id")
	if listingID == "" || peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id and peer_id are required"})
		return
	}
	msgs, err := h.Market.Thread(c.Request.Context(), listingID, p.ID, peerID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	out := make([]wire.MessageRecord, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, wire.NewMessageRecord(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type sendMessageRequest struct {
	ListingID  string `json:"listing_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

func (h ChatHandler) Send(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	msg, err := h.Market.SendMessage(c.Request.Context(), p.ID, market.SendMessageParams{
		ListingID:  req.ListingID,
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
	})
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, wire.NewMessageRecord(msg))
}

func (h ChatHandler) Notifications(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	notes, err := h.Market.NotificationsFor(c.Request.Context(), p.ID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	out := make([]wire.NotificationRecord, 0, len(notes))
	unread := 0
	for _, n := range notes {
		if !n.Read {
			unread++
		}
		out = append(out, wire.NewNotificationRecord(n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "unread": unread})
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Market.MarkNotificationRead(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) MarkAllRead(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Market.MarkAllNotificationsRead(c.Request.Context(), p.ID); err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) DeleteNotification(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Market.DeleteNotification(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
