package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/services/market"
	"quickswap/internal/domain/notification"
)

// AdminHandler covers moderation and platform-wide announcements.
type AdminHandler struct {
	Market *market.Service
	Logger *slog.Logger
}

func (h AdminHandler) PendingListings(c *gin.Context) {
	p, ok := requireAdmin(c)
	if !ok {
		return
	}
	listings, err := h.Market.PendingListings(c.Request.Context(), p.ID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": mapListings(listings)})
}

func (h AdminHandler) Approve(c *gin.Context) {
	p, ok := requireAdmin(c)
	if !ok {
		return
	}
	if err := h.Market.ApproveListing(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h AdminHandler) Reject(c *gin.Context) {
	p, ok := requireAdmin(c)
	if !ok {
		return
	}
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Market.RejectListing(c.Request.Context(), p.ID, c.Param("id"), req.Reason); err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type broadcastRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
}

func (h AdminHandler) Broadcast(c *gin.Context) {
	p, ok := requireAdmin(c)
	if !ok {
		return
	}
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Title == "" && req.Message == "" && req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title/message or topic is required"})
		return
	}
	sent, err := h.Market.Broadcast(c.Request.Context(), p.ID, market.BroadcastParams{
		Title:    req.Title,
		Message:  req.Message,
		Priority: notification.Priority(req.Priority),
		Topic:    req.Topic,
		Tone:     req.Tone,
	})
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": sent})
}
