package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/services/market"
	"quickswap/internal/infra/wire"
)

// TradeHandler covers the money paths: offers, checkout and orders.
type TradeHandler struct {
	Market *market.Service
	Logger *slog.Logger
}

type offerRequest struct {
	Amount float64 `json:"amount"`
}

func (h TradeHandler) MakeOffer(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	l, err := h.Market.MakeOffer(c.Request.Context(), p.ID, c.Param("id"), req.Amount)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, wire.NewListingRecord(l))
}

type acceptOfferRequest struct {
	BuyerID string `json:"buyer_id"`
}

func (h TradeHandler) AcceptOffer(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req acceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BuyerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	orderID, err := h.Market.AcceptOffer(c.Request.Context(), p.ID, c.Param("id"), req.BuyerID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

func (h TradeHandler) Checkout(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	o, err := h.Market.Checkout(c.Request.Context(), p.ID, c.Param("id"))
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, wire.NewOrderRecord(o))
}

func (h TradeHandler) ListOrders(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	orders, err := h.Market.OrdersFor(c.Request.Context(), p.ID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	out := make([]wire.OrderRecord, 0, len(orders))
	for _, o := range orders {
		out = append(out, wire.NewOrderRecord(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

type shippingRequest struct {
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"tracking_code"`
}

func (h TradeHandler) UpdateShipping(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	o, err := h.Market.UpdateOrderShipping(c.Request.Context(), p.ID, c.Param("id"), req.Carrier, req.TrackingCode)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, wire.NewOrderRecord(o))
}
