package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/dto"
	"quickswap/internal/app/services/market"
	"quickswap/internal/domain/listing"
	"quickswap/internal/infra/wire"
)

type ListingHandler struct {
	Market *market.Service
	Logger *slog.Logger
}

// Catalog serves the public grid. Anonymous browsing is allowed.
func (h ListingHandler) Catalog(c *gin.Context) {
	listings, err := h.Market.Catalog(c.Request.Context(), market.CatalogQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
	})
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": mapListings(listings)})
}

func (h ListingHandler) Get(c *gin.Context) {
	l, err := h.Market.Listing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, wire.NewListingRecord(l))
}

type submitListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	SubCategory string   `json:"sub_category"`
	Brand       string   `json:"brand"`
	Condition   string   `json:"condition"`
	Type        string   `json:"type"`
	ImageURLs   []string `json:"image_urls"`
	ImageBase64 string   `json:"image_base64"`
}

func (h ListingHandler) Submit(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req submitListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	l, err := h.Market.SubmitListing(c.Request.Context(), p.ID, market.SubmitListingParams{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Brand:       req.Brand,
		Condition:   listing.Condition(req.Condition),
		Type:        listing.Type(req.Type),
		ImageURLs:   req.ImageURLs,
		ImageBase64: req.ImageBase64,
	})
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, wire.NewListingRecord(l))
}

// Mine lists everything the caller is selling, any status.
func (h ListingHandler) Mine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	listings, err := h.Market.ListingsBySeller(c.Request.Context(), p.ID)
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": mapListings(listings)})
}

// Quote discloses the promotion fee without charging it.
func (h ListingHandler) Quote(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	fee, err := h.Market.Quote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapBoostQuote(fee))
}

func (h ListingHandler) Promote(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	fee, err := h.Market.Promote(c.Request.Context(), p.ID, c.Param("id"))
	if err != nil {
		respondMarketError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapBoostQuote(fee))
}

func mapListings(listings []*listing.Listing) []wire.ListingRecord {
	out := make([]wire.ListingRecord, 0, len(listings))
	for _, l := range listings {
		out = append(out, wire.NewListingRecord(l))
	}
	return out
}
