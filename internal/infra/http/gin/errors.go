package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/services/market"
	"quickswap/internal/domain/boost"
	"quickswap/internal/domain/chat"
	"quickswap/internal/domain/listing"
	"quickswap/internal/domain/order"
	domainuser "quickswap/internal/domain/user"
)

// respondMarketError maps service errors onto HTTP statuses in one place so
// every handler reports the same way.
func respondMarketError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, market.ErrListingUnavailable),
		errors.Is(err, market.ErrOrderNotFound),
		errors.Is(err, market.ErrNotificationNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrNotAdmin),
		errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrOwnListing):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrListingNotPending),
		errors.Is(err, market.ErrNoOfferPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, listing.ErrOfferOutOfBand),
		errors.Is(err, listing.ErrTitleRequired),
		errors.Is(err, listing.ErrPriceInvalid),
		errors.Is(err, listing.ErrCategoryRequired),
		errors.Is(err, listing.ErrInvalidCondition),
		errors.Is(err, chat.ErrTextRequired),
		errors.Is(err, chat.ErrParticipantsRequired),
		errors.Is(err, chat.ErrListingRequired),
		errors.Is(err, order.ErrShippingInfo),
		errors.Is(err, boost.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if logger != nil {
			logger.Error("market operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
