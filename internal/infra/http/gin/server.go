package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"quickswap/internal/infra/config"
	"quickswap/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHandler
	Listing        ListingHandler
	Trade          TradeHandler
	Chat           ChatHandler
	Admin          AdminHandler
	Assist         *AssistHandler
	Upload         *UploadHandler
	WS             *WSHandler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")

	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", h.Auth.Me)

	api.GET("/listings", h.Listing.Catalog)
	api.POST("/listings", h.Listing.Submit)
	api.GET("/listings/mine", h.Listing.Mine)
	api.GET("/listings/:id", h.Listing.Get)
	api.GET("/listings/:id/boost-quote", h.Listing.Quote)
	api.POST("/listings/:id/promote", h.Listing.Promote)

	api.POST("/listings/:id/offers", h.Trade.MakeOffer)
	api.POST("/listings/:id/offers/accept", h.Trade.AcceptOffer)
	api.POST("/listings/:id/checkout", h.Trade.Checkout)
	api.GET("/orders", h.Trade.ListOrders)
	api.POST("/orders/:id/shipping", h.Trade.UpdateShipping)

	api.GET("/messages", h.Chat.Thread)
	api.POST("/messages", h.Chat.Send)
	api.GET("/notifications", h.Chat.Notifications)
	api.POST("/notifications/read-all", h.Chat.MarkAllRead)
	api.POST("/notifications/:id/read", h.Chat.MarkRead)
	api.DELETE("/notifications/:id", h.Chat.DeleteNotification)

	adminGroup := api.Group("/admin")
	adminGroup.GET("/listings/pending", h.Admin.PendingListings)
	adminGroup.POST("/listings/:id/approve", h.Admin.Approve)
	adminGroup.POST("/listings/:id/reject", h.Admin.Reject)
	adminGroup.POST("/broadcast", h.Admin.Broadcast)

	if h.Assist != nil {
		assistGroup := api.Group("/assist")
		assistGroup.POST("/description", h.Assist.Describe)
		assistGroup.POST("/bio", h.Assist.Bio)
		assistGroup.POST("/price-analysis", h.Assist.PriceAnalysis)
	}
	if h.Upload != nil {
		api.POST("/uploads/photos", h.Upload.UploadProductPhoto)
		api.POST("/uploads/avatar", h.Upload.UploadAvatar)
	}
	if h.WS != nil {
		router.GET("/ws", h.WS.Connect)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
