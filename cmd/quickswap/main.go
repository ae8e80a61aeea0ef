package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	authsvc "quickswap/internal/app/services/auth"
	"quickswap/internal/app/services/market"
	"quickswap/internal/app/syncer"
	"quickswap/internal/domain/listing"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/broker/kafka"
	"quickswap/internal/infra/config"
	"quickswap/internal/infra/fx"
	"quickswap/internal/infra/genai"
	ginserver "quickswap/internal/infra/http/gin"
	"quickswap/internal/infra/obs"
	"quickswap/internal/infra/realtime"
	"quickswap/internal/infra/security"
	"quickswap/internal/infra/store"
	memorystore "quickswap/internal/infra/store/memory"
	mongostore "quickswap/internal/infra/store/mongo"
	"quickswap/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StoreMode = "memory"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.shutdown()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("LISTING_FIXTURES", "")
	if fixturesPath == "" && cfg.StoreMode == "memory" {
		fixturesPath = defaultListingFixturesPath()
	}
	if fixturesPath != "" {
		if err := app.loadListingFixtures(ctx, fixturesPath, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	store    syncer.Store
	users    store.Users
	market   *market.Service
	auth     *authsvc.Service
	hub      *realtime.Hub
	bridge   *kafka.Bridge
	consumer *kafka.Consumer
	ready    func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	var (
		st    syncer.Store
		ready = func() error { return nil }
	)
	switch cfg.StoreMode {
	case "mongo":
		client, err := mongostore.NewClient(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		st = mongostore.NewStore(client, logger)
		ready = func() error {
			pc, pcancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pcancel()
			return client.Ping(pc)
		}
	default:
		st = memorystore.NewStore()
	}

	users := store.Users{Store: st}

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   memorystore.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	rates := fx.NewCache(
		fx.NewClient(cfg.FXURL, cfg.FXCurrency, logger),
		logger,
		fx.WithTTL(cfg.FXTTL),
		fx.WithFallback(cfg.FXFallbackRate),
	)

	assistant := genai.NewClient(cfg.GenAIURL, cfg.GenAIKey, logger)

	marketService := &market.Service{
		Store:  st,
		Users:  users,
		FX:     rates,
		GenAI:  assistant,
		Logger: logger,
	}

	app := &application{
		store:  st,
		users:  users,
		market: marketService,
		auth:   authService,
		hub:    realtime.NewHub(logger),
		ready:  ready,
	}

	// With a broker, local changes are published and the hub consumes the
	// topic so every replica sees the full feed. Without one, the hub reads
	// the store's change feed directly.
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.bridge = kafka.NewBridge(producer, cfg.KafkaTopic, logger)
		if err := app.bridge.Start(ctx, st); err != nil {
			return nil, fmt.Errorf("kafka bridge: %w", err)
		}
		groupID := "quickswap-realtime-" + hostnameOr("local")
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, groupID, nil, kafka.ChangeHandler{Sink: app.hub})
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.consumer = consumer
		go func() {
			if err := consumer.Run(ctx, []string{cfg.KafkaTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	} else {
		if err := app.hub.Start(ctx, st); err != nil {
			return nil, fmt.Errorf("realtime hub: %w", err)
		}
	}

	var uploadHandler *ginserver.UploadHandler
	if cfg.S3Endpoint != "" {
		uploader, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		uploadHandler = &ginserver.UploadHandler{Uploader: uploader, Users: users, Logger: logger}
	}

	app.handlers = ginserver.Handlers{
		Auth:    ginserver.AuthHandler{Service: authService, Users: users, Logger: logger},
		Listing: ginserver.ListingHandler{Market: marketService, Logger: logger},
		Trade:   ginserver.TradeHandler{Market: marketService, Logger: logger},
		Chat:    ginserver.ChatHandler{Market: marketService, Logger: logger},
		Admin:   ginserver.AdminHandler{Market: marketService, Logger: logger},
		Assist:  &ginserver.AssistHandler{GenAI: assistant, Logger: logger},
		Upload:  uploadHandler,
		WS:      &ginserver.WSHandler{Hub: app.hub, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: authService,
			Logger:  logger,
		}.Handle,
	}
	return app, nil
}

func (a *application) shutdown() {
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	a.hub.Stop()
}

// loadListingFixtures seeds demo accounts and an approved catalog. Sellers
// are registered with a throwaway password; the moderation step runs through
// the same service path real submissions take.
func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return nil
	}

	admin, err := a.seedUser(ctx, "admin@quickswap.local", "QuickSwap Admin", "quickswap", domainuser.RoleAdmin, 0)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	for _, f := range fixtures {
		seller, err := a.seedUser(ctx, f.SellerEmail, f.SellerName, f.SellerUsername, domainuser.RoleUser, f.SellerBalance)
		if err != nil {
			logger.Error("fixture seller invalid", "email", f.SellerEmail, "error", err)
			continue
		}
		l, err := a.market.SubmitListing(ctx, string(seller.ID), market.SubmitListingParams{
			Title:       f.Title,
			Description: f.Description,
			Price:       f.Price,
			Category:    f.Category,
			SubCategory: f.SubCategory,
			Brand:       f.Brand,
			Condition:   listing.Condition(f.Condition),
			Type:        listing.Type(f.Type),
			ImageURLs:   append([]string(nil), f.ImageURLs...),
		})
		if err != nil {
			logger.Error("fixture listing invalid", "title", f.Title, "error", err)
			continue
		}
		if err := a.market.ApproveListing(ctx, string(admin.ID), string(l.ID)); err != nil {
			logger.Error("fixture approval failed", "listing_id", l.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", l.ID, "title", l.Title)
	}
	return nil
}

func (a *application) seedUser(ctx context.Context, email, name, username string, role domainuser.Role, balance float64) (*domainuser.User, error) {
	if existing, err := a.users.ByEmail(ctx, email); err == nil {
		return existing, nil
	}
	res, err := a.auth.Register(ctx, authsvc.RegisterParams{
		Email:    email,
		Name:     name,
		Username: username,
		Password: "quickswap-demo",
	})
	if err != nil {
		return nil, err
	}
	u := res.User
	if role != u.Role || balance != 0 {
		u.Role = role
		u.Balance = balance
		if err := a.users.Save(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

type listingFixture struct {
	SellerEmail    string   `json:"seller_email"`
	SellerName     string   `json:"seller_name"`
	SellerUsername string   `json:"seller_username"`
	SellerBalance  float64  `json:"seller_balance"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	Category       string   `json:"category"`
	SubCategory    string   `json:"sub_category"`
	Brand          string   `json:"brand"`
	Condition      string   `json:"condition"`
	Type           string   `json:"type"`
	ImageURLs      []string `json:"image_urls"`
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("backend", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
