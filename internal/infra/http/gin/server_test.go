package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "quickswap/internal/app/services/auth"
	"quickswap/internal/app/services/market"
	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/config"
	"quickswap/internal/infra/fx"
	ginserver "quickswap/internal/infra/http/gin"
	"quickswap/internal/infra/obs"
	"quickswap/internal/infra/security"
	"quickswap/internal/infra/store"
	memorystore "quickswap/internal/infra/store/memory"
)

type fixedRate struct{ rate float64 }

func (f fixedRate) FetchRate(context.Context) (float64, error) { return f.rate, nil }

type testEnv struct {
	handler http.Handler
	users   store.Users
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	st := memorystore.NewStore()
	users := store.Users{Store: st}

	authService := &authsvc.Service{
		Users:     users,
		Sessions:  memorystore.NewSessionStore(),
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
		Logger:    logger,
	}
	marketService := &market.Service{
		Store:  st,
		Users:  users,
		FX:     fx.NewCache(fixedRate{rate: 40}, logger),
		Logger: logger,
	}

	server := ginserver.NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{Ready: func() error { return nil }},
		ginserver.Handlers{
			Auth:    ginserver.AuthHandler{Service: authService, Users: users, Logger: logger},
			Listing: ginserver.ListingHandler{Market: marketService, Logger: logger},
			Trade:   ginserver.TradeHandler{Market: marketService, Logger: logger},
			Chat:    ginserver.ChatHandler{Market: marketService, Logger: logger},
			Admin:   ginserver.AdminHandler{Market: marketService, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{
				Service: authService,
				Logger:  logger,
			}.Handle,
		},
	)
	return testEnv{handler: server.Handler, users: users}
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) register(t *testing.T, email, name string) (id, token string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"name":     name,
		"password": "long-enough-pw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", email, rec.Code, rec.Body)
	}
	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.User.ID, resp.Token
}

func (e testEnv) setUser(t *testing.T, id string, mutate func(*domainuser.User)) {
	t.Helper()
	u, err := e.users.ByID(context.Background(), domainuser.ID(id))
	if err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	mutate(u)
	if err := e.users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user %s: %v", id, err)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	_, token := env.register(t, "seller@example.com", "Seller")

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d, body %s", rec.Code, rec.Body)
	}
	var profile map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile["email"] != "seller@example.com" {
		t.Fatalf("profile email = %v", profile["email"])
	}
	if _, leaked := profile["password_hash"]; leaked {
		t.Fatal("profile exposes password hash")
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: status %d", rec.Code)
	}
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/listings", "", map[string]any{
		"title": "Lamp", "description": "desk lamp", "price": 100, "category": "home",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous submit: status %d", rec.Code)
	}
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	_, sellerToken := env.register(t, "seller@example.com", "Seller")
	adminID, adminToken := env.register(t, "admin@example.com", "Admin")
	env.setUser(t, adminID, func(u *domainuser.User) { u.Role = domainuser.RoleAdmin })

	rec := env.do(t, http.MethodPost, "/api/v1/listings", sellerToken, map[string]any{
		"title":       "Road bike",
		"description": "Light frame, recently serviced.",
		"price":       4000,
		"category":    "sports",
		"condition":   "used",
		"type":        "REGULAR",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d, body %s", rec.Code, rec.Body)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if created.Status != "PENDING_REVIEW" {
		t.Fatalf("new listing status = %s", created.Status)
	}

	catalog := func() int {
		rec := env.do(t, http.MethodGet, "/api/v1/listings", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("catalog: status %d", rec.Code)
		}
		var resp struct {
			Listings []json.RawMessage `json:"listings"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode catalog: %v", err)
		}
		return len(resp.Listings)
	}
	if n := catalog(); n != 0 {
		t.Fatalf("catalog before approval: %d listings", n)
	}

	// moderation is admin-only
	if rec := env.do(t, http.MethodPost, "/api/v1/admin/listings/"+created.ID+"/approve", sellerToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("seller approve: status %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/admin/listings/"+created.ID+"/approve", adminToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("admin approve: status %d, body %s", rec.Code, rec.Body)
	}
	if n := catalog(); n != 1 {
		t.Fatalf("catalog after approval: %d listings", n)
	}

	_, buyerToken := env.register(t, "buyer@example.com", "Buyer")
	rec = env.do(t, http.MethodPost, "/api/v1/listings/"+created.ID+"/checkout", buyerToken, nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("broke buyer checkout: status %d, body %s", rec.Code, rec.Body)
	}

	var me struct {
		ID string `json:"id"`
	}
	recMe := env.do(t, http.MethodGet, "/api/v1/auth/me", buyerToken, nil)
	if err := json.Unmarshal(recMe.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode buyer profile: %v", err)
	}
	env.setUser(t, me.ID, func(u *domainuser.User) { u.Balance = 5000 })

	rec = env.do(t, http.MethodPost, "/api/v1/listings/"+created.ID+"/checkout", buyerToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d, body %s", rec.Code, rec.Body)
	}
	var order struct {
		Status string `json:"status"`
		Price  float64 `json:"price"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Status != "PREPARING" || order.Price != 4000 {
		t.Fatalf("order = %+v", order)
	}
	if n := catalog(); n != 0 {
		t.Fatalf("catalog after sale: %d listings", n)
	}
}
