package fx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubSource struct {
	rate  float64
	err   error
	calls int
}

func (s *stubSource) FetchRate(context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.rate, nil
}

func TestCacheServesFreshValueWithoutRefetch(t *testing.T) {
	t.Parallel()
	src := &stubSource{rate: 34.5}
	clock := time.Now()
	cache := NewCache(src, nil, WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	if got := cache.Rate(ctx); got != 34.5 {
		t.Fatalf("rate = %v", got)
	}
	src.rate = 40
	if got := cache.Rate(ctx); got != 34.5 {
		t.Fatalf("expected cached rate, got %v", got)
	}
	if src.calls != 1 {
		t.Fatalf("calls = %d, want 1", src.calls)
	}
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	t.Parallel()
	src := &stubSource{rate: 34.5}
	clock := time.Now()
	cache := NewCache(src, nil,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	cache.Rate(ctx)
	src.rate = 41
	clock = clock.Add(time.Hour + time.Minute)
	if got := cache.Rate(ctx); got != 41 {
		t.Fatalf("expected refreshed rate 41, got %v", got)
	}
	if src.calls != 2 {
		t.Fatalf("calls = %d, want 2", src.calls)
	}
}

func TestCacheFallsBackToLastValueOnFailure(t *testing.T) {
	t.Parallel()
	src := &stubSource{rate: 34.5}
	clock := time.Now()
	cache := NewCache(src, nil, WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	cache.Rate(ctx)
	src.err = errors.New("endpoint down")
	clock = clock.Add(2 * time.Hour)
	if got := cache.Rate(ctx); got != 34.5 {
		t.Fatalf("expected last cached value, got %v", got)
	}
}

func TestCacheFallsBackToConstantWhenCold(t *testing.T) {
	t.Parallel()
	src := &stubSource{err: errors.New("endpoint down")}
	cache := NewCache(src, nil, WithFallback(34.5))

	if got := cache.Rate(context.Background()); got != 34.5 {
		t.Fatalf("expected fallback constant, got %v", got)
	}
}

func TestClientParsesRateResponse(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"TRY": 34.72, "EUR": 0.92},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "TRY", nil)
	rate, err := client.FetchRate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rate != 34.72 {
		t.Fatalf("rate = %v, want 34.72", rate)
	}
}

func TestClientRejectsMissingCurrency(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"rates": map[string]float64{"EUR": 0.92}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "TRY", nil)
	if _, err := client.FetchRate(context.Background()); err == nil {
		t.Fatal("expected error for missing currency")
	}
}
