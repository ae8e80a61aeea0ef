package genai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"quickswap/internal/domain/listing"
)

func TestAnalyzeListingVisuals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.JSONOutput {
			t.Error("expected json_output request")
		}
		inner, _ := json.Marshal(map[string]any{
			"brand":                   "Acme",
			"detected_condition":      "like_new",
			"authenticity_confidence": 0.92,
			"visual_red_flags":        []string{"scratch on lid"},
			"description_match":       true,
		})
		json.NewEncoder(w).Encode(generateResponse{Text: string(inner)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", slog.Default())
	got, err := c.AnalyzeListingVisuals(context.Background(), "aW1n", "Acme Toaster")
	if err != nil {
		t.Fatalf("AnalyzeListingVisuals: %v", err)
	}
	if got.Brand != "Acme" || got.DetectedCondition != listing.ConditionLikeNew {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if len(got.VisualRedFlags) != 1 || !got.DescriptionMatch {
		t.Errorf("unexpected analysis: %+v", got)
	}
}

func TestDraftAdminNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner, _ := json.Marshal(NotificationDraft{Title: "Maintenance", Message: "Down at 02:00."})
		json.NewEncoder(w).Encode(generateResponse{Text: string(inner)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", slog.Default())
	draft, err := c.DraftAdminNotification(context.Background(), "maintenance window", "")
	if err != nil {
		t.Fatalf("DraftAdminNotification: %v", err)
	}
	if draft.Title != "Maintenance" {
		t.Errorf("unexpected draft: %+v", draft)
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", slog.Default())
	if _, err := c.GenerateListingDescription(context.Background(), "t", "c"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("", "", slog.Default())
	if c.Configured() {
		t.Fatal("empty client reported configured")
	}
	_, err := c.GenerateUserBio(context.Background(), "Ada", []string{"vintage"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
