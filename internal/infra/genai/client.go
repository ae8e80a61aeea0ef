// Package genai calls the hosted generative-content API for visual checks,
// price suggestions and drafted copy. Every call here is best-effort from the
// product's point of view: callers log failures and continue, a listing is
// never blocked on the model.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quickswap/internal/domain/listing"
)

var ErrNotConfigured = errors.New("genai: client not configured")

const (
	flashModel = "content-flash"
	proModel   = "content-pro"
)

// MarketAnalysis is the structured price suggestion for a listing.
type MarketAnalysis struct {
	SuggestedPrice   float64           `json:"suggested_price"`
	Confidence       float64           `json:"confidence"`
	Reasoning        string            `json:"reasoning"`
	CompetitorPrices []CompetitorPrice `json:"competitor_prices"`
}

type CompetitorPrice struct {
	Source string  `json:"source"`
	Price  float64 `json:"price"`
}

// NotificationDraft is admin broadcast copy produced from a topic.
type NotificationDraft struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Client talks to the completion endpoint. Responses are JSON-schema
// constrained by the server; we decode them directly into the typed results.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	APIKey   string
	Logger   *slog.Logger
}

func NewClient(endpoint, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Logger:   logger,
	}
}

// Configured reports whether calls can be attempted at all; an unconfigured
// client makes every feature degrade instead of erroring at startup.
func (c *Client) Configured() bool {
	return c != nil && c.Endpoint != "" && c.APIKey != ""
}

type generateRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64,omitempty"`
	JSONOutput  bool   `json:"json_output,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(request)
	if err != nil {
		return "", fmt.Errorf("genai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("genai: status %d: %s", resp.StatusCode, string(snippet))
	}
	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	return payload.Text, nil
}

// AnalyzeListingVisuals inspects a product photo for brand, condition and
// visual inconsistencies.
func (c *Client) AnalyzeListingVisuals(ctx context.Context, imageBase64, title string) (*listing.VisualAnalysis, error) {
	prompt := "Analyze this product image for a general P2P marketplace."
	if title != "" {
		prompt += fmt.Sprintf(" The user titled it %q.", title)
	}
	prompt += " Determine the likely brand or model, condition (new, like_new, used, or worn), and look for any visual inconsistencies or damage. Return JSON with brand, detected_condition, authenticity_confidence, visual_red_flags, description_match."

	text, err := c.generate(ctx, generateRequest{
		Model:       flashModel,
		Prompt:      prompt,
		ImageBase64: imageBase64,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Brand                  string   `json:"brand"`
		DetectedCondition      string   `json:"detected_condition"`
		AuthenticityConfidence float64  `json:"authenticity_confidence"`
		VisualRedFlags         []string `json:"visual_red_flags"`
		DescriptionMatch       bool     `json:"description_match"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("genai: decode visual analysis: %w", err)
	}
	return &listing.VisualAnalysis{
		Brand:                  out.Brand,
		DetectedCondition:      listing.Condition(out.DetectedCondition),
		AuthenticityConfidence: out.AuthenticityConfidence,
		VisualRedFlags:         out.VisualRedFlags,
		DescriptionMatch:       out.DescriptionMatch,
	}, nil
}

// AnalyzeItemPrice estimates market value for a listing title/description.
func (c *Client) AnalyzeItemPrice(ctx context.Context, title, description string) (*MarketAnalysis, error) {
	prompt := fmt.Sprintf("Analyze market value for: %s. Description: %s. Return JSON with suggested_price, confidence, reasoning, and competitor_prices.", title, description)
	text, err := c.generate(ctx, generateRequest{Model: proModel, Prompt: prompt, JSONOutput: true})
	if err != nil {
		return nil, err
	}
	var out MarketAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("genai: decode price analysis: %w", err)
	}
	return &out, nil
}

// GenerateListingDescription drafts marketplace copy for a title/category.
func (c *Client) GenerateListingDescription(ctx context.Context, title, category string) (string, error) {
	prompt := fmt.Sprintf("Write a marketplace description for %q in category %q. Bullet points, under 120 words.", title, category)
	return c.generate(ctx, generateRequest{Model: flashModel, Prompt: prompt})
}

// GenerateUserBio drafts a short profile biography.
func (c *Client) GenerateUserBio(ctx context.Context, name string, interests []string) (string, error) {
	prompt := fmt.Sprintf("Create a short, catchy, professional marketplace biography for a user named %q interested in %s. Max 150 chars.", name, strings.Join(interests, ", "))
	return c.generate(ctx, generateRequest{Model: flashModel, Prompt: prompt})
}

// DraftAdminNotification produces broadcast copy for a topic. On failure the
// caller falls back to the raw topic.
func (c *Client) DraftAdminNotification(ctx context.Context, topic, tone string) (*NotificationDraft, error) {
	if tone == "" {
		tone = "professional"
	}
	prompt := fmt.Sprintf("Create a marketplace notification for the topic: %q. Tone: %s. Return JSON with title (short) and message (max 200 chars).", topic, tone)
	text, err := c.generate(ctx, generateRequest{Model: flashModel, Prompt: prompt, JSONOutput: true})
	if err != nil {
		return nil, err
	}
	var out NotificationDraft
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("genai: decode draft: %w", err)
	}
	return &out, nil
}
