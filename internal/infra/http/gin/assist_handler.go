package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/infra/genai"
)

// AssistHandler fronts the generative helpers. Every endpoint requires a
// signed-in user and returns 503 when the collaborator is not configured.
type AssistHandler struct {
	GenAI  *genai.Client
	Logger *slog.Logger
}

func (h AssistHandler) available(c *gin.Context) bool {
	if !h.GenAI.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant unavailable"})
		return false
	}
	return true
}

type describeRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (h AssistHandler) Describe(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	if !h.available(c) {
		return
	}
	var req describeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	text, err := h.GenAI.GenerateListingDescription(c.Request.Context(), req.Title, req.Category)
	if err != nil {
		h.Logger.Warn("description generation failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": text})
}

type bioRequest struct {
	Interests []string `json:"interests"`
}

func (h AssistHandler) Bio(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if !h.available(c) {
		return
	}
	var req bioRequest
	_ = c.ShouldBindJSON(&req)
	text, err := h.GenAI.GenerateUserBio(c.Request.Context(), p.Name, req.Interests)
	if err != nil {
		h.Logger.Warn("bio generation failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bio": text})
}

type priceAnalysisRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h AssistHandler) PriceAnalysis(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	if !h.available(c) {
		return
	}
	var req priceAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	analysis, err := h.GenAI.AnalyzeItemPrice(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		h.Logger.Warn("price analysis failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}
