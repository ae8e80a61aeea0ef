package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"quickswap/internal/app/services/auth"
	domainauth "quickswap/internal/domain/auth"
	domainuser "quickswap/internal/domain/user"
)

const principalContextKey = "quickswap.principal"

type principal struct {
	ID     string
	Email  string
	Name   string
	Role   string
	Token  string
	Avatar string
}

func (p principal) IsAdmin() bool {
	return p.Role == string(domainuser.RoleAdmin)
}

type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

// Handle resolves a bearer token into a principal when present. Requests
// without (or with a stale) token continue anonymously; the per-route guards
// decide what needs auth.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	user := resolved.User
	setPrincipal(c, principal{
		ID:     string(user.ID),
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
		Token:  token,
		Avatar: user.AvatarURL,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func requireAdmin(c *gin.Context) (principal, bool) {
	p, ok := requireUser(c)
	if !ok {
		return principal{}, false
	}
	if !p.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
