package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIDKey is the gin context key the auth middleware sets. Handlers
// use it as the rate-limit identifier for the request.
const ClientIDKey = "client_id"

// APIKeyAuth validates Bearer API keys against the configured key map
// (key value -> client id). With no keys configured, every request passes
// as the anonymous client. Header names win over an identical key in the
// request body.
type APIKeyAuth struct {
	keys map[string]string
}

func NewAPIKeyAuth(keys map[string]string) *APIKeyAuth {
	return &APIKeyAuth{keys: keys}
}

func (m *APIKeyAuth) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(m.keys) == 0 {
			c.Next()
			return
		}

		key := ""
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			key = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if key == "" {
			key = c.GetHeader("X-API-Key")
		}

		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"isError": true, "error": "API key required"})
			c.Abort()
			return
		}

		clientID, ok := m.keys[key]
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"isError": true, "error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Set(ClientIDKey, clientID)
		c.Next()
	}
}

// ClientID returns the authenticated client id or the fallback.
func ClientID(c *gin.Context, fallback string) string {
	if id, ok := c.Get(ClientIDKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
