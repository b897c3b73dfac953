package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"docreader/internal/keystore"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// Gate rejects requests that do not carry a valid API key. It runs before
// any pipeline work, so unauthenticated callers never cause staging I/O or
// backend calls.
type Gate struct {
	keys   keystore.Store
	logger *slog.Logger
}

// NewGate wires the gate to its key store.
func NewGate(keys keystore.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{keys: keys, logger: logger}
}

// Middleware validates the Authorization header. Only the exact form
// "Bearer <token>" is accepted.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "API key required")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "API key required")
			return
		}
		token := header[len(bearerPrefix):]
		if token == "" || strings.ContainsAny(token, " \t") {
			abortUnauthorized(c, "API key required")
			return
		}

		ok, err := g.keys.IsValid(c.Request.Context(), token)
		if err != nil {
			g.logger.Error("auth.lookup_failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "internal server error",
			})
			return
		}
		if !ok {
			abortUnauthorized(c, "Invalid API key")
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
	})
}
