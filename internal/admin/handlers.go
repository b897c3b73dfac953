package admin

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"docreader/internal/keystore"

	"github.com/gin-gonic/gin"
)

const passwordHeader = "X-Admin-Password"

// Handler exposes API-key management. It is the only writer of the key
// store; the request pipeline just reads membership.
type Handler struct {
	keys     keystore.Store
	password string
	logger   *slog.Logger
}

// NewHandler requires a non-empty admin password.
func NewHandler(keys keystore.Store, password string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{keys: keys, password: password, logger: logger}
}

// RegisterRoutes attaches the admin endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	grp := router.Group("/admin", h.requirePassword())
	grp.GET("/keys", h.listKeys)
	grp.POST("/keys", h.createKey)
	grp.DELETE("/keys/:token", h.deleteKey)
}

func (h *Handler) requirePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader(passwordHeader)
		if h.password == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(h.password)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "admin authentication required",
			})
			return
		}
		c.Next()
	}
}

func (h *Handler) listKeys(c *gin.Context) {
	records, err := h.keys.List(c.Request.Context())
	if err != nil {
		h.logger.Error("admin.list_keys_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	keys := make([]gin.H, 0, len(records))
	for _, rec := range records {
		keys = append(keys, gin.H{
			"token_prefix": tokenPrefix(rec.Token),
			"label":        rec.Label,
			"created_at":   rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "keys": keys})
}

func (h *Handler) createKey(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "label is required"})
		return
	}
	token, err := keystore.GenerateToken()
	if err != nil {
		h.logger.Error("admin.generate_token_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	rec, err := h.keys.Add(c.Request.Context(), token, req.Label)
	if err != nil {
		h.logger.Error("admin.add_key_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	// The full token is shown exactly once, at creation.
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"token":      rec.Token,
		"label":      rec.Label,
		"created_at": rec.CreatedAt,
	})
}

func (h *Handler) deleteKey(c *gin.Context) {
	token := c.Param("token")
	if err := h.keys.Remove(c.Request.Context(), token); err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "key not found"})
			return
		}
		h.logger.Error("admin.remove_key_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
