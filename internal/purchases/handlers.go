package purchases

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the purchase library.
type Handler struct {
	service *Service
}

// NewHandler creates a new purchases handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up library routes (auth required).
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/library", h.Library)
}

// Library handles GET /v1/library — the caller's owned books.
func (h *Handler) Library(c *gin.Context) {
	userID := c.GetString("authUserID") // set by auth middleware

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	owned, err := h.service.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchases": owned,
		"count":     len(owned),
	})
}
