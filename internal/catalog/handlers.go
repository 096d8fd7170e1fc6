package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookvault/internal/validation"
)

// Handler provides HTTP endpoints for the catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/books", h.ListBooks)
	r.GET("/books/:id", h.GetBook)
}

// RegisterProtectedRoutes sets up author/admin catalog routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/books", h.CreateBook)
	r.PUT("/books/:id", h.UpdateBook)
	r.GET("/books/low-stock", h.ListLowStock)
}

// CreateBook handles POST /v1/books
func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("title", req.Title),
		validation.Required("author", req.Author),
		validation.MaxLength("title", req.Title, 500),
		validation.MaxLength("description", req.Description, validation.MaxStringLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	req.Title = validation.SanitizeString(req.Title, 500)
	req.Description = validation.SanitizeString(req.Description, validation.MaxStringLength)

	book, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidBook) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_book", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create book",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"book": book})
}

// GetBook handles GET /v1/books/:id
func (h *Handler) GetBook(c *gin.Context) {
	id := c.Param("id")

	book, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Book not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"book": book})
}

// ListBooks handles GET /v1/books
func (h *Handler) ListBooks(c *gin.Context) {
	limit := parseLimit(c, 50)

	books, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// UpdateBook handles PUT /v1/books/:id
func (h *Handler) UpdateBook(c *gin.Context) {
	id := c.Param("id")

	book, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	book.Title = validation.SanitizeString(req.Title, 500)
	book.Author = req.Author
	book.Price = req.Price
	book.Description = validation.SanitizeString(req.Description, validation.MaxStringLength)
	book.Category = req.Category
	book.CoverType = req.CoverType
	book.Stock = req.Stock
	if req.ReorderPoint > 0 {
		book.ReorderPoint = req.ReorderPoint
	}

	if err := h.service.Update(c.Request.Context(), book); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to update book",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"book": book})
}

// ListLowStock handles GET /v1/books/low-stock
func (h *Handler) ListLowStock(c *gin.Context) {
	limit := parseLimit(c, 50)

	books, err := h.service.LowStock(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

func parseLimit(c *gin.Context, def int) int {
	limit := def
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 200 {
				limit = 200
			}
		}
	}
	return limit
}
