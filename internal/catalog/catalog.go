// Package catalog manages the book inventory: metadata, pricing,
// stock, and per-title sales aggregates.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookvault/internal/idgen"
	"bookvault/internal/metrics"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidBook       = errors.New("invalid book")
)

// DefaultReorderPoint is applied when a book is created without one.
const DefaultReorderPoint = 5

// Book is a catalog entry. Sales and Revenue are lifetime aggregates
// maintained by the payment reconciler.
type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	AuthorID     string    `json:"authorId,omitempty"`
	Price        float64   `json:"price"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	CoverType    string    `json:"coverType,omitempty"`
	Stock        int       `json:"stock"`
	ReorderPoint int       `json:"reorderPoint"`
	Sales        int       `json:"sales"`
	Revenue      float64   `json:"revenue"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NeedsReorder reports whether stock has fallen to the reorder point.
func (b *Book) NeedsReorder() bool {
	return b.Stock <= b.ReorderPoint
}

// Store persists catalog data.
type Store interface {
	Create(ctx context.Context, book *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	List(ctx context.Context, limit int) ([]*Book, error)
	Update(ctx context.Context, book *Book) error
	// DecrementStock atomically reduces stock by qty. Returns false
	// without modifying anything when remaining stock is insufficient.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	// AddSales accumulates per-title sales count and revenue.
	AddSales(ctx context.Context, id string, qty int, revenue float64) error
	ListLowStock(ctx context.Context, limit int) ([]*Book, error)
}

// CreateRequest contains the parameters for adding a book.
type CreateRequest struct {
	Title        string  `json:"title" binding:"required"`
	Author       string  `json:"author" binding:"required"`
	AuthorID     string  `json:"authorId"`
	Price        float64 `json:"price" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	CoverType    string  `json:"coverType"`
	Stock        int     `json:"stock"`
	ReorderPoint int     `json:"reorderPoint"`
}

// Service implements catalog business logic.
type Service struct {
	store Store
}

// NewService creates a new catalog service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds a book to the catalog.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Book, error) {
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidBook)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidBook)
	}

	reorder := req.ReorderPoint
	if reorder <= 0 {
		reorder = DefaultReorderPoint
	}

	now := time.Now()
	book := &Book{
		ID:           idgen.WithPrefix("bk_"),
		Title:        req.Title,
		Author:       req.Author,
		AuthorID:     req.AuthorID,
		Price:        req.Price,
		Description:  req.Description,
		Category:     req.Category,
		CoverType:    req.CoverType,
		Stock:        req.Stock,
		ReorderPoint: reorder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return book, nil
}

// Get returns a book by ID.
func (s *Service) Get(ctx context.Context, id string) (*Book, error) {
	return s.store.Get(ctx, id)
}

// List returns catalog entries.
func (s *Service) List(ctx context.Context, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, limit)
}

// Update replaces mutable book fields.
func (s *Service) Update(ctx context.Context, book *Book) error {
	book.UpdatedAt = time.Now()
	return s.store.Update(ctx, book)
}

// LowStock returns books at or below their reorder point and refreshes
// the low-stock gauge.
func (s *Service) LowStock(ctx context.Context, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = 50
	}
	books, err := s.store.ListLowStock(ctx, limit)
	if err != nil {
		return nil, err
	}
	metrics.BooksLowStock.Set(float64(len(books)))
	return books, nil
}
