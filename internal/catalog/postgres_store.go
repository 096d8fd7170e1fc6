package catalog

import (
	"context"
	"database/sql"
)

// PostgresStore persists catalog data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed catalog store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const bookColumns = `id, title, author, author_id, price, description, category, cover_type,
		       stock, reorder_point, sales, revenue, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, b *Book) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO books (
			id, title, author, author_id, price, description, category, cover_type,
			stock, reorder_point, sales, revenue, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::NUMERIC(12,2), $6, $7, $8,
			$9, $10, $11, $12::NUMERIC(14,2), $13, $14
		)`,
		b.ID, b.Title, b.Author, nullString(b.AuthorID), b.Price,
		nullString(b.Description), nullString(b.Category), nullString(b.CoverType),
		b.Stock, b.ReorderPoint, b.Sales, b.Revenue, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Book, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookNotFound
	}
	return b, err
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Book, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanBooks(rows)
}

func (p *PostgresStore) Update(ctx context.Context, b *Book) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE books SET
			title = $1, author = $2, author_id = $3, price = $4::NUMERIC(12,2),
			description = $5, category = $6, cover_type = $7,
			stock = $8, reorder_point = $9, updated_at = $10
		WHERE id = $11`,
		b.Title, b.Author, nullString(b.AuthorID), b.Price,
		nullString(b.Description), nullString(b.Category), nullString(b.CoverType),
		b.Stock, b.ReorderPoint, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookNotFound
	}
	return nil
}

// DecrementStock relies on the conditional UPDATE for atomicity under
// concurrent checkouts: the row only changes when stock covers qty.
func (p *PostgresStore) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	result, err := p.db.ExecContext(ctx, `
		UPDATE books
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// Distinguish a missing book from insufficient stock.
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrBookNotFound
		}
		return false, nil
	}
	return true, nil
}

func (p *PostgresStore) AddSales(ctx context.Context, id string, qty int, revenue float64) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE books
		SET sales = sales + $2, revenue = revenue + $3::NUMERIC(14,2), updated_at = NOW()
		WHERE id = $1`, id, qty, revenue)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (p *PostgresStore) ListLowStock(ctx context.Context, limit int) ([]*Book, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE stock <= reorder_point
		ORDER BY stock ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanBooks(rows)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(s scanner) (*Book, error) {
	b := &Book{}
	var (
		authorID    sql.NullString
		description sql.NullString
		category    sql.NullString
		coverType   sql.NullString
	)

	err := s.Scan(
		&b.ID, &b.Title, &b.Author, &authorID, &b.Price,
		&description, &category, &coverType,
		&b.Stock, &b.ReorderPoint, &b.Sales, &b.Revenue,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.AuthorID = authorID.String
	b.Description = description.String
	b.Category = category.String
	b.CoverType = coverType.String
	return b, nil
}

func scanBooks(rows *sql.Rows) ([]*Book, error) {
	var result []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// nullString converts an empty Go string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
