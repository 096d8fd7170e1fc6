package purchases

import (
	"context"
	"database/sql"
)

// PostgresStore persists purchase records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed purchase store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record inserts a purchase; the (user_id, book_id) primary key plus
// ON CONFLICT DO NOTHING makes retries idempotent.
func (p *PostgresStore) Record(ctx context.Context, pu *Purchase) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO purchases (user_id, book_id, order_id, purchased_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, book_id) DO NOTHING`,
		pu.UserID, pu.BookID, pu.OrderID, pu.PurchasedAt,
	)
	return err
}

func (p *PostgresStore) HasPurchased(ctx context.Context, userID, bookID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = $1 AND book_id = $2)`,
		userID, bookID).Scan(&exists)
	return exists, err
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Purchase, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, book_id, order_id, purchased_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY purchased_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Purchase
	for rows.Next() {
		pu := &Purchase{}
		if err := rows.Scan(&pu.UserID, &pu.BookID, &pu.OrderID, &pu.PurchasedAt); err != nil {
			return nil, err
		}
		result = append(result, pu)
	}
	return result, rows.Err()
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
