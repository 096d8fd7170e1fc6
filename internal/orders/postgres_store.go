package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PostgresStore persists order data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed order store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, user_id, items, total_amount, status, payment_method,
		       payment_gateway, provider_order_id, payment_id, shipping_address,
		       created_at, updated_at, completed_at`

func (p *PostgresStore) Create(ctx context.Context, o *Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	var addrJSON []byte
	if o.ShippingAddress != nil {
		addrJSON, err = json.Marshal(o.ShippingAddress)
		if err != nil {
			return err
		}
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, items, total_amount, status, payment_method,
			payment_gateway, provider_order_id, payment_id, shipping_address,
			created_at, updated_at, completed_at
		) VALUES (
			$1, $2, $3, $4::NUMERIC(12,2), $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13
		)`,
		o.ID, o.UserID, itemsJSON, o.TotalAmount, string(o.Status), o.PaymentMethod,
		o.PaymentGateway, nullString(o.ProviderOrderID), nullString(o.PaymentID), nullBytes(addrJSON),
		o.CreatedAt, o.UpdatedAt, nullTime(o.CompletedAt),
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (p *PostgresStore) SetProviderOrder(ctx context.Context, id, providerOrderID string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE orders SET provider_order_id = $2, updated_at = NOW()
		WHERE id = $1`, id, providerOrderID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// CompleteOrder transitions pending → completed with a conditional
// UPDATE so concurrent callbacks settle exactly once.
func (p *PostgresStore) CompleteOrder(ctx context.Context, id, paymentID string) (bool, error) {
	result, err := p.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'completed', payment_id = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, paymentID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return false, nil
	}

	// No transition happened: completed before, missing, or terminal.
	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return false, ErrOrderNotFound
	}
	if err != nil {
		return false, err
	}
	if Status(status) == StatusCompleted {
		return true, nil
	}
	return false, ErrInvalidStatus
}

func (p *PostgresStore) MarkFailed(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrInvalidStatus
	}
	return nil
}

func (p *PostgresStore) Cancel(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrInvalidStatus
	}
	return nil
}

func (p *PostgresStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (p *PostgresStore) FindByProviderOrder(ctx context.Context, providerOrderID string) (*Order, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE provider_order_id = $1`, providerOrderID)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s scanner) (*Order, error) {
	o := &Order{}
	var (
		itemsJSON       []byte
		status          string
		providerOrderID sql.NullString
		paymentID       sql.NullString
		addrJSON        []byte
		completedAt     sql.NullTime
	)

	err := s.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.TotalAmount, &status, &o.PaymentMethod,
		&o.PaymentGateway, &providerOrderID, &paymentID, &addrJSON,
		&o.CreatedAt, &o.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = Status(status)
	o.ProviderOrderID = providerOrderID.String
	o.PaymentID = paymentID.String
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, err
		}
	}
	if len(addrJSON) > 0 {
		o.ShippingAddress = &ShippingAddress{}
		if err := json.Unmarshal(addrJSON, o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	return o, nil
}

// nullString converts an empty Go string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime converts a *time.Time to sql.NullTime.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullBytes maps empty JSON to NULL.
func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
