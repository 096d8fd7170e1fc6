package users

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists user data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, phone,
		       total_sales, total_revenue, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (
			id, first_name, last_name, email, password_hash, role, phone,
			total_sales, total_revenue, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::NUMERIC(14,2), $10, $11)`,
		u.ID, u.FirstName, u.LastName, strings.ToLower(u.Email), u.PasswordHash,
		u.Role, nullString(u.Phone), u.TotalSales, u.TotalRevenue, u.CreatedAt, u.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (p *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (p *PostgresStore) Update(ctx context.Context, u *User) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE users SET
			first_name = $1, last_name = $2, role = $3, phone = $4, updated_at = $5
		WHERE id = $6`,
		u.FirstName, u.LastName, u.Role, nullString(u.Phone), u.UpdatedAt, u.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresStore) AddAuthorSales(ctx context.Context, authorID string, qty int, revenue float64) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE users
		SET total_sales = total_sales + $2,
		    total_revenue = total_revenue + $3::NUMERIC(14,2),
		    updated_at = NOW()
		WHERE id = $1`, authorID, qty, revenue)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var phone sql.NullString

	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &phone,
		&u.TotalSales, &u.TotalRevenue, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	return u, nil
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
