package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/cashtrackr/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// NewUser holds the fields required to insert a user.
type NewUser struct {
	Name           string
	Lastname       string
	Email          string
	Password       string
	Token          string
	TokenExpiresAt *time.Time
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var confirmed int
	var expiresAt sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.Name, &u.Lastname, &u.Email, &u.Password,
		&confirmed, &u.Token, &expiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Confirmed = confirmed != 0
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0).UTC()
		u.TokenExpiresAt = &t
	}
	return &u, nil
}

const userCols = `id, name, lastname, email, password, confirmed, token, token_expires_at, created_at, updated_at`

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// Create inserts an unconfirmed user. It returns ErrDuplicateEmail or
// ErrTokenTaken when the corresponding unique index rejects the row.
func (s *UserStore) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, lastname, email, password, token, token_expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nu.Name, nu.Lastname, nu.Email, nu.Password, nu.Token, unixOrNull(nu.TokenExpiresAt),
	)
	switch {
	case uniqueViolation(err, "users.email"):
		return nil, ErrDuplicateEmail
	case uniqueViolation(err, "users.token"):
		return nil, ErrTokenTaken
	case err != nil:
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByToken returns the user holding a pending, unexpired token, or nil.
// An empty token never matches.
func (s *UserStore) GetByToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE token = ? AND (token_expires_at IS NULL OR token_expires_at > ?)`,
		token, time.Now().Unix(),
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	return u, nil
}

// SetToken overwrites any pending token for the user.
func (s *UserStore) SetToken(ctx context.Context, id int64, token string, expiresAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET token = ?, token_expires_at = ? WHERE id = ?`,
		token, unixOrNull(expiresAt), id,
	)
	if uniqueViolation(err, "users.token") {
		return ErrTokenTaken
	}
	if err != nil {
		return fmt.Errorf("set user token: %w", err)
	}
	return nil
}

// Confirm marks the account confirmed and clears its token.
func (s *UserStore) Confirm(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, token = '', token_expires_at = NULL WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash. When clearToken is set the
// pending token is consumed in the same statement.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, hash string, clearToken bool) error {
	query := `UPDATE users SET password = ? WHERE id = ?`
	if clearToken {
		query = `UPDATE users SET password = ?, token = '', token_expires_at = NULL WHERE id = ?`
	}
	if _, err := s.db.ExecContext(ctx, query, hash, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id int64, name, lastname, email string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, lastname = ?, email = ? WHERE id = ?`,
		name, lastname, email, id,
	)
	if uniqueViolation(err, "users.email") {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ClearExpiredTokens drops tokens whose expiry has passed and returns how
// many were cleared.
func (s *UserStore) ClearExpiredTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET token = '', token_expires_at = NULL WHERE token <> '' AND token_expires_at IS NOT NULL AND token_expires_at <= ?`,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
