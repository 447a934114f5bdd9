package userstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLStore implements Store over database/sql. The SQL sticks to $n
// placeholders and ON CONFLICT upserts, which both lib/pq and
// mattn/go-sqlite3 accept.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the users table DDL for the given driver.
func Schema(driver string) string {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			%s,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, idColumn)
}

// Migrate creates the users table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context, driver string) error {
	if _, err := s.db.ExecContext(ctx, Schema(driver)); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// Get returns the record for username, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, first_name, last_name, created_at, updated_at
		FROM users WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// Upsert creates or overwrites the record keyed by username. Fields
// present in the map are written; on an existing row, absent fields
// keep their stored values.
func (s *SQLStore) Upsert(ctx context.Context, username string, fields Fields) (*User, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	// Conflict clause only overwrites the columns the mapper produced.
	setClauses := []string{"updated_at = $5"}
	for _, column := range []string{"email", "first_name", "last_name"} {
		if _, ok := fields[column]; ok {
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
		}
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO users (username, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (username) DO UPDATE SET %s
	`, strings.Join(setClauses, ", "))

	_, err := s.db.ExecContext(ctx, query,
		username, fields["email"], fields["first_name"], fields["last_name"], now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.Get(ctx, username)
}

// Save writes an existing record back in place.
func (s *SQLStore) Save(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, updated_at = $4
		WHERE username = $5
	`, user.Email, user.FirstName, user.LastName, now, user.Username)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

var _ Store = (*SQLStore)(nil)
