// Package sqlstore is a goGuard.AccountRepository on database/sql. It runs
// on PostgreSQL through the pgx stdlib driver and on SQLite through the
// pure-Go modernc driver, with the schema managed by embedded goose
// migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	goGuard "github.com/MrEthical07/goGuard"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	// Postgres uses the pgx stdlib driver and $n placeholders.
	Postgres Dialect = "pgx"
	// SQLite uses the modernc driver and ? placeholders.
	SQLite Dialect = "sqlite"
)

const pgUniqueViolation = "23505"

func (d Dialect) goose() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// ParseDialect maps a configuration value onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unknown dialect %q", s)
	}
}

// Store implements goGuard.AccountRepository.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ goGuard.AccountRepository = (*Store)(nil)

// New wraps an open database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects with the driver for dialect, verifies the connection and
// applies pending migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, dialect), nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchAccount implements goGuard.AccountRepository.
func (s *Store) FetchAccount(ctx context.Context, username string) (goGuard.Account, error) {
	query := s.rebind(`SELECT username, email, password_hash, role, created_at, last_login, active
		FROM accounts WHERE username = ?`)

	var (
		a         goGuard.Account
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&a.Username, &a.Email, &a.PasswordHash, &a.Role, &createdAt, &lastLogin, &a.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return goGuard.Account{}, goGuard.ErrAccountNotFound
	}
	if err != nil {
		return goGuard.Account{}, fmt.Errorf("failed to fetch account: %w", err)
	}

	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	if lastLogin.Valid {
		a.LastLogin = time.UnixMilli(lastLogin.Int64).UTC()
	}
	return a, nil
}

// UpdateLastLogin implements goGuard.AccountRepository.
func (s *Store) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	return s.exec(ctx, "update last login",
		`UPDATE accounts SET last_login = ? WHERE username = ?`, at.UnixMilli(), username)
}

// UpdateCredential implements goGuard.AccountRepository.
func (s *Store) UpdateCredential(ctx context.Context, username, passwordHash string) error {
	return s.exec(ctx, "update credential",
		`UPDATE accounts SET password_hash = ? WHERE username = ?`, passwordHash, username)
}

// SetActive toggles the active flag.
func (s *Store) SetActive(ctx context.Context, username string, active bool) error {
	return s.exec(ctx, "set active",
		`UPDATE accounts SET active = ? WHERE username = ?`, active, username)
}

// CreateAccount implements goGuard.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, in goGuard.CreateAccountInput) (goGuard.Account, error) {
	query := s.rebind(`INSERT INTO accounts (username, email, password_hash, role, created_at, active)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		in.Username, in.Email, in.PasswordHash, in.Role, in.CreatedAt.UnixMilli(), true,
	)
	if isUniqueViolation(err) {
		return goGuard.Account{}, goGuard.ErrAccountExists
	}
	if err != nil {
		return goGuard.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return goGuard.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    time.UnixMilli(in.CreatedAt.UnixMilli()).UTC(),
		Active:       true,
	}, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return goGuard.ErrAccountNotFound
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
