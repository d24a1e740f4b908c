// Package sqldb implements store.Repository on database/sql. Engine
// differences (placeholders, time encoding, constraint errors) live in a
// Dialect supplied by the sqlite and postgres packages.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cafepos/internal/store"
)

type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// EncodeTime converts a timestamp into the value stored in created_at columns.
	EncodeTime            func(time.Time) any
	IsUniqueViolation     func(error) bool
	IsForeignKeyViolation func(error) bool
	WriteTx               *sql.TxOptions
	ReadTx                *sql.TxOptions
}

func QuestionPlaceholder(int) string { return "?" }

func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	if dialect.Placeholder == nil {
		dialect.Placeholder = QuestionPlaceholder
	}
	if dialect.EncodeTime == nil {
		dialect.EncodeTime = func(t time.Time) any { return t.UTC() }
	}
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? markers into the dialect's placeholders.
func (s *Store) rebind(query string) string {
	if s.dialect.Placeholder == nil || s.dialect.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryAll runs query and calls scan once per row.
func (s *Store) QueryAll(ctx context.Context, q Querier, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// QueryFirst scans the first row into dest and reports whether one existed.
func (s *Store) QueryFirst(ctx context.Context, q Querier, query string, args []any, dest ...any) (bool, error) {
	err := q.QueryRowContext(ctx, s.rebind(query), args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Execute runs a write and returns the number of affected rows.
func (s *Store) Execute(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, s.mapError(err)
	}
	return res.RowsAffected()
}

// WithTransaction runs fn inside a write transaction and commits only when
// fn returns nil.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, s.dialect.WriteTx, fn)
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *Store) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	if s.dialect.IsForeignKeyViolation != nil && s.dialect.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

// timeValue scans created_at columns stored either natively or as text.
type timeValue struct{ t *time.Time }

func (v timeValue) Scan(src any) error {
	switch x := src.(type) {
	case nil:
		*v.t = time.Time{}
	case time.Time:
		*v.t = x.UTC()
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func (v timeValue) parse(raw string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*v.t = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", raw)
}
