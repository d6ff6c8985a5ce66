// Package sqldriver implements storage.Driver over database/sql. The sqlite
// and postgres packages open a *sql.DB and hand it to New with their dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Name     string
	BlobType string

	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", BlobType: "BLOB"}
	Postgres = Dialect{Name: "postgres", BlobType: "BYTEA", Numbered: true}
)

// Store implements storage.Driver on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	max     int
	now     func() time.Time
}

// New wraps db and creates the history table if it doesn't exist.
// A non-positive maxEntries uses storage.DefaultMaxEntries.
func New(ctx context.Context, db *sql.DB, dialect Dialect, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = storage.DefaultMaxEntries
	}

	s := &Store{db: db, dialect: dialect, max: maxEntries, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id BIGINT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		image ` + s.dialect.BlobType + `,
		problem TEXT NOT NULL,
		solution TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		chat TEXT NOT NULL,
		model TEXT NOT NULL,
		verification TEXT
	)`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func (s *Store) Add(ctx context.Context, e *storage.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}

	chatJSON, err := marshalChat(e.Chat)
	if err != nil {
		return err
	}
	verification, err := marshalVerification(e.Verification)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var latest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(id) FROM history`).Scan(&latest); err != nil {
		return fmt.Errorf("failed to read latest id: %w", err)
	}
	if e.ID == 0 || e.ID <= latest.Int64 {
		e.ID = storage.NextID(s.now(), latest.Int64)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.UnixMilli(e.ID)
	}

	insert := s.rebind(`INSERT INTO history
		(id, created_at, image, problem, solution, reasoning, chat, model, verification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert,
		e.ID, e.CreatedAt.UnixMilli(), e.Image, e.Problem, e.Solution,
		e.Reasoning, chatJSON, e.Model, verification,
	); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	evict := s.rebind(`DELETE FROM history WHERE id NOT IN
		(SELECT id FROM (SELECT id FROM history ORDER BY id DESC LIMIT ?) AS kept)`)
	if _, err := tx.ExecContext(ctx, evict, s.max); err != nil {
		return fmt.Errorf("failed to evict entries: %w", err)
	}

	return tx.Commit()
}

const selectColumns = `SELECT id, created_at, image, problem, solution, reasoning, chat, model, verification FROM history`

func (s *Store) Get(ctx context.Context, id int64) (*storage.Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	return e, err
}

func (s *Store) Latest(ctx context.Context) (*storage.Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` ORDER BY id DESC LIMIT 1`)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{}
	}
	return e, err
}

func (s *Store) List(ctx context.Context) ([]*storage.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []*storage.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) UpdateChat(ctx context.Context, id int64, chat []llm.ChatMessage) error {
	chatJSON, err := marshalChat(chat)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE history SET chat = ? WHERE id = ?`, chatJSON, id)
}

func (s *Store) UpdateLatestChat(ctx context.Context, chat []llm.ChatMessage) error {
	latest, err := s.Latest(ctx)
	if err != nil {
		return err
	}
	return s.UpdateChat(ctx, latest.ID, chat)
}

func (s *Store) SetVerification(ctx context.Context, id int64, v *llm.Verification) error {
	verification, err := marshalVerification(v)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE history SET verification = ? WHERE id = ?`, verification, id)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, id, `DELETE FROM history WHERE id = ?`, id)
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// exec runs a statement that targets exactly the entry id.
func (s *Store) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*storage.Entry, error) {
	var (
		e            storage.Entry
		createdAt    int64
		chatJSON     string
		verification sql.NullString
	)

	err := row.Scan(&e.ID, &createdAt, &e.Image, &e.Problem, &e.Solution,
		&e.Reasoning, &chatJSON, &e.Model, &verification)
	if err != nil {
		return nil, err
	}

	e.CreatedAt = time.UnixMilli(createdAt)
	if err := json.Unmarshal([]byte(chatJSON), &e.Chat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat: %w", err)
	}
	if verification.Valid {
		e.Verification = &llm.Verification{}
		if err := json.Unmarshal([]byte(verification.String), e.Verification); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verification: %w", err)
		}
	}
	return &e, nil
}

func marshalChat(chat []llm.ChatMessage) (string, error) {
	if chat == nil {
		chat = []llm.ChatMessage{}
	}
	b, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat: %w", err)
	}
	return string(b), nil
}

func marshalVerification(v *llm.Verification) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal verification: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
