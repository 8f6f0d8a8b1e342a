package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"banker/internal/account"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a pluggable local/dev backing store for the same
// Store interface PostgresStore implements, using the pure-Go
// modernc.org/sqlite driver so it needs no cgo toolchain to run a
// single-node banker for development or integration tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path (":memory:" for an ephemeral store) and
// creates the accounts table if it doesn't already exist.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			key  TEXT PRIMARY KEY,
			seq  INTEGER NOT NULL,
			body TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: create accounts table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveAccounts(ctx context.Context, seq int64, records []AccountRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persistence: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("persistence: clear accounts: %w", err)
	}
	for _, rec := range records {
		body, err := json.Marshal(rec.Account)
		if err != nil {
			return fmt.Errorf("persistence: marshal account %q: %w", rec.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (key, seq, body) VALUES (?, ?, ?)`,
			rec.Key, seq, string(body),
		); err != nil {
			return fmt.Errorf("persistence: insert account %q: %w", rec.Key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadAccounts(ctx context.Context) (int64, []AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, seq, body FROM accounts`)
	if err != nil {
		return 0, nil, fmt.Errorf("persistence: query accounts: %w", err)
	}
	defer rows.Close()

	var (
		seq     int64
		records []AccountRecord
	)
	for rows.Next() {
		var (
			key  string
			body string
		)
		if err := rows.Scan(&key, &seq, &body); err != nil {
			return 0, nil, fmt.Errorf("persistence: scan account row: %w", err)
		}
		acc := &account.Account{}
		if err := json.Unmarshal([]byte(body), acc); err != nil {
			return 0, nil, fmt.Errorf("persistence: unmarshal account %q: %w", key, err)
		}
		records = append(records, AccountRecord{Key: key, Account: acc})
	}
	return seq, records, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
