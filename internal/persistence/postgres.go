package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"banker/internal/account"

	_ "github.com/lib/pq"
)

// PostgresStore persists the Accounts tree to a single table, keyed by
// account key, each row holding the account's own JSON wire form plus
// the snapshot sequence it was written at.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn and verifies connectivity.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// DB exposes the underlying connection.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Close() error { return s.db.Close() }

// SaveAccounts replaces the persisted tree in a single transaction so
// a reader never observes a partially-written snapshot.
func (s *PostgresStore) SaveAccounts(ctx context.Context, seq int64, records []AccountRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persistence: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM banker.accounts`); err != nil {
		return fmt.Errorf("persistence: clear accounts: %w", err)
	}
	for _, rec := range records {
		body, err := json.Marshal(rec.Account)
		if err != nil {
			return fmt.Errorf("persistence: marshal account %q: %w", rec.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO banker.accounts (key, seq, body) VALUES ($1, $2, $3)`,
			rec.Key, seq, body,
		); err != nil {
			return fmt.Errorf("persistence: insert account %q: %w", rec.Key, err)
		}
	}
	return tx.Commit()
}

// LoadAccounts reads every persisted account. All rows share the same
// seq by construction of SaveAccounts.
func (s *PostgresStore) LoadAccounts(ctx context.Context) (int64, []AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, seq, body FROM banker.accounts`)
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
			body []byte
		)
		if err := rows.Scan(&key, &seq, &body); err != nil {
			return 0, nil, fmt.Errorf("persistence: scan account row: %w", err)
		}
		acc := &account.Account{}
		if err := json.Unmarshal(body, acc); err != nil {
			return 0, nil, fmt.Errorf("persistence: unmarshal account %q: %w", key, err)
		}
		records = append(records, AccountRecord{Key: key, Account: acc})
	}
	return seq, records, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
