// Package sqlite provides the session-private ledger backed by a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

const cursorKey = "next_page"

// Ledger implements storage.Ledger on a single SQLite database file.
type Ledger struct {
	db   *sql.DB
	path string
}

// OpenLedger opens or creates the ledger at path.
func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer per session
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	l := &Ledger{db: db, path: path}
	if err := l.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transfers (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			signature      TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			token          TEXT NOT NULL,
			amount         REAL NOT NULL,
			action         TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
			source         TEXT,
			destination    TEXT,
			token_symbol   TEXT,
			token_name     TEXT,
			decimals       INTEGER,
			amount_human   REAL,
			price_usd      REAL,
			amount_usd     REAL,
			market_cap_usd REAL
		)`,
		`CREATE TABLE IF NOT EXISTS progress (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_token ON transfers(token)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_timestamp ON transfers(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CommitPage appends the page's transfers and the next cursor atomically.
func (l *Ledger) CommitPage(ctx context.Context, transfers []domain.Transfer, nextPage int) error {
	if nextPage < 1 {
		return storage.ErrInvalidInput
	}
	for _, t := range transfers {
		if !t.Action.Valid() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin page commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transfers (signature, timestamp, token, amount, action, source, destination)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range transfers {
		if _, err := stmt.ExecContext(ctx, t.Signature, t.Timestamp, t.Token, t.Amount,
			string(t.Action), t.Source, t.Destination); err != nil {
			return fmt.Errorf("insert transfer %s: %w", t.Signature, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO progress (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, cursorKey, nextPage); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	return nil
}

// NextPage returns the persisted cursor, 1 if none.
func (l *Ledger) NextPage(ctx context.Context) (int, error) {
	var page int
	err := l.db.QueryRowContext(ctx, `SELECT value FROM progress WHERE key = ?`, cursorKey).Scan(&page)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return page, nil
}

// Count returns the number of rows.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return n, nil
}

// TimeRange returns the first and last timestamps.
func (l *Ledger) TimeRange(ctx context.Context) (int64, int64, bool, error) {
	var first, last sql.NullInt64
	err := l.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM transfers`).Scan(&first, &last)
	if err != nil {
		return 0, 0, false, fmt.Errorf("time range: %w", err)
	}
	if !first.Valid {
		return 0, 0, false, nil
	}
	return first.Int64, last.Int64, true, nil
}

// DistinctTokens returns token addresses ordered by first appearance.
func (l *Ledger) DistinctTokens(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT token FROM transfers
		WHERE token != ''
		GROUP BY token
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("distinct tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// ApplyMetadata writes token identity and amount_human for the token's rows.
func (l *Ledger) ApplyMetadata(ctx context.Context, meta domain.TokenMetadata) (int64, error) {
	if meta.Address == "" || meta.Decimals < 0 {
		return 0, storage.ErrInvalidInput
	}
	divisor := math.Pow(10, float64(meta.Decimals))
	res, err := l.db.ExecContext(ctx, `
		UPDATE transfers
		SET token_symbol = ?, token_name = ?, decimals = ?, amount_human = amount / ?
		WHERE token = ?`,
		meta.Symbol, meta.Name, meta.Decimals, divisor, meta.Address)
	if err != nil {
		return 0, fmt.Errorf("apply metadata %s: %w", meta.Address, err)
	}
	return res.RowsAffected()
}

// Unpriced returns rows with decimals and no price.
func (l *Ledger) Unpriced(ctx context.Context) ([]domain.EnrichedTransfer, error) {
	return l.query(ctx, `WHERE price_usd IS NULL AND decimals IS NOT NULL`)
}

// ApplyPrice prices the given rows in one transaction.
func (l *Ledger) ApplyPrice(ctx context.Context, rowIDs []int64, priceUSD, marketCapUSD float64) error {
	if len(rowIDs) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE transfers
		SET price_usd = ?, amount_usd = amount_human * ?, market_cap_usd = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare price update: %w", err)
	}
	defer stmt.Close()

	for _, id := range rowIDs {
		if _, err := stmt.ExecContext(ctx, priceUSD, priceUSD, marketCapUSD, id); err != nil {
			return fmt.Errorf("price row %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// Load returns all rows ordered by timestamp.
func (l *Ledger) Load(ctx context.Context) ([]domain.EnrichedTransfer, error) {
	return l.query(ctx, "")
}

// Retain deletes every row not listed in keep.
func (l *Ledger) Retain(ctx context.Context, keep []int64) error {
	if len(keep) == 0 {
		if _, err := l.db.ExecContext(ctx, `DELETE FROM transfers`); err != nil {
			return fmt.Errorf("retain: %w", err)
		}
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM transfers WHERE id NOT IN (%s)`, placeholders)
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("retain: %w", err)
	}
	return nil
}

func (l *Ledger) query(ctx context.Context, where string) ([]domain.EnrichedTransfer, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, signature, timestamp, token, amount, action, source, destination,
		       token_symbol, token_name, decimals, amount_human, price_usd, amount_usd, market_cap_usd
		FROM transfers `+where+`
		ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	result := []domain.EnrichedTransfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTransfer(rows *sql.Rows) (domain.EnrichedTransfer, error) {
	var (
		t                                  domain.EnrichedTransfer
		action                             string
		source, destination, symbol, name  sql.NullString
		decimals                           sql.NullInt64
		human, price, amountUSD, marketCap sql.NullFloat64
	)
	if err := rows.Scan(&t.RowID, &t.Signature, &t.Timestamp, &t.Token, &t.Amount, &action,
		&source, &destination, &symbol, &name, &decimals, &human, &price, &amountUSD, &marketCap); err != nil {
		return t, fmt.Errorf("scan transfer: %w", err)
	}

	a, err := domain.ParseAction(action)
	if err != nil {
		return t, err
	}
	t.Action = a
	t.Source = source.String
	t.Destination = destination.String
	t.Symbol = nullString(symbol)
	t.Name = nullString(name)
	if decimals.Valid {
		d := int(decimals.Int64)
		t.Decimals = &d
	}
	t.AmountHuman = nullFloat(human)
	t.PriceUSD = nullFloat(price)
	t.AmountUSD = nullFloat(amountUSD)
	t.MarketCapUSD = nullFloat(marketCap)
	return t, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ storage.Ledger = (*Ledger)(nil)
