package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/foodlens/backend/internal/domain"
)

// SQLiteStore persists product reports and raw upstream records in SQLite
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLiteStore opens the database at path and initializes the schema.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, now: time.Now}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	PRAGMA journal_mode = WAL;

	CREATE TABLE IF NOT EXISTS reports (
		barcode TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		health_score INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		report TEXT NOT NULL,
		analyzed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_analyzed_at ON reports(analyzed_at);

	CREATE TABLE IF NOT EXISTS raw_products (
		barcode TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_raw_products_fetched_at ON raw_products(fetched_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// GetReport returns the stored report for a barcode
func (s *SQLiteStore) GetReport(ctx context.Context, barcode string) (*domain.ProductReport, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE barcode = ?`, barcode,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report domain.ProductReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", barcode, err)
	}
	return &report, nil
}

// SaveReport inserts or replaces the report for its barcode
func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.ProductReport) error {
	if report == nil || report.Barcode == "" {
		return fmt.Errorf("%w: report without barcode", domain.ErrInvalidRequest)
	}

	stored := *report
	stored.Source = ""
	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO reports (barcode, name, health_score, verdict, report, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(barcode) DO UPDATE SET
			name = excluded.name,
			health_score = excluded.health_score,
			verdict = excluded.verdict,
			report = excluded.report,
			analyzed_at = excluded.analyzed_at
	`, report.Barcode, report.Product.Name, report.Highlights.HealthScore,
		string(report.Highlights.Verdict), string(payload), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// SaveRaw stores the upstream record for later inspection
func (s *SQLiteStore) SaveRaw(ctx context.Context, barcode string, raw domain.RawProduct) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw product: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO raw_products (barcode, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(barcode) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, barcode, string(payload), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save raw product: %w", err)
	}
	return nil
}

// GetRaw returns the stored upstream record for a barcode
func (s *SQLiteStore) GetRaw(ctx context.Context, barcode string) (domain.RawProduct, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM raw_products WHERE barcode = ?`, barcode,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query raw product: %w", err)
	}

	var raw domain.RawProduct
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode raw product %s: %w", barcode, err)
	}
	return raw, nil
}

// PruneBefore deletes reports and raw records written before cutoff and
// returns the number of reports removed
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE analyzed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_products WHERE fetched_at < ?`, cutoff.Unix()); err != nil {
		return 0, fmt.Errorf("prune raw products: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// CountReports returns the number of stored reports
func (s *SQLiteStore) CountReports(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}
