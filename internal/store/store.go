// Package store persists optimization runs in a SQL database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

//go:embed schema.sql
var Schema string

// MaxList caps the number of rows List returns.
const MaxList = 100

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

// Store is the record store used by the pipeline and the HTTP handlers.
type Store interface {
	Create(ctx context.Context, rec domain.Record) (int64, error)
	Get(ctx context.Context, id int64) (domain.Record, error)
	ListByASIN(ctx context.Context, asin string) ([]domain.Record, error)
	List(ctx context.Context) ([]domain.Record, error)
	History(ctx context.Context, asin string) ([]domain.HistoryEntry, error)
	Close() error
}

// SQLStore implements Store over a single optimizations table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to dsn with the named driver and applies the schema.
// For sqlite, dsn is a file path or ":memory:"; for libsql it is a
// libsql:// or https:// URL, optionally with an authToken query parameter.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "", DriverSQLite:
		db, err = openSQLite(ctx, dsn)
	case DriverLibSQL:
		db, err = sql.Open(DriverLibSQL, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", "driver", driver, "dsn", redactDSN(dsn))
	return New(db), nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	return db, nil
}

// Migrate applies Schema to db. Statements are run one at a time since not
// every driver accepts a multi-statement Exec.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

const recordColumns = `id, asin, region, original_title, original_bullets, original_description,
	optimized_title, optimized_bullets, optimized_description, suggested_keywords, created_at, updated_at`

// Create inserts rec and returns the generated ID. rec.ID is ignored;
// zero timestamps are set to the current time.
func (s *SQLStore) Create(ctx context.Context, rec domain.Record) (int64, error) {
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	region := rec.Original.Region
	if region == "" {
		region = domain.DefaultRegion
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO optimizations (
			asin, region, original_title, original_bullets, original_description,
			optimized_title, optimized_bullets, optimized_description, suggested_keywords,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rec.Original.ASIN,
		string(region),
		rec.Original.Title,
		encodeList(rec.Original.Bullets),
		rec.Original.Description,
		rec.Optimized.Title,
		encodeList(rec.Optimized.Bullets),
		rec.Optimized.Description,
		encodeList(rec.Optimized.Keywords),
		rec.CreatedAt.UnixMilli(),
		rec.UpdatedAt.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return 0, domain.WithTarget(fmt.Errorf("insert optimization: %w", err), rec.Original.ASIN, region, "store")
	}

	logger.DebugContext(ctx, "optimization stored", "id", id, "asin", rec.Original.ASIN, "region", region)
	return id, nil
}

// Get returns the record with the given ID, or a NotFound error.
func (s *SQLStore) Get(ctx context.Context, id int64) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM optimizations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.Errorf(domain.KindNotFound, "store", "optimization %d not found", id)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("get optimization %d: %w", id, err)
	}
	return rec, nil
}

// ListByASIN returns every record for asin, newest first.
func (s *SQLStore) ListByASIN(ctx context.Context, asin string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM optimizations
		WHERE asin = ? ORDER BY created_at DESC, id DESC`, asin)
	if err != nil {
		return nil, fmt.Errorf("list optimizations for %s: %w", asin, err)
	}
	return collectRecords(rows)
}

// List returns the most recent records across all identifiers, capped at
// MaxList.
func (s *SQLStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM optimizations
		ORDER BY created_at DESC, id DESC LIMIT ?`, MaxList)
	if err != nil {
		return nil, fmt.Errorf("list optimizations: %w", err)
	}
	return collectRecords(rows)
}

// History returns the optimized fields of every run for asin, newest first.
func (s *SQLStore) History(ctx context.Context, asin string) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asin, optimized_title, optimized_bullets, optimized_description,
			suggested_keywords, created_at
		FROM optimizations
		WHERE asin = ?
		ORDER BY created_at DESC, id DESC`, asin)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", asin, err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e                 domain.HistoryEntry
			bullets, keywords string
			createdAt         int64
		)
		if err := rows.Scan(&e.ID, &e.ASIN, &e.Title, &bullets, &e.Description, &keywords, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Bullets = DecodeList(bullets)
		e.Keywords = DecodeList(keywords)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var (
		rec                               domain.Record
		region                            string
		origBullets, optBullets, keywords string
		createdAt, updatedAt              int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.Original.ASIN,
		&region,
		&rec.Original.Title,
		&origBullets,
		&rec.Original.Description,
		&rec.Optimized.Title,
		&optBullets,
		&rec.Optimized.Description,
		&keywords,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Record{}, err
	}
	rec.Original.Region = domain.Region(region)
	rec.Original.Bullets = DecodeList(origBullets)
	rec.Optimized.Bullets = DecodeList(optBullets)
	rec.Optimized.Keywords = DecodeList(keywords)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]domain.Record, error) {
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan optimization row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optimization rows: %w", err)
	}
	return records, nil
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// redactDSN drops the query string, which may carry an auth token.
func redactDSN(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		return dsn[:i] + "?redacted"
	}
	return dsn
}
