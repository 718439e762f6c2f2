package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"covid-risk-areas/areas"
	"covid-risk-areas/models"
)

// Dialect selects the placeholder style of a SQLStore.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// SQLStore persists snapshots and fixes in PostgreSQL or SQLite. Area lists
// are stored as JSON text so both engines share one schema.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id        TEXT    PRIMARY KEY,
		create_ms BIGINT  NOT NULL,
		update_ms BIGINT  NOT NULL UNIQUE,
		high      TEXT    NOT NULL,
		middle    TEXT    NOT NULL,
		download  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_create ON snapshots(create_ms)`,
	`CREATE TABLE IF NOT EXISTS area_fixes (
		address  TEXT    PRIMARY KEY,
		position INTEGER NOT NULL,
		data     TEXT    NOT NULL,
		fix      TEXT    NOT NULL
	)`,
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &SQLStore{db: db, dialect: Postgres}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

// NewSQLiteStore opens (or creates) the SQLite database at path and runs
// schema migrations.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, dialect: SQLite}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) name() string {
	if s.dialect == Postgres {
		return "postgres"
	}
	return "sqlite"
}

func (s *SQLStore) Latest(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	query := `SELECT id, create_ms, update_ms, high, middle, download FROM snapshots ORDER BY create_ms DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: latest: %w", s.name(), err)
	}
	defer rows.Close()

	var out []*models.Snapshot
	for rows.Next() {
		var (
			snap         models.Snapshot
			high, middle string
		)
		if err := rows.Scan(&snap.ID, &snap.Create, &snap.Update, &high, &middle, &snap.Download); err != nil {
			return nil, fmt.Errorf("%s: scan snapshot: %w", s.name(), err)
		}
		if err := json.Unmarshal([]byte(high), &snap.High); err != nil {
			return nil, fmt.Errorf("%s: decode high areas of %s: %w", s.name(), snap.ID, err)
		}
		if err := json.Unmarshal([]byte(middle), &snap.Middle); err != nil {
			return nil, fmt.Errorf("%s: decode middle areas of %s: %w", s.name(), snap.ID, err)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: latest: %w", s.name(), err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLStore) Save(ctx context.Context, snap *models.Snapshot) error {
	id := snap.ID
	if id == "" {
		id = uuid.NewString()
	}
	high, err := json.Marshal(nonNil(snap.High))
	if err != nil {
		return fmt.Errorf("%s: encode high areas: %w", s.name(), err)
	}
	middle, err := json.Marshal(nonNil(snap.Middle))
	if err != nil {
		return fmt.Errorf("%s: encode middle areas: %w", s.name(), err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshots (id, create_ms, update_ms, high, middle, download)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (update_ms) DO UPDATE SET
			id = excluded.id,
			create_ms = excluded.create_ms,
			high = excluded.high,
			middle = excluded.middle,
			download = excluded.download
	`), id, snap.Create, snap.Update, string(high), string(middle), snap.Download)
	if err != nil {
		return fmt.Errorf("%s: save snapshot: %w", s.name(), err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM snapshots WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%s: delete snapshot: %w", s.name(), err)
	}
	return expectRows(res)
}

func (s *SQLStore) MarkDownloaded(ctx context.Context, create int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE snapshots SET download = TRUE WHERE create_ms = ?`), create)
	if err != nil {
		return fmt.Errorf("%s: mark downloaded: %w", s.name(), err)
	}
	return expectRows(res)
}

func (s *SQLStore) Fixes(ctx context.Context) ([]models.AreaFix, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data, fix FROM area_fixes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch fixes: %w", s.name(), err)
	}
	defer rows.Close()

	fixes := []models.AreaFix{}
	for rows.Next() {
		var data, fix string
		if err := rows.Scan(&data, &fix); err != nil {
			return nil, fmt.Errorf("%s: scan fix: %w", s.name(), err)
		}
		var f models.AreaFix
		if err := json.Unmarshal([]byte(data), &f.Data); err != nil {
			return nil, fmt.Errorf("%s: decode fix data: %w", s.name(), err)
		}
		if err := json.Unmarshal([]byte(fix), &f.Fix); err != nil {
			return nil, fmt.Errorf("%s: decode fix: %w", s.name(), err)
		}
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

func (s *SQLStore) SaveFixes(ctx context.Context, fixes []models.AreaFix) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.name(), err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM area_fixes`); err != nil {
		return fmt.Errorf("%s: clear fixes: %w", s.name(), err)
	}

	insert := s.rebind(`INSERT INTO area_fixes (address, position, data, fix) VALUES (?, ?, ?, ?)`)
	for i, f := range fixes {
		data, err := json.Marshal(f.Data)
		if err != nil {
			return fmt.Errorf("%s: encode fix data: %w", s.name(), err)
		}
		fix, err := json.Marshal(f.Fix)
		if err != nil {
			return fmt.Errorf("%s: encode fix: %w", s.name(), err)
		}
		if _, err := tx.ExecContext(ctx, insert, areas.Address(f.Data), i, string(data), string(fix)); err != nil {
			return fmt.Errorf("%s: insert fix: %w", s.name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit fixes: %w", s.name(), err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(list []models.Area) []models.Area {
	if list == nil {
		return []models.Area{}
	}
	return list
}
