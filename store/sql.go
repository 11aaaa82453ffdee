package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const table = "stat_records"

var columns = []string{
	"id",
	"resource_id",
	"file_name",
	"language_code",
	"language",
	"translated",
	"fuzzy",
	"untranslated",
	"total",
	"percent",
	"had_error",
	"merged",
	"updated_at",
}

// SQL is a Repository backed by SQLite or PostgreSQL.
type SQL struct {
	DB *sqlx.DB
	SQ sq.StatementBuilderType
}

// placeholderFormat returns the bind parameter style of driver.
func placeholderFormat(driver string) (sq.PlaceholderFormat, error) {
	switch driver {
	case "sqlite3":
		return sq.Question, nil
	case "postgres":
		return sq.Dollar, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Open connects to driver ("sqlite3" or "postgres") and applies the
// embedded migrations.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	format, err := placeholderFormat(driver)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		if dir := filepath.Dir(dsn); dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("make db dir: %w", err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// One connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma journal_mode: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	s := &SQL{DB: db, SQ: sq.StatementBuilder.PlaceholderFormat(format)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.DB.Close()
}

func (s *SQL) migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        name TEXT PRIMARY KEY,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		applied, err := s.isApplied(ctx, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.DB.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		sqlStr, args, _ := s.SQ.Insert("schema_migrations").Columns("name", "applied_at").
			Values(name, time.Now().UTC().Format(time.RFC3339)).ToSql()
		if _, err := s.DB.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQL) isApplied(ctx context.Context, name string) (bool, error) {
	sqlStr, args, _ := s.SQ.Select("1").From("schema_migrations").Where(sq.Eq{"name": name}).ToSql()
	var n int
	err := s.DB.GetContext(ctx, &n, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return true, nil
}

type recordRow struct {
	ID           string         `db:"id"`
	ResourceID   string         `db:"resource_id"`
	FileName     string         `db:"file_name"`
	LanguageCode string         `db:"language_code"`
	Language     sql.NullString `db:"language"`
	Translated   int            `db:"translated"`
	Fuzzy        int            `db:"fuzzy"`
	Untranslated int            `db:"untranslated"`
	Total        int            `db:"total"`
	Percent      int            `db:"percent"`
	HadError     bool           `db:"had_error"`
	Merged       bool           `db:"merged"`
	UpdatedAt    string         `db:"updated_at"`
}

func (row *recordRow) record() (*Record, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("record id %q: %w", row.ID, err)
	}
	rec := &Record{
		ID:           id,
		ResourceID:   row.ResourceID,
		FileName:     row.FileName,
		LanguageCode: row.LanguageCode,
		Translated:   row.Translated,
		Fuzzy:        row.Fuzzy,
		Untranslated: row.Untranslated,
		Total:        row.Total,
		Percent:      row.Percent,
		HadError:     row.HadError,
		Merged:       row.Merged,
	}
	if row.Language.Valid {
		lang := row.Language.String
		rec.Language = &lang
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, row.UpdatedAt)
	return rec, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *SQL) FindOne(ctx context.Context, resourceID, fileName string) (*Record, error) {
	sqlStr, args, _ := s.SQ.Select(columns...).From(table).
		Where(sq.Eq{"resource_id": resourceID, "file_name": fileName}).
		Limit(1).ToSql()
	var row recordRow
	err := s.DB.GetContext(ctx, &row, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.record()
}

func (s *SQL) Create(ctx context.Context, rec *Record) error {
	prepare(rec)
	sqlStr, args, _ := s.SQ.Insert(table).Columns(columns...).
		Values(
			rec.ID.String(),
			rec.ResourceID,
			rec.FileName,
			rec.LanguageCode,
			nullable(rec.Language),
			rec.Translated,
			rec.Fuzzy,
			rec.Untranslated,
			rec.Total,
			rec.Percent,
			rec.HadError,
			rec.Merged,
			rec.UpdatedAt.Format(time.RFC3339),
		).ToSql()
	if _, err := s.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", ErrConflict, rec.ResourceID, rec.FileName)
		}
		return err
	}
	return nil
}

func (s *SQL) Save(ctx context.Context, rec *Record) error {
	prepare(rec)
	sqlStr, args, _ := s.SQ.Update(table).SetMap(map[string]any{
		"language_code": rec.LanguageCode,
		"language":      nullable(rec.Language),
		"translated":    rec.Translated,
		"fuzzy":         rec.Fuzzy,
		"untranslated":  rec.Untranslated,
		"total":         rec.Total,
		"percent":       rec.Percent,
		"had_error":     rec.HadError,
		"merged":        rec.Merged,
		"updated_at":    rec.UpdatedAt.Format(time.RFC3339),
	}).Where(sq.Eq{"id": rec.ID.String()}).ToSql()
	res, err := s.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) DeleteAllFor(ctx context.Context, resourceID string) error {
	sqlStr, args, _ := s.SQ.Delete(table).Where(sq.Eq{"resource_id": resourceID}).ToSql()
	_, err := s.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *SQL) ListOrderedByCompleteness(ctx context.Context, resourceID string) ([]*Record, error) {
	sqlStr, args, _ := s.SQ.Select(columns...).From(table).
		Where(sq.Eq{"resource_id": resourceID}).
		OrderBy("percent DESC", "language_code ASC", "file_name ASC").
		ToSql()
	var rows []recordRow
	if err := s.DB.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
