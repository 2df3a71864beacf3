package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/g960059/miscope/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidProfile = errors.New("invalid profile name")
)

type Store struct {
	db *sql.DB
}

// Profile is a named set of saved breakpoints.
type Profile struct {
	ID        string
	Name      string
	Sections  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func normalizeProfile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 128 {
		return "", fmt.Errorf("%w: %q", ErrInvalidProfile, name)
	}
	return name, nil
}

// SaveBreakpoints replaces the sections stored under profile, creating the
// profile on first save.
func (s *Store) SaveBreakpoints(ctx context.Context, profile string, sections []model.BreakpointSection) error {
	name, err := normalizeProfile(profile)
	if err != nil {
		return err
	}
	now := ts(time.Now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
INSERT INTO profiles(profile_id, name, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET updated_at=excluded.updated_at
`, uuid.NewString(), name, now, now); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	var profileID string
	if err := tx.QueryRowContext(ctx, `SELECT profile_id FROM profiles WHERE name = ?`, name).Scan(&profileID); err != nil {
		return fmt.Errorf("read profile id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM break_sections WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO break_sections(profile_id, position, type, line, enabled, pending, run_apply, temporary, file, display, func, ignore_count, cond, script, location)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare section insert: %w", err)
	}
	defer stmt.Close()
	for i, sec := range sections {
		if _, err := stmt.ExecContext(ctx, profileID, i, string(rune(sec.Type)), sec.Line,
			nullableBool(sec.Enabled), nullableBool(sec.Pending), nullableBool(sec.RunApply), nullableBool(sec.Temporary),
			nullIfEmpty(sec.File), nullIfEmpty(sec.Display), nullIfEmpty(sec.Func), nullIfEmpty(sec.Ignore),
			nullIfEmpty(sec.Cond), nullIfEmpty(sec.Script), nullIfEmpty(sec.Location)); err != nil {
			return fmt.Errorf("insert section %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadBreakpoints returns the sections of profile in saved order.
func (s *Store) LoadBreakpoints(ctx context.Context, profile string) ([]model.BreakpointSection, error) {
	name, err := normalizeProfile(profile)
	if err != nil {
		return nil, err
	}
	var profileID string
	err = s.db.QueryRowContext(ctx, `SELECT profile_id FROM profiles WHERE name = ?`, name).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT type, line, enabled, pending, run_apply, temporary, file, display, func, ignore_count, cond, script, location
FROM break_sections
WHERE profile_id = ?
ORDER BY position ASC
`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	out := make([]model.BreakpointSection, 0)
	for rows.Next() {
		var (
			sec                               model.BreakpointSection
			typ                               string
			enabled, pending, runApply, tempo sql.NullInt64
			file, display, fn, ignore, cond   sql.NullString
			script, location                  sql.NullString
		)
		if err := rows.Scan(&typ, &sec.Line, &enabled, &pending, &runApply, &tempo,
			&file, &display, &fn, &ignore, &cond, &script, &location); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		if len(typ) != 1 {
			return nil, fmt.Errorf("scan section: bad type %q", typ)
		}
		sec.Type = model.BreakType(typ[0])
		sec.Enabled = boolFromNull(enabled)
		sec.Pending = boolFromNull(pending)
		sec.RunApply = boolFromNull(runApply)
		sec.Temporary = boolFromNull(tempo)
		sec.File = file.String
		sec.Display = display.String
		sec.Func = fn.String
		sec.Ignore = ignore.String
		sec.Cond = cond.String
		sec.Script = script.String
		sec.Location = location.String
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter sections: %w", err)
	}
	return out, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.profile_id, p.name, p.created_at, p.updated_at, COUNT(b.position)
FROM profiles p
LEFT JOIN break_sections b ON b.profile_id = p.profile_id
GROUP BY p.profile_id
ORDER BY p.name ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		var (
			p                    Profile
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt, &p.Sections); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if p.CreatedAt, err = parseTS(createdAt); err != nil {
			return nil, fmt.Errorf("parse profile created_at: %w", err)
		}
		if p.UpdatedAt, err = parseTS(updatedAt); err != nil {
			return nil, fmt.Errorf("parse profile updated_at: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter profiles: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteProfile(ctx context.Context, profile string) error {
	name, err := normalizeProfile(profile)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return boolToInt(*v)
}

func boolFromNull(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Int64 != 0
	return &b
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
