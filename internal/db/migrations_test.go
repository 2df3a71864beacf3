package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTempDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, ctx
}

func TestApplyAndRollbackMigrations(t *testing.T) {
	db, ctx := openTempDB(t)
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// a second run is a no-op
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}

	mustExist := []string{"profiles", "break_sections"}
	for _, table := range mustExist {
		var name string
		if err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name); err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}
	var applied int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), applied)
	}

	if err := RollbackAll(ctx, db); err != nil {
		t.Fatalf("rollback migrations: %v", err)
	}

	for _, table := range mustExist {
		var count int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
			t.Fatalf("count table %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("table %s still exists after rollback", table)
		}
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("apply after rollback: %v", err)
	}
}

func TestCoreConstraints(t *testing.T) {
	db, ctx := openTempDB(t)
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `INSERT INTO profiles(profile_id, name, created_at, updated_at) VALUES('p1','default',?,?)`, now, now)
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO profiles(profile_id, name, created_at, updated_at) VALUES('p2','default',?,?)`, now, now)
	if err == nil {
		t.Fatalf("expected unique violation on profile name")
	}
	_, err = db.ExecContext(ctx, `INSERT INTO break_sections(profile_id, position, type) VALUES('p1', 0, 'b')`)
	if err != nil {
		t.Fatalf("insert section: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO break_sections(profile_id, position, type) VALUES('p1', 1, 'bw')`)
	if err == nil {
		t.Fatalf("expected type check constraint failure")
	}
	_, err = db.ExecContext(ctx, `INSERT INTO break_sections(profile_id, position, type) VALUES('missing', 0, 'b')`)
	if err == nil {
		t.Fatalf("expected FK violation for missing profile")
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM profiles WHERE profile_id = 'p1'`); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM break_sections`).Scan(&count); err != nil {
		t.Fatalf("count sections: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected sections to cascade, got %d", count)
	}
}
