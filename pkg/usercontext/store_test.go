package usercontext

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/util/dbutil"
)

func openTestDB(t *testing.T) *dbutil.Database {
	t.Helper()
	raw, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		t.Fatalf("wrap database failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(context.Background(), `CREATE TABLE user_context (
		user_id       TEXT PRIMARY KEY,
		mood          TEXT NOT NULL DEFAULT '',
		energy        TEXT NOT NULL DEFAULT '',
		motivation    REAL NOT NULL DEFAULT 0,
		burnout       REAL NOT NULL DEFAULT 0,
		stress        REAL NOT NULL DEFAULT 0,
		is_working    BOOLEAN NOT NULL DEFAULT false,
		is_studying   BOOLEAN NOT NULL DEFAULT false,
		is_exercising BOOLEAN NOT NULL DEFAULT false,
		focus_session BOOLEAN NOT NULL DEFAULT false,
		quiet_hours   BOOLEAN NOT NULL DEFAULT false,
		updated_at    BIGINT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return db
}

func TestReadMissingUserReturnsZeroSnapshot(t *testing.T) {
	store := NewStore(openTestDB(t))
	snap, err := store.Read(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snap.UserID != "user-1" {
		t.Fatalf("expected user id carried, got %q", snap.UserID)
	}
	if snap.Mood != "" || snap.Burnout != 0 || snap.QuietHours {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestUpsertMergesPartialPatches(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	energy := LevelLow
	burnout := 0.6
	if _, err := store.Upsert(ctx, "user-1", Patch{Energy: &energy, Burnout: &burnout}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	// A later patch touching one signal must not clear the others.
	quiet := true
	if _, err := store.Upsert(ctx, "user-1", Patch{QuietHours: &quiet}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	snap, err := store.Read(ctx, "user-1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snap.Energy != LevelLow || snap.Burnout != 0.6 || !snap.QuietHours {
		t.Fatalf("merge lost signals: %+v", snap)
	}
	if snap.UpdatedAtMs == 0 {
		t.Fatal("expected updated timestamp")
	}
}

func TestUpsertIsolatesUsers(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	focus := true
	if _, err := store.Upsert(ctx, "user-1", Patch{FocusSession: &focus}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	other, err := store.Read(ctx, "user-2")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if other.FocusSession {
		t.Fatal("expected user-2 untouched by user-1's patch")
	}
}
