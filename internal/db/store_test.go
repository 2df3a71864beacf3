package db

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/g960059/miscope/internal/model"
)

func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "breaks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := ApplyMigrations(ctx, store.DB()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store, ctx
}

func boolPtr(v bool) *bool { return &v }

func TestSaveLoadBreakpoints(t *testing.T) {
	store, ctx := newTestStore(t)
	sections := []model.BreakpointSection{
		{
			Type: model.BreakBreak, Line: 12, File: "/src/a.c", Display: "a.c:12", Func: "main",
			Location: "/src/a.c:12", Ignore: "3", Cond: "n > 1", Script: `"bt"`,
			Enabled: boolPtr(true), Pending: boolPtr(false), RunApply: boolPtr(true), Temporary: boolPtr(true),
		},
		{Type: model.BreakRead, Location: "counter", Enabled: boolPtr(false)},
	}
	if err := store.SaveBreakpoints(ctx, "default", sections); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadBreakpoints(ctx, " default ")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, sections) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, sections)
	}
	if got[1].Pending != nil || got[1].Temporary != nil || got[1].File != "" {
		t.Fatalf("absent keys must stay absent: %+v", got[1])
	}
}

func TestSaveReplacesSections(t *testing.T) {
	store, ctx := newTestStore(t)
	first := []model.BreakpointSection{
		{Type: model.BreakBreak, Location: "main"},
		{Type: model.BreakWatch, Location: "x"},
	}
	if err := store.SaveBreakpoints(ctx, "work", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	id := profiles[0].ID

	if err := store.SaveBreakpoints(ctx, "work", first[1:]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := store.LoadBreakpoints(ctx, "work")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Location != "x" {
		t.Fatalf("expected replaced sections, got %+v", got)
	}
	profiles, err = store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != id || profiles[0].Sections != 1 {
		t.Fatalf("expected the profile kept with one section, got %+v", profiles)
	}
	if profiles[0].UpdatedAt.Before(profiles[0].CreatedAt) {
		t.Fatalf("updated_at before created_at: %+v", profiles[0])
	}

	if err := store.SaveBreakpoints(ctx, "work", nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = store.LoadBreakpoints(ctx, "work")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected an empty profile, got %+v (%v)", got, err)
	}
}

func TestProfilesListAndDelete(t *testing.T) {
	store, ctx := newTestStore(t)
	for _, name := range []string{"zeta", "alpha"} {
		if err := store.SaveBreakpoints(ctx, name, []model.BreakpointSection{{Type: model.BreakBreak, Location: name}}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 2 || profiles[0].Name != "alpha" || profiles[1].Name != "zeta" {
		t.Fatalf("expected name order, got %+v", profiles)
	}
	if profiles[0].ID == profiles[1].ID || profiles[0].ID == "" {
		t.Fatalf("expected distinct profile ids")
	}

	if err := store.DeleteProfile(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadBreakpoints(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteProfile(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInvalidProfileName(t *testing.T) {
	store, ctx := newTestStore(t)
	if err := store.SaveBreakpoints(ctx, "  ", nil); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	if _, err := store.LoadBreakpoints(ctx, ""); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
