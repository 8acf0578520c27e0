package main

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != int64(i+1) {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Errorf("migration %d is missing up or down sql", m.Version)
		}
	}
	if !strings.Contains(migrations[2].UpSQL, "calculate_portfolio_stats") {
		t.Error("expected version 3 to define calculate_portfolio_stats")
	}
}

func TestLoadMigrationsSortsAndPairs(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_b.up.sql":   {Data: []byte("SELECT 10;")},
		"migrations/010_b.down.sql": {Data: []byte("SELECT -10;")},
		"migrations/002_a.up.sql":   {Data: []byte("SELECT 2;")},
		"migrations/002_a.down.sql": {Data: []byte("SELECT -2;")},
	}
	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != 2 || migrations[1].Version != 10 {
		t.Fatalf("unexpected order: %+v", migrations)
	}
	if migrations[1].DownSQL != "SELECT -10;" {
		t.Errorf("down sql = %q", migrations[1].DownSQL)
	}
}

func TestLoadMigrationsRejectsBadInput(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"empty dir": {},
		"missing down": {
			"migrations/001_a.up.sql": {Data: []byte("SELECT 1;")},
		},
		"bad name": {
			"migrations/one.up.sql":   {Data: []byte("SELECT 1;")},
			"migrations/one.down.sql": {Data: []byte("SELECT 1;")},
		},
		"empty file": {
			"migrations/001_a.up.sql":   {Data: []byte("  \n")},
			"migrations/001_a.down.sql": {Data: []byte("SELECT 1;")},
		},
		"conflicting names": {
			"migrations/001_a.up.sql":   {Data: []byte("SELECT 1;")},
			"migrations/001_b.down.sql": {Data: []byte("SELECT 1;")},
		},
	}
	for name, fsys := range cases {
		if _, err := loadMigrations(fsys); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPending(t *testing.T) {
	all := []migration{{Version: 1}, {Version: 2}, {Version: 3}}
	got := pending(all, map[int64]struct{}{1: {}, 3: {}})
	if len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("pending = %+v", got)
	}
	if got := pending(all, map[int64]struct{}{1: {}, 2: {}, 3: {}}); len(got) != 0 {
		t.Fatalf("expected nothing pending, got %+v", got)
	}
}

func TestParseArgs(t *testing.T) {
	cmd, steps, err := parseArgs([]string{"down", "3"})
	if err != nil || cmd != cmdDown || steps != 3 {
		t.Fatalf("down 3 = %q %d %v", cmd, steps, err)
	}
	if _, steps, _ := parseArgs([]string{"down"}); steps != 1 {
		t.Errorf("default down steps = %d", steps)
	}
	if cmd, _, err := parseArgs([]string{"up"}); err != nil || cmd != cmdUp {
		t.Errorf("up = %q %v", cmd, err)
	}
	for _, bad := range [][]string{nil, {"sideways"}, {"down", "0"}, {"down", "x"}} {
		if _, _, err := parseArgs(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
