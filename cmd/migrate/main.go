package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"solfolio/pkg/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"

	usage = "usage: go run ./cmd/migrate [up|down|version] [steps]"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

var migrationName = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// database is the part of pgxpool.Pool the runner needs.
type database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type runner struct {
	db         database
	log        *zap.Logger
	migrations []migration
}

func main() {
	loadEnvFunc()
	log := logging.Must(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")).Named("migrate")
	defer func() { _ = log.Sync() }()

	command, steps, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(usage, zap.Error(err))
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		log.Fatal("load migrations", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	r := &runner{db: pool, log: log, migrations: migrations}
	if err := r.run(ctx, command, steps); err != nil {
		log.Fatal("migrate "+command, zap.Error(err))
	}
}

// parseArgs returns the command and, for down, the number of steps (default 1).
func parseArgs(args []string) (string, int, error) {
	if len(args) == 0 {
		return "", 0, errors.New("missing command")
	}
	switch args[0] {
	case cmdUp, cmdVersion:
		return args[0], 0, nil
	case cmdDown:
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return "", 0, fmt.Errorf("invalid down steps: %q", args[1])
			}
			steps = n
		}
		return cmdDown, steps, nil
	default:
		return "", 0, fmt.Errorf("unknown command %q", args[0])
	}
}

func (r *runner) run(ctx context.Context, command string, steps int) error {
	if err := r.ensureMigrationTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	switch command {
	case cmdUp:
		n, err := r.up(ctx)
		if err != nil {
			return err
		}
		r.log.Info("migrations up complete", zap.Int("applied", n))
	case cmdDown:
		n, err := r.down(ctx, steps)
		if err != nil {
			return err
		}
		r.log.Info("migrations down complete", zap.Int("rolled_back", n))
	case cmdVersion:
		version, name, err := r.currentVersion(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			r.log.Info("no migrations applied")
			return nil
		}
		r.log.Info("current version", zap.Int64("version", version), zap.String("name", name))
	}
	return nil
}

func (r *runner) ensureMigrationTable(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*migration)
	for _, p := range paths {
		matches := migrationName.FindStringSubmatch(p)
		if matches == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		name, direction := matches[2], matches[3]

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		m, ok := index[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			index[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == "down" {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// pending returns the migrations not yet applied, in version order.
func pending(migrations []migration, applied map[int64]struct{}) []migration {
	var out []migration
	for _, m := range migrations {
		if _, ok := applied[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *runner) appliedVersions(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

// step runs one migration body and its bookkeeping statement in a transaction.
func (r *runner) step(ctx context.Context, body, bookkeeping string, args ...any) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, body); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, bookkeeping, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *runner) up(ctx context.Context) (int, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range pending(r.migrations, applied) {
		err := r.step(ctx, m.UpSQL, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
		if err != nil {
			return n, fmt.Errorf("version %d up failed: %w", m.Version, err)
		}
		r.log.Info("applied", zap.Int64("version", m.Version), zap.String("name", m.Name))
		n++
	}
	return n, nil
}

func (r *runner) down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, errors.New("steps must be > 0")
	}
	byVersion := make(map[int64]migration, len(r.migrations))
	for _, m := range r.migrations {
		byVersion[m.Version] = m
	}

	rows, err := r.db.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, err
	}

	n := 0
	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return n, fmt.Errorf("cannot find migration source for applied version %d", version)
		}
		if err := r.step(ctx, m.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
			return n, fmt.Errorf("version %d down failed: %w", m.Version, err)
		}
		r.log.Info("rolled back", zap.Int64("version", m.Version), zap.String("name", m.Name))
		n++
	}
	return n, nil
}

func (r *runner) currentVersion(ctx context.Context) (int64, string, error) {
	var version int64
	var name string
	err := r.db.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return version, name, nil
}
