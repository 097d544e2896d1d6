package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

const DefaultDir = "pkg/migrate/migrations"

// State is the applied/pending view of one migration file.
type State struct {
	Version int64
	File    string
	Applied bool
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(database.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes "up", "down" (one step) or "status" against dir.
func Run(ctx context.Context, db *sql.DB, dir string, command string) error {
	provider, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	switch command {
	case "up":
		_, err = provider.Up(ctx)
	case "down":
		_, err = provider.Down(ctx)
	case "status":
		_, err = provider.Status(ctx)
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Status lists every migration in dir with whether the database has applied it.
func Status(ctx context.Context, db *sql.DB, dir string) ([]State, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]State, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, State{
			Version: st.Source.Version,
			File:    filepath.Base(st.Source.Path),
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}

// MigrateToVersion moves the schema up or down until targetVersion is current.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		_, err = provider.UpTo(ctx, target)
	default:
		_, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// SchemaCheck reports not-ready while migrations in dir are unapplied.
type SchemaCheck struct {
	db  *sql.DB
	dir string
}

func NewSchemaCheck(db *sql.DB, dir string) *SchemaCheck {
	return &SchemaCheck{db: db, dir: dir}
}

func (c *SchemaCheck) Ping(ctx context.Context) error {
	states, err := Status(ctx, c.db, c.dir)
	if err != nil {
		return err
	}
	pending := 0
	for _, st := range states {
		if !st.Applied {
			pending++
		}
	}
	if pending > 0 {
		return fmt.Errorf("%d migrations pending", pending)
	}
	return nil
}
