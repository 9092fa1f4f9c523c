// Package app wires a ready-to-use engine from a workspace directory.
package app

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"gearline/internal/config"
	"gearline/internal/db"
	"gearline/internal/engine"
	"gearline/internal/events"
	"gearline/internal/logging"
	"gearline/internal/migrate"
	"gearline/internal/store"
)

// Options selects how the engine is assembled.
type Options struct {
	Workspace string
	// StoreKind is "file" (default) or "sqlite".
	StoreKind string
	// SnapshotDir overrides the file store location (default
	// <workspace>/snapshots).
	SnapshotDir string
}

// Context bundles the wired components plus the handles a caller must
// close.
type Context struct {
	Engine *engine.Engine
	Config *config.Config
	Events events.Writer
	DB     *sql.DB
}

// Close releases the database handle.
func (c *Context) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Build loads workspace config, opens and migrates the audit database,
// constructs the chosen snapshot store, and assembles the engine around
// them.
func Build(opts Options) (*Context, error) {
	cfg, warnings, err := config.Load(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stderr, cfg.VerboseLogging)
	for _, w := range warnings {
		log.Warn(w)
	}

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open workspace db: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var st store.Store
	switch opts.StoreKind {
	case "", "file":
		dir := opts.SnapshotDir
		if dir == "" {
			dir = filepath.Join(opts.Workspace, "snapshots")
		}
		st, err = store.NewFileStore(dir)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
	case "sqlite":
		st = store.NewSQLiteStore(conn)
	default:
		conn.Close()
		return nil, fmt.Errorf("unknown store kind %q", opts.StoreKind)
	}

	writer := events.Writer{DB: conn}
	eng := engine.New(st, cfg, log)
	eng.Events = &writer
	return &Context{Engine: eng, Config: cfg, Events: writer, DB: conn}, nil
}
