package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.triggerstore.dev/internal/config"
)

// App holds initialized infrastructure that is guaranteed to be connected.
// If you have an *App, you know the database is connected and ready.
//
// This is NOT a god object - it just holds the "dangerous" infrastructure
// that requires connection/retry logic. Application logic should NOT go here.
//
// Queue initialization is left to specific binaries since the configuration
// (publisher vs consumer, stream names, etc.) varies by use case.
type App struct {
	Config *config.Config

	// DB is the open connection pool for whichever backend config.DB.Driver
	// selects. Callers wrap it in the matching delegate (postgres.New or
	// sqlite.New) rather than querying it directly.
	DB *sql.DB

	// Internal cleanup - call AddCleanup to register cleanup functions
	cleanupFuncs []func() error
}

// AppOptions configures which infrastructure to initialize.
type AppOptions struct {
	// NeedsDB indicates the persistence backend connection is required
	NeedsDB bool
}

// Initialize creates an App with connected infrastructure.
// Returns an error if any required connection fails.
//
// Usage:
//
//	app, cleanup, err := lifecycle.Initialize(ctx, lifecycle.AppOptions{
//	    NeedsDB: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func Initialize(ctx context.Context, opts AppOptions) (*App, func(), error) {
	app := &App{}

	// Load configuration first
	cfg, err := config.LoadWithFile()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Initialize the database if needed
	if opts.NeedsDB {
		if err := app.initDB(ctx); err != nil {
			app.Cleanup()
			return nil, nil, err
		}
	}

	cleanup := func() {
		app.Cleanup()
	}

	return app, cleanup, nil
}

// AddCleanup registers a cleanup function to be called on shutdown.
// Functions are called in reverse order of registration.
func (app *App) AddCleanup(fn func() error) {
	app.cleanupFuncs = append(app.cleanupFuncs, fn)
}

// initDB opens the persistence backend selected by config.DB.Driver and
// verifies it's reachable with a ping before handing it back.
func (app *App) initDB(ctx context.Context) error {
	cfg := app.Config

	var driverName string
	switch cfg.DB.Driver {
	case "postgres":
		driverName = "pgx"
	case "sqlite", "":
		driverName = "sqlite3"
	default:
		return fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}

	slog.Info("connecting to database", "driver", cfg.DB.Driver)

	db, err := sql.Open(driverName, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if cfg.DB.Driver == "sqlite" || cfg.DB.Driver == "" {
		// A single connection avoids SQLITE_BUSY under concurrent writers;
		// postgres pools normally.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	app.DB = db
	app.AddCleanup(func() error {
		slog.Info("closing database connection")
		return db.Close()
	})

	slog.Info("connected to database", "driver", cfg.DB.Driver)
	return nil
}

// Cleanup runs all cleanup functions in reverse order.
func (app *App) Cleanup() {
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		if err := app.cleanupFuncs[i](); err != nil {
			slog.Error("Cleanup error", "error", err)
		}
	}
}
