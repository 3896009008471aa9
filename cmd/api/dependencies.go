package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"

	dashboardhandler "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dashboard/handler"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/repository"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/insight"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/config"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/db"
)

const restoreTimeout = 30 * time.Second

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Snapshot backend
	SnapshotRepo repository.SnapshotRepository
	closers      []func() error

	// Services
	Store          *storesvc.Store
	ImportService  *importsvc.ImportService
	InsightService *insight.Service

	// Handlers
	DashboardHandler *dashboardhandler.DashboardHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initRepository(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init snapshot repository: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepository opens the configured snapshot backend. The postgres backend
// also connects the database and runs migrations.
func (d *Dependencies) initRepository() error {
	snap := d.Config.Snapshot
	ctx := context.Background()

	switch snap.Backend {
	case config.BackendMemory:
		d.Logger.Warn("Snapshot persistence disabled, data lives in memory only")
		return nil

	case config.BackendFile:
		d.SnapshotRepo = repository.NewFileRepository(snap.FilePath, snap.MaxBytes)

	case config.BackendSQLite:
		repo, err := repository.OpenSQLiteRepository(ctx, snap.SQLitePath, snap.Key)
		if err != nil {
			return err
		}
		d.SnapshotRepo = repo
		d.closers = append(d.closers, repo.Close)

	case config.BackendPostgres:
		if err := d.initDatabase(); err != nil {
			return err
		}
		d.SnapshotRepo = repository.NewPostgresRepository(d.DB.Pool, snap.Key)

	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		d.SnapshotRepo = repository.NewGCSRepository(client, snap.GCSBucket, snap.GCSObject, snap.MaxBytes)
		d.closers = append(d.closers, client.Close)

	default:
		return fmt.Errorf("unknown snapshot backend %q", snap.Backend)
	}

	d.Logger.Info("snapshot repository initialized", "backend", snap.Backend)
	return nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices builds the store, restores the last snapshot and wires the
// import and insight services around it.
func (d *Dependencies) initServices() error {
	d.Store = storesvc.NewStore(d.SnapshotRepo, d.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := d.Store.Restore(ctx); err != nil {
		// The store is empty and usable; the warning is already logged.
		d.Logger.Warn("continuing without restored data", "error", err)
	}

	d.ImportService = importsvc.NewImportService(d.Store, d.Logger)

	var gen insight.Generator
	if key := d.Config.Insight.APIKey; key != "" {
		g, err := insight.NewGeminiGenerator(context.Background(), key, d.Config.Insight.Model)
		if err != nil {
			return fmt.Errorf("failed to create insight generator: %w", err)
		}
		gen = g
	} else {
		d.Logger.Warn("insight API key missing, insight requests will be rejected")
	}
	d.InsightService = insight.NewService(gen, d.Config.Insight.Language, d.Config.Insight.Timeout, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.DashboardHandler = dashboardhandler.NewDashboardHandler(d.Store, d.ImportService, d.InsightService, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup waits for in-flight insight generations and closes all resources
func (d *Dependencies) Cleanup() {
	if d.InsightService != nil {
		d.InsightService.Wait()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Warn("failed to close resource", "error", err)
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
