package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/portfolio-valuator/internal/application"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/config"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata/nordnet"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata/web"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/persistence/sqldb"
	"github.com/jmanzanog/portfolio-valuator/internal/interfaces/console"
	httpHandler "github.com/jmanzanog/portfolio-valuator/internal/interfaces/http"
	"github.com/joho/godotenv"
	_ "github.com/sijms/go-ora/v2"
)

const storeQueueSize = 256

// setupLogger configures a structured logger with source information. Logs go
// to stderr so the report on stdout stays readable.
func setupLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)
	return logger
}

// initializeStore opens the SQL store, runs migrations and returns the sink.
func initializeStore(ctx context.Context, cfg *config.Config) (*sqldb.Repository, *sql.DB, error) {
	var db *sql.DB
	var dialect sqldb.Dialect
	var err error

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err = sql.Open("pgx", cfg.StoreDSN)
		dialect = &sqldb.PostgresDialect{}
	case config.StoreDriverOracle:
		db, err = sql.Open("oracle", cfg.StoreDSN)
		dialect = &sqldb.OracleDialect{}
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect store: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping store: %w", err)
	}

	repo := sqldb.NewRepository(sqldb.New(db, dialect))
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	if last, err := repo.LatestSummary(ctx); err == nil {
		slog.Info("Store holds a previous summary", "cycle_id", last.CycleID, "valued_at", last.Timestamp, "profit_loss", last.ProfitLoss.StringFixed(2))
	} else if !errors.Is(err, sqldb.ErrNoSummary) {
		slog.Warn("Could not read previous summary", "error", err)
	}

	return repo, db, nil
}

// buildServer creates the status API server.
func buildServer(cfg *config.Config, snapshots httpHandler.SnapshotReader, trigger httpHandler.CycleTrigger) *http.Server {
	router := gin.Default()
	handler := httpHandler.NewHandler(snapshots, trigger)
	httpHandler.SetupRoutes(router, handler)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// App wraps the long-lived components so they can be shut down in order.
type App struct {
	Scheduler     *application.Scheduler
	Snapshots     *memory.SnapshotRepository
	Server        *http.Server
	Fetcher       *web.Client
	StoreSink     *application.AsyncReporter
	StoreDB       *sql.DB
	CancelContext context.CancelFunc
}

// Shutdown stops scheduling, lets in-flight cycles finish, then releases
// the remaining resources.
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	a.Scheduler.Stop()
	select {
	case <-a.Scheduler.Done():
	case <-ctx.Done():
		slog.Warn("Cycle still running at shutdown deadline, cancelling it")
		a.CancelContext()
		<-a.Scheduler.Done()
	}
	a.CancelContext()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}
	if a.StoreSink != nil {
		a.StoreSink.Close()
		if n := a.StoreSink.Dropped(); n > 0 {
			slog.Warn("Store notifications dropped during run", "dropped", n)
		}
	}
	if a.StoreDB != nil {
		if err := a.StoreDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close error: %w", err))
		}
	}
	if err := a.Fetcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("fetcher close error: %w", err))
	}

	return errors.Join(errs...)
}

// build wires every component from configuration. Nothing is started.
func build(ctx context.Context, cfg *config.Config) (*App, error) {
	portfolio, err := config.LoadPortfolio(cfg.PortfolioFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	fetcher := web.NewClient(web.Config{
		Timeout:       cfg.FetchTimeout,
		UserAgent:     cfg.UserAgent,
		RatePerSecond: cfg.FetchRatePerSecond,
	})

	snapshots := memory.NewSnapshotRepository()
	reporters := application.Reporters{
		console.NewReporter(os.Stdout, portfolio.Normalizer.Base()),
		snapshots,
	}

	app := &App{Fetcher: fetcher, Snapshots: snapshots}

	if cfg.StoreEnabled() {
		repo, db, err := initializeStore(ctx, cfg)
		if err != nil {
			_ = fetcher.Close()
			return nil, fmt.Errorf("store initialization failed: %w", err)
		}
		app.StoreDB = db
		app.StoreSink = application.NewAsyncReporter(repo, storeQueueSize)
		reporters = append(reporters, app.StoreSink)
		slog.Info("Pushing results to store", "driver", cfg.StoreDriver)
	}

	coordinator := application.NewCoordinator(fetcher, nordnet.NewExtractor(), portfolio.Normalizer, reporters)
	coordinator.SetMaxConcurrency(cfg.MaxConcurrency)

	app.Scheduler = application.NewScheduler(coordinator, portfolio.Registry, cfg.RefreshInterval, cfg.OverlapPolicy)

	if cfg.HTTPEnabled {
		app.Server = buildServer(cfg, snapshots, app.Scheduler)
	}

	return app, nil
}

// run contains the main application logic without os.Exit calls
func run() error {
	setupLogger(slog.LevelInfo)

	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.SlogLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	app.CancelContext = cancel

	go app.Scheduler.Start(ctx)

	serverErrors := make(chan error, 1)
	if app.Server != nil {
		go func() {
			slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
			if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("Status server failed, continuing without it", "error", err)
		<-quit
	case <-quit:
	}
	slog.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Application exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
