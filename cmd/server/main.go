/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the on-call duty ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize logger
  3. Initialize SQLite store
  4. Build the holiday source (feiertage API or holidays table) and cache
  5. Create accounting engine and API handler
  6. Start holiday prewarmer and HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: PORT or 8080)
  -db        SQLite database path (default: DATABASE_PATH or ./data/oncall.db)
             Use ":memory:" for in-memory database
  -holidays  Holiday source, api or db (default: HOLIDAY_SOURCE or api)

ENVIRONMENT:
  PORT, DATABASE_PATH, LOG_LEVEL, ENVIRONMENT, HOLIDAY_SOURCE,
  HOLIDAY_API_URL, HOLIDAY_JURISDICTION, HOLIDAY_TIMEOUT,
  HOLIDAY_PREWARM_CRON, CORS_ORIGINS (see config/config.go)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the prewarmer
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Drop the holiday cache and close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/oncall-ledger/accounting"
	"github.com/warp/oncall-ledger/api"
	"github.com/warp/oncall-ledger/config"
	"github.com/warp/oncall-ledger/holiday"
	"github.com/warp/oncall-ledger/logger"
	"github.com/warp/oncall-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	// Initialize store
	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Holiday source and cache
	var source holiday.Source
	switch cfg.HolidaySource {
	case config.HolidaySourceDB:
		source = store
	default:
		source = holiday.NewFeiertageSource(cfg.HolidayAPIURL, cfg.HolidayTimeout)
	}
	cache := holiday.NewCache(source, holiday.WithLogger(log))
	defer cache.Purge()

	engine, err := accounting.NewEngine(accounting.Config{
		Holidays:     cache,
		Jurisdiction: cfg.HolidayJurisdiction,
		Directory:    store,
		Assignments:  store,
		Logger:       log,
	})
	if err != nil {
		log.Fatalf("Failed to create accounting engine: %v", err)
	}

	handler := api.NewHandler(store, engine, cache, log)
	handler.HolidaysFromStore = cfg.HolidaySource == config.HolidaySourceDB
	router := api.NewRouter(handler, cfg.CORSOrigins)

	var prewarmer *api.HolidayPrewarmer
	if cfg.HolidayPrewarmCron != "" {
		prewarmer = api.NewHolidayPrewarmer(cache, cfg.HolidayJurisdiction, cfg.HolidayPrewarmCron, log)
		if err := prewarmer.Start(); err != nil {
			log.Fatalf("Failed to start holiday prewarmer: %v", err)
		}
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr":         cfg.Addr(),
			"db":           cfg.DatabasePath,
			"holidays":     cfg.HolidaySource,
			"jurisdiction": cfg.HolidayJurisdiction,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if prewarmer != nil {
		prewarmer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}
