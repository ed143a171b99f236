/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config (.env, YAML, environment)
  2. Initialize SQLite store
  3. Connect the breakdown cache (Redis, else in-memory)
  4. Create API handler and activate the configured plan
  5. Start the month-close scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: config.yaml, optional)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

ENVIRONMENT:
  COMMISSION_PORT, COMMISSION_DB, COMMISSION_TZ, COMMISSION_PLAN,
  REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, CLOSE_CRON
  See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running close)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close cache and database connections

EXAMPLES:
  # Run with file database
  ./server -db="./data/commission.db"

  # Run with in-memory database and Redis
  REDIS_ADDR=localhost:6379 ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Month close
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/config"
	memstore "github.com/warp/commission-engine/generic/store"
	"github.com/warp/commission-engine/store/redis"
	"github.com/warp/commission-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.yaml", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid time zone: %v", err)
	}
	week, err := cfg.WorkWeek()
	if err != nil {
		log.Fatalf("Invalid rest days: %v", err)
	}

	// Initialize store
	if cfg.Database.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	store, err := sqlite.New(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Location = loc
	handler.WorkWeek = &week
	handler.CacheTTL = cfg.Redis.TTL

	if cfg.RedisEnabled() {
		cache, err := redis.New(context.Background(), redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory cache: %v", err)
			handler.Cache = memstore.NewMemoryCache()
		} else {
			defer cache.Close()
			handler.Cache = cache
			log.Printf("Breakdown cache: Redis at %s", cfg.Redis.Addr)
		}
	} else {
		handler.Cache = memstore.NewMemoryCache()
	}

	if err := handler.ActivatePlan(context.Background(), cfg.Plan.ID); err != nil {
		log.Fatalf("Failed to activate plan %s: %v", cfg.Plan.ID, err)
	}
	log.Printf("Active plan: %s (v%d)", handler.ActivePlan().ID, handler.ActivePlan().Version)

	// Month close
	scheduler, err := api.NewCloseScheduler(handler, cfg.Schedule.CloseCron)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	log.Printf("Next month close: %s", scheduler.NextRun().Format(time.RFC3339))

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
