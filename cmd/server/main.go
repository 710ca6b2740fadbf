/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), then parse flags
  2. Initialize the storage substrate
  3. Wire the books services and the API handler
  4. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -env     Path of a .env file (default: .env, optional)
  -port    HTTP server port (APP_PORT, default 8080)
  -driver  sqlite | memory | redis (STORE_DRIVER, default sqlite)
  -db      SQLite database path (SQLITE_PATH, default books.db)

EXAMPLES:
  ./server -db="./data/books.db"
  ./server -driver=memory -port=3000
  STORE_DRIVER=redis REDIS_ADDR=localhost:6379 ./server
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bubbelbudget/books/api"
	"github.com/bubbelbudget/books/books"
	"github.com/bubbelbudget/books/books/store"
	"github.com/bubbelbudget/books/config"
	"github.com/bubbelbudget/books/logger"
	"github.com/bubbelbudget/books/store/redisstore"
	"github.com/bubbelbudget/books/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env", "", "Path of a .env file")
	port := flag.Int("port", 0, "HTTP server port (overrides APP_PORT)")
	driver := flag.String("driver", "", "Storage driver: sqlite, memory or redis (overrides STORE_DRIVER)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SQLITE_PATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *dbPath != "" {
		cfg.Storage.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Log.Level))
	defer log.Sync()

	sub, closer, err := openSubstrate(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closer.Close()

	recordStore := books.NewStore(sub,
		books.WithNamespace(cfg.Storage.Namespace),
		books.WithStoreLogger(logger.Named(log, "store")),
	)
	b := books.New(recordStore, books.WithLogger(logger.Named(log, "books")))

	handler := api.NewHandler(b, logger.Named(log, "api"))
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("driver", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

func openSubstrate(ctx context.Context, cfg config.StorageConfig) (books.Substrate, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewTxMemory(), nopCloser{}, nil
	case config.DriverRedis:
		s, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
