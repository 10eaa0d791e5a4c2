package main

import (
	"chat-api/infrastructure/http/server"
	"chat-api/internal"
	"chat-api/repositories"
	"chat-api/services"
	"chat-api/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/api/option"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat API terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the store, repository, service and HTTP server, then blocks until
// a signal or a server failure. Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Record store
	store, err := openStore(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing record store...")
		_ = store.Close()
	}()

	// 3. Repository, service, HTTP surface
	repository := repositories.NewMessageRepository(store, log, config.Limits())
	chatService := services.NewChatService(repository, log)
	chatServer := server.NewChatServer(log, chatService, config.HTTPLegacyStatus, config.RequestTimeout)

	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           chatServer.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.RequestTimeout,
		WriteTimeout:      config.RequestTimeout + 5*time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			"address", config.Address(),
			"backend", config.StoreBackend,
			"table", config.StorageTable(),
			"at", time.Now().UTC(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 4. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return exitRuntime, err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("HTTP server shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}

func openStore(ctx context.Context, config internal.Config, log *slog.Logger) (storage.IRecordStore, error) {
	switch config.StoreBackend {
	case internal.BackendBigtable:
		var opts []option.ClientOption
		if config.BigtableEmulatorHost == "" && config.BigtableCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(config.BigtableCredentialsFile))
		}
		return storage.NewBigtableStore(ctx, storage.BigtableConfig{
			Project:        config.BigtableProject,
			Instance:       config.BigtableInstance,
			Table:          config.StorageTable(),
			DisableMetrics: config.BigtableEmulatorHost != "",
		}, log, opts...)
	default:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return nil, fmt.Errorf("database opening failed: %w", err)
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			endpoint := "/inspect"
			log.Info("Debug Badger inspector available",
				"url", fmt.Sprintf("http://localhost:%d%s?prefix=%s", config.DebugPort, endpoint, storage.TablePrefix(config.StorageTable())))
			database.StartDebugServer(db, config.DebugPort, endpoint, ChatRecordMapper)
		}
		return &badgerCloser{BadgerStore: storage.NewBadgerStore(db, log, config.StorageTable()), db: db}, nil
	}
}

// badgerCloser closes the database the store was opened on.
type badgerCloser struct {
	*storage.BadgerStore
	db *badger.DB
}

func (b *badgerCloser) Close() error {
	return errors.Join(b.BadgerStore.Close(), b.db.Close())
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG).WithBypassLockGuard(true)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
