package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreybb/consumo/api"
	"github.com/coreybb/consumo/config"
	"github.com/coreybb/consumo/datastore"
	"github.com/coreybb/consumo/ingestion"
	"github.com/coreybb/consumo/logging"
	rh "github.com/coreybb/consumo/route-handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Configuration load failed")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})

	store, err := setupStore(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Str("backend", datastore.BackendName(cfg.Store.URI)).Msg("Store setup failed")
	}

	orchestrator := ingestion.NewOrchestrator(ingestion.NewGenerator(nil), store)
	consumptionHandler := rh.NewConsumptionHandler(orchestrator, store)

	router := api.SetupRoutes(*cfg, consumptionHandler)

	serveErr := startServer(cfg.Addr(), cfg.Server.ShutdownTimeout, router)
	closeStore(store, cfg.Server.ShutdownTimeout)
	if serveErr != nil {
		os.Exit(1)
	}
}

func setupStore(sc config.StoreConfig) (datastore.ReadingStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sc.ConnectTimeout)
	defer cancel()

	store, err := datastore.Open(ctx, sc.URI,
		datastore.WithDatabase(sc.Database),
		datastore.WithCollection(sc.Collection),
		datastore.WithConnectTimeout(sc.ConnectTimeout),
	)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("backend", datastore.BackendName(sc.URI)).
		Str("database", sc.Database).
		Str("collection", sc.Collection).
		Msg("Store connection successful")
	return store, nil
}

func closeStore(store datastore.ReadingStore, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logging.Error().Err(err).Msg("Store close failed")
	}
}

func startServer(addr string, shutdownTimeout time.Duration, router http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdownSignal)

	return serve(server, shutdownSignal, shutdownTimeout)
}

// serve runs server until it fails or shutdown fires. A listen or serve
// failure is returned; a signal-driven graceful shutdown returns nil.
func serve(server *http.Server, shutdown <-chan os.Signal, shutdownTimeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-shutdown:
		logging.Info().Msg("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logging.Error().Err(err).Msg("Server error")
		return fmt.Errorf("serving on %s: %w", server.Addr, err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}

	logging.Info().Msg("Server gracefully stopped")
	return nil
}
