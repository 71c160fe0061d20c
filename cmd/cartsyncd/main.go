// cartsyncd hosts one cart/wishlist reconciliation engine and serves it over
// REST and MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartsync/internal/config"
	"cartsync/internal/engine"
	"cartsync/internal/handler"
	"cartsync/internal/localstore"
	"cartsync/internal/middleware"
	"cartsync/internal/remote"
	"cartsync/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("store_backend", cfg.Store.Backend),
		slog.Duration("push_debounce", cfg.PushDebounce),
	)

	backend, closeBackend, err := localstore.OpenBackend(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("closing local store", slog.String("error", err.Error()))
		}
	}()
	local := localstore.New(backend, logger.With(slog.String("component", "localstore")))

	sig := session.NewSignal(session.Anonymous())

	client, err := remote.NewClient(remote.Config{
		BaseURL:       cfg.Remote.BaseURL,
		StorefrontKey: cfg.Remote.StorefrontKey,
		Credentials:   sig.Token,
		Timeout:       cfg.Remote.Timeout,
		ChromeTLS:     cfg.Remote.ChromeTLS,
	})
	if err != nil {
		return fmt.Errorf("creating remote client: %w", err)
	}

	eng := engine.New(engine.Config{
		Local:        local,
		API:          client,
		Session:      sig,
		PushDebounce: cfg.PushDebounce,
		Logger:       logger,
	})
	eng.Start()

	h := handler.New(eng, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery sits inside RequestID so panics are logged with the request's id.
	httpHandler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		eng.Close()
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			eng.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}

		// Pending cart pushes still go out before the engine stops.
		eng.Flush(shutdownCtx)
		eng.Close()
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for Cloud Logging compatibility.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
