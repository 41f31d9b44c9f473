package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// newServer returns the HTTP server exposing the chain API.
func newServer(a *app) *http.Server {
	mux := http.NewServeMux()
	NewChainAPI(a.store, a.config, a.logger).RegisterRoutes(mux)

	return &http.Server{
		Addr:              a.config.ServerAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runServe serves the chain API until SIGINT or SIGTERM, then shuts the
// server down gracefully.
func (c *command) runServe(args []string) error {
	var configPath, addr string
	flags := newFlagSet("serve", &configPath)
	flags.StringVar(&addr, "addr", "", "listen address (default from config)")
	if err := parseFlags(flags, args, 0, false); err != nil {
		return err
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if addr != "" {
		a.config.ServerAddr = addr
	}

	ctx, stop := signalContext()
	defer stop()
	return serve(ctx, a, newServer(a))
}

// serve runs srv until ctx is done.
func serve(ctx context.Context, a *app, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting chain API server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("chain API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Stopping chain API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("chain API server shutdown failed: %w", err)
	}
	a.logger.Info("Chain API server stopped.")
	return nil
}
