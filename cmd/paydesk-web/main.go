// Command paydesk-web serves the paydesk views in a local browser.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paydesk/internal/app"
	"paydesk/pkg/config"
	"paydesk/pkg/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup always happens
// before main exits.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("paydesk-web", flag.ContinueOnError)
	configPath := fs.String("config", config.GetConfigFilePath(), "config file")
	addr := fs.String("addr", "", "listen address (overrides httpAddr)")
	storage := fs.String("storage", "", "session storage: file, memory or redis")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		slog.Error("load config", "path", *configPath, "error", err)
		return 1
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *storage != "" {
		cfg.SessionStorage = *storage
	}

	logger, level := logging.New(cfg.LogLevel, cfg.LogFormat, stdout)
	slog.SetDefault(logger)

	rt, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return 1
	}
	defer rt.Close()

	handler, err := rt.Handler()
	if err != nil {
		logger.Error("failed to build views", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		err := config.Watch(ctx, *configPath, 500*time.Millisecond, logger, func(next *config.Config) {
			level.Set(logging.ParseLevel(next.LogLevel))
			if next.APIBaseURL != cfg.APIBaseURL || next.SessionStorage != cfg.SessionStorage {
				logger.Warn("restart required to apply api or storage changes")
			}
		})
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		logger.Info("paydesk web starting",
			"addr", cfg.HTTPAddr,
			"api", rt.Client.BaseURL(),
			"storage", cfg.SessionStorage,
			"authenticated", rt.Store.IsAuthenticated(),
		)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		logger.Info("paydesk web stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			return 1
		}
	}
	return 0
}
