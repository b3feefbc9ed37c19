// Command mockapi serves a seeded local copy of the billing API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paydesk/pkg/config"
	"paydesk/pkg/logging"
	"paydesk/pkg/mockapi"
)

func main() {
	addr := flag.String("addr", config.EnvString("PAYDESK_MOCKAPI_ADDR", "127.0.0.1:4000"), "listen address")
	seed := flag.Int64("seed", 42, "data seed")
	size := flag.Int("size", 25, "number of seeded customers")
	gateway := flag.String("gateway", "", "public base URL used in checkout links")
	flag.Parse()

	logger, _ := logging.New(config.EnvString("PAYDESK_LOG_LEVEL", "info"), config.EnvString("PAYDESK_LOG_FORMAT", "text"), os.Stdout)

	srv, err := mockapi.New(mockapi.Config{
		Seed:       *seed,
		Size:       *size,
		GatewayURL: *gateway,
		Secret:     config.EnvString("PAYDESK_MOCKAPI_SECRET", ""),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("build mock api", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock api listening", "addr", *addr, "email", mockapi.DemoEmail, "password", mockapi.DemoPassword)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock api stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
