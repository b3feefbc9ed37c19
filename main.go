package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"paydesk/internal/app"
	"paydesk/pkg/config"
	apperrors "paydesk/pkg/errors"
	"paydesk/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		apperrors.ErrConfigLoadFailed.WithCause(err).WithContext("path", config.GetConfigFilePath()).Log(slog.Default())
		cfg = config.Default()
	}

	logger, level := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := config.Watch(ctx, config.GetConfigFilePath(), 500*time.Millisecond, logger, func(next *config.Config) {
			level.Set(logging.ParseLevel(next.LogLevel))
		})
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		}
	}()

	desktop := NewApp(rt)
	err = wails.Run(&options.App{
		Title:     "paydesk",
		Width:     1280,
		Height:    820,
		MinWidth:  960,
		MinHeight: 640,
		AssetServer: &assetserver.Options{
			Handler: handler,
		},
		OnStartup:  desktop.startup,
		OnShutdown: desktop.shutdown,
		Bind: []interface{}{
			desktop,
		},
	})
	if err != nil {
		logger.Error("desktop shell exited", "error", err)
		return 1
	}
	return 0
}
