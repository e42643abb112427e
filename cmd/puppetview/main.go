// Package main is the entry point for the puppet viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/internal/config"
	_ "github.com/Faultbox/marionette/internal/cubism"
	"github.com/Faultbox/marionette/internal/logger"
	"github.com/Faultbox/marionette/internal/render/ebitenrender"
	"github.com/Faultbox/marionette/internal/render/sdlrender"
	"github.com/Faultbox/marionette/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Marionette Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	session, err := viewer.NewSession(cfg, viewer.WithLogger(logger.Named("viewer")))
	if err != nil {
		logger.Error("failed to load puppet", zap.Error(err))
		os.Exit(1)
	}
	defer session.Close()

	backend, err := newBackend(cfg)
	if err != nil {
		logger.Error("failed to create backend", zap.String("backend", cfg.Render.Backend), zap.Error(err))
		os.Exit(1)
	}
	defer backend.Close()

	if err := backend.Run(session); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func newBackend(cfg *config.Config) (viewer.Backend, error) {
	log := logger.Named("render")
	switch cfg.Render.Backend {
	case config.BackendEbiten:
		return ebitenrender.New(cfg, log), nil
	default:
		return sdlrender.New(cfg, log)
	}
}
