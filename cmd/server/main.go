package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pulsedesk/pulsedesk/internal/app/runtime"
	"github.com/pulsedesk/pulsedesk/internal/config"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Local development convenience; ignored when no .env exists.
	_ = godotenv.Load()

	log := logger.NewDefault("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server stopped")
}
