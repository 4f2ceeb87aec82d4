package main

import (
	"context"
	"os"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
)

func main() {
	appLogger := logger.New(logger.DefaultConfig())
	defer appLogger.Sync()

	cfg, err := config.Load(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load config", "error", err)
	}

	application, err := app.New(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", "error", err)
	}

	if err := application.Run(); err != nil {
		appLogger.Error("Application stopped with error", "error", err)
		os.Exit(1)
	}
}
