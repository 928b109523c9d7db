package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/SATANA888791/mail-registry/internal/infra/app"
	"github.com/SATANA888791/mail-registry/internal/infra/config"
)

func main() {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("run application: %v", err)
	}
}
