package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/domain/apikey"
	"github.com/makkenzo/license-checkout-service/internal/service"
	"github.com/makkenzo/license-checkout-service/internal/storage/postgres"
	"github.com/makkenzo/license-checkout-service/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	description := flag.String("description", "Desktop application key", "Human readable description stored with the key")
	scope := flag.String("scope", string(apikey.ScopeValidate), "Key scope: validate or admin")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database.url (DATABASE_URL) is required")
	}

	appLogger, err := logger.NewZapLogger("warn", cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx := context.Background()
	pool, err := postgres.NewPgxPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	svc := service.NewAPIKeyService(postgres.NewAPIKeyRepository(pool, appLogger), appLogger)

	created, err := svc.CreateAPIKey(ctx, *description, apikey.Scope(*scope))
	if err != nil {
		log.Fatalf("Failed to create API key: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely!):\n%s\n\n", created.FullKey)
	fmt.Printf("Prefix: %s\n", created.Prefix)
	fmt.Printf("Scope: %s\n", created.Scope)
	fmt.Printf("\nAPI Key saved to database with ID: %s\n", created.ID)
}
