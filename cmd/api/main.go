package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/sivabalan-sv01/tds-project/internal/config"
	"github.com/sivabalan-sv01/tds-project/internal/generator"
	"github.com/sivabalan-sv01/tds-project/internal/httpserver"
	"github.com/sivabalan-sv01/tds-project/internal/ledger"
	"github.com/sivabalan-sv01/tds-project/internal/pipeline"
	"github.com/sivabalan-sv01/tds-project/internal/publisher"
)

// main boots the service: config → ledger → capabilities → HTTP server.
func main() {
	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	// Load runtime config from environment. Missing credentials are fatal
	// here, never per-request.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Ledger storage: external keyed store when DB_URL is set, otherwise an
	// ephemeral local file. Either way the publisher's check-before-write
	// remains the authoritative dedup guard.
	var store ledger.Store
	var ready func(ctx context.Context) error
	if cfg.DBURL != "" {
		pg, err := ledger.NewPostgresStore(cfg.DBURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(); err != nil {
			log.Fatal(err)
		}
		store = pg
		ready = pg.Ping
	} else {
		fs, err := ledger.NewFileStore(cfg.LedgerPath)
		if err != nil {
			log.Fatal(err)
		}
		store = fs
	}

	led := ledger.New(store, cfg.PendingTTL, cfg.FailedCooldown)
	if err := led.Sweep(context.Background()); err != nil {
		log.Printf("ledger sweep failed (continuing): %v", err)
	}

	gen := generator.New(
		generator.NewOpenRouterCaller(cfg.OpenAIKey, cfg.BaseURL),
		generator.Options{
			Model:            cfg.Model,
			FallbackModel:    cfg.FallbackModel,
			Timeout:          cfg.GenTimeout,
			MaxAttempts:      cfg.GenAttempts,
			FallbackArtifact: cfg.EnableFallbackArtifact,
		},
	)

	pub := publisher.New(
		publisher.NewGitHub(cfg.GitHubToken, cfg.GitHubUsername),
		publisher.Options{EnablePages: cfg.EnablePages},
	)

	ctrl := pipeline.NewController(led, gen, pub)

	router := httpserver.NewRouter(cfg, ctrl, ready)

	log.Printf("server started on :%s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}
