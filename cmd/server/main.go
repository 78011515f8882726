package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/ai"
	"github.com/MarcusFernando/Bh-licit/internal/api"
	"github.com/MarcusFernando/Bh-licit/internal/db"
	"github.com/MarcusFernando/Bh-licit/internal/ingest"
	"github.com/MarcusFernando/Bh-licit/internal/items"
	"github.com/MarcusFernando/Bh-licit/internal/scheduler"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)

	reg, err := ingest.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	sources, err := ingest.BuildSources(reg)
	if err != nil {
		log.Fatalf("Failed to build sources: %v", err)
	}

	orchestrator := ai.NewOrchestrator(ai.NewChain(ai.ConfigFromEnv()))
	pipeline := ingest.NewPipeline(store, sources, orchestrator)
	resolver := items.NewResolver(store, items.NewPortalScraper())

	if os.Getenv("SYNC_ENABLED") == "true" {
		sched := scheduler.New(func(ctx context.Context, days int) error {
			_, err := pipeline.RunSync(ctx, days)
			return err
		})
		if v, err := strconv.Atoi(os.Getenv("SYNC_INTERVAL_MINUTES")); err == nil && v > 0 {
			sched.Interval = time.Duration(v) * time.Minute
		}
		go sched.Start(ctx)
		log.Printf("Background sync enabled (every %s)", sched.Interval)
	}

	srv := api.NewServer(store, pipeline, resolver)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
