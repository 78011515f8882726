package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/ai"
	"github.com/MarcusFernando/Bh-licit/internal/db"
	"github.com/MarcusFernando/Bh-licit/internal/ingest"
)

func main() {
	days := flag.Int("days", 3, "lookback window in days")
	noAI := flag.Bool("no-ai", false, "skip provider enrichment, use local analysis only")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	reg, err := ingest.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	sources, err := ingest.BuildSources(reg)
	if err != nil {
		log.Fatalf("Failed to build sources: %v", err)
	}

	cfg := ai.ConfigFromEnv()
	if *noAI {
		cfg = ai.Config{}
	}
	orchestrator := ai.NewOrchestrator(ai.NewChain(cfg))

	pipeline := ingest.NewPipeline(db.NewStore(pool), sources, orchestrator)

	start := time.Now()
	stats, err := pipeline.RunSync(ctx, *days)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Second))
}
