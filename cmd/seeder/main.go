// Command seeder loads store catalog entries from a JSON file into the
// database. It is intended for development and staging; production catalogs
// come from the catalog ingestion pipeline.
//
// Flags:
//
//	--file     path to the stores JSON file (default: seed/stores.json)
//	--dry-run  parse and validate the file without writing to DB
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres"
	storerepo "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/store"
	"github.com/miyakawa-dev/yorimichi-backend/internal/app"
	"github.com/miyakawa-dev/yorimichi-backend/internal/config"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
)

type storeSeed struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	PhoneNumber  string  `json:"phone_number"`
	OpeningHours string  `json:"opening_hours"`
	ChainName    string  `json:"chain_name"`
}

func main() {
	fileFlag := flag.String("file", "seed/stores.json", "path to the stores JSON file")
	dryRunFlag := flag.Bool("dry-run", false, "parse and validate without writing to DB")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	ctx := context.Background()

	seeds, err := loadSeeds(*fileFlag)
	if err != nil {
		logger.Error("load seed file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("seed file parsed",
		slog.String("file", *fileFlag),
		slog.Int("stores", len(seeds)),
	)

	if *dryRunFlag {
		logger.Info("dry run, nothing written")
		return
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := storerepo.New(pool)

	var created int
	for _, seed := range seeds {
		store := domain.Store{
			Name:         seed.Name,
			Category:     domain.StoreCategory(seed.Category),
			Address:      seed.Address,
			Latitude:     seed.Latitude,
			Longitude:    seed.Longitude,
			PhoneNumber:  seed.PhoneNumber,
			OpeningHours: seed.OpeningHours,
			ChainName:    seed.ChainName,
			IsActive:     true,
		}
		if _, err := repo.Create(ctx, store); err != nil {
			logger.Error("create store",
				slog.String("name", seed.Name),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		created++
	}

	logger.Info("seeding complete", slog.Int("created", created))
}

func loadSeeds(path string) ([]storeSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var seeds []storeSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, seed := range seeds {
		if seed.Name == "" {
			return nil, fmt.Errorf("store %d: name is required", i)
		}
		if !domain.StoreCategory(seed.Category).IsValid() {
			return nil, fmt.Errorf("store %q: unknown category %q", seed.Name, seed.Category)
		}
		pos := domain.Position{Latitude: seed.Latitude, Longitude: seed.Longitude}
		if err := pos.Validate(); err != nil {
			return nil, fmt.Errorf("store %q: %w", seed.Name, err)
		}
	}

	return seeds, nil
}
