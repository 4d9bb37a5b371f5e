// Package main seeds demo assets into the configured store. Useful for
// local development and staging environments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage/postgres"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/config"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/database"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/platform/migrations"
)

var demoAssets = []struct {
	Name        string
	Description string
}{
	{"Genesis Block", "The first asset in the demo collection"},
	{"Azure Horizon", "Limited edition skyline piece"},
	{"Copper Relic", "Artifact from the first mint wave"},
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	ownerID := flag.String("owner", "", "Owner user id for the seeded assets (defaults to the first dev user)")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	owner := *ownerID
	if owner == "" && len(cfg.DevUsers) > 0 {
		owner = cfg.DevUsers[0].ID
	}
	if owner == "" {
		log.Fatal("no owner: pass -owner or configure dev_users")
	}

	ctx := context.Background()
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()

	for _, demo := range demoAssets {
		created, err := store.CreateAsset(ctx, asset.Asset{
			Name:        demo.Name,
			Description: demo.Description,
			Owner:       owner,
		})
		if err != nil {
			log.Fatalf("create %q: %v", demo.Name, err)
		}
		fmt.Printf("seeded %s (%s)\n", created.Name, created.ID)
	}
	fmt.Printf("seeded %d assets for owner %s\n", len(demoAssets), owner)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.AssetStore, func(), error) {
	noop := func() {}

	switch cfg.Store.Mode {
	case config.StorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := migrations.Apply(ctx, db.DB); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("applying migrations: %w", err)
		}
		return postgres.New(db), func() { db.Close() }, nil

	case config.StoreSupabase:
		client, err := database.NewClient(database.Config{
			URL:        cfg.Supabase.URL,
			ServiceKey: cfg.Supabase.ServiceKey,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("creating supabase client: %w", err)
		}
		return database.NewAssetRepository(client), noop, nil

	default:
		fmt.Fprintln(os.Stderr, "seeding a memory store is pointless; use postgres or supabase mode")
		return nil, noop, fmt.Errorf("unsupported store mode %q", cfg.Store.Mode)
	}
}
