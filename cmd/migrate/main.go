// Command migrate provisions the hub store: it creates the schema and
// seeds the per-channel price rules and category mappings. Seeding is an
// explicit, idempotent operation; sync runs never seed implicitly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
	"github.com/ngs/omnihub/internal/infrastructure/logger"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

func main() {
	os.Exit(run())
}

func run() int {
	scopeFlag := flag.String("scope", "top200", "scope whose categories to seed (top50|top100|top200)")
	skipSeed := flag.Bool("skip-seed", false, "create schema only, seed nothing")
	confirmCategories := flag.Bool("confirm-categories", false, "mark every seeded category mapping as reviewed and confirmed")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	log := logger.New(logger.Config(cfg.Log))
	defer log.Sync()

	scope, err := catalog.ParseScope(*scopeFlag)
	if err != nil {
		log.Error("invalid scope", zap.String("scope", *scopeFlag), zap.Error(err))
		return 2
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Error("cannot open database", zap.Error(err))
		return exitCode(err)
	}
	defer db.Close()
	store := persistence.NewStore(db, log)

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return 1
	}
	log.Info("schema up to date")

	if *skipSeed {
		return 0
	}

	rules, err := store.SeedPriceRules(ctx)
	if err != nil {
		log.Error("price rule seed failed", zap.Error(err))
		return 1
	}
	categories, err := store.SeedCategoryMap(ctx, scope)
	if err != nil {
		log.Error("category map seed failed", zap.Error(err))
		return 1
	}
	log.Info("seed complete",
		zap.Int("price_rules_inserted", rules),
		zap.Int("category_mappings_inserted", categories),
		zap.String("scope", scope.String()),
	)

	if *confirmCategories {
		confirmed := 0
		for _, ch := range channel.All() {
			n, err := store.ConfirmCategoryMappings(ctx, ch, nil)
			if err != nil {
				log.Error("category confirmation failed", zap.String("channel", ch.String()), zap.Error(err))
				return 1
			}
			confirmed += n
		}
		log.Info("category mappings confirmed", zap.Int("rows", confirmed))
	}
	return 0
}

func exitCode(err error) int {
	if errors.Is(err, shared.ErrConfig) {
		return 2
	}
	return 1
}
