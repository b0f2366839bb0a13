// Command validate runs the pre-rollout gate for a wave and prints the
// findings report. With -strict a failed gate exits 2, for CI pipelines.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/application/validate"
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
	stageFlag := flag.String("stage", "", "wave alias or scope to validate (required)")
	sampleFlag := flag.Int("sample-size", 30, "price check sample size")
	csvFile := flag.String("csv-file", "", "override the scope's configured source export")
	strict := flag.Bool("strict", false, "exit 2 when the gate fails")
	reportPath := flag.String("report-file", "", "also write the report to this file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	log := logger.New(logger.Config(cfg.Log))
	defer log.Sync()

	if *stageFlag == "" {
		log.Error("missing required -stage flag")
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

	csvPath := csvPathFor(cfg, *stageFlag)
	if *csvFile != "" {
		csvPath = *csvFile
	}
	service := validate.NewService(store, log)
	report, err := service.Validate(ctx, *stageFlag, validate.Options{
		SampleSize:   *sampleFlag,
		LagThreshold: cfg.Webhook.LagThreshold,
		CSVPath:      csvPath,
	})
	if err != nil {
		log.Error("validation run failed", zap.Error(err))
		return exitCode(err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error("cannot render report", zap.Error(err))
		return 1
	}
	fmt.Println(string(out))
	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, out, 0644); err != nil {
			log.Error("cannot write report file", zap.String("path", *reportPath), zap.Error(err))
			return 1
		}
	}

	if report.Failed() {
		log.Warn("gate failed", zap.String("stage", *stageFlag), zap.Int("findings", len(report.Findings)))
		if *strict {
			return 2
		}
	}
	return 0
}

func csvPathFor(cfg *config.Config, stage string) string {
	scope, _, err := channel.ResolveStage(stage)
	if err != nil {
		return ""
	}
	switch scope {
	case catalog.ScopeTop50:
		return cfg.Scopes.Top50CSV
	case catalog.ScopeTop100:
		return cfg.Scopes.Top100CSV
	case catalog.ScopeTop200:
		return cfg.Scopes.Top200CSV
	default:
		return ""
	}
}

func exitCode(err error) int {
	if errors.Is(err, shared.ErrConfig) {
		return 2
	}
	return 1
}
