// Command sync pushes a scope's items to one or more channels. The stage
// flag accepts either a wave alias (wave50, wave100, wave200) or a bare
// scope (top50, top100, top200, active); waves also fix the channel set.
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

	"github.com/ngs/omnihub/internal/application/sync"
	"github.com/ngs/omnihub/internal/domain/catalog"
	"github.com/ngs/omnihub/internal/domain/channel"
	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
	"github.com/ngs/omnihub/internal/infrastructure/connector"
	"github.com/ngs/omnihub/internal/infrastructure/logger"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
)

type stageReport struct {
	Stage  string            `json:"stage"`
	Scope  catalog.Scope     `json:"scope"`
	DryRun bool              `json:"dry_run"`
	Runs   []*sync.Report    `json:"runs"`
	Errors map[string]string `json:"errors,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	stageFlag := flag.String("stage", "", "wave alias or scope to sync (required)")
	channelFlag := flag.String("channel", "", "restrict the run to one channel")
	modeFlag := flag.String("mode", "", "sync mode: catalog|inventory|pricing|reconcile (required)")
	csvFile := flag.String("csv-file", "", "override the scope's configured source export")
	dryRun := flag.Bool("dry-run", false, "render payloads without calling any channel")
	strict := flag.Bool("strict", false, "exit 2 when any item fails")
	reportPath := flag.String("report-json", "", "also write the report to this file")
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
	if *modeFlag == "" {
		log.Error("missing required -mode flag")
		return 2
	}
	scope, channels, err := channel.ResolveStage(*stageFlag)
	if err != nil {
		log.Error("invalid stage", zap.String("stage", *stageFlag), zap.Error(err))
		return 2
	}
	mode, err := channel.ParseSyncMode(*modeFlag)
	if err != nil {
		log.Error("invalid mode", zap.String("mode", *modeFlag), zap.Error(err))
		return 2
	}
	if *channelFlag != "" {
		ch, err := channel.Parse(*channelFlag)
		if err != nil {
			log.Error("invalid channel", zap.String("channel", *channelFlag), zap.Error(err))
			return 2
		}
		channels = []channel.Channel{ch}
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

	csvPath := csvPathFor(cfg, scope)
	if *csvFile != "" {
		csvPath = *csvFile
	}
	service := sync.NewService(store, log)
	opts := sync.Options{
		DryRun:      *dryRun,
		CSVPath:     csvPath,
		BatchDelay:  cfg.Sync.BatchDelay,
		MaxAttempts: cfg.Sync.MaxAttempts,
	}
	connOpts := connector.Options{
		MaxAttempts:    cfg.Sync.MaxAttempts,
		RequestTimeout: cfg.Sync.RequestTimeout,
		DryRun:         *dryRun,
		Logger:         log,
	}

	report := &stageReport{
		Stage:  *stageFlag,
		Scope:  scope,
		DryRun: *dryRun,
		Errors: make(map[string]string),
	}
	anyFailed := false
	configError := false
	for _, ch := range channels {
		conn, err := connector.New(ch, cfg, connOpts)
		if err != nil {
			log.Error("cannot build connector", zap.String("channel", ch.String()), zap.Error(err))
			report.Errors[ch.String()] = err.Error()
			if errors.Is(err, shared.ErrConfig) {
				configError = true
			}
			continue
		}
		runReport, err := service.Run(ctx, conn, mode, scope, opts)
		if err != nil {
			log.Error("sync run failed", zap.String("channel", ch.String()), zap.Error(err))
			report.Errors[ch.String()] = err.Error()
			if errors.Is(err, shared.ErrConfig) {
				configError = true
			}
			if runReport != nil {
				report.Runs = append(report.Runs, runReport)
			}
			anyFailed = true
			continue
		}
		report.Runs = append(report.Runs, runReport)
		if runReport.Summary.FailedCount > 0 {
			anyFailed = true
		}
	}
	if len(report.Errors) == 0 {
		report.Errors = nil
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

	switch {
	case configError:
		return 2
	case *strict && anyFailed:
		return 2
	case len(report.Runs) == 0:
		return 1
	default:
		return 0
	}
}

func csvPathFor(cfg *config.Config, scope catalog.Scope) string {
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
