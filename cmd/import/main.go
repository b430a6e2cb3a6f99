// Command import records the impressions from a performance-import
// request file directly against the database, without going through the
// HTTP server. Usage: import <request.json>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"arcade-ads/internal/adapter/batch"
	"arcade-ads/internal/adapter/postgres"
	"arcade-ads/internal/adapter/resolver"
	"arcade-ads/internal/adapter/usecase"
	"arcade-ads/internal/config"
	"arcade-ads/internal/db"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import <request.json>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	repo := postgres.NewLedgerRepository(pool)
	projector := usecase.NewProjector(repo, cfg.Ledger.RetryAttempts, cfg.Ledger.RetryBackoff, logger)
	ledger := usecase.NewLedgerService(repo, projector)
	importer := batch.NewImporter(ledger, resolver.NewNameResolver(repo), logger)

	summary, err := importer.ImportFile(ctx, path)
	if err != nil {
		logger.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("import finished",
		slog.Int("total", summary.Total),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Int64("impressions", summary.TotalImpressions))
}
