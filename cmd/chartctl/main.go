// Command chartctl runs the daily chart pipeline offline with the server's configuration.
// It can write a chart PNG, print the minute grid as CSV, or seed the catalog database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"chart_backend/internal/app/di"
	"chart_backend/internal/config"
	"chart_backend/internal/platform/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: failed to load .env:", err)
	}

	if err := newRootCmd(loadService, seedCatalog).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, _, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "text"}, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(l)
	return cfg, nil
}

// loadService builds the pipeline from the config file at path.
// Logs go to stderr so that stdout stays clean for the series output.
func loadService(ctx context.Context, path string) (chartService, *config.Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := di.NewPipeline(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return p.Chart, cfg, nil
}

func seedCatalog(ctx context.Context, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	// catalog.source が database のとき symbols は空なので、組み込みの一覧を投入する
	symbols := cfg.Catalog.Symbols
	if len(symbols) == 0 {
		symbols = config.DefaultSymbols()
	}
	return di.SeedCatalog(ctx, cfg.Catalog.Database, di.SymbolsFromConfig(symbols))
}
