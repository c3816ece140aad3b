// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"chart_backend/internal/config"
	symboladapters "chart_backend/internal/feature/symbollist/adapters"
	"chart_backend/internal/feature/symbollist/domain/entity"
	symbolusecase "chart_backend/internal/feature/symbollist/usecase"
	"chart_backend/internal/platform/db"
)

// NewCatalog builds the immutable symbol catalog from the configured source.
func NewCatalog(ctx context.Context, cfg config.CatalogConfig) (*entity.Catalog, error) {
	if cfg.Source != "database" {
		repo := symboladapters.NewStaticRepository(SymbolsFromConfig(cfg.Symbols))
		return symbolusecase.NewSymbolUsecase(repo).BuildCatalog(ctx)
	}

	var migrate func(*gorm.DB) error
	if cfg.Database.Migrate {
		migrate = symboladapters.Migrate
	}
	gdb, err := db.OpenDB(db.Config{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.DSN,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, migrate)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	// カタログは起動時に一度だけ構築するため、読み終えたら接続を閉じる
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Warn("failed to close catalog database", "error", err)
			}
		}
	}()

	return symbolusecase.NewSymbolUsecase(symboladapters.NewSymbolRepository(gdb)).BuildCatalog(ctx)
}

// SymbolsFromConfig converts the YAML symbol list into catalog entries.
func SymbolsFromConfig(list []config.SymbolConfig) []entity.Symbol {
	out := make([]entity.Symbol, 0, len(list))
	for _, s := range list {
		out = append(out, entity.Symbol{
			Code:      s.Code,
			Name:      s.Name,
			Locations: append([]string(nil), s.Locations...),
		})
	}
	return out
}

// SeedCatalog writes symbols into the catalog database in list order,
// replacing the sources of symbols that already exist.
func SeedCatalog(ctx context.Context, cfg config.DatabaseConfig, symbols []entity.Symbol) error {
	gdb, err := db.OpenDB(db.Config{
		Driver:         cfg.Driver,
		DSN:            cfg.DSN,
		ConnectTimeout: cfg.ConnectTimeout,
	}, symboladapters.Migrate)
	if err != nil {
		return fmt.Errorf("open catalog database: %w", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	repo := symboladapters.NewSymbolRepository(gdb)
	for i, s := range symbols {
		if err := repo.Upsert(ctx, s, i); err != nil {
			return fmt.Errorf("upsert %s: %w", s.Code, err)
		}
	}
	slog.Info("catalog seeded", "symbols", len(symbols), "driver", cfg.Driver)
	return nil
}
