package di

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 取引所タイムゾーンをOSのzoneinfoに依存せず解決する

	"chart_backend/internal/config"
	"chart_backend/internal/feature/chart/adapters/render"
	"chart_backend/internal/feature/chart/adapters/source"
	"chart_backend/internal/feature/chart/pipeline"
	chartusecase "chart_backend/internal/feature/chart/usecase"
	"chart_backend/internal/feature/symbollist/domain/entity"
	"chart_backend/internal/platform/storage"
)

// NewSession builds the exchange trading session from config.
func NewSession(cfg config.ExchangeConfig) (pipeline.Session, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return pipeline.Session{}, fmt.Errorf("exchange timezone: %w", err)
	}
	open, err := pipeline.ParseClock(cfg.SessionOpen)
	if err != nil {
		return pipeline.Session{}, fmt.Errorf("session open: %w", err)
	}
	closeAt, err := pipeline.ParseClock(cfg.SessionClose)
	if err != nil {
		return pipeline.Session{}, fmt.Errorf("session close: %w", err)
	}
	return pipeline.NewSession(loc, open, closeAt)
}

// NewSeriesLoader builds the source loader. An S3 client is created only when
// the catalog references s3:// locations.
func NewSeriesLoader(ctx context.Context, cfg *config.Config, catalog *entity.Catalog) (*source.Loader, error) {
	opener := &source.RoutingOpener{Local: source.NewLocalOpener(cfg.Data.Dir)}
	if usesS3(catalog) {
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Timeout:         cfg.S3.Timeout,
		})
		if err != nil {
			return nil, err
		}
		opener.S3 = source.NewS3Opener(client)
	}
	return source.NewLoader(opener), nil
}

func usesS3(catalog *entity.Catalog) bool {
	for _, s := range catalog.Symbols() {
		for _, loc := range s.Locations {
			if strings.HasPrefix(loc, "s3://") {
				return true
			}
		}
	}
	return false
}

// NewChartUsecase wires the normalization pipeline and the renderer.
func NewChartUsecase(ctx context.Context, cfg *config.Config, catalog *entity.Catalog) (*chartusecase.ChartUsecase, error) {
	session, err := NewSession(cfg.Exchange)
	if err != nil {
		return nil, err
	}
	loader, err := NewSeriesLoader(ctx, cfg, catalog)
	if err != nil {
		return nil, err
	}
	renderer := render.NewCandlestickRenderer(render.Config{
		WidthInch:  cfg.Render.WidthInch,
		HeightInch: cfg.Render.HeightInch,
		MaxBars:    cfg.Render.MaxBars,
	})
	return chartusecase.NewChartUsecase(catalog, loader, renderer, session, *cfg.Data.FilterEarly), nil
}
