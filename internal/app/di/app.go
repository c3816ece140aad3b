package di

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"chart_backend/internal/app/router"
	"chart_backend/internal/config"
	charthandler "chart_backend/internal/feature/chart/transport/handler"
	chartusecase "chart_backend/internal/feature/chart/usecase"
	symboladapters "chart_backend/internal/feature/symbollist/adapters"
	"chart_backend/internal/feature/symbollist/domain/entity"
	symbolhandler "chart_backend/internal/feature/symbollist/transport/handler"
	symbolusecase "chart_backend/internal/feature/symbollist/usecase"
)

// Pipeline is what both the HTTP server and the CLI need: the catalog and the chart usecase.
type Pipeline struct {
	Catalog *entity.Catalog
	Chart   *chartusecase.ChartUsecase
}

// NewPipeline builds the catalog and the chart usecase from cfg.
func NewPipeline(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	catalog, err := NewCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	chart, err := NewChartUsecase(ctx, cfg, catalog)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Catalog: catalog, Chart: chart}, nil
}

// Server holds the HTTP engine and the resources to release on shutdown.
type Server struct {
	Engine *gin.Engine
	stop   []func() error
}

// NewServer wires every handler and middleware into a gin engine.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	p, err := NewPipeline(ctx, cfg)
	if err != nil {
		return nil, err
	}
	limiter, stopLimiter, err := NewLimiter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 一覧はカタログのスナップショットから返す（DB由来でも起動後は変化しない）
	symbolUC := symbolusecase.NewSymbolUsecase(symboladapters.NewStaticRepository(p.Catalog.Symbols()))

	chartH := charthandler.NewChartHandler(p.Chart, cfg.Data.DefaultTicker, cfg.DefaultDate())
	symbolH := symbolhandler.NewSymbolHandler(symbolUC)

	engine, err := router.NewRouter(router.Deps{
		Chart:          chartH,
		Symbols:        symbolH,
		Catalog:        p.Catalog,
		Limiter:        limiter,
		MaxInFlight:    cfg.Admission.MaxInFlight,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	if err != nil {
		_ = stopLimiter()
		return nil, err
	}
	return &Server{Engine: engine, stop: []func() error{stopLimiter}}, nil
}

// Close releases background workers and connections.
func (s *Server) Close() error {
	var errs []error
	for _, fn := range s.stop {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
