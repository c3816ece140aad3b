// Package usecase はチャート生成のビジネスロジック（正規化パイプラインのオーケストレーション）を実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"

	"chart_backend/internal/feature/chart/domain"
	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/pipeline"
)

// SymbolCatalog は銘柄コードから元データのロケーションを引くカタログです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SymbolCatalog interface {
	// Locations は銘柄のソースロケーションを返します。未知の銘柄はfalse。
	Locations(code string) ([]string, bool)
	// Codes はカタログの全銘柄コードを返します。
	Codes() []string
}

// SeriesLoader は銘柄の全ソースを読み込み、1つの生データ系列として返します。
type SeriesLoader interface {
	Load(ctx context.Context, symbol string, locations []string, window entity.Window) ([]entity.RawBar, error)
}

// ChartRenderer は完成した1日分の系列を画像（PNG）に変換します。
type ChartRenderer interface {
	Render(ctx context.Context, chart entity.Chart) ([]byte, error)
}

// ChartUsecase は1銘柄・1日分のローソク足チャートを生成します。
// リクエスト間で可変状態を共有しないため、並行に呼び出して問題ありません。
type ChartUsecase struct {
	catalog     SymbolCatalog
	loader      SeriesLoader
	renderer    ChartRenderer
	normalizer  *pipeline.Normalizer
	session     pipeline.Session
	filterEarly bool
}

// NewChartUsecase はChartUsecaseの新しいインスタンスを生成します。
// filterEarly が true の場合、読み込み時点で対象日以外の行を捨てます。
func NewChartUsecase(catalog SymbolCatalog, loader SeriesLoader, renderer ChartRenderer, session pipeline.Session, filterEarly bool) *ChartUsecase {
	return &ChartUsecase{
		catalog:     catalog,
		loader:      loader,
		renderer:    renderer,
		normalizer:  pipeline.NewNormalizer(session.Location()),
		session:     session,
		filterEarly: filterEarly,
	}
}

// BuildDaySeries は指定銘柄・日付の分足を取引時間の1分グリッドに揃えて返します。
//
// 読み込み → 取引所時間への変換 → 日付抽出 → 取引時間フィルタ → 欠損補完 の順に処理します。
// 処理はリクエストのキャンセルから切り離され、完了または失敗まで実行されます。
func (u *ChartUsecase) BuildDaySeries(ctx context.Context, symbol string, date civil.Date) ([]entity.Bar, error) {
	code := strings.ToUpper(strings.TrimSpace(symbol))
	locations, ok := u.catalog.Locations(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", domain.ErrUnknownSymbol, code, strings.Join(u.catalog.Codes(), ", "))
	}
	ctx = context.WithoutCancel(ctx)

	var window entity.Window
	if u.filterEarly {
		window = pipeline.DayBounds(date, u.session.Location())
	}
	raw, err := u.loader.Load(ctx, code, locations, window)
	if err != nil {
		return nil, err
	}

	day := pipeline.ExtractDay(u.normalizer.NormalizeAll(raw), date)
	if len(day) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrNoDataForDate, code, date)
	}

	grid := pipeline.FillGaps(pipeline.FilterSession(day, u.session), date, u.session)
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: %s has no session-hours bars on %s", domain.ErrNoDataForDate, code, date)
	}

	slog.Debug("day series built", "symbol", code, "date", date.String(), "raw", len(raw), "day", len(day), "grid", len(grid))
	return grid, nil
}

// RenderDailyChart は指定銘柄・日付のローソク足チャートをPNGで返します。
// 描画の失敗（パニックを含む）は ErrRender として返し、プロセスを落としません。
func (u *ChartUsecase) RenderDailyChart(ctx context.Context, symbol string, date civil.Date) ([]byte, error) {
	bars, err := u.BuildDaySeries(ctx, symbol, date)
	if err != nil {
		return nil, err
	}

	chart := entity.Chart{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Date: date, Bars: bars}
	img, err := u.render(context.WithoutCancel(ctx), chart)
	if err != nil {
		return nil, err
	}

	slog.Info("chart rendered", "symbol", chart.Symbol, "date", date.String(), "bars", len(bars), "bytes", len(img))
	return img, nil
}

func (u *ChartUsecase) render(ctx context.Context, chart entity.Chart) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrRender, r)
		}
	}()

	img, err = u.renderer.Render(ctx, chart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrRender)
	}
	return img, nil
}
