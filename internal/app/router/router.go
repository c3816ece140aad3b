package router

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	charthandler "chart_backend/internal/feature/chart/transport/handler"
	symbollisthandler "chart_backend/internal/feature/symbollist/transport/handler"
	platformhandler "chart_backend/internal/platform/http/handler"
	"chart_backend/internal/platform/http/middleware"
	"chart_backend/internal/platform/ratelimit"
)

//go:embed web/index.html
var indexHTML []byte

// Deps はルーター構築に必要なハンドラーとミドルウェア設定です。
type Deps struct {
	Chart   *charthandler.ChartHandler
	Symbols *symbollisthandler.SymbolHandler
	Catalog platformhandler.SymbolCounter
	Limiter ratelimit.Limiter
	// MaxInFlight は同時に処理するチャートリクエスト数の上限です。0なら無制限。
	MaxInFlight    int64
	TrustedProxies []string
}

func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	// ClientIP をレート制限のキーにするため、信頼するプロキシを明示する
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// 導通確認用
	health := platformhandler.Health(d.Catalog)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	// トップページ（銘柄選択と日付入力）
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	api := r.Group("/api/stock")
	{
		api.GET("/tickers", d.Symbols.List)

		// チャート生成はメモリを使うため、同時実行数とクライアントごとの回数を制限する
		chart := []gin.HandlerFunc{}
		if d.MaxInFlight > 0 {
			chart = append(chart, middleware.Admission(d.MaxInFlight))
		}
		if d.Limiter != nil {
			chart = append(chart, ratelimit.Middleware(d.Limiter))
		}
		chart = append(chart, d.Chart.GetChart)
		api.GET("/chart", chart...)
	}

	return r, nil
}
