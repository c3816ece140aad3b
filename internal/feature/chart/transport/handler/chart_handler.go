// Package handler はchartフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"chart_backend/internal/api"
	"chart_backend/internal/feature/chart/domain"
	"chart_backend/internal/platform/http/middleware"
)

// ChartUsecase はチャート生成のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ChartUsecase interface {
	RenderDailyChart(ctx context.Context, symbol string, date civil.Date) ([]byte, error)
}

// ChartHandler はローソク足チャート画像のHTTPリクエストを処理します。
type ChartHandler struct {
	uc            ChartUsecase
	defaultTicker string
	defaultDate   civil.Date
}

// NewChartHandler は指定されたusecaseとデフォルト値でChartHandlerの新しいインスタンスを生成します。
func NewChartHandler(uc ChartUsecase, defaultTicker string, defaultDate civil.Date) *ChartHandler {
	return &ChartHandler{uc: uc, defaultTicker: defaultTicker, defaultDate: defaultDate}
}

// GetChart は銘柄コードと日付を受け取り、1分足ローソクチャートをPNGで返します。
//
// エンドポイント例:
// GET /api/stock/chart?ticker=QQQ&date=2015-01-02
func (h *ChartHandler) GetChart(c *gin.Context) {
	requestID := middleware.RequestIDFrom(c.Request.Context())

	// 未指定（空）の場合は設定のデフォルト値を使用
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		ticker = h.defaultTicker
	}

	date := h.defaultDate
	if s := strings.TrimSpace(c.Query("date")); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			err = fmt.Errorf("%w: %q (want YYYY-MM-DD)", domain.ErrInvalidDate, s)
			slog.Warn("invalid chart request", "request_id", requestID, "ticker", ticker, "date", s, "error", err)
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		date = d
	}

	img, err := h.uc.RenderDailyChart(c.Request.Context(), ticker, date)
	if err != nil {
		status := statusFor(err)
		var se *domain.SourceError
		if errors.As(err, &se) {
			slog.Error("chart request failed", "request_id", requestID, "ticker", ticker, "date", date.String(), "location", se.Location, "status", status, "error", err)
		} else {
			slog.Error("chart request failed", "request_id", requestID, "ticker", ticker, "date", date.String(), "status", status, "error", err)
		}
		c.JSON(status, api.ErrorResponse{Error: err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}

// statusFor はドメインエラーをHTTPステータスに変換します。
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol),
		errors.Is(err, domain.ErrSourceUnavailable),
		errors.Is(err, domain.ErrNoDataForDate):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	default:
		// ErrMalformedSource, ErrRender, その他の想定外エラー
		return http.StatusInternalServerError
	}
}
