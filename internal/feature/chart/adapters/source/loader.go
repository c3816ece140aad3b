// Package source はローソク足の元データ（CSV / Parquet）を読み込むSeriesLoader実装を提供します。
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"chart_backend/internal/feature/chart/domain"
	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/usecase"
)

// 必須カラムとデフォルト値で補完されるカラム
const (
	colTimestamp = "timestamp"
	colOpen      = "open"
	colHigh      = "high"
	colLow       = "low"
	colClose     = "close"
	colVolume    = "volume"
)

// requiredColumns が欠けているソースは不正として扱います。価格を合成することはありません。
var requiredColumns = []string{colTimestamp, colOpen, colHigh, colLow, colClose}

// Opener はロケーション文字列からデータを開くインターフェースです。
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// decoded は1ファイル分のデコード結果です。
type decoded struct {
	bars []entity.RawBar
	// defaulted はファイルに存在せず0で補完されたカラムです。
	defaulted []string
}

// Loader は銘柄の分割ファイルをすべて読み込み、1つの生データ系列に結合します。
type Loader struct {
	opener Opener
}

// LoaderがSeriesLoaderを実装していることをコンパイル時に検証します。
var _ usecase.SeriesLoader = (*Loader)(nil)

// NewLoader は指定されたOpenerでLoaderの新しいインスタンスを生成します。
func NewLoader(opener Opener) *Loader {
	return &Loader{opener: opener}
}

// Load はlocationsのファイルを順に読み込み、結合して返します。
//
//   - 1つでも読めないロケーションがあれば ErrSourceUnavailable で全体を失敗させる（部分結果は返さない）
//   - 価格カラムの欠落・不正値は ErrMalformedSource
//   - 同一時刻のレコードは最初に現れたものを採用
//   - window が指定されていれば、行の検証後に範囲外の行を保持せず捨てる（検証結果はwindowに依存しない）
//
// 返却順は保証しないため、後段で必ずソートすること。
func (l *Loader) Load(ctx context.Context, symbol string, locations []string, window entity.Window) ([]entity.RawBar, error) {
	if len(locations) == 0 {
		return nil, domain.NewSourceError(domain.ErrSourceUnavailable, symbol, errors.New("no source locations configured"))
	}

	var out []entity.RawBar
	seen := make(map[int64]struct{})
	for _, loc := range locations {
		data, err := l.read(ctx, loc)
		if err != nil {
			slog.Error("source unavailable", "symbol", symbol, "location", loc, "error", err)
			return nil, domain.NewSourceError(domain.ErrSourceUnavailable, loc, err)
		}

		res, err := decode(loc, data, window)
		if err != nil {
			slog.Error("malformed source", "symbol", symbol, "location", loc, "error", err)
			return nil, domain.NewSourceError(domain.ErrMalformedSource, loc, err)
		}
		if len(res.defaulted) > 0 {
			slog.Warn("source missing columns, filled with 0", "symbol", symbol, "location", loc, "columns", res.defaulted)
		}

		kept := 0
		for _, b := range res.bars {
			k := b.Time.UnixNano()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, b)
			kept++
		}
		slog.Debug("source loaded", "symbol", symbol, "location", loc, "rows", len(res.bars), "kept", kept)
	}
	return out, nil
}

// read はロケーション全体をメモリに読み込みます。途中で失敗した場合はエラーとなり、部分データは使用しません。
func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	rc, err := l.opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.Warn("failed to close source", "location", location, "error", err)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

// decode は拡張子に応じてデコーダを選択します。Parquet以外はCSVとして扱います。
func decode(location string, data []byte, window entity.Window) (decoded, error) {
	if strings.EqualFold(path.Ext(location), ".parquet") {
		return decodeParquet(data, window)
	}
	return decodeCSV(data, window)
}
