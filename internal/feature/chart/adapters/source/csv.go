package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/pipeline"
)

// decodeCSV はヘッダ付きCSVをデコードします。カラム名は大文字小文字を区別しません。
func decodeCSV(data []byte, window entity.Window) (decoded, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return decoded{}, errors.New("missing header row")
	}
	if err != nil {
		return decoded{}, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	if missing := missingColumns(idx); len(missing) > 0 {
		return decoded{}, fmt.Errorf("missing required columns %v", missing)
	}

	var res decoded
	volIdx, hasVolume := idx[colVolume]
	if !hasVolume {
		res.defaulted = append(res.defaulted, colVolume)
	}

	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return decoded{}, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := pipeline.ParseInstant(rec[idx[colTimestamp]])
		if err != nil {
			return decoded{}, fmt.Errorf("line %d: %w", line, err)
		}
		// 価格の検証は範囲外の行にも行い、フィルタの有無で結果が変わらないようにする
		bar := entity.RawBar{Time: ts}
		fields := []struct {
			name string
			dst  *float64
		}{
			{colOpen, &bar.Open},
			{colHigh, &bar.High},
			{colLow, &bar.Low},
			{colClose, &bar.Close},
		}
		for _, f := range fields {
			v, err := parsePrice(f.name, rec[idx[f.name]])
			if err != nil {
				return decoded{}, fmt.Errorf("line %d: %w", line, err)
			}
			*f.dst = v
		}
		if hasVolume {
			if bar.Volume, err = parseVolume(rec[volIdx]); err != nil {
				return decoded{}, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if !window.Contains(ts) {
			continue
		}
		res.bars = append(res.bars, bar)
	}
	return res, nil
}
