package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/pipeline"
)

// readOnlyFile serves a fully read parquet object to the column reader.
// Open hands out independent cursors over the same bytes.
type readOnlyFile struct {
	*bytes.Reader
	data []byte
}

var _ source.ParquetFile = (*readOnlyFile)(nil)

func newReadOnlyFile(data []byte) *readOnlyFile {
	return &readOnlyFile{Reader: bytes.NewReader(data), data: data}
}

func (f *readOnlyFile) Open(string) (source.ParquetFile, error) { return newReadOnlyFile(f.data), nil }
func (f *readOnlyFile) Create(string) (source.ParquetFile, error) {
	return nil, errors.New("parquet source is read-only")
}
func (f *readOnlyFile) Write([]byte) (int, error) { return 0, errors.New("parquet source is read-only") }
func (f *readOnlyFile) Close() error              { return nil }

// parquetColumn is a top-level leaf of the file schema.
type parquetColumn struct {
	path    string
	element *parquet.SchemaElement
}

// decodeParquet reads a flat parquet file column by column.
// The timestamp column may be a UTF8 string (same layouts as CSV) or an
// INT64 epoch in milliseconds (microseconds when annotated TIMESTAMP_MICROS).
func decodeParquet(data []byte, window entity.Window) (res decoded, err error) {
	// A corrupt footer can make the reader panic; report it as a malformed source.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet reader: %v", r)
		}
	}()

	pr, err := reader.NewParquetColumnReader(newReadOnlyFile(data), 1)
	if err != nil {
		return decoded{}, fmt.Errorf("open parquet: %w", err)
	}
	defer pr.ReadStop()

	cols := parquetColumns(pr.Footer.Schema)
	present := make(map[string]int, len(cols))
	for name := range cols {
		present[name] = 0
	}
	if missing := missingColumns(present); len(missing) > 0 {
		return decoded{}, fmt.Errorf("missing required columns %v", missing)
	}

	num := pr.GetNumRows()
	read := func(name string) ([]interface{}, error) {
		values, _, _, err := pr.ReadColumnByPath(cols[name].path, num)
		if err != nil {
			return nil, fmt.Errorf("read column %s: %w", name, err)
		}
		if int64(len(values)) != num {
			return nil, fmt.Errorf("column %s has %d values, want %d", name, len(values), num)
		}
		return values, nil
	}

	tsValues, err := read(colTimestamp)
	if err != nil {
		return decoded{}, err
	}
	micros := isTimestampMicros(cols[colTimestamp].element)

	priceNames := []string{colOpen, colHigh, colLow, colClose}
	prices := make([][]interface{}, len(priceNames))
	for j, name := range priceNames {
		if prices[j], err = read(name); err != nil {
			return decoded{}, err
		}
	}
	var volumes []interface{}
	if _, ok := cols[colVolume]; ok {
		if volumes, err = read(colVolume); err != nil {
			return decoded{}, err
		}
	} else {
		res.defaulted = append(res.defaulted, colVolume)
	}

	for i := int64(0); i < num; i++ {
		ts, err := parquetInstant(tsValues[i], micros)
		if err != nil {
			return decoded{}, fmt.Errorf("row %d: %w", i, err)
		}
		bar := entity.RawBar{Time: ts}
		dsts := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		for j, name := range priceNames {
			v, ok := parquetFloat(prices[j][i])
			if !ok {
				return decoded{}, fmt.Errorf("row %d: invalid %s %v", i, name, prices[j][i])
			}
			if err := checkFinite(name, v); err != nil {
				return decoded{}, fmt.Errorf("row %d: %w", i, err)
			}
			*dsts[j] = v
		}
		if volumes != nil && volumes[i] != nil {
			v, ok := parquetFloat(volumes[i])
			if !ok {
				return decoded{}, fmt.Errorf("row %d: invalid volume %v", i, volumes[i])
			}
			if err := checkFinite(colVolume, v); err != nil {
				return decoded{}, fmt.Errorf("row %d: %w", i, err)
			}
			bar.Volume = v
		}
		if !window.Contains(ts) {
			continue
		}
		res.bars = append(res.bars, bar)
	}
	return res, nil
}

// parquetColumns maps lower-cased leaf names directly under the root to their paths.
func parquetColumns(schema []*parquet.SchemaElement) map[string]parquetColumn {
	cols := make(map[string]parquetColumn)
	if len(schema) == 0 {
		return cols
	}
	root := schema[0].GetName()
	for _, el := range schema[1:] {
		if el.GetNumChildren() > 0 {
			continue
		}
		name := strings.ToLower(el.GetName())
		if _, dup := cols[name]; dup {
			continue
		}
		cols[name] = parquetColumn{
			path:    common.ReformPathStr(root + "." + el.GetName()),
			element: el,
		}
	}
	return cols
}

func isTimestampMicros(el *parquet.SchemaElement) bool {
	return el != nil && el.IsSetConvertedType() && el.GetConvertedType() == parquet.ConvertedType_TIMESTAMP_MICROS
}

func parquetInstant(v interface{}, micros bool) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return pipeline.ParseInstant(t)
	case int64:
		if micros {
			return time.UnixMicro(t).UTC(), nil
		}
		return time.UnixMilli(t).UTC(), nil
	case nil:
		return time.Time{}, errors.New("null timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parquetFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
