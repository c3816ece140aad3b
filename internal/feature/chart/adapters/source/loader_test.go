package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart_backend/internal/feature/chart/domain"
	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/pipeline"
)

// writeFile はテスト用のソースファイルを dir に作成します。
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func utc(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

func sortByTime(bars []entity.RawBar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}

func TestLoader_Load_CSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "part1.csv", "timestamp,open,high,low,close,volume\n"+
		"2015-01-02 14:30:00,100,101,99,100.5,1200\n"+
		"2015-01-02T14:31:00Z,100.5,102,100,101,800\n")
	writeFile(t, dir, "part2.csv", "Timestamp,Open,High,Low,Close,Volume\n"+
		"2015-01-02 09:32:00-05:00,101,103,100.5,102,\n")

	l := NewLoader(NewLocalOpener(dir))
	bars, err := l.Load(context.Background(), "QQQ", []string{"part1.csv", "part2.csv"}, entity.Window{})

	require.NoError(t, err)
	sortByTime(bars)
	require.Len(t, bars, 3)
	assert.Equal(t, entity.RawBar{Time: utc(2015, 1, 2, 14, 30), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1200}, bars[0])
	assert.True(t, bars[1].Time.Equal(utc(2015, 1, 2, 14, 31)))
	assert.True(t, bars[2].Time.Equal(utc(2015, 1, 2, 14, 32)))
	assert.Zero(t, bars[2].Volume, "empty volume defaults to 0")
}

func TestLoader_Load_MissingVolumeColumn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "novol.csv", "timestamp,open,high,low,close\n2015-01-02 14:30:00,1,2,0.5,1.5\n")

	bars, err := NewLoader(NewLocalOpener(dir)).Load(context.Background(), "QQQ", []string{"novol.csv"}, entity.Window{})

	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Zero(t, bars[0].Volume)
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestLoader_Load_Deduplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "timestamp,open,high,low,close,volume\n"+
		"2015-01-02 14:30:00,1,1,1,1,10\n"+
		"2015-01-02 14:30:00,9,9,9,9,90\n")
	writeFile(t, dir, "b.csv", "timestamp,open,high,low,close,volume\n"+
		"2015-01-02T14:30:00Z,5,5,5,5,50\n"+
		"2015-01-02 14:31:00,2,2,2,2,20\n")

	bars, err := NewLoader(NewLocalOpener(dir)).Load(context.Background(), "QQQ", []string{"a.csv", "b.csv"}, entity.Window{})

	require.NoError(t, err)
	sortByTime(bars)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close, "first occurrence in location order wins")
	assert.Equal(t, 2.0, bars[1].Close)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "good.csv", "timestamp,open,high,low,close,volume\n2015-01-02 14:30:00,1,1,1,1,1\n")
	writeFile(t, dir, "noclose.csv", "timestamp,open,high,low,volume\n2015-01-02 14:30:00,1,1,1,1\n")
	writeFile(t, dir, "nots.csv", "open,high,low,close,volume\n1,1,1,1,1\n")
	writeFile(t, dir, "nan.csv", "timestamp,open,high,low,close,volume\n2015-01-02 14:30:00,1,NaN,1,1,1\n")
	writeFile(t, dir, "emptyprice.csv", "timestamp,open,high,low,close,volume\n2015-01-02 14:30:00,1,1,,1,1\n")
	writeFile(t, dir, "text.csv", "timestamp,open,high,low,close,volume\n2015-01-02 14:30:00,abc,1,1,1,1\n")
	writeFile(t, dir, "badts.csv", "timestamp,open,high,low,close,volume\nyesterday,1,1,1,1,1\n")
	writeFile(t, dir, "badvol.csv", "timestamp,open,high,low,close,volume\n2015-01-02 14:30:00,1,1,1,1,lots\n")
	writeFile(t, dir, "empty.csv", "")

	tests := []struct {
		name        string
		locations   []string
		expectedErr error
		location    string
	}{
		{name: "error: missing file", locations: []string{"good.csv", "missing.csv"}, expectedErr: domain.ErrSourceUnavailable, location: "missing.csv"},
		{name: "error: no locations", locations: nil, expectedErr: domain.ErrSourceUnavailable, location: "QQQ"},
		{name: "error: missing price column", locations: []string{"good.csv", "noclose.csv"}, expectedErr: domain.ErrMalformedSource, location: "noclose.csv"},
		{name: "error: missing timestamp column", locations: []string{"nots.csv"}, expectedErr: domain.ErrMalformedSource, location: "nots.csv"},
		{name: "error: NaN price", locations: []string{"nan.csv"}, expectedErr: domain.ErrMalformedSource, location: "nan.csv"},
		{name: "error: empty price", locations: []string{"emptyprice.csv"}, expectedErr: domain.ErrMalformedSource, location: "emptyprice.csv"},
		{name: "error: non-numeric price", locations: []string{"text.csv"}, expectedErr: domain.ErrMalformedSource, location: "text.csv"},
		{name: "error: unparsable timestamp", locations: []string{"badts.csv"}, expectedErr: domain.ErrMalformedSource, location: "badts.csv"},
		{name: "error: non-numeric volume", locations: []string{"badvol.csv"}, expectedErr: domain.ErrMalformedSource, location: "badvol.csv"},
		{name: "error: empty file", locations: []string{"empty.csv"}, expectedErr: domain.ErrMalformedSource, location: "empty.csv"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bars, err := NewLoader(NewLocalOpener(dir)).Load(context.Background(), "QQQ", tc.locations, entity.Window{})

			assert.Nil(t, bars, "no partial results")
			require.ErrorIs(t, err, tc.expectedErr)
			var se *domain.SourceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.location, se.Location)
		})
	}
}

// failingOpener は任意のロケーションで読み込み途中に失敗するOpenerです。
type failingOpener struct {
	OpenFunc func(ctx context.Context, location string) (io.ReadCloser, error)
}

func (o *failingOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return o.OpenFunc(ctx, location)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLoader_Load_ReadFailure(t *testing.T) {
	t.Parallel()

	opener := &failingOpener{
		OpenFunc: func(ctx context.Context, location string) (io.ReadCloser, error) {
			return io.NopCloser(io.MultiReader(bytes.NewBufferString("timestamp,open"), errReader{})), nil
		},
	}

	_, err := NewLoader(opener).Load(context.Background(), "QQQ", []string{"s3://bucket/qqq.csv"}, entity.Window{})

	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}

// TestLoader_Load_EarlyFilterEquivalence は読み込み時の日付フィルタと、全件読み込み後の日付抽出が同じ結果になることを検証します。
func TestLoader_Load_EarlyFilterEquivalence(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dir := t.TempDir()
	var content bytes.Buffer
	content.WriteString("timestamp,open,high,low,close,volume\n")
	// 2021-11-05 〜 2021-11-09 (DST終了を跨ぐ) の毎時データ
	start := utc(2021, 11, 5, 0, 0)
	for i := 0; i < 5*24; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		content.WriteString(ts.Format("2006-01-02 15:04:05") + ",1,2,0.5,1.5,10\n")
	}
	writeFile(t, dir, "hourly.csv", content.String())

	l := NewLoader(NewLocalOpener(dir))
	normalizer := pipeline.NewNormalizer(loc)

	all, err := l.Load(context.Background(), "QQQ", []string{"hourly.csv"}, entity.Window{})
	require.NoError(t, err)

	for _, day := range []int{5, 6, 7, 8} {
		date := civil.Date{Year: 2021, Month: time.November, Day: day}

		early, err := l.Load(context.Background(), "QQQ", []string{"hourly.csv"}, pipeline.DayBounds(date, loc))
		require.NoError(t, err)

		want := pipeline.ExtractDay(normalizer.NormalizeAll(all), date)
		got := pipeline.ExtractDay(normalizer.NormalizeAll(early), date)
		assert.Equal(t, want, got, "date %s", date)
		assert.Len(t, early, len(got), "early filter keeps only the target day")
	}
}

// TestLoader_Load_EarlyFilterMalformedOtherDay は対象日以外の行の価格不正でも、フィルタの有無にかかわらず失敗することを検証します。
func TestLoader_Load_EarlyFilterMalformedOtherDay(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "error: non-numeric open on another day",
			file: "a.csv",
			body: "timestamp,open,high,low,close,volume\n" +
				"2015-01-02 14:31:00,10,11,9,10.5,100\n" +
				"2015-01-05 14:31:00,abc,11,9,10.5,100\n",
		},
		{
			name: "error: empty close on another day",
			file: "b.csv",
			body: "timestamp,open,high,low,close,volume\n" +
				"2014-12-31 14:31:00,10,11,9,,100\n" +
				"2015-01-02 14:31:00,10,11,9,10.5,100\n",
		},
		{
			name: "error: bad volume on another day",
			file: "c.csv",
			body: "timestamp,open,high,low,close,volume\n" +
				"2015-01-02 14:31:00,10,11,9,10.5,100\n" +
				"2015-01-03 14:31:00,10,11,9,10.5,many\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.body)
			l := NewLoader(NewLocalOpener(dir))
			window := pipeline.DayBounds(civil.Date{Year: 2015, Month: time.January, Day: 2}, loc)

			early, earlyErr := l.Load(context.Background(), "QQQ", []string{tt.file}, window)
			late, lateErr := l.Load(context.Background(), "QQQ", []string{tt.file}, entity.Window{})

			assert.ErrorIs(t, earlyErr, domain.ErrMalformedSource)
			assert.ErrorIs(t, lateErr, domain.ErrMalformedSource)
			assert.Nil(t, early)
			assert.Nil(t, late)
		})
	}
}

func TestDecodeCSV_HeaderVariants(t *testing.T) {
	t.Parallel()

	res, err := decodeCSV([]byte("\ufeff Timestamp ,OPEN,High,low,Close,VOLUME,extra\n2015-01-02 14:30,1,2,0.5,1.5,3,x\n"), entity.Window{})

	require.NoError(t, err)
	require.Len(t, res.bars, 1)
	assert.Empty(t, res.defaulted)
	assert.Equal(t, entity.RawBar{Time: utc(2015, 1, 2, 14, 30), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3}, res.bars[0])
}

func TestDecodeCSV_Window(t *testing.T) {
	t.Parallel()

	data := []byte("timestamp,open,high,low,close,volume\n" +
		"2015-01-02 04:59:00,1,1,1,1,1\n" +
		"2015-01-02 05:00:00,2,2,2,2,2\n" +
		"2015-01-03 04:59:00,3,3,3,3,3\n" +
		"2015-01-03 05:00:00,4,4,4,4,4\n")
	w := entity.Window{From: utc(2015, 1, 2, 5, 0), To: utc(2015, 1, 3, 5, 0)}

	res, err := decodeCSV(data, w)

	require.NoError(t, err)
	require.Len(t, res.bars, 2)
	assert.Equal(t, 2.0, res.bars[0].Close)
	assert.Equal(t, 3.0, res.bars[1].Close)
}
