package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart_backend/internal/config"
	"chart_backend/internal/feature/chart/domain"
	"chart_backend/internal/feature/chart/domain/entity"
)

type mockService struct {
	BuildFunc  func(ctx context.Context, symbol string, date civil.Date) ([]entity.Bar, error)
	RenderFunc func(ctx context.Context, symbol string, date civil.Date) ([]byte, error)
}

func (m *mockService) BuildDaySeries(ctx context.Context, symbol string, date civil.Date) ([]entity.Bar, error) {
	return m.BuildFunc(ctx, symbol, date)
}

func (m *mockService) RenderDailyChart(ctx context.Context, symbol string, date civil.Date) ([]byte, error) {
	return m.RenderFunc(ctx, symbol, date)
}

func loaderFor(svc chartService) serviceLoader {
	return func(context.Context, string) (chartService, *config.Config, error) {
		cfg, err := config.Load(filepath.Join(os.TempDir(), "chartctl-missing.yaml"))
		if err != nil {
			return nil, nil, err
		}
		return svc, cfg, nil
	}
}

func execute(t *testing.T, load serviceLoader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(load, func(context.Context, string) error { return nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeriesCmd(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	var gotSymbol string
	var gotDate civil.Date
	svc := &mockService{
		BuildFunc: func(_ context.Context, symbol string, date civil.Date) ([]entity.Bar, error) {
			gotSymbol, gotDate = symbol, date
			return []entity.Bar{
				{Time: time.Date(2021, 11, 8, 9, 31, 0, 0, ny), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
				{Time: time.Date(2021, 11, 8, 9, 32, 0, 0, ny), Open: 10.5, High: 10.5, Low: 10.5, Close: 10.5, Filled: true},
			}, nil
		},
	}

	out, err := execute(t, loaderFor(svc), "series", "--ticker", "aapl", "--date", "2021-11-08")

	require.NoError(t, err)
	assert.Equal(t, "aapl", gotSymbol)
	assert.Equal(t, civil.Date{Year: 2021, Month: time.November, Day: 8}, gotDate)
	assert.Equal(t, strings.Join([]string{
		"timestamp,open,high,low,close,volume,filled",
		"2021-11-08T09:31:00-05:00,10,11,9,10.5,100,false",
		"2021-11-08T09:32:00-05:00,10.5,10.5,10.5,10.5,0,true",
		"",
	}, "\n"), out)
}

func TestSeriesCmd_Defaults(t *testing.T) {
	var gotSymbol string
	var gotDate civil.Date
	svc := &mockService{
		BuildFunc: func(_ context.Context, symbol string, date civil.Date) ([]entity.Bar, error) {
			gotSymbol, gotDate = symbol, date
			return nil, nil
		},
	}

	_, err := execute(t, loaderFor(svc), "series")

	require.NoError(t, err)
	assert.Equal(t, "QQQ", gotSymbol)
	assert.Equal(t, civil.Date{Year: 2015, Month: time.January, Day: 2}, gotDate)
}

func TestRenderCmd(t *testing.T) {
	svc := &mockService{
		RenderFunc: func(context.Context, string, civil.Date) ([]byte, error) {
			return []byte("\x89PNG"), nil
		},
	}
	path := filepath.Join(t.TempDir(), "chart.png")

	out, err := execute(t, loaderFor(svc), "render", "-o", path)

	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
}

func TestCommands_Errors(t *testing.T) {
	failing := &mockService{
		BuildFunc: func(context.Context, string, civil.Date) ([]entity.Bar, error) {
			return nil, domain.ErrNoDataForDate
		},
		RenderFunc: func(context.Context, string, civil.Date) ([]byte, error) {
			return nil, domain.ErrUnknownSymbol
		},
	}
	loadErr := errors.New("bad config")

	tests := []struct {
		name    string
		load    serviceLoader
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "error: series no data", load: loaderFor(failing), args: []string{"series"}, wantErr: domain.ErrNoDataForDate},
		{name: "error: render unknown symbol", load: loaderFor(failing), args: []string{"render", "-o", filepath.Join(t.TempDir(), "x.png")}, wantErr: domain.ErrUnknownSymbol},
		{name: "error: invalid date", load: loaderFor(failing), args: []string{"series", "--date", "01/02/2015"}, wantMsg: "invalid --date"},
		{name: "error: loader fails", load: func(context.Context, string) (chartService, *config.Config, error) { return nil, nil, loadErr }, args: []string{"series"}, wantErr: loadErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.load, tt.args...)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestSeedCmd(t *testing.T) {
	var gotPath string
	cmd := newRootCmd(loaderFor(&mockService{}), func(_ context.Context, path string) error {
		gotPath = path
		return nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed-catalog", "--config", "configs/prod.yaml"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "configs/prod.yaml", gotPath)
	assert.Equal(t, "catalog seeded\n", out.String())
}
