package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart_backend/internal/config"
	"chart_backend/internal/feature/symbollist/domain/entity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestNewCatalog_FromConfig(t *testing.T) {
	cfg := testConfig(t)

	catalog, err := NewCatalog(context.Background(), cfg.Catalog)

	require.NoError(t, err)
	assert.Equal(t, 10, catalog.Len())
	locs, ok := catalog.Locations("qqq")
	require.True(t, ok)
	assert.Equal(t, []string{"qqq_10yr_1min_part1.csv", "qqq_10yr_1min_part2.csv"}, locs)
}

func TestNewCatalog_FromDatabase(t *testing.T) {
	dbCfg := config.DatabaseConfig{
		Driver:         "sqlite",
		DSN:            filepath.Join(t.TempDir(), "catalog.db"),
		Migrate:        true,
		ConnectTimeout: time.Second,
	}
	symbols := []entity.Symbol{
		{Code: "TSLA", Name: "Tesla", Locations: []string{"tsla_1.csv", "tsla_2.parquet"}},
		{Code: "AAPL", Name: "Apple Inc.", Locations: []string{"aapl.csv"}},
	}
	require.NoError(t, SeedCatalog(context.Background(), dbCfg, symbols))

	// 再投入はソースを置き換える
	symbols[1].Locations = []string{"s3://bars/aapl.parquet"}
	require.NoError(t, SeedCatalog(context.Background(), dbCfg, symbols))

	catalog, err := NewCatalog(context.Background(), config.CatalogConfig{Source: "database", Database: dbCfg})

	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AAPL"}, catalog.Codes())
	locs, ok := catalog.Locations("AAPL")
	require.True(t, ok)
	assert.Equal(t, []string{"s3://bars/aapl.parquet"}, locs)
	assert.True(t, usesS3(catalog))
}

func TestNewCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CatalogConfig
	}{
		{name: "error: empty config list", cfg: config.CatalogConfig{Source: "config"}},
		{name: "error: duplicate code", cfg: config.CatalogConfig{Source: "config", Symbols: []config.SymbolConfig{
			{Code: "QQQ", Locations: []string{"a.csv"}},
			{Code: "qqq", Locations: []string{"b.csv"}},
		}}},
		{name: "error: unsupported driver", cfg: config.CatalogConfig{Source: "database", Database: config.DatabaseConfig{Driver: "mysql", DSN: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := NewCatalog(context.Background(), tt.cfg)

			assert.Error(t, err)
			assert.Nil(t, catalog)
		})
	}
}

func TestNewSession(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg.Exchange)

	require.NoError(t, err)
	assert.Equal(t, "America/New_York", s.Location().String())
	assert.Equal(t, 391, s.Slots())

	_, err = NewSession(config.ExchangeConfig{Timezone: "Mars/Olympus", SessionOpen: "09:30", SessionClose: "16:00"})
	assert.Error(t, err)
	_, err = NewSession(config.ExchangeConfig{Timezone: "UTC", SessionOpen: "9h", SessionClose: "16:00"})
	assert.Error(t, err)
}

func TestUsesS3(t *testing.T) {
	local, err := entity.NewCatalog([]entity.Symbol{{Code: "QQQ", Locations: []string{"qqq.csv", "/abs/qqq.parquet"}}})
	require.NoError(t, err)

	assert.False(t, usesS3(local))
}

func TestNewPipeline(t *testing.T) {
	cfg := testConfig(t)

	p, err := NewPipeline(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 10, p.Catalog.Len())
	assert.NotNil(t, p.Chart)
}

func TestNewLimiter_Memory(t *testing.T) {
	cfg := testConfig(t)

	l, stop, err := NewLimiter(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, stop()) }()

	res, err := l.Allow(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 4, res.Remaining)
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewServer(context.Background(), cfg)

	require.NoError(t, err)
	assert.NotNil(t, s.Engine)
	assert.NoError(t, s.Close())
}
