package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"chart_backend/internal/config"
	"chart_backend/internal/feature/chart/domain/entity"
)

// chartService is the part of the chart usecase the commands need.
type chartService interface {
	BuildDaySeries(ctx context.Context, symbol string, date civil.Date) ([]entity.Bar, error)
	RenderDailyChart(ctx context.Context, symbol string, date civil.Date) ([]byte, error)
}

type serviceLoader func(ctx context.Context, configPath string) (chartService, *config.Config, error)

// catalogSeeder writes the configured symbol list into the catalog database.
type catalogSeeder func(ctx context.Context, configPath string) error

type options struct {
	configPath string
	ticker     string
	date       string
}

func newRootCmd(load serviceLoader, seed catalogSeeder) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "chartctl",
		Short:         "Build daily minute-bar candlestick charts from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.PathFromEnv(), "config file (YAML)")
	root.PersistentFlags().StringVarP(&opts.ticker, "ticker", "t", "", "ticker symbol (default from config)")
	root.PersistentFlags().StringVarP(&opts.date, "date", "d", "", "exchange-local date YYYY-MM-DD (default from config)")

	root.AddCommand(newRenderCmd(load, opts), newSeriesCmd(load, opts), newSeedCmd(seed, opts))
	return root
}

func newRenderCmd(load serviceLoader, opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the chart and write it as a PNG file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ticker, date, err := prepare(cmd.Context(), load, opts)
			if err != nil {
				return err
			}
			img, err := svc.RenderDailyChart(cmd.Context(), ticker, date)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s_%s.png", ticker, date)
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(img))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default <TICKER>_<DATE>.png)")
	return cmd
}

func newSeriesCmd(load serviceLoader, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Print the gap-filled session series as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ticker, date, err := prepare(cmd.Context(), load, opts)
			if err != nil {
				return err
			}
			bars, err := svc.BuildDaySeries(cmd.Context(), ticker, date)
			if err != nil {
				return err
			}
			return writeSeries(cmd.OutOrStdout(), bars)
		},
	}
}

func newSeedCmd(seed catalogSeeder, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog",
		Short: "Write catalog.symbols from the config file into catalog.database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := seed(cmd.Context(), opts.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog seeded")
			return nil
		},
	}
}

// prepare loads the service and resolves ticker and date against the config defaults.
func prepare(ctx context.Context, load serviceLoader, opts *options) (chartService, string, civil.Date, error) {
	svc, cfg, err := load(ctx, opts.configPath)
	if err != nil {
		return nil, "", civil.Date{}, err
	}

	ticker := opts.ticker
	if ticker == "" {
		ticker = cfg.Data.DefaultTicker
	}
	date := cfg.DefaultDate()
	if opts.date != "" {
		date, err = civil.ParseDate(opts.date)
		if err != nil {
			return nil, "", civil.Date{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", opts.date, err)
		}
	}
	return svc, ticker, date, nil
}

func writeSeries(w io.Writer, bars []entity.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "filled"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		rec := []string{
			b.Time.Format(time.RFC3339),
			f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume),
			strconv.FormatBool(b.Filled),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
