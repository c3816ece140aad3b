// Package render draws candlestick charts as PNG images with gonum/plot.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg" // png canvas

	"chart_backend/internal/feature/chart/domain/entity"
	"chart_backend/internal/feature/chart/usecase"
)

// Default figure size matches a 12x6 inch chart.
const (
	DefaultWidthInch  = 12
	DefaultHeightInch = 6
	// DefaultMaxBars bounds the work done per image.
	DefaultMaxBars = 2000
)

// Config holds renderer settings. Zero values fall back to defaults.
type Config struct {
	WidthInch  float64
	HeightInch float64
	MaxBars    int
	TimeLabel  string // x axis label, e.g. "Time (ET)"
}

var (
	upColor   = color.RGBA{R: 0x00, G: 0x63, B: 0x40, A: 0xff}
	downColor = color.RGBA{R: 0xa0, G: 0x21, B: 0x28, A: 0xff}
)

// CandlestickRenderer implements usecase.ChartRenderer.
type CandlestickRenderer struct {
	width     vg.Length
	height    vg.Length
	maxBars   int
	timeLabel string
}

var _ usecase.ChartRenderer = (*CandlestickRenderer)(nil)

// NewCandlestickRenderer builds a renderer from cfg.
func NewCandlestickRenderer(cfg Config) *CandlestickRenderer {
	if cfg.WidthInch <= 0 {
		cfg.WidthInch = DefaultWidthInch
	}
	if cfg.HeightInch <= 0 {
		cfg.HeightInch = DefaultHeightInch
	}
	if cfg.MaxBars <= 0 {
		cfg.MaxBars = DefaultMaxBars
	}
	if cfg.TimeLabel == "" {
		cfg.TimeLabel = "Time (ET)"
	}
	return &CandlestickRenderer{
		width:     vg.Length(cfg.WidthInch) * vg.Inch,
		height:    vg.Length(cfg.HeightInch) * vg.Inch,
		maxBars:   cfg.MaxBars,
		timeLabel: cfg.TimeLabel,
	}
}

// Render draws chart and returns the PNG bytes.
func (r *CandlestickRenderer) Render(_ context.Context, chart entity.Chart) ([]byte, error) {
	if len(chart.Bars) == 0 {
		return nil, errors.New("no bars to render")
	}
	if len(chart.Bars) > r.maxBars {
		return nil, fmt.Errorf("%d bars exceeds limit of %d", len(chart.Bars), r.maxBars)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s 1-Minute Candlestick Chart for %s", chart.Symbol, chart.Date)
	p.Y.Label.Text = "Price"
	p.X.Label.Text = r.timeLabel
	p.X.Tick.Marker = plot.TimeTicks{
		Format: "15:04",
		Time:   plot.UnixTimeIn(chart.Bars[0].Time.Location()),
	}
	p.Add(plotter.NewGrid(), &candlesticks{bars: chart.Bars, bodyWidth: 36})

	wt, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, fmt.Errorf("create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// candlesticks plots one body and wick per bar, with x in unix seconds.
type candlesticks struct {
	bars      []entity.Bar
	bodyWidth float64 // seconds
}

func (c *candlesticks) Plot(canvas draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&canvas)
	half := c.bodyWidth / 2
	minBody := vg.Points(0.5)

	for _, b := range c.bars {
		clr := upColor
		if b.Close < b.Open {
			clr = downColor
		}
		x := float64(b.Time.Unix())

		wick := draw.LineStyle{Color: clr, Width: vg.Points(0.6)}
		canvas.StrokeLine2(wick, trX(x), trY(b.Low), trX(x), trY(b.High))

		x0, x1 := trX(x-half), trX(x+half)
		y0, y1 := trY(math.Min(b.Open, b.Close)), trY(math.Max(b.Open, b.Close))
		if y1-y0 < minBody {
			y1 = y0 + minBody
		}
		canvas.FillPolygon(clr, []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}})
	}
}

// DataRange implements plot.DataRanger.
func (c *candlesticks) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = math.Inf(1), math.Inf(-1)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, b := range c.bars {
		x := float64(b.Time.Unix())
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, b.Low), math.Max(ymax, b.High)
	}
	xmin -= c.bodyWidth
	xmax += c.bodyWidth
	if ymax-ymin == 0 {
		pad := math.Max(math.Abs(ymax)*0.001, 0.01)
		ymin -= pad
		ymax += pad
	}
	return xmin, xmax, ymin, ymax
}
