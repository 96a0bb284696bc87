// Package chart renders backtest results as PNG charts.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"MarketBacktest/internal/model"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 5 * vg.Inch
)

var (
	profitColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	closeColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	buyColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	sellColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Renderer displays the profit curve of a finished run.
type Renderer interface {
	RenderProfit(ctx context.Context, title string, rows []model.GeneratedRow) error
}

// Nop discards charts. Used for headless runs.
type Nop struct{}

func (Nop) RenderProfit(context.Context, string, []model.GeneratedRow) error { return nil }

// PNGRenderer writes charts into Dir. When Viewer is set, the command is run
// with the chart path appended and RenderProfit blocks until it exits.
type PNGRenderer struct {
	Dir    string
	Viewer []string
	log    *zap.Logger
}

// NewPNGRenderer creates a renderer writing to dir. viewer may be empty.
func NewPNGRenderer(dir string, viewer []string, log *zap.Logger) *PNGRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &PNGRenderer{Dir: dir, Viewer: viewer, log: log}
}

// RenderProfit plots Profit % over time to <Dir>/<title>_profit.png.
func (r *PNGRenderer) RenderProfit(ctx context.Context, title string, rows []model.GeneratedRow) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(r.Dir, FileName(title, "profit"))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := ProfitChart(f, title, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}
	r.log.Info("profit chart written", zap.String("path", path))
	return r.show(ctx, path)
}

func (r *PNGRenderer) show(ctx context.Context, path string) error {
	if len(r.Viewer) == 0 {
		return nil
	}
	args := append(append([]string{}, r.Viewer[1:]...), path)
	cmd := exec.CommandContext(ctx, r.Viewer[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chart viewer %s: %w", r.Viewer[0], err)
	}
	return nil
}

// FileName builds a filesystem-safe PNG name from a chart title.
func FileName(title, kind string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, title)
	return slug + "_" + kind + ".png"
}

// ProfitChart writes a PNG line chart of Profit % (y) against date (x).
func ProfitChart(w io.Writer, title string, rows []model.GeneratedRow) error {
	p := newTimePlot(title, "% Profit")

	pts := make(plotter.XYs, len(rows))
	for i, row := range rows {
		pts[i].X = float64(row.Time.Unix())
		pts[i].Y = row.ProfitPct
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("profit line: %w", err)
	}
	line.LineStyle.Color = profitColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(plotter.NewGrid(), line)

	return writePNG(p, w)
}

// SignalChart writes a PNG of close prices with BUY and SELL markers.
// points must be aligned with bars.
func SignalChart(w io.Writer, title string, bars []model.OHLCV, points []model.SignalPoint) error {
	p := newTimePlot(title, "Close")

	closes := make(plotter.XYs, len(bars))
	var buys, sells plotter.XYs
	for i, b := range bars {
		x := float64(b.Time.Unix())
		closes[i].X, closes[i].Y = x, b.Close
		if i >= len(points) {
			continue
		}
		switch points[i].Signal {
		case model.Buy:
			buys = append(buys, plotter.XY{X: x, Y: b.Close})
		case model.Sell:
			sells = append(sells, plotter.XY{X: x, Y: b.Close})
		}
	}

	line, err := plotter.NewLine(closes)
	if err != nil {
		return fmt.Errorf("close line: %w", err)
	}
	line.LineStyle.Color = closeColor
	p.Add(plotter.NewGrid(), line)
	p.Legend.Add("close", line)

	for _, m := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"buy", buys, buyColor, draw.TriangleGlyph{}},
		{"sell", sells, sellColor, draw.CircleGlyph{}},
	} {
		if len(m.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(m.pts)
		if err != nil {
			return fmt.Errorf("%s markers: %w", m.label, err)
		}
		s.GlyphStyle.Color = m.color
		s.GlyphStyle.Shape = m.shape
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
		p.Legend.Add(m.label, s)
	}

	return writePNG(p, w)
}

func newTimePlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	return p
}

func writePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
