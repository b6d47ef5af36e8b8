package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// Driver renders datasets into a per-run session directory. Each
// rendered dataset gets its own image ("window"); rendering is
// synchronous and happens inside the per-channel loop.
type Driver struct {
	cfg     Config
	dir     string
	runID   string
	windows int
}

// NewDriver validates the configuration and creates a session directory
// <base>/<timestamp>_<run id> for this run's output.
func NewDriver(cfg Config, baseDir string) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}

	runID := uuid.New().String()[:8]
	dir := filepath.Join(baseDir, time.Now().Format("20060102_150405")+"_"+runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Driver{cfg: cfg, dir: dir, runID: runID}, nil
}

// Dir returns the session output directory.
func (d *Driver) Dir() string { return d.dir }

// RunID returns the run identifier embedded in the directory name.
func (d *Driver) RunID() string { return d.runID }

// Windows returns how many images this driver has produced.
func (d *Driver) Windows() int { return d.windows }

// Echogram renders one dataset as an echogram image, clipped to the
// configured threshold pair for its kind and drawn with the configured
// color scale. Angle datasets carry their display unit in the title.
// Returns the written file path.
func (d *Driver) Echogram(ds *echogram.Dataset, kind Kind) (string, error) {
	thr := d.cfg.threshold(kind)
	pal, err := paletteFor(d.cfg.scale(kind), 255)
	if err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = ds.Label()
	if ds.Quantity.IsAngle() {
		p.Title.Text += " (" + ds.Quantity.Unit() + ")"
	}
	p.X.Label.Text = "Ping"
	p.Y.Label.Text = "Range (m)"
	// Shallow at the top, like a paper echogram.
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	hm := plotter.NewHeatMap(&gridView{ds: ds, min: thr[0], max: thr[1]}, pal)
	hm.Min = thr[0]
	hm.Max = thr[1]
	p.Add(hm)

	base := d.filename(ds, kind)
	path := filepath.Join(d.dir, base+".png")
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save echogram %s: %w", ds.Label(), err)
	}
	d.windows++

	if d.cfg.HTML {
		if err := d.echogramHTML(ds, kind, filepath.Join(d.dir, base+".html")); err != nil {
			return "", err
		}
	}
	return path, nil
}

// Overlay draws the most recent ping from each dataset as a
// quantity-vs-range curve on one shared axis, depth inverted, labelled
// by source. All datasets must share a quantity; they need not share a
// shape, since each curve carries its own range axis.
func (d *Driver) Overlay(datasets ...*echogram.Dataset) (string, error) {
	if len(datasets) == 0 {
		return "", fmt.Errorf("overlay: no datasets")
	}

	first := datasets[0]
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Ping %d comparison %g kHz", first.Pings(), first.FrequencyHz/1000)
	p.X.Label.Text = fmt.Sprintf("%s (%s)", first.Quantity, first.Quantity.Unit())
	p.Y.Label.Text = "Range (m)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	colors := []color.Color{
		color.RGBA{R: 0xd6, G: 0x2a, B: 0x28, A: 0xff},
		color.RGBA{R: 0x1f, G: 0x4e, B: 0xd8, A: 0xff},
		color.RGBA{R: 0xe8, G: 0x8c, B: 0x1f, A: 0xff},
	}
	for i, ds := range datasets {
		last := ds.LastPing()
		pts := make(plotter.XYs, 0, len(last))
		for s, v := range last {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: v, Y: ds.Ranges[s]})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("overlay %s: %w", ds.Source, err)
		}
		line.Color = colors[i%len(colors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(ds.Source, line)
	}
	p.Legend.Top = true

	name := fmt.Sprintf("%02d_overlay_%s_%gkHz.png", d.windows, first.Quantity, first.FrequencyHz/1000)
	path := filepath.Join(d.dir, sanitize(name))
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save overlay: %w", err)
	}
	d.windows++
	return path, nil
}

func (d *Driver) filename(ds *echogram.Dataset, kind Kind) string {
	tag := "raw"
	if kind == KindDiff {
		tag = "diff"
	}
	name := fmt.Sprintf("%02d_%s_%s_%s_%gkHz",
		d.windows, tag, ds.Source, ds.Quantity, ds.FrequencyHz/1000)
	return sanitize(name)
}

func sanitize(name string) string {
	r := strings.NewReplacer(" - ", "-minus-", " ", "_", "/", "-")
	return r.Replace(name)
}

// gridView adapts a dataset to plotter.GridXYZ with display clipping:
// values are clamped into [min,max] and NaN draws as the lower bound.
// Clipping here is a display decision only; the difference engine never
// masks or clamps.
type gridView struct {
	ds       *echogram.Dataset
	min, max float64
}

func (g *gridView) Dims() (c, r int) {
	sh := g.ds.Shape()
	return sh.Pings, sh.Samples
}

func (g *gridView) X(c int) float64 { return float64(c) }

func (g *gridView) Y(r int) float64 { return g.ds.Ranges[r] }

func (g *gridView) Z(c, r int) float64 {
	v := g.ds.At(c, r)
	switch {
	case math.IsNaN(v), v < g.min:
		return g.min
	case v > g.max:
		return g.max
	}
	return v
}
