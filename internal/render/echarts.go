package render

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// maxHTMLCells caps how many grid cells go into one interactive
// echogram. Full survey grids run to hundreds of thousands of cells,
// which makes the generated page unusable, so both axes are strided
// down to fit.
const maxHTMLCells = 20000

// echogramHTML writes an interactive heatmap page for in-browser review
// of one dataset. The same threshold pair clips the visual map that
// clips the static image.
func (d *Driver) echogramHTML(ds *echogram.Dataset, kind Kind, path string) error {
	thr := d.cfg.threshold(kind)
	sh := ds.Shape()

	stride := 1
	for (sh.Pings/stride+1)*(sh.Samples/stride+1) > maxHTMLCells {
		stride++
	}

	xCats := make([]string, 0, sh.Pings/stride+1)
	for p := 0; p < sh.Pings; p += stride {
		xCats = append(xCats, strconv.Itoa(p))
	}
	// Category axes grow upward, so the deepest range goes first to keep
	// shallow water at the top of the chart.
	yCats := make([]string, 0, sh.Samples/stride+1)
	for s := 0; s < sh.Samples; s += stride {
		yCats = append(yCats, strconv.FormatFloat(ds.Ranges[s], 'f', 1, 64))
	}
	for i, j := 0, len(yCats)-1; i < j; i, j = i+1, j-1 {
		yCats[i], yCats[j] = yCats[j], yCats[i]
	}

	data := make([]opts.HeatMapData, 0, len(xCats)*len(yCats))
	for xi, p := 0, 0; p < sh.Pings; xi, p = xi+1, p+stride {
		for yi, s := 0, 0; s < sh.Samples; yi, s = yi+1, s+stride {
			v := ds.At(p, s)
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.HeatMapData{Value: []interface{}{xi, len(yCats) - 1 - yi, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: ds.Label(),
			Width:     "1200px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    ds.Label(),
			Subtitle: fmt.Sprintf("stride=%d threshold=[%g, %g] %s", stride, thr[0], thr[1], ds.Quantity.Unit()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "Ping"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Range (m)", Data: yCats}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(thr[0]),
			Max:        float32(thr[1]),
			InRange:    &opts.VisualMapInRange{Color: htmlColors(d.cfg.scale(kind))},
		}),
	)
	hm.SetXAxis(xCats).AddSeries(string(ds.Quantity), data)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html echogram: %w", err)
	}
	defer f.Close()
	if err := hm.Render(f); err != nil {
		return fmt.Errorf("render html echogram %s: %w", ds.Label(), err)
	}
	return nil
}

// htmlColors approximates a named scale as visual-map color stops.
func htmlColors(scale string) []string {
	switch scale {
	case "purple-orange":
		return []string{"#542788", "#f7f7f7", "#b35806"}
	case "blue-red":
		return []string{"#3b4cc0", "#f7f7f7", "#b40426"}
	case "green-purple":
		return []string{"#1b7837", "#f7f7f7", "#762a83"}
	case "blue-tan":
		return []string{"#3b4cc0", "#f7f7f7", "#b8860b"}
	case "green-red":
		return []string{"#1b7837", "#f7f7f7", "#b40426"}
	default:
		// Sequential fallback for the raw scales.
		return []string{"#00204d", "#41648c", "#9ba9ab", "#ffe945"}
	}
}
