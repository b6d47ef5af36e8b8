// Command crosscheck cross-validates a sonar survey's backscatter
// measurements across three processing pipelines: the native conversion
// output, the reference export tool's tabular files, and the reference
// toolkit's packed files. For every channel it renders raw and
// difference echograms plus a single-ping overlay into a per-run output
// directory for interactive review.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/acoustic-data/crosscheck/internal/compare"
	"github.com/acoustic-data/crosscheck/internal/pipeline"
	"github.com/acoustic-data/crosscheck/internal/registry"
	"github.com/acoustic-data/crosscheck/internal/render"
	"github.com/acoustic-data/crosscheck/internal/version"
)

var (
	surveyFile  = flag.String("survey", "", "Path to the survey configuration JSON (required)")
	outDir      = flag.String("out", "plots", "Base directory for rendered output")
	channelList = flag.String("channels", "", "Comma-separated channel frequencies in Hz (default: all registered)")
	htmlOut     = flag.Bool("html", false, "Also write interactive HTML echograms")

	rawMin   = flag.Float64("raw-min", -70, "Lower display threshold for raw echograms (dB)")
	rawMax   = flag.Float64("raw-max", -34, "Upper display threshold for raw echograms (dB)")
	rawScale = flag.String("raw-scale", "extended-kindlmann", "Color scale for raw echograms")

	diffMin   = flag.Float64("diff-min", -0.1, "Lower display threshold for difference echograms")
	diffMax   = flag.Float64("diff-max", 0.1, "Upper display threshold for difference echograms")
	diffScale = flag.String("diff-scale", "purple-orange",
		"Diverging color scale for difference echograms (one of: "+strings.Join(render.DivergingScales(), ", ")+")")

	soundSpeed  = flag.Float64("sound-speed", 1480, "Sound speed in m/s for the calibration record")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *surveyFile == "" {
		log.Fatal("survey configuration is required (-survey)")
	}

	channels, err := parseChannels(*channelList)
	if err != nil {
		log.Fatalf("bad -channels value: %v", err)
	}

	reg, err := registry.Load(*surveyFile)
	if err != nil {
		log.Fatalf("load survey: %v", err)
	}
	if reg.Survey() != "" {
		log.Printf("survey %s: %d channels registered", reg.Survey(), len(reg.Frequencies()))
	}

	cfg := render.Config{
		RawThreshold:  [2]float64{*rawMin, *rawMax},
		RawScale:      *rawScale,
		DiffThreshold: [2]float64{*diffMin, *diffMax},
		DiffScale:     *diffScale,
		HTML:          *htmlOut,
	}
	driver, err := render.NewDriver(cfg, *outDir)
	if err != nil {
		log.Fatalf("set up renderer: %v", err)
	}

	h := compare.New(reg, driver, pipeline.Params{SoundSpeedMps: *soundSpeed}, nil)
	if err := h.Run(channels); err != nil {
		log.Fatalf("validation failed: %v", err)
	}

	log.Printf("wrote %d diagnostic windows to %s", driver.Windows(), driver.Dir())
}

func parseChannels(list string) ([]float64, error) {
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	channels := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a frequency: %w", p, err)
		}
		channels = append(channels, f)
	}
	return channels, nil
}
