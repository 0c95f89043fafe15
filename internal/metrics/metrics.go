// Package metrics holds the per-frame signal extractors. Every extractor is a
// pure function over decoded frames or audio statistics; none mutate shared
// state, so the analyzer can call them freely from any worker.
package metrics

import (
	"errors"
	"image"
	"math"
)

// ErrExtraction marks a metric extractor failure on a frame. The analyzer
// recovers it locally by skipping that sample.
var ErrExtraction = errors.New("metric extraction failed")

// Stats summarizes a sampled scalar signal.
type Stats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
}

// intensity flattens a frame to a single-channel luminance plane (BT.601).
func intensity(img image.Image) ([]float64, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	plane := make([]float64, w*h)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			plane[i] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			i++
		}
	}
	return plane, w, h
}

// Summarize reduces a series of sampled values to run-level stats.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	min, max := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	std := 0.0
	if len(values) > 1 {
		std = math.Sqrt(sqSum / float64(len(values)))
	}

	return Stats{Mean: mean, Std: std, Min: min, Max: max}
}
