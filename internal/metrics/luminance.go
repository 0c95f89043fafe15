package metrics

import (
	"fmt"
	"image"
)

// FrameLuminance holds the per-frame intensity measurements the analyzer
// aggregates across the run.
type FrameLuminance struct {
	Brightness Stats
	Sharpness  float64
}

// Luminance computes brightness statistics and Laplacian-variance sharpness
// for one frame. Contrast is the brightness std, reported separately at the
// aggregate level.
func Luminance(img image.Image) (FrameLuminance, error) {
	plane, w, h := intensity(img)
	if w < 3 || h < 3 {
		return FrameLuminance{}, fmt.Errorf("%w: frame too small (%dx%d)", ErrExtraction, w, h)
	}

	return FrameLuminance{
		Brightness: Summarize(plane),
		Sharpness:  laplacianVariance(plane, w, h),
	}, nil
}

// laplacianVariance measures high-frequency detail, a standard focus proxy.
// Uses the 4-neighbor discrete Laplacian over the interior pixels.
func laplacianVariance(plane []float64, w, h int) float64 {
	n := (w - 2) * (h - 2)
	if n <= 0 {
		return 0
	}

	var sum float64
	lap := make([]float64, 0, n)
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			v := plane[i-w] + plane[i+w] + plane[i-1] + plane[i+1] - 4*plane[i]
			lap = append(lap, v)
			sum += v
		}
	}

	mean := sum / float64(n)
	var sqSum float64
	for _, v := range lap {
		d := v - mean
		sqSum += d * d
	}
	return sqSum / float64(n)
}
