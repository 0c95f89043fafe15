package metrics

import (
	"fmt"
	"image"
)

// sceneCutThreshold is the histogram distance above which a transition
// between consecutive sampled frames counts as an edit boundary.
const sceneCutThreshold = 0.45

// histBins per RGB channel; 8x8x8 is the conventional shot-boundary setup.
const histBins = 8

// SceneResult is the run-level scene summary.
type SceneResult struct {
	SceneCount       int       `json:"scene_count"`
	CutsPerMinute    float64   `json:"cuts_per_minute"`
	AvgSceneDuration float64   `json:"avg_scene_duration"`
	SceneBoundaries  []float64 `json:"scene_boundaries"`
}

// SceneTracker detects cuts via color-histogram distance between consecutive
// sampled frames. Only the previous frame's histogram is retained.
type SceneTracker struct {
	prev       []float64
	boundaries []float64
	frames     int
}

// NewSceneTracker creates an empty tracker.
func NewSceneTracker() *SceneTracker {
	return &SceneTracker{boundaries: make([]float64, 0)}
}

// Observe feeds the next sampled frame in order together with its timestamp
// in seconds. The frame is not retained.
func (t *SceneTracker) Observe(img image.Image, timestamp float64) {
	cur := histogram(img)
	if t.prev != nil && histDistance(t.prev, cur) > sceneCutThreshold {
		t.boundaries = append(t.boundaries, round2(timestamp))
	}
	t.prev = cur
	t.frames++
}

// Result reduces the observed boundaries to the run-level scene summary.
// durationSec is the full video duration.
func (t *SceneTracker) Result(durationSec float64) (SceneResult, error) {
	if t.frames < 2 {
		return SceneResult{}, fmt.Errorf("%w: scene detection needs at least 2 frames", ErrExtraction)
	}
	if durationSec <= 0 {
		return SceneResult{}, fmt.Errorf("%w: non-positive duration", ErrExtraction)
	}

	sceneCount := len(t.boundaries) + 1
	return SceneResult{
		SceneCount:       sceneCount,
		CutsPerMinute:    round2(float64(len(t.boundaries)) / (durationSec / 60)),
		AvgSceneDuration: round2(durationSec / float64(sceneCount)),
		SceneBoundaries:  t.boundaries,
	}, nil
}

// histogram builds a normalized 8x8x8 RGB histogram.
func histogram(img image.Image) []float64 {
	hist := make([]float64, histBins*histBins*histBins)
	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			ri := int(r>>8) * histBins / 256
			gi := int(g>>8) * histBins / 256
			bi := int(bl>>8) * histBins / 256
			hist[ri*histBins*histBins+gi*histBins+bi]++
		}
	}

	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// histDistance is 1 minus histogram intersection: 0 for identical frames,
// approaching 1 for fully disjoint palettes.
func histDistance(a, b []float64) float64 {
	var intersection float64
	for i := range a {
		if a[i] < b[i] {
			intersection += a[i]
		} else {
			intersection += b[i]
		}
	}
	return 1 - intersection
}
