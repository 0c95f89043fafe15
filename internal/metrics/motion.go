package metrics

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
)

// Motion level thresholds on the 0-100 score.
const (
	motionMediumThreshold = 20.0
	motionHighThreshold   = 50.0

	// Fixed normalization scale: a mean absolute intensity difference of 25
	// between consecutive samples maps to score 100.
	motionDiffScale = 25.0
)

// MotionResult is the run-level motion summary.
type MotionResult struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

// MotionTracker scores inter-frame movement across the ordered sampled
// frames it observes. Frames are downscaled so their larger dimension is res
// before differencing; only the previous frame's intensity plane is retained.
type MotionTracker struct {
	res     int
	prev    []float64
	pw, ph  int
	diffSum float64
	pairs   int
	frames  int
}

// NewMotionTracker creates a tracker differencing at the given resolution.
func NewMotionTracker(motionRes int) *MotionTracker {
	return &MotionTracker{res: motionRes}
}

// Observe feeds the next sampled frame in order. The frame is not retained.
func (t *MotionTracker) Observe(img image.Image) {
	cur, cw, ch := intensity(downscale(img, t.res))
	t.frames++

	// A mid-stream resolution change breaks the pair; the new plane becomes
	// the comparison base.
	if t.prev != nil && cw == t.pw && ch == t.ph {
		var frameDiff float64
		for i := range cur {
			frameDiff += math.Abs(cur[i] - t.prev[i])
		}
		t.diffSum += frameDiff / float64(len(cur))
		t.pairs++
	}

	t.prev, t.pw, t.ph = cur, cw, ch
}

// Result reduces the observed pairs to the run-level motion summary.
func (t *MotionTracker) Result() (MotionResult, error) {
	if t.frames < 2 {
		return MotionResult{}, fmt.Errorf("%w: motion needs at least 2 frames, got %d", ErrExtraction, t.frames)
	}
	if t.pairs == 0 {
		return MotionResult{}, fmt.Errorf("%w: no comparable frame pairs", ErrExtraction)
	}

	mean := t.diffSum / float64(t.pairs)
	score := math.Min(100, mean/motionDiffScale*100)

	level := "LOW"
	if score >= motionHighThreshold {
		level = "HIGH"
	} else if score >= motionMediumThreshold {
		level = "MEDIUM"
	}

	return MotionResult{Score: round2(score), Level: level}, nil
}

func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Bilinear)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
