// Package sampling decides which frame indices to decode from a video under
// a configured effort budget.
package sampling

import (
	"fmt"
	"math"

	"github.com/keagan/framescope/internal/config"
)

// MinSamples is the floor on resolved sample counts for videos that have at
// least that many frames.
const MinSamples = 5

// Plan returns a strictly increasing sequence of unique frame indices in
// [0, totalFrames), evenly spaced across the full duration, starting at 0.
// SamplePercent takes precedence over SampleFrameCount when both are set.
func Plan(totalFrames int, cfg config.AnalysisConfig) ([]int, error) {
	if totalFrames <= 0 {
		return nil, fmt.Errorf("%w: total frame count %d", config.ErrInvalid, totalFrames)
	}

	var target int
	switch {
	case cfg.SamplePercent > 0:
		if cfg.SamplePercent > 100 {
			return nil, fmt.Errorf("%w: sample_percent %d out of range 1-100", config.ErrInvalid, cfg.SamplePercent)
		}
		target = int(math.Ceil(float64(totalFrames) * float64(cfg.SamplePercent) / 100))
	case cfg.SampleFrameCount > 0:
		target = cfg.SampleFrameCount
	default:
		return nil, fmt.Errorf("%w: neither sample_frame_count nor sample_percent set", config.ErrInvalid)
	}

	floor := MinSamples
	if totalFrames < floor {
		floor = totalFrames
	}
	if target < floor {
		target = floor
	}
	if target > totalFrames {
		target = totalFrames
	}

	if target == totalFrames {
		indices := make([]int, totalFrames)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	// stride >= 1 here, so floor(i*stride) is strictly increasing.
	stride := float64(totalFrames) / float64(target)
	indices := make([]int, target)
	for i := 0; i < target; i++ {
		idx := int(float64(i) * stride)
		if idx > totalFrames-1 {
			idx = totalFrames - 1
		}
		indices[i] = idx
	}

	return indices, nil
}
