package config

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalid marks a configuration error. The batch never starts when
// resolution fails with it.
var ErrInvalid = errors.New("invalid analysis configuration")

// AnalysisConfig is the fully resolved parameter set for one run. It is
// immutable once resolved and echoed verbatim into every analysis record.
type AnalysisConfig struct {
	Preset            string `json:"preset"`
	SampleFrameCount  int    `json:"sample_frame_count"`
	SamplePercent     int    `json:"sample_percent,omitempty"`
	ColorClusterCount int    `json:"color_cluster_count"`
	MotionResolution  int    `json:"motion_resolution"`
	SceneDetection    bool   `json:"scene_detection"`
	FullResolution    bool   `json:"full_resolution"`
	EnableYolo        bool   `json:"enable_yolo"`
	EnableAudio       bool   `json:"enable_audio"`
	Workers           int    `json:"workers"`
}

// Overrides carries explicit flag values that beat the preset. Nil pointers
// leave the preset value in place.
type Overrides struct {
	SampleFrames   *int
	SamplePercent  *int
	ColorClusters  *int
	MotionRes      *int
	Workers        *int
	SceneDetection *bool
	FullResolution *bool
	EnableYolo     *bool
	SkipAudio      bool
}

// presets is a fixed menu trading runtime cost for coverage. Names match the
// original thoroughness levels.
var presets = map[string]AnalysisConfig{
	"quick": {
		SampleFrameCount:  15,
		ColorClusterCount: 4,
		MotionResolution:  120,
	},
	"balanced": {
		SampleFrameCount:  30,
		ColorClusterCount: 6,
		MotionResolution:  240,
	},
	"thorough": {
		SampleFrameCount:  50,
		ColorClusterCount: 8,
		MotionResolution:  360,
	},
	"maximum": {
		SampleFrameCount:  80,
		ColorClusterCount: 12,
		MotionResolution:  640,
		EnableYolo:        true,
	},
	"extreme": {
		SampleFrameCount:  150,
		ColorClusterCount: 16,
		MotionResolution:  720,
		EnableYolo:        true,
		SceneDetection:    true,
		FullResolution:    true,
	},
}

// PresetNames returns the known preset names.
func PresetNames() []string {
	return []string{"quick", "balanced", "thorough", "maximum", "extreme"}
}

// ResolveAnalysis turns a preset name plus explicit overrides into a validated
// AnalysisConfig.
func ResolveAnalysis(preset string, o Overrides) (AnalysisConfig, error) {
	cfg, ok := presets[preset]
	if !ok {
		return AnalysisConfig{}, fmt.Errorf("%w: unknown preset %q", ErrInvalid, preset)
	}
	cfg.Preset = preset
	cfg.EnableAudio = true

	if o.SampleFrames != nil {
		cfg.SampleFrameCount = *o.SampleFrames
	}
	if o.SamplePercent != nil {
		cfg.SamplePercent = *o.SamplePercent
	}
	if o.ColorClusters != nil {
		cfg.ColorClusterCount = *o.ColorClusters
	}
	if o.MotionRes != nil {
		cfg.MotionResolution = *o.MotionRes
	}
	if o.SceneDetection != nil {
		cfg.SceneDetection = *o.SceneDetection
	}
	if o.FullResolution != nil {
		cfg.FullResolution = *o.FullResolution
	}
	if o.EnableYolo != nil {
		cfg.EnableYolo = *o.EnableYolo
	}
	if o.SkipAudio {
		cfg.EnableAudio = false
	}

	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() - 1
		if cfg.Workers < 1 {
			cfg.Workers = 1
		}
	}

	if err := cfg.Validate(); err != nil {
		return AnalysisConfig{}, err
	}
	return cfg, nil
}

// Validate checks the resolved parameter set. SamplePercent, when set,
// overrides SampleFrameCount; at least one of the two must be usable.
func (c AnalysisConfig) Validate() error {
	if c.SamplePercent < 0 || c.SamplePercent > 100 {
		return fmt.Errorf("%w: sample_percent %d out of range 1-100", ErrInvalid, c.SamplePercent)
	}
	if c.SamplePercent == 0 && c.SampleFrameCount <= 0 {
		return fmt.Errorf("%w: neither sample_frame_count nor sample_percent set", ErrInvalid)
	}
	if c.ColorClusterCount < 2 || c.ColorClusterCount > 32 {
		return fmt.Errorf("%w: color_cluster_count %d out of range 2-32", ErrInvalid, c.ColorClusterCount)
	}
	if c.MotionResolution < 32 || c.MotionResolution > 2160 {
		return fmt.Errorf("%w: motion_resolution %d out of range 32-2160", ErrInvalid, c.MotionResolution)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalid)
	}
	return nil
}
