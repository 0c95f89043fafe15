package analyzer

import (
	"github.com/keagan/framescope/internal/config"
	"github.com/keagan/framescope/internal/metrics"
)

// SchemaVersion tags every emitted analysis record. Downstream consumers
// parse the subtree by key, so field names here are load-bearing.
const SchemaVersion = "2.0"

// Record is the aggregate analysis output for one video. It is immutable
// after aggregation and persisted as the "analysis" subtree of the video's
// metadata document.
type Record struct {
	SchemaVersion    string                `json:"schema_version"`
	Config           config.AnalysisConfig `json:"config"`
	VideoQuality     VideoQuality          `json:"video_quality"`
	VisualMetrics    VisualMetrics         `json:"visual_metrics"`
	ContentDetection ContentDetection      `json:"content_detection"`
	MotionAnalysis   *metrics.MotionResult `json:"motion_analysis"`
	ColorAnalysis    *metrics.ColorResult  `json:"color_analysis"`
	SceneAnalysis    *metrics.SceneResult  `json:"scene_analysis,omitempty"`
	AudioMetrics     AudioMetrics          `json:"audio_metrics"`
}

// VideoQuality echoes the container-level properties of the analyzed file.
type VideoQuality struct {
	Resolution      string  `json:"resolution"`
	FPS             float64 `json:"fps"`
	DurationSeconds float64 `json:"duration_seconds"`
	FramesAnalyzed  int     `json:"frames_analyzed"`
}

// VisualMetrics aggregates the per-frame intensity extractions. A nil field
// means every sample for that metric was skipped.
type VisualMetrics struct {
	Brightness *metrics.Stats `json:"brightness"`
	Contrast   *metrics.Stats `json:"contrast"`
	Sharpness  *metrics.Stats `json:"sharpness"`
}

// DetectionSummary aggregates per-frame detection results for one kind.
type DetectionSummary struct {
	Detected      bool    `json:"detected"`
	AvgCount      float64 `json:"avg_count"`
	AvgConfidence float64 `json:"avg_confidence,omitempty"`
	BackendUsed   string  `json:"backend_used"`
}

// ContentDetection groups the content-level signals.
type ContentDetection struct {
	FaceDetection   *DetectionSummary   `json:"face_detection"`
	PersonDetection *DetectionSummary   `json:"person_detection"`
	TextOverlay     *metrics.TextResult `json:"text_overlay"`
}

// AudioMetrics reports track-level audio signals. A video without an audio
// track has HasAudio=false and nil value fields; "silent" and "no track" are
// distinct states.
type AudioMetrics struct {
	HasAudio       bool     `json:"has_audio"`
	AvgVolumeDB    *float64 `json:"avg_volume_db,omitempty"`
	SpeechDetected *bool    `json:"speech_detected,omitempty"`
}
