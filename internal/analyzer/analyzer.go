// Package analyzer decodes one video, drives the sampling planner and the
// metric extractors over the sampled frames, and aggregates the results into
// a single analysis record.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/keagan/framescope/internal/config"
	"github.com/keagan/framescope/internal/detect"
	"github.com/keagan/framescope/internal/ffmpeg"
	"github.com/keagan/framescope/internal/metrics"
	"github.com/keagan/framescope/internal/sampling"
	"github.com/keagan/framescope/pkg/util"
)

// analysisDim is the larger-dimension cap applied to decoded frames for the
// quality metrics unless full resolution is requested.
const analysisDim = 480

// Detector serves per-frame detections. Satisfied by detect.Chain.
type Detector interface {
	Detect(img image.Image, kind detect.Kind) (detect.Result, error)
}

// Analyzer runs the full per-video pipeline. Frame decoding and extraction
// are strictly sequential within a video; the batch layer provides the
// parallelism across videos.
type Analyzer struct {
	logger zerolog.Logger
	ffmpeg *ffmpeg.Executor
	chain  Detector
	cfg    config.AnalysisConfig
}

// New creates an analyzer bound to a resolved configuration and an already
// probed detector chain.
func New(logger zerolog.Logger, exec *ffmpeg.Executor, chain Detector, cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
		ffmpeg: exec,
		chain:  chain,
		cfg:    cfg,
	}
}

// Analyze produces the analysis record for one video file. A decode failure
// returns an error wrapping ffmpeg.ErrDecode and no record; per-frame
// extractor failures are recovered by skipping the affected samples.
func (a *Analyzer) Analyze(ctx context.Context, videoPath string) (*Record, error) {
	logger := a.logger.With().Str("video", videoPath).Logger()

	info, err := a.ffmpeg.ProbeVideo(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", videoPath, err)
	}

	logger.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("total_frames", info.TotalFrames).
		Str("duration", util.FormatDuration(info.Duration)).
		Bool("has_audio", info.HasAudio).
		Msg("video opened")

	indices, err := sampling.Plan(info.TotalFrames, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("plan samples for %s: %w", videoPath, err)
	}

	width, height := a.frameSize(info)
	loop := a.newFrameLoop()

	// Frames are processed as they come off the decode pipe; nothing past
	// the running aggregates survives a frame's handler call.
	n := 0
	decoded, err := a.ffmpeg.StreamFrames(ctx, videoPath, indices, width, height, func(frameIndex int, frame image.Image) error {
		timestamp := 0.0
		if info.FPS > 0 {
			timestamp = float64(frameIndex) / info.FPS
		}
		loop.observe(logger, n, frame, timestamp)
		n++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", videoPath, err)
	}

	record := &Record{
		SchemaVersion: SchemaVersion,
		Config:        a.cfg,
		VideoQuality: VideoQuality{
			Resolution:      fmt.Sprintf("%dx%d", info.Width, info.Height),
			FPS:             round2(info.FPS),
			DurationSeconds: round2(info.Duration.Seconds()),
			FramesAnalyzed:  decoded,
		},
		VisualMetrics: loop.visual(),
		ContentDetection: ContentDetection{
			FaceDetection:   loop.detectionSummary(detect.KindFace),
			PersonDetection: loop.detectionSummary(detect.KindPerson),
			TextOverlay:     loop.textResult(),
		},
	}

	if motion, err := loop.motion.Result(); err != nil {
		logger.Warn().Err(err).Msg("motion analysis skipped")
	} else {
		record.MotionAnalysis = &motion
	}

	if loop.scenes != nil {
		if scenes, err := loop.scenes.Result(info.Duration.Seconds()); err != nil {
			logger.Warn().Err(err).Msg("scene detection skipped")
		} else {
			record.SceneAnalysis = &scenes
		}
	}

	if colors, err := loop.colors.Result(a.cfg.ColorClusterCount); err != nil {
		logger.Warn().Err(err).Msg("color analysis skipped")
	} else {
		record.ColorAnalysis = &colors
	}

	record.AudioMetrics = a.analyzeAudio(ctx, logger, info)

	logger.Info().
		Int("frames_analyzed", decoded).
		Msg("analysis complete")

	return record, nil
}

// frameSize picks the decode resolution for quality metrics. ffmpeg scale
// wants even dimensions.
func (a *Analyzer) frameSize(info *ffmpeg.VideoInfo) (int, int) {
	w, h := info.Width, info.Height
	if a.cfg.FullResolution {
		return even(w), even(h)
	}

	larger := w
	if h > larger {
		larger = h
	}
	if larger <= analysisDim {
		return even(w), even(h)
	}

	scale := float64(analysisDim) / float64(larger)
	return even(int(float64(w) * scale)), even(int(float64(h) * scale))
}

func even(v int) int {
	if v < 2 {
		return 2
	}
	return v - v%2
}

// frameLoop accumulates the per-frame extraction results. Frames pass
// through observe one at a time and are never retained.
type frameLoop struct {
	chain Detector

	brightMeans []float64
	brightMins  []float64
	brightMaxs  []float64
	contrasts   []float64
	sharpness   []float64

	textFlags []bool

	detections map[detect.Kind][]detect.Result

	motion *metrics.MotionTracker
	scenes *metrics.SceneTracker
	colors *metrics.ColorSampler
}

func (a *Analyzer) newFrameLoop() *frameLoop {
	loop := &frameLoop{
		chain:      a.chain,
		detections: map[detect.Kind][]detect.Result{},
		motion:     metrics.NewMotionTracker(a.cfg.MotionResolution),
		colors:     metrics.NewColorSampler(),
	}
	if a.cfg.SceneDetection {
		loop.scenes = metrics.NewSceneTracker()
	}
	return loop
}

// observe runs every extractor over one decoded frame. n is the sample
// position, used only for logging.
func (l *frameLoop) observe(logger zerolog.Logger, n int, frame image.Image, timestamp float64) {
	if lum, err := metrics.Luminance(frame); err != nil {
		logger.Warn().Err(err).Int("frame", n).Msg("luminance sample skipped")
	} else {
		l.brightMeans = append(l.brightMeans, lum.Brightness.Mean)
		l.brightMins = append(l.brightMins, lum.Brightness.Min)
		l.brightMaxs = append(l.brightMaxs, lum.Brightness.Max)
		l.contrasts = append(l.contrasts, lum.Brightness.Std)
		l.sharpness = append(l.sharpness, lum.Sharpness)
	}

	if hasText, err := metrics.TextOverlay(frame); err != nil {
		logger.Warn().Err(err).Int("frame", n).Msg("text overlay sample skipped")
	} else {
		l.textFlags = append(l.textFlags, hasText)
	}

	for _, kind := range []detect.Kind{detect.KindFace, detect.KindPerson} {
		res, err := l.chain.Detect(frame, kind)
		if err != nil {
			// Genuine backend failure: skip this frame for this kind.
			logger.Warn().Err(err).Int("frame", n).Str("kind", string(kind)).Msg("detection sample skipped")
			continue
		}
		l.detections[kind] = append(l.detections[kind], res)
	}

	l.motion.Observe(frame)
	if l.scenes != nil {
		l.scenes.Observe(frame, timestamp)
	}
	l.colors.Observe(frame)
}

// visual aggregates the surviving luminance samples. All-skipped metrics
// report nil rather than zeros.
func (l *frameLoop) visual() VisualMetrics {
	if len(l.brightMeans) == 0 {
		return VisualMetrics{}
	}

	brightness := metrics.Summarize(l.brightMeans)
	brightness.Min = minOf(l.brightMins)
	brightness.Max = maxOf(l.brightMaxs)
	contrast := metrics.Summarize(l.contrasts)
	sharp := metrics.Summarize(l.sharpness)

	roundStats(&brightness)
	roundStats(&contrast)
	roundStats(&sharp)

	return VisualMetrics{
		Brightness: &brightness,
		Contrast:   &contrast,
		Sharpness:  &sharp,
	}
}

func (l *frameLoop) detectionSummary(kind detect.Kind) *DetectionSummary {
	results := l.detections[kind]
	if len(results) == 0 {
		return nil
	}

	summary := &DetectionSummary{BackendUsed: string(detect.TierNone)}
	var countSum, confSum float64
	confSamples := 0

	for _, r := range results {
		if r.Detected {
			summary.Detected = true
		}
		countSum += float64(r.Count)
		if r.Count > 0 {
			confSum += r.AvgConfidence
			confSamples++
		}
		if r.Backend != detect.TierNone {
			summary.BackendUsed = string(r.Backend)
		}
	}

	summary.AvgCount = round2(countSum / float64(len(results)))
	if confSamples > 0 {
		summary.AvgConfidence = round2(confSum / float64(confSamples))
	}
	return summary
}

func (l *frameLoop) textResult() *metrics.TextResult {
	if len(l.textFlags) == 0 {
		return nil
	}
	flagged := 0
	for _, f := range l.textFlags {
		if f {
			flagged++
		}
	}
	return &metrics.TextResult{
		Detected:  flagged > 0,
		Frequency: round2(float64(flagged) / float64(len(l.textFlags))),
	}
}

// analyzeAudio computes the audio metrics, or reports the track state alone
// when audio analysis is disabled or the extraction fails.
func (a *Analyzer) analyzeAudio(ctx context.Context, logger zerolog.Logger, info *ffmpeg.VideoInfo) AudioMetrics {
	if !info.HasAudio {
		return AudioMetrics{HasAudio: false}
	}
	if !a.cfg.EnableAudio {
		return AudioMetrics{HasAudio: true}
	}

	full, err := a.ffmpeg.AnalyzeVolume(ctx, info.FilePath)
	if err != nil {
		logger.Warn().Err(err).Msg("volume analysis skipped")
		return AudioMetrics{HasAudio: true}
	}

	out := AudioMetrics{HasAudio: true}
	avg := round2(full.MeanVolume)
	out.AvgVolumeDB = &avg

	band, err := a.ffmpeg.BandVolume(ctx, info.FilePath, metrics.SpeechBandLowHz, metrics.SpeechBandHighHz)
	if err != nil {
		logger.Warn().Err(err).Msg("speech band analysis skipped")
		return out
	}

	silenceRatio := 0.0
	if silences, err := a.ffmpeg.DetectSilence(ctx, info.FilePath, -35, 0.5); err != nil {
		logger.Warn().Err(err).Msg("silence detection skipped")
	} else if info.Duration.Seconds() > 0 {
		var silent float64
		for _, s := range silences {
			silent += s.Duration
		}
		silenceRatio = silent / info.Duration.Seconds()
	}

	speech := metrics.SpeechDetected(full, band, silenceRatio)
	out.SpeechDetected = &speech
	return out
}

func roundStats(s *metrics.Stats) {
	s.Mean = round2(s.Mean)
	s.Std = round2(s.Std)
	s.Min = round2(s.Min)
	s.Max = round2(s.Max)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
