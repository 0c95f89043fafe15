package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// VolumeStats holds volume analysis results
type VolumeStats struct {
	MeanVolume float64
	MaxVolume  float64
}

// SilenceSegment represents a period of silence in audio
type SilenceSegment struct {
	Start    float64
	End      float64
	Duration float64
}

// AnalyzeVolume calculates RMS volume statistics for the full audio track.
func (e *Executor) AnalyzeVolume(ctx context.Context, input string) (*VolumeStats, error) {
	return e.analyzeVolumeFiltered(ctx, input, "volumedetect")
}

// BandVolume calculates volume statistics restricted to a frequency band.
// The 300-3000 Hz band is used as a speech-energy proxy.
func (e *Executor) BandVolume(ctx context.Context, input string, lowHz, highHz int) (*VolumeStats, error) {
	filter := NewFilterBuilder().
		Highpass(lowHz).
		Lowpass(highHz).
		Custom("volumedetect").
		Build()
	return e.analyzeVolumeFiltered(ctx, input, filter)
}

func (e *Executor) analyzeVolumeFiltered(ctx context.Context, input, filter string) (*VolumeStats, error) {
	e.logger.Debug().Str("input", input).Str("filter", filter).Msg("analyzing volume")

	output, err := e.nullPass(ctx, input, "-af", filter)
	if err != nil {
		return nil, fmt.Errorf("volume analysis failed: %w", err)
	}
	if output == "" {
		return nil, fmt.Errorf("volume analysis produced no output")
	}

	stats := &VolumeStats{}
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "mean_volume:") {
			stats.MeanVolume = parseTrailingDB(line, "mean_volume:")
		} else if strings.Contains(line, "max_volume:") {
			stats.MaxVolume = parseTrailingDB(line, "max_volume:")
		}
	}
	return stats, nil
}

// DetectSilence finds silence segments in the audio track.
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseThreshold float64, minDuration float64) ([]SilenceSegment, error) {
	e.logger.Debug().
		Str("input", input).
		Float64("noise_threshold", noiseThreshold).
		Float64("min_duration", minDuration).
		Msg("detecting silence")

	filter := fmt.Sprintf("silencedetect=noise=%.2fdB:d=%.2f", noiseThreshold, minDuration)
	output, err := e.nullPass(ctx, input, "-af", filter)
	if err != nil {
		return nil, fmt.Errorf("silence detection failed: %w", err)
	}

	return parseSilenceOutput(output), nil
}

// nullPass runs an analysis-only ffmpeg pass with null output, returning the
// collected stderr text. Known null-output failures are treated as success.
func (e *Executor) nullPass(ctx context.Context, input string, extraArgs ...string) (string, error) {
	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	args := append([]string{"-i", input}, extraArgs...)
	args = append(args, "-f", "null", "-")

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !ignorableRunError(err) {
			return "", err
		}
	}

	return output, nil
}

func parseTrailingDB(line, prefix string) float64 {
	parts := strings.Split(line, prefix)
	if len(parts) != 2 {
		return 0
	}
	fields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v
}

// parseSilenceOutput extracts silence segments from ffmpeg output
func parseSilenceOutput(output string) []SilenceSegment {
	var segments []SilenceSegment
	var currentStart float64

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "silence_start:") {
			parts := strings.Split(line, "silence_start:")
			if len(parts) == 2 {
				currentStart, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			}
		} else if strings.Contains(line, "silence_end:") {
			parts := strings.Split(line, "silence_end:")
			if len(parts) != 2 {
				continue
			}
			endStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
			end, _ := strconv.ParseFloat(endStr, 64)

			var duration float64
			if strings.Contains(line, "silence_duration:") {
				durParts := strings.Split(line, "silence_duration:")
				if len(durParts) == 2 {
					duration, _ = strconv.ParseFloat(strings.TrimSpace(durParts[1]), 64)
				}
			} else {
				duration = end - currentStart
			}

			segments = append(segments, SilenceSegment{
				Start:    currentStart,
				End:      end,
				Duration: duration,
			})
		}
	}

	return segments
}
