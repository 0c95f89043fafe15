// Package pipeline runs the analyzer across many videos with bounded worker
// parallelism, isolating per-video failures and merging each result into the
// video's metadata document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/framescope/internal/analyzer"
	"github.com/keagan/framescope/internal/metadata"
)

// VideoAnalyzer is the per-video analysis contract the orchestrator drives.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, videoPath string) (*analyzer.Record, error)
}

// Merger persists one analysis record into a metadata document.
type Merger interface {
	Merge(metadataPath string, record *analyzer.Record) error
}

// Factory builds one analyzer per worker. Each worker owns its detector
// chain for its whole lifetime (the capability probe runs once per worker,
// never per video); cleanup is invoked when the worker drains.
type Factory func(workerID int) (VideoAnalyzer, func(), error)

// Summary is the run-level outcome.
type Summary struct {
	Succeeded int
	Failed    int
	Total     int
	Elapsed   time.Duration
}

// VideosPerSecond reports batch throughput.
func (s Summary) VideosPerSecond() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Total) / secs
}

// Options configures a batch run.
type Options struct {
	Workers    int
	OnProgress func(completed, total int)
}

// Orchestrator distributes videos across a fixed-size worker pool.
type Orchestrator struct {
	logger zerolog.Logger
	merger Merger
}

// New creates an orchestrator writing through the given merger.
func New(logger zerolog.Logger, merger Merger) *Orchestrator {
	return &Orchestrator{
		logger: logger.With().Str("component", "pipeline").Logger(),
		merger: merger,
	}
}

// Run analyzes every video with at most opts.Workers in flight. Per-video
// failures are logged and counted, never propagated; the batch always
// completes with a summary.
func (o *Orchestrator) Run(ctx context.Context, videos []metadata.Video, factory Factory, opts Options) Summary {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(videos) && len(videos) > 0 {
		workers = len(videos)
	}

	o.logger.Info().
		Int("videos", len(videos)).
		Int("workers", workers).
		Msg("starting batch analysis")

	start := time.Now()

	jobs := make(chan metadata.Video)
	var mu sync.Mutex
	succeeded, failed, completed := 0, 0, 0

	finish := func(video metadata.Video, err error) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if err != nil {
			failed++
			o.logger.Error().Err(err).Str("video", video.VideoPath).Msg("video failed")
		} else {
			succeeded++
		}
		if opts.OnProgress != nil {
			opts.OnProgress(completed, len(videos))
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			an, cleanup, err := factory(workerID)
			if err != nil {
				// A worker that cannot start leaves the queue to the healthy
				// workers instead of consuming jobs they could process.
				o.logger.Error().Err(err).Int("worker", workerID).Msg("worker startup failed")
				return
			}
			defer cleanup()

			for video := range jobs {
				finish(video, o.processVideo(ctx, an, video))
			}
		}(w)
	}

	go func() {
		for _, video := range videos {
			jobs <- video
		}
		close(jobs)
	}()

	wg.Wait()

	// Every worker failed to start: fail whatever is still queued so the
	// feeder unblocks and the batch still reports a full summary.
	for video := range jobs {
		finish(video, errors.New("no analysis worker available"))
	}

	summary := Summary{
		Succeeded: succeeded,
		Failed:    failed,
		Total:     len(videos),
		Elapsed:   time.Since(start),
	}

	o.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("total", summary.Total).
		Dur("elapsed", summary.Elapsed).
		Msg("batch analysis complete")

	return summary
}

// processVideo runs one analysis plus merge, converting panics into ordinary
// failures so one bad video never takes down its worker.
func (o *Orchestrator) processVideo(ctx context.Context, an VideoAnalyzer, video metadata.Video) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()

	record, err := an.Analyze(ctx, video.VideoPath)
	if err != nil {
		return err
	}

	if err := o.merger.Merge(video.MetadataPath, record); err != nil {
		return err
	}

	o.logger.Debug().Str("video", video.VideoPath).Msg("video analyzed and merged")
	return nil
}
