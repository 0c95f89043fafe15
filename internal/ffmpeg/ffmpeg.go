package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrDecode marks a video that cannot be opened or yields no readable frames.
// It is fatal to that video only, never to the batch.
var ErrDecode = errors.New("video decode failed")

// Executor handles all ffmpeg operations
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, threads int) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams output lines
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// ffmpeg writes its analysis output to stderr.
	go func() {
		defer wg.Done()
		scanLines(stderr, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		scanLines(stdout, opts.LogHandler)
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// scanLines forwards output lines to the handler.
func scanLines(r io.Reader, handler func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if handler != nil {
			handler(scanner.Text())
		}
	}
}

// ignorableRunError reports whether an ffmpeg error from a null-output
// analysis pass can be ignored.
func ignorableRunError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Conversion failed") ||
		strings.Contains(msg, "Invalid return value") ||
		strings.Contains(msg, "Output file is empty")
}
