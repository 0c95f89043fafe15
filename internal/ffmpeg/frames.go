package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
)

// FrameHandler consumes one decoded frame together with its 0-based index in
// the source stream. The frame is only valid for the duration of the call
// and must not be retained.
type FrameHandler func(frameIndex int, frame image.Image) error

// StreamFrames decodes the frames at the given 0-based indices in a single
// ffmpeg pass, scaled to width x height, and hands each to the handler in
// index order as it comes off the pipe. At most one decoded frame is held in
// memory at a time. Returns the number of frames decoded; a handler error
// aborts the stream and is returned as-is. Returns ErrDecode when the
// container cannot be opened or yields no frames.
func (e *Executor) StreamFrames(ctx context.Context, filePath string, indices []int, width, height int, handler FrameHandler) (int, error) {
	if len(indices) == 0 {
		return 0, fmt.Errorf("no frame indices requested")
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	filter := NewFilterBuilder().
		SelectFrames(indices).
		Scale(width, height).
		Build()

	args := []string{"-hide_banner", "-loglevel", "error"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	args = append(args,
		"-i", filePath,
		"-vf", filter,
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	e.logger.Debug().
		Str("input", filePath).
		Int("frames", len(indices)).
		Int("width", width).
		Int("height", height).
		Msg("streaming raw frames")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: start ffmpeg: %v", ErrDecode, err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.Debug().Str("ffmpeg", scanner.Text()).Msg("frame decode")
		}
	}()

	frameSize := width * height * 3
	buf := make([]byte, frameSize)
	reader := bufio.NewReaderSize(stdout, frameSize)
	decoded := 0

	for decoded < len(indices) {
		if _, err := io.ReadFull(reader, buf); err != nil {
			// EOF before all requested frames: select can legitimately come up
			// short near the end of stream, partial chunks cannot.
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				break
			}
			_ = cmd.Wait()
			return decoded, fmt.Errorf("%w: read frame data: %v", ErrDecode, err)
		}

		if err := handler(indices[decoded], rgbFrame(buf, width, height)); err != nil {
			_, _ = io.Copy(io.Discard, reader)
			_ = cmd.Wait()
			return decoded, err
		}
		decoded++
	}

	// Drain any remainder so Wait does not block on a full pipe.
	_, _ = io.Copy(io.Discard, reader)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return decoded, ctx.Err()
		}
		if decoded == 0 {
			return 0, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		e.logger.Warn().Err(err).Str("input", filePath).Msg("ffmpeg exited abnormally after partial decode")
	}

	if decoded == 0 {
		return 0, fmt.Errorf("%w: no frames decoded from %s", ErrDecode, filePath)
	}

	e.logger.Debug().
		Int("requested", len(indices)).
		Int("decoded", decoded).
		Msg("frame stream complete")

	return decoded, nil
}

// rgbFrame copies one packed rgb24 buffer into an image.RGBA.
func rgbFrame(raw []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	src := 0
	for y := 0; y < height; y++ {
		dst := img.PixOffset(0, y)
		for x := 0; x < width; x++ {
			img.Pix[dst] = raw[src]
			img.Pix[dst+1] = raw[src+1]
			img.Pix[dst+2] = raw[src+2]
			img.Pix[dst+3] = 0xFF
			src += 3
			dst += 4
		}
	}
	return img
}
