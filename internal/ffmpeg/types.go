package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	TotalFrames  int
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}
