package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/keagan/framescope/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-count_packets",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrDecode, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", ErrDecode, err)
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}

			// nb_frames is absent for some containers; nb_read_packets from
			// -count_packets covers those, duration*fps covers the rest.
			if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
				info.TotalFrames = n
			} else if n, err := strconv.Atoi(stream.NbReadPackets); err == nil && n > 0 {
				info.TotalFrames = n
			}
		} else if stream.CodecType == "audio" {
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				info.AudioBitrate = br
			}
		}
	}

	if info.TotalFrames == 0 && info.FPS > 0 && info.Duration > 0 {
		info.TotalFrames = int(math.Round(info.Duration.Seconds() * info.FPS))
	}

	if info.Width == 0 || info.Height == 0 || info.TotalFrames <= 0 {
		return nil, fmt.Errorf("%w: no readable video stream in %s", ErrDecode, filePath)
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType     string `json:"codec_type"`
		CodecName     string `json:"codec_name"`
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		RFrameRate    string `json:"r_frame_rate"`
		BitRate       string `json:"bit_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}
