package metrics

import "github.com/keagan/framescope/internal/ffmpeg"

// Speech heuristic parameters. Speech concentrates energy in the 300-3000 Hz
// band; a track whose band level sits close to the full-band level and above
// the audibility floor is treated as containing speech.
const (
	SpeechBandLowHz  = 300
	SpeechBandHighHz = 3000

	speechBandFloorDB = -40.0
	speechBandDeltaDB = 12.0
	speechMaxSilence  = 0.9 // silent fraction above which speech is ruled out
)

// SpeechDetected applies the speech-band energy heuristic. full and band are
// volumedetect results over the whole spectrum and the speech band;
// silenceRatio is the silent fraction of the track duration.
func SpeechDetected(full, band *ffmpeg.VolumeStats, silenceRatio float64) bool {
	if full == nil || band == nil {
		return false
	}
	if band.MeanVolume < speechBandFloorDB {
		return false
	}
	if full.MeanVolume-band.MeanVolume > speechBandDeltaDB {
		return false
	}
	return silenceRatio < speechMaxSilence
}
