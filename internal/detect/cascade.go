package detect

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/rs/zerolog"
)

// Cascade detection parameters. The quality cutoff follows the pigo
// recommendation for filtering weak candidates.
const (
	cascadeMinSize    = 20
	cascadeMaxSize    = 1000
	cascadeShift      = 0.1
	cascadeScale      = 1.1
	cascadeClusterIoU = 0.2
	cascadeMinQuality = 5.0
)

// CascadeDetector is the last-resort face backend: a classical pixel
// intensity comparison cascade. Lowest accuracy, no model runtime required.
// It cannot count multiple people, so it only serves the face kind.
type CascadeDetector struct {
	logger     zerolog.Logger
	classifier *pigo.Pigo
}

// NewCascadeDetector unpacks the binary cascade file.
func NewCascadeDetector(logger zerolog.Logger, cascadePath string) (*CascadeDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("cascade file not readable: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	logger.Info().Str("cascade", cascadePath).Msg("cascade classifier loaded")

	return &CascadeDetector{
		logger:     logger.With().Str("backend", "cascade").Logger(),
		classifier: classifier,
	}, nil
}

// Detect runs the cascade over the grayscale frame.
func (d *CascadeDetector) Detect(img image.Image, kind Kind) (Result, error) {
	if kind != KindFace {
		return Result{Backend: TierFallback}, nil
	}
	if img == nil {
		return Result{}, fmt.Errorf("%w: nil frame", ErrDetection)
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols < cascadeMinSize || rows < cascadeMinSize {
		return Result{Backend: TierFallback}, nil
	}

	params := pigo.CascadeParams{
		MinSize:     cascadeMinSize,
		MaxSize:     cascadeMaxSize,
		ShiftFactor: cascadeShift,
		ScaleFactor: cascadeScale,
		ImageParams: pigo.ImageParams{
			Pixels: grayscale(img, cols, rows),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, cascadeClusterIoU)

	count := 0
	var confSum float64
	for _, det := range dets {
		if float64(det.Q) < cascadeMinQuality {
			continue
		}
		count++
		// Map cascade quality (roughly 5-50) onto [0,1].
		conf := float64(det.Q) / 50.0
		if conf > 1 {
			conf = 1
		}
		confSum += conf
	}

	res := Result{
		Detected: count > 0,
		Count:    count,
		Backend:  TierFallback,
	}
	if count > 0 {
		res.AvgConfidence = confSum / float64(count)
	}
	return res, nil
}

func grayscale(img image.Image, cols, rows int) []uint8 {
	pixels := make([]uint8, cols*rows)
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pixels[i] = uint8((299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000)
			i++
		}
	}
	return pixels
}

// Info describes the backend.
func (d *CascadeDetector) Info() BackendInfo {
	return BackendInfo{
		Name:  "cascade",
		Tier:  TierFallback,
		Kinds: []Kind{KindFace},
	}
}

// Close is a no-op; the cascade holds no native resources.
func (d *CascadeDetector) Close() error {
	return nil
}
