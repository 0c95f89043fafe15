// Package detect resolves the best available face/person detection backend
// at startup and serves per-frame detections through it. The chain degrades
// from the ONNX landmark model through the YOLO multi-object detector down to
// the classical cascade, and finally to "not detected".
package detect

import (
	"errors"
	"image"

	"github.com/rs/zerolog"
)

// Kind selects what a detection call looks for.
type Kind string

const (
	KindFace   Kind = "face"
	KindPerson Kind = "person"
)

// Tier identifies which chain position produced a result. Ordering is
// PRIMARY > SECONDARY > FALLBACK > NONE.
type Tier string

const (
	TierPrimary   Tier = "PRIMARY"
	TierSecondary Tier = "SECONDARY"
	TierFallback  Tier = "FALLBACK"
	TierNone      Tier = "NONE"
)

// ErrDetection marks a genuine backend failure on a frame (corrupt input,
// inference crash). Zero detections are a valid result, not an error.
var ErrDetection = errors.New("detection backend failure")

// Result is the per-frame outcome for one kind.
type Result struct {
	Detected      bool
	Count         int
	AvgConfidence float64
	Backend       Tier
}

// BackendInfo describes a resolved backend.
type BackendInfo struct {
	Name  string
	Tier  Tier
	Kinds []Kind
}

// Backend is one concrete detector implementation.
type Backend interface {
	Detect(img image.Image, kind Kind) (Result, error)
	Info() BackendInfo
	Close() error
}

// Options configures chain resolution.
type Options struct {
	FaceLandmarkPath string
	YoloPath         string
	CascadePath      string
	EnableYolo       bool
}

// Chain holds the backend resolved for each kind. Resolution happens once per
// worker; per-frame calls never re-probe.
type Chain struct {
	logger zerolog.Logger
	face   Backend
	person Backend
}

// Resolve probes backend availability in chain order and returns the best
// backend per kind. Resolution never fails: an empty capability set resolves
// to the NONE backend.
func Resolve(logger zerolog.Logger, opts Options) *Chain {
	logger = logger.With().Str("component", "detect").Logger()

	chain := &Chain{logger: logger}

	if lm, err := NewLandmarkDetector(logger, opts.FaceLandmarkPath); err == nil {
		chain.face = lm
		chain.person = lm
		logger.Info().Str("backend", lm.Info().Name).Msg("landmark backend resolved for face and person")
		return chain
	} else {
		logger.Debug().Err(err).Msg("landmark backend unavailable")
	}

	if opts.EnableYolo {
		if yd, err := NewYoloDetector(logger, opts.YoloPath); err == nil {
			chain.person = yd
			logger.Info().Str("backend", yd.Info().Name).Msg("yolo backend resolved for person")
		} else {
			logger.Debug().Err(err).Msg("yolo backend unavailable")
		}
	}

	if cd, err := NewCascadeDetector(logger, opts.CascadePath); err == nil {
		chain.face = cd
		logger.Info().Str("backend", cd.Info().Name).Msg("cascade backend resolved for face")
	} else {
		logger.Debug().Err(err).Msg("cascade backend unavailable")
	}

	if chain.face == nil {
		chain.face = noneBackend{}
	}
	if chain.person == nil {
		// Cascades cannot count multiple people reliably, so person detection
		// degrades straight to "not detected" below the yolo tier.
		chain.person = noneBackend{}
	}

	return chain
}

// Detect runs detection for one kind on one frame.
func (c *Chain) Detect(img image.Image, kind Kind) (Result, error) {
	switch kind {
	case KindFace:
		return c.face.Detect(img, kind)
	case KindPerson:
		return c.person.Detect(img, kind)
	default:
		return Result{Backend: TierNone}, nil
	}
}

// Info reports the resolved backend per kind.
func (c *Chain) Info() map[Kind]BackendInfo {
	return map[Kind]BackendInfo{
		KindFace:   c.face.Info(),
		KindPerson: c.person.Info(),
	}
}

// Close releases backend resources. The face and person slots may share one
// backend instance.
func (c *Chain) Close() error {
	var err error
	if c.face != nil {
		err = c.face.Close()
	}
	if c.person != nil && c.person != c.face {
		if cerr := c.person.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// noneBackend reports "not detected" for every frame.
type noneBackend struct{}

func (noneBackend) Detect(image.Image, Kind) (Result, error) {
	return Result{Backend: TierNone}, nil
}

func (noneBackend) Info() BackendInfo {
	return BackendInfo{Name: "none", Tier: TierNone}
}

func (noneBackend) Close() error { return nil }
