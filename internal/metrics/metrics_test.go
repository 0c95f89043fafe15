package metrics

import (
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/keagan/framescope/internal/ffmpeg"
)

func uniformFrame(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func checkerboardFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

// stripeFrame draws 2px vertical bars, the hard-edge texture rendered text
// produces. A 1px checkerboard cancels the Sobel kernel exactly, so stripes
// are the edge-dense fixture.
func stripeFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x%4 < 2 {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func splitFrame(w, h int, left, right color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	return img
}

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %f, want %f (tolerance %f)", what, got, want, tol)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{10, 20, 30})

	approx(t, s.Mean, 20, 1e-9, "mean")
	approx(t, s.Min, 10, 1e-9, "min")
	approx(t, s.Max, 30, 1e-9, "max")
	approx(t, s.Std, math.Sqrt(200.0/3.0), 1e-9, "std")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Mean != 0 || s.Std != 0 {
		t.Errorf("empty input should yield zero stats, got %+v", s)
	}
}

func TestLuminanceUniform(t *testing.T) {
	frame := uniformFrame(16, 16, color.RGBA{128, 128, 128, 255})

	lum, err := Luminance(frame)
	if err != nil {
		t.Fatalf("Luminance failed: %v", err)
	}

	approx(t, lum.Brightness.Mean, 128, 0.5, "brightness mean")
	approx(t, lum.Brightness.Std, 0, 1e-9, "brightness std")
	approx(t, lum.Sharpness, 0, 1e-9, "sharpness of flat frame")
}

func TestLuminanceSharpnessOrdering(t *testing.T) {
	flat := uniformFrame(32, 32, color.RGBA{100, 100, 100, 255})
	busy := checkerboardFrame(32, 32)

	flatLum, err := Luminance(flat)
	if err != nil {
		t.Fatalf("Luminance flat: %v", err)
	}
	busyLum, err := Luminance(busy)
	if err != nil {
		t.Fatalf("Luminance busy: %v", err)
	}

	if busyLum.Sharpness <= flatLum.Sharpness {
		t.Errorf("checkerboard sharpness %f should exceed flat %f", busyLum.Sharpness, flatLum.Sharpness)
	}
}

func TestLuminanceTooSmall(t *testing.T) {
	_, err := Luminance(uniformFrame(2, 2, color.RGBA{0, 0, 0, 255}))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

// motionOf feeds frames through a fresh motion tracker.
func motionOf(t *testing.T, frames []image.Image, res int) (MotionResult, error) {
	t.Helper()
	tracker := NewMotionTracker(res)
	for _, f := range frames {
		tracker.Observe(f)
	}
	return tracker.Result()
}

func TestMotionStatic(t *testing.T) {
	frame := uniformFrame(64, 64, color.RGBA{50, 50, 50, 255})

	m, err := motionOf(t, []image.Image{frame, frame, frame, frame}, 240)
	if err != nil {
		t.Fatalf("motion result failed: %v", err)
	}
	if m.Score != 0 {
		t.Errorf("static frames should score 0, got %f", m.Score)
	}
	if m.Level != "LOW" {
		t.Errorf("expected LOW, got %s", m.Level)
	}
}

func TestMotionFlicker(t *testing.T) {
	black := uniformFrame(64, 64, color.RGBA{0, 0, 0, 255})
	white := uniformFrame(64, 64, color.RGBA{255, 255, 255, 255})

	m, err := motionOf(t, []image.Image{black, white, black, white}, 240)
	if err != nil {
		t.Fatalf("motion result failed: %v", err)
	}
	if m.Score != 100 {
		t.Errorf("full-frame flicker should cap at 100, got %f", m.Score)
	}
	if m.Level != "HIGH" {
		t.Errorf("expected HIGH, got %s", m.Level)
	}
}

func TestMotionNeedsTwoFrames(t *testing.T) {
	_, err := motionOf(t, []image.Image{uniformFrame(64, 64, color.RGBA{0, 0, 0, 255})}, 240)
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestMotionResolutionChangeSkipsPairs(t *testing.T) {
	tracker := NewMotionTracker(240)
	tracker.Observe(uniformFrame(64, 64, color.RGBA{0, 0, 0, 255}))
	tracker.Observe(uniformFrame(32, 32, color.RGBA{255, 255, 255, 255}))

	if _, err := tracker.Result(); !errors.Is(err, ErrExtraction) {
		t.Errorf("mismatched planes should leave no comparable pairs, got %v", err)
	}
}

// paletteOf feeds frames through a fresh color sampler.
func paletteOf(t *testing.T, frames []image.Image, k int) (ColorResult, error) {
	t.Helper()
	sampler := NewColorSampler()
	for _, f := range frames {
		sampler.Observe(f)
	}
	return sampler.Result(k)
}

func TestColorsDeterministic(t *testing.T) {
	frame := splitFrame(64, 64, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255})
	frames := []image.Image{frame, frame}

	first, err := paletteOf(t, frames, 4)
	if err != nil {
		t.Fatalf("color result failed: %v", err)
	}
	second, err := paletteOf(t, frames, 4)
	if err != nil {
		t.Fatalf("color result failed on rerun: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("color analysis not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestColorsTwoTonePalette(t *testing.T) {
	frame := splitFrame(64, 64, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255})

	res, err := paletteOf(t, []image.Image{frame}, 4)
	if err != nil {
		t.Fatalf("color result failed: %v", err)
	}

	if len(res.DominantColors) == 0 || len(res.DominantColors) > 4 {
		t.Fatalf("expected 1-4 swatches, got %d", len(res.DominantColors))
	}

	var total float64
	for i, s := range res.DominantColors {
		total += s.Population
		if i > 0 && s.Population > res.DominantColors[i-1].Population {
			t.Error("swatches not sorted by population")
		}
	}
	approx(t, total, 1.0, 0.05, "population sum")

	// Both halves must survive clustering.
	var sawRed, sawBlue bool
	for _, s := range res.DominantColors {
		if s.RGB[0] > 200 && s.RGB[2] < 60 {
			sawRed = true
		}
		if s.RGB[2] > 200 && s.RGB[0] < 60 {
			sawBlue = true
		}
	}
	if !sawRed || !sawBlue {
		t.Errorf("expected red and blue swatches, got %+v", res.DominantColors)
	}
}

func TestColorsTemperature(t *testing.T) {
	cases := []struct {
		name string
		c    color.RGBA
		want string
	}{
		{"red reads warm", color.RGBA{220, 40, 20, 255}, "WARM"},
		{"blue reads cool", color.RGBA{20, 60, 220, 255}, "COOL"},
		{"gray reads neutral", color.RGBA{128, 128, 128, 255}, "NEUTRAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := paletteOf(t, []image.Image{uniformFrame(32, 32, tc.c)}, 2)
			if err != nil {
				t.Fatalf("color result failed: %v", err)
			}
			if res.Temperature != tc.want {
				t.Errorf("expected %s, got %s", tc.want, res.Temperature)
			}
		})
	}
}

func TestColorsValidation(t *testing.T) {
	if _, err := NewColorSampler().Result(4); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for no samples, got %v", err)
	}

	frame := uniformFrame(32, 32, color.RGBA{0, 0, 0, 255})
	if _, err := paletteOf(t, []image.Image{frame}, 1); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for k=1, got %v", err)
	}
}

func TestScenesCutDetection(t *testing.T) {
	black := uniformFrame(16, 16, color.RGBA{0, 0, 0, 255})
	white := uniformFrame(16, 16, color.RGBA{255, 255, 255, 255})

	tracker := NewSceneTracker()
	tracker.Observe(black, 0)
	tracker.Observe(black, 1)
	tracker.Observe(white, 2)
	tracker.Observe(white, 3)

	res, err := tracker.Result(4)
	if err != nil {
		t.Fatalf("scene result failed: %v", err)
	}

	if res.SceneCount != 2 {
		t.Errorf("expected 2 scenes, got %d", res.SceneCount)
	}
	if len(res.SceneBoundaries) != 1 || res.SceneBoundaries[0] != 2.0 {
		t.Errorf("expected boundary at 2.0s, got %v", res.SceneBoundaries)
	}
	approx(t, res.CutsPerMinute, 15, 0.01, "cuts per minute")
	approx(t, res.AvgSceneDuration, 2, 0.01, "avg scene duration")
}

func TestScenesNoCuts(t *testing.T) {
	frame := uniformFrame(16, 16, color.RGBA{80, 80, 80, 255})

	tracker := NewSceneTracker()
	for i := 0; i < 3; i++ {
		tracker.Observe(frame, float64(i))
	}

	res, err := tracker.Result(3)
	if err != nil {
		t.Fatalf("scene result failed: %v", err)
	}
	if res.SceneCount != 1 {
		t.Errorf("expected single scene, got %d", res.SceneCount)
	}
	if len(res.SceneBoundaries) != 0 {
		t.Errorf("expected no boundaries, got %v", res.SceneBoundaries)
	}
}

func TestScenesValidation(t *testing.T) {
	frame := uniformFrame(16, 16, color.RGBA{0, 0, 0, 255})

	single := NewSceneTracker()
	single.Observe(frame, 0)
	if _, err := single.Result(3); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for single frame, got %v", err)
	}

	pair := NewSceneTracker()
	pair.Observe(frame, 0)
	pair.Observe(frame, 1)
	if _, err := pair.Result(0); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for zero duration, got %v", err)
	}
}

func TestTextOverlayFlatFrame(t *testing.T) {
	detected, err := TextOverlay(uniformFrame(120, 120, color.RGBA{60, 60, 60, 255}))
	if err != nil {
		t.Fatalf("TextOverlay failed: %v", err)
	}
	if detected {
		t.Error("flat frame should carry no text")
	}
}

func TestTextOverlayEdgeDenseFrame(t *testing.T) {
	detected, err := TextOverlay(stripeFrame(120, 120))
	if err != nil {
		t.Fatalf("TextOverlay failed: %v", err)
	}
	if !detected {
		t.Error("edge-dense frame should flag as text")
	}
}

func TestTextOverlayTooSmall(t *testing.T) {
	_, err := TextOverlay(uniformFrame(8, 8, color.RGBA{0, 0, 0, 255}))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestSpeechDetected(t *testing.T) {
	cases := []struct {
		name         string
		full, band   *ffmpeg.VolumeStats
		silenceRatio float64
		want         bool
	}{
		{
			"speech band energy present",
			&ffmpeg.VolumeStats{MeanVolume: -22}, &ffmpeg.VolumeStats{MeanVolume: -25}, 0.2,
			true,
		},
		{
			"band below audibility floor",
			&ffmpeg.VolumeStats{MeanVolume: -45}, &ffmpeg.VolumeStats{MeanVolume: -55}, 0.2,
			false,
		},
		{
			"energy outside the band",
			&ffmpeg.VolumeStats{MeanVolume: -10}, &ffmpeg.VolumeStats{MeanVolume: -30}, 0.2,
			false,
		},
		{
			"mostly silent track",
			&ffmpeg.VolumeStats{MeanVolume: -22}, &ffmpeg.VolumeStats{MeanVolume: -25}, 0.95,
			false,
		},
		{
			"missing stats",
			nil, nil, 0,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SpeechDetected(tc.full, tc.band, tc.silenceRatio); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
