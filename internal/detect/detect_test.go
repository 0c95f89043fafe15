package detect

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func missingOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		FaceLandmarkPath: filepath.Join(dir, "no_landmark.onnx"),
		YoloPath:         filepath.Join(dir, "no_yolo.onnx"),
		CascadePath:      filepath.Join(dir, "no_cascade"),
		EnableYolo:       true,
	}
}

func TestResolveDegradesToNone(t *testing.T) {
	chain := Resolve(zerolog.Nop(), missingOptions(t))
	if chain == nil {
		t.Fatal("Resolve returned nil chain")
	}
	defer chain.Close()

	info := chain.Info()
	if info[KindFace].Tier != TierNone {
		t.Errorf("face backend should degrade to NONE, got %s", info[KindFace].Tier)
	}
	if info[KindPerson].Tier != TierNone {
		t.Errorf("person backend should degrade to NONE, got %s", info[KindPerson].Tier)
	}
}

func TestNoneChainDetect(t *testing.T) {
	chain := Resolve(zerolog.Nop(), missingOptions(t))
	defer chain.Close()

	frame := testFrame(64, 64)
	for _, kind := range []Kind{KindFace, KindPerson} {
		res, err := chain.Detect(frame, kind)
		if err != nil {
			t.Fatalf("NONE chain must not error for %s: %v", kind, err)
		}
		if res.Detected || res.Count != 0 {
			t.Errorf("%s: NONE backend reported a detection: %+v", kind, res)
		}
		if res.Backend != TierNone {
			t.Errorf("%s: expected tier NONE, got %s", kind, res.Backend)
		}
	}
}

func TestChainDetectUnknownKind(t *testing.T) {
	chain := Resolve(zerolog.Nop(), missingOptions(t))
	defer chain.Close()

	res, err := chain.Detect(testFrame(32, 32), Kind("vehicle"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Detected || res.Backend != TierNone {
		t.Errorf("unknown kind should report nothing, got %+v", res)
	}
}

func TestChainCloseIdempotentSharing(t *testing.T) {
	// Both slots hold the same NONE instance; Close must tolerate that.
	chain := Resolve(zerolog.Nop(), missingOptions(t))
	if err := chain.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewCascadeDetectorMissingFile(t *testing.T) {
	_, err := NewCascadeDetector(zerolog.Nop(), filepath.Join(t.TempDir(), "facefinder"))
	if err == nil {
		t.Fatal("expected error for missing cascade file")
	}
}

func TestNewLandmarkDetectorMissingModel(t *testing.T) {
	// Missing model must fail before the runtime probe, so this never
	// initializes ONNX.
	_, err := NewLandmarkDetector(zerolog.Nop(), filepath.Join(t.TempDir(), "model.onnx"))
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestParseYoloPersons(t *testing.T) {
	// Transposed [84, 8400] layout: rows 0-3 are box coords, row 4 is the
	// person class score.
	out := make([]float32, yoloRows*yoloAnchors)

	set := func(anchor int, cx, cy, w, h, conf float32) {
		out[anchor] = cx
		out[yoloAnchors+anchor] = cy
		out[2*yoloAnchors+anchor] = w
		out[3*yoloAnchors+anchor] = h
		out[(4+yoloPersonClass)*yoloAnchors+anchor] = conf
	}
	set(0, 100, 100, 50, 80, 0.9)
	set(1, 400, 300, 60, 90, 0.3) // below the confidence floor
	set(2, 500, 200, 40, 70, 0.6)

	boxes := parseYoloPersons(out)
	if len(boxes) != 2 {
		t.Fatalf("expected 2 candidates above threshold, got %d", len(boxes))
	}
	if boxes[0].conf != 0.9 || boxes[1].conf != 0.6 {
		t.Errorf("wrong candidates kept: %+v", boxes)
	}
}

func TestSuppressOverlaps(t *testing.T) {
	boxes := []yoloBox{
		{x: 100, y: 100, w: 50, h: 80, conf: 0.7},
		{x: 102, y: 101, w: 50, h: 80, conf: 0.9}, // same person, higher conf
		{x: 400, y: 300, w: 60, h: 90, conf: 0.6}, // disjoint
	}

	kept := suppressOverlaps(boxes)
	if len(kept) != 2 {
		t.Fatalf("expected 2 boxes after suppression, got %d", len(kept))
	}
	if kept[0].conf != 0.9 {
		t.Errorf("highest-confidence box should be kept first, got %f", kept[0].conf)
	}
}

func TestIoU(t *testing.T) {
	a := yoloBox{x: 50, y: 50, w: 100, h: 100}

	if got := iou(a, a); got != 1 {
		t.Errorf("identical boxes should have IoU 1, got %f", got)
	}

	disjoint := yoloBox{x: 500, y: 500, w: 100, h: 100}
	if got := iou(a, disjoint); got != 0 {
		t.Errorf("disjoint boxes should have IoU 0, got %f", got)
	}

	// Half-shifted box: intersection 50x100, union 15000.
	shifted := yoloBox{x: 100, y: 50, w: 100, h: 100}
	want := 5000.0 / 15000.0
	if got := iou(a, shifted); got < want-1e-9 || got > want+1e-9 {
		t.Errorf("expected IoU %f, got %f", want, got)
	}
}

func TestPreprocessFrame(t *testing.T) {
	data, err := preprocessFrame(testFrame(100, 50), landmarkInputSize)
	if err != nil {
		t.Fatalf("preprocessFrame failed: %v", err)
	}

	want := 3 * landmarkInputSize * landmarkInputSize
	if len(data) != want {
		t.Fatalf("expected %d values, got %d", want, len(data))
	}
	for i, v := range data {
		if v < 0 || v > 1 {
			t.Fatalf("value %f at %d outside [0,1]", v, i)
		}
	}
}

func TestPreprocessFrameNil(t *testing.T) {
	if _, err := preprocessFrame(nil, landmarkInputSize); err == nil {
		t.Fatal("expected error for nil frame")
	}
}
