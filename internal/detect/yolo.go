package detect

import (
	"fmt"
	"image"
	"os"
	"sort"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

// YOLOv8 export contract: 640x640 input, output [1, 84, 8400] with 4 box
// coordinates followed by 80 COCO class scores per anchor. Person is class 0.
const (
	yoloInputSize     = 640
	yoloAnchors       = 8400
	yoloRows          = 84
	yoloPersonClass   = 0
	yoloMinConfidence = 0.45
	yoloNMSOverlap    = 0.5
)

// YoloDetector is the secondary backend: a deep multi-object detector used
// for person counting when the landmark tier is unavailable. Enabled only by
// configuration because inference is expensive on CPU.
type YoloDetector struct {
	logger     zerolog.Logger
	modelPath  string
	inputShape ort.Shape
	session    *ort.DynamicAdvancedSession
}

// NewYoloDetector loads the YOLO model.
func NewYoloDetector(logger zerolog.Logger, modelPath string) (*YoloDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath, []string{"images"}, []string{"output0"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create yolo session: %w", err)
	}

	logger.Info().Str("model", modelPath).Msg("yolo model loaded")

	return &YoloDetector{
		logger:     logger.With().Str("backend", "yolo").Logger(),
		modelPath:  modelPath,
		inputShape: ort.NewShape(1, 3, yoloInputSize, yoloInputSize),
		session:    sess,
	}, nil
}

type yoloBox struct {
	x, y, w, h float32
	conf       float32
}

// Detect counts persons in the frame. Other kinds yield a zero-count result
// at this tier rather than an error.
func (d *YoloDetector) Detect(img image.Image, kind Kind) (Result, error) {
	if kind != KindPerson {
		return Result{Backend: TierSecondary}, nil
	}

	data, err := preprocessFrame(img, yoloInputSize)
	if err != nil {
		return Result{}, fmt.Errorf("%w: preprocess: %v", ErrDetection, err)
	}

	input, err := ort.NewTensor(d.inputShape, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: input tensor: %v", ErrDetection, err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, yoloRows, yoloAnchors))
	if err != nil {
		return Result{}, fmt.Errorf("%w: output tensor: %v", ErrDetection, err)
	}
	defer output.Destroy()

	if err := d.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}); err != nil {
		return Result{}, fmt.Errorf("%w: inference: %v", ErrDetection, err)
	}

	boxes := parseYoloPersons(output.GetData())
	kept := suppressOverlaps(boxes)

	res := Result{
		Detected: len(kept) > 0,
		Count:    len(kept),
		Backend:  TierSecondary,
	}
	if len(kept) > 0 {
		var confSum float64
		for _, b := range kept {
			confSum += float64(b.conf)
		}
		res.AvgConfidence = confSum / float64(len(kept))
	}
	return res, nil
}

// parseYoloPersons pulls person candidates above the confidence floor from
// the transposed [84, 8400] output layout.
func parseYoloPersons(out []float32) []yoloBox {
	var boxes []yoloBox
	classRow := (4 + yoloPersonClass) * yoloAnchors
	for a := 0; a < yoloAnchors; a++ {
		conf := out[classRow+a]
		if conf < yoloMinConfidence {
			continue
		}
		boxes = append(boxes, yoloBox{
			x:    out[a],
			y:    out[yoloAnchors+a],
			w:    out[2*yoloAnchors+a],
			h:    out[3*yoloAnchors+a],
			conf: conf,
		})
	}
	return boxes
}

// suppressOverlaps is greedy NMS: keep the highest-confidence box, drop
// anything overlapping it beyond the IoU cutoff, repeat.
func suppressOverlaps(boxes []yoloBox) []yoloBox {
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].conf > boxes[j].conf })

	var kept []yoloBox
	for _, b := range boxes {
		overlapped := false
		for _, k := range kept {
			if iou(b, k) > yoloNMSOverlap {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, b)
		}
	}
	return kept
}

func iou(a, b yoloBox) float64 {
	ax1, ay1 := a.x-a.w/2, a.y-a.h/2
	ax2, ay2 := a.x+a.w/2, a.y+a.h/2
	bx1, by1 := b.x-b.w/2, b.y-b.h/2
	bx2, by2 := b.x+b.w/2, b.y+b.h/2

	ix1, iy1 := maxf(ax1, bx1), maxf(ay1, by1)
	ix2, iy2 := minf(ax2, bx2), minf(ay2, by2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := float64(iw) * float64(ih)
	union := float64(a.w)*float64(a.h) + float64(b.w)*float64(b.h) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// Info describes the backend.
func (d *YoloDetector) Info() BackendInfo {
	return BackendInfo{
		Name:  "yolo",
		Tier:  TierSecondary,
		Kinds: []Kind{KindPerson},
	}
}

// Close releases the model session.
func (d *YoloDetector) Close() error {
	d.logger.Debug().Msg("closing yolo session")
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
