package detect

import (
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

// Landmark model contract: 192x192 input, up to 100 detections with a class
// id per box (0 = face, 1 = person).
const (
	landmarkInputSize     = 192
	landmarkMaxDetections = 100
	landmarkMinConfidence = 0.5
)

// LandmarkDetector is the primary backend: a lightweight exported landmark
// detection model serving both kinds. It is unavailable whenever the ONNX
// runtime or the model file is missing.
type LandmarkDetector struct {
	logger     zerolog.Logger
	modelPath  string
	inputShape ort.Shape
	session    *ort.DynamicAdvancedSession
}

// NewLandmarkDetector loads the landmark model, probing runtime availability.
func NewLandmarkDetector(logger zerolog.Logger, modelPath string) (*LandmarkDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputNames := []string{"pixel_values"}
	outputNames := []string{"scores", "classes"}

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark session: %w", err)
	}

	logger.Info().
		Str("model", modelPath).
		Strs("inputs", inputNames).
		Strs("outputs", outputNames).
		Msg("landmark model loaded")

	return &LandmarkDetector{
		logger:     logger.With().Str("backend", "landmark").Logger(),
		modelPath:  modelPath,
		inputShape: ort.NewShape(1, 3, landmarkInputSize, landmarkInputSize),
		session:    sess,
	}, nil
}

// Detect counts detections of the requested kind above the confidence floor.
func (d *LandmarkDetector) Detect(img image.Image, kind Kind) (Result, error) {
	data, err := preprocessFrame(img, landmarkInputSize)
	if err != nil {
		return Result{}, fmt.Errorf("%w: preprocess: %v", ErrDetection, err)
	}

	input, err := ort.NewTensor(d.inputShape, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: input tensor: %v", ErrDetection, err)
	}
	defer input.Destroy()

	scores, err := ort.NewEmptyTensor[float32](ort.NewShape(1, landmarkMaxDetections))
	if err != nil {
		return Result{}, fmt.Errorf("%w: scores tensor: %v", ErrDetection, err)
	}
	defer scores.Destroy()

	classes, err := ort.NewEmptyTensor[int64](ort.NewShape(1, landmarkMaxDetections))
	if err != nil {
		return Result{}, fmt.Errorf("%w: classes tensor: %v", ErrDetection, err)
	}
	defer classes.Destroy()

	inputs := []ort.ArbitraryTensor{input}
	outputs := []ort.ArbitraryTensor{scores, classes}
	if err := d.session.Run(inputs, outputs); err != nil {
		return Result{}, fmt.Errorf("%w: inference: %v", ErrDetection, err)
	}

	wantClass := int64(0)
	if kind == KindPerson {
		wantClass = 1
	}

	scoreData := scores.GetData()
	classData := classes.GetData()

	count := 0
	var confSum float64
	for i := range scoreData {
		if scoreData[i] < landmarkMinConfidence || classData[i] != wantClass {
			continue
		}
		count++
		confSum += float64(scoreData[i])
	}

	res := Result{
		Detected: count > 0,
		Count:    count,
		Backend:  TierPrimary,
	}
	if count > 0 {
		res.AvgConfidence = confSum / float64(count)
	}
	return res, nil
}

// Info describes the backend.
func (d *LandmarkDetector) Info() BackendInfo {
	return BackendInfo{
		Name:  "landmark",
		Tier:  TierPrimary,
		Kinds: []Kind{KindFace, KindPerson},
	}
}

// Close releases the model session.
func (d *LandmarkDetector) Close() error {
	d.logger.Debug().Msg("closing landmark session")
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
