package detect

import (
	"fmt"
	"image"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

var ortInitOnce sync.Once
var ortInitErr error

// initRuntime initializes the process-global ONNX runtime environment once.
// Sessions are per-worker, the environment is shared and torn down by
// ShutdownRuntime at process exit.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// ShutdownRuntime destroys the shared ONNX environment. Call only after all
// detector chains are closed.
func ShutdownRuntime() error {
	if ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}

// preprocessFrame resizes a frame to size x size and packs it as NCHW float32
// scaled to [0,1], the input layout both ONNX backends expect.
func preprocessFrame(img image.Image, size int) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	data := make([]float32, 3*size*size)
	bounds := resized.Bounds()
	if bounds.Dx() != size || bounds.Dy() != size {
		return nil, fmt.Errorf("resize produced %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), size, size)
	}

	plane := size * size
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[plane+i] = float32(g>>8) / 255.0
			data[2*plane+i] = float32(b>>8) / 255.0
			i++
		}
	}
	return data, nil
}
