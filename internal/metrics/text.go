package metrics

import (
	"fmt"
	"image"
)

// Text overlay heuristic parameters. Short-form overlays render as tight
// clusters of hard edges, so we grid the frame and count edge-dense cells.
const (
	textCellGrid      = 12   // cells per axis
	edgeThreshold     = 60.0 // Sobel magnitude for an edge pixel
	cellEdgeDensity   = 0.18 // edge-pixel fraction for a dense cell
	denseCellsToMatch = 6    // dense cells required to flag the frame
)

// TextResult is the run-level overlay summary.
type TextResult struct {
	Detected  bool    `json:"detected"`
	Frequency float64 `json:"frequency"`
}

// TextOverlay reports whether one frame appears to carry rendered text.
func TextOverlay(img image.Image) (bool, error) {
	plane, w, h := intensity(img)
	if w < textCellGrid || h < textCellGrid {
		return false, fmt.Errorf("%w: frame too small for text heuristic (%dx%d)", ErrExtraction, w, h)
	}

	cellW := w / textCellGrid
	cellH := h / textCellGrid
	dense := 0

	for cy := 0; cy < textCellGrid; cy++ {
		for cx := 0; cx < textCellGrid; cx++ {
			edges := 0
			pixels := 0
			for y := cy*cellH + 1; y < (cy+1)*cellH-1 && y < h-1; y++ {
				for x := cx*cellW + 1; x < (cx+1)*cellW-1 && x < w-1; x++ {
					if sobelMagnitude(plane, w, x, y) > edgeThreshold {
						edges++
					}
					pixels++
				}
			}
			if pixels > 0 && float64(edges)/float64(pixels) > cellEdgeDensity {
				dense++
			}
		}
	}

	return dense >= denseCellsToMatch, nil
}

func sobelMagnitude(plane []float64, w, x, y int) float64 {
	i := y*w + x
	gx := -plane[i-w-1] + plane[i-w+1] +
		-2*plane[i-1] + 2*plane[i+1] +
		-plane[i+w-1] + plane[i+w+1]
	gy := -plane[i-w-1] - 2*plane[i-w] - plane[i-w+1] +
		plane[i+w-1] + 2*plane[i+w] + plane[i+w+1]

	if gx < 0 {
		gx = -gx
	}
	if gy < 0 {
		gy = -gy
	}
	return gx + gy
}
