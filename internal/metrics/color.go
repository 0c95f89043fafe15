package metrics

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// colorSampleDim bounds the per-frame resolution used for pixel sampling.
// Clustering quality is insensitive to resolution well below this.
const colorSampleDim = 96

// kmeans iteration cap; centroids converge much earlier on video palettes.
const kmeansMaxIterations = 20

// Swatch is one dominant color, ranked by cluster population.
type Swatch struct {
	Hex        string  `json:"hex"`
	RGB        [3]int  `json:"rgb"`
	Population float64 `json:"population"`
}

// ColorResult is the run-level color summary.
type ColorResult struct {
	DominantColors []Swatch `json:"dominant_colors"`
	Temperature    string   `json:"color_temperature"`
}

// ColorSampler accumulates downscaled pixel samples from the frames it
// observes; the frames themselves are not retained.
type ColorSampler struct {
	samples []pixel
}

// NewColorSampler creates an empty sampler.
func NewColorSampler() *ColorSampler {
	return &ColorSampler{}
}

// Observe samples pixel colors from one frame.
func (s *ColorSampler) Observe(img image.Image) {
	small := downscale(img, colorSampleDim)
	b := small.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			r, g, bl, _ := small.At(x, y).RGBA()
			s.samples = append(s.samples, pixel{
				float64(r >> 8),
				float64(g >> 8),
				float64(bl >> 8),
			})
		}
	}
}

// Result clusters the sampled pixels into k groups and classifies the
// aggregate warm/cool temperature.
//
// Clustering is k-means with deterministic evenly-spaced seeding so that
// re-analyzing the same video with the same configuration reproduces the
// identical palette.
func (s *ColorSampler) Result(k int) (ColorResult, error) {
	if k < 2 {
		return ColorResult{}, fmt.Errorf("%w: need at least 2 color clusters, got %d", ErrExtraction, k)
	}
	if len(s.samples) == 0 {
		return ColorResult{}, fmt.Errorf("%w: no pixels sampled", ErrExtraction)
	}
	if k > len(s.samples) {
		k = len(s.samples)
	}

	centroids, counts := cluster(s.samples, k)

	swatches := make([]Swatch, 0, k)
	total := float64(len(s.samples))
	for i, c := range centroids {
		if counts[i] == 0 {
			continue
		}
		r := int(math.Round(c[0]))
		g := int(math.Round(c[1]))
		b := int(math.Round(c[2]))
		swatches = append(swatches, Swatch{
			Hex:        fmt.Sprintf("#%02x%02x%02x", r, g, b),
			RGB:        [3]int{r, g, b},
			Population: round2(float64(counts[i]) / total),
		})
	}

	sort.SliceStable(swatches, func(i, j int) bool {
		return swatches[i].Population > swatches[j].Population
	})

	return ColorResult{
		DominantColors: swatches,
		Temperature:    temperature(swatches),
	}, nil
}

type pixel [3]float64

// cluster runs k-means with centroids seeded at evenly spaced sample
// positions. Deterministic by construction.
func cluster(samples []pixel, k int) ([]pixel, []int) {
	centroids := make([]pixel, k)
	stride := len(samples) / k
	for i := 0; i < k; i++ {
		centroids[i] = samples[i*stride]
	}

	assignment := make([]int, len(samples))
	counts := make([]int, k)

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, s := range samples {
			best := 0
			bestDist := math.MaxFloat64
			for c, cen := range centroids {
				d := sqDist(s, cen)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([]pixel, k)
		counts = make([]int, k)
		for i, s := range samples {
			c := assignment[i]
			sums[c][0] += s[0]
			sums[c][1] += s[1]
			sums[c][2] += s[2]
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			n := float64(counts[c])
			centroids[c] = pixel{sums[c][0] / n, sums[c][1] / n, sums[c][2] / n}
		}
	}

	return centroids, counts
}

func sqDist(a, b pixel) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}

// Temperature hue bands (degrees). Red/orange/yellow reads warm, blue/cyan
// reads cool; anything desaturated contributes to neither.
const (
	warmHueMax    = 70.0
	warmHueWrap   = 330.0
	coolHueMin    = 150.0
	coolHueMax    = 270.0
	minSaturation = 0.15

	// Relative weight differential required to leave NEUTRAL.
	temperatureMargin = 1.1
)

func temperature(swatches []Swatch) string {
	var warm, cool float64
	for _, s := range swatches {
		h, sat := hueSaturation(s.RGB)
		if sat < minSaturation {
			continue
		}
		switch {
		case h < warmHueMax || h >= warmHueWrap:
			warm += s.Population
		case h >= coolHueMin && h < coolHueMax:
			cool += s.Population
		}
	}

	switch {
	case warm > cool*temperatureMargin && warm > 0:
		return "WARM"
	case cool > warm*temperatureMargin && cool > 0:
		return "COOL"
	default:
		return "NEUTRAL"
	}
}

func hueSaturation(rgb [3]int) (float64, float64) {
	r := float64(rgb[0]) / 255
	g := float64(rgb[1]) / 255
	b := float64(rgb[2]) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	if max == 0 || delta == 0 {
		return 0, 0
	}

	var h float64
	switch max {
	case r:
		h = math.Mod((g-b)/delta, 6)
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}

	return h, delta / max
}
