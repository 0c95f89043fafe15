package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// SelectFrames adds a select filter matching exact 0-based frame indices.
// Commas are literal inside the quoted expression, so no escaping is needed.
func (fb *FilterBuilder) SelectFrames(indices []int) *FilterBuilder {
	if len(indices) == 0 {
		return fb
	}
	terms := make([]string, len(indices))
	for i, n := range indices {
		terms[i] = fmt.Sprintf("eq(n,%d)", n)
	}
	fb.filters = append(fb.filters, fmt.Sprintf("select='%s'", strings.Join(terms, "+")))
	return fb
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Highpass adds an audio highpass filter
func (fb *FilterBuilder) Highpass(hz int) *FilterBuilder {
	if hz <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("highpass=f=%d", hz))
	return fb
}

// Lowpass adds an audio lowpass filter
func (fb *FilterBuilder) Lowpass(hz int) *FilterBuilder {
	if hz <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("lowpass=f=%d", hz))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
