package sampling

import (
	"errors"
	"testing"

	"github.com/keagan/framescope/internal/config"
)

func TestPlanEvenSpread(t *testing.T) {
	cfg := config.AnalysisConfig{SampleFrameCount: 30}

	indices, err := Plan(300, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(indices) != 30 {
		t.Fatalf("expected 30 indices, got %d", len(indices))
	}
	if indices[0] != 0 {
		t.Errorf("expected first index 0, got %d", indices[0])
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] <= indices[i-1] {
			t.Fatalf("indices not strictly increasing at %d: %d <= %d", i, indices[i], indices[i-1])
		}
	}
	if last := indices[len(indices)-1]; last >= 300 {
		t.Errorf("last index %d out of range [0, 300)", last)
	}
}

func TestPlanPercentPrecedence(t *testing.T) {
	// Both set: percent wins.
	cfg := config.AnalysisConfig{SampleFrameCount: 30, SamplePercent: 70}

	indices, err := Plan(100, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(indices) != 70 {
		t.Errorf("expected 70 indices from sample_percent=70 on 100 frames, got %d", len(indices))
	}
}

func TestPlanPercentRoundsUp(t *testing.T) {
	cfg := config.AnalysisConfig{SamplePercent: 25}

	indices, err := Plan(103, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	// ceil(103 * 0.25) = 26
	if len(indices) != 26 {
		t.Errorf("expected 26 indices, got %d", len(indices))
	}
}

func TestPlanMinimumFloor(t *testing.T) {
	// 1% of 200 rounds up to 2, which clamps up to the floor of 5.
	cfg := config.AnalysisConfig{SamplePercent: 1}

	indices, err := Plan(200, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(indices) != MinSamples {
		t.Errorf("expected floor of %d indices, got %d", MinSamples, len(indices))
	}
}

func TestPlanShortVideo(t *testing.T) {
	// Fewer frames than the floor: every frame is sampled.
	cfg := config.AnalysisConfig{SampleFrameCount: 30}

	indices, err := Plan(3, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	want := []int{0, 1, 2}
	if len(indices) != len(want) {
		t.Fatalf("expected %v, got %v", want, indices)
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, indices)
		}
	}
}

func TestPlanTargetExceedsTotal(t *testing.T) {
	cfg := config.AnalysisConfig{SampleFrameCount: 50}

	indices, err := Plan(10, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(indices) != 10 {
		t.Errorf("expected all 10 frames, got %d", len(indices))
	}
}

func TestPlanUniqueIndices(t *testing.T) {
	cfg := config.AnalysisConfig{SampleFrameCount: 80}

	indices, err := Plan(97, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if seen[idx] {
			t.Fatalf("duplicate index %d", idx)
		}
		if idx < 0 || idx >= 97 {
			t.Fatalf("index %d out of range [0, 97)", idx)
		}
		seen[idx] = true
	}
}

func TestPlanInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		total int
		cfg   config.AnalysisConfig
	}{
		{"zero frames", 0, config.AnalysisConfig{SampleFrameCount: 30}},
		{"negative frames", -5, config.AnalysisConfig{SampleFrameCount: 30}},
		{"percent too high", 100, config.AnalysisConfig{SamplePercent: 150}},
		{"nothing set", 100, config.AnalysisConfig{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.total, tc.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, config.ErrInvalid) {
				t.Errorf("expected config.ErrInvalid, got %v", err)
			}
		})
	}
}
