package util

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{90*time.Second + 500*time.Millisecond, "00:01:30.500"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03.000"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v): expected %q, got %q", tc.d, tc.want, got)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30/1"); got != 30 {
		t.Errorf("expected 30, got %f", got)
	}
	if got := ParseFrameRate("30000/1001"); math.Abs(got-29.97) > 0.01 {
		t.Errorf("expected ~29.97, got %f", got)
	}
	for _, bad := range []string{"", "30", "a/b", "30/0"} {
		if got := ParseFrameRate(bad); got != 0 {
			t.Errorf("ParseFrameRate(%q): expected 0, got %f", bad, got)
		}
	}
}

func TestSiblingJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"videos/user/clip_123.mp4", "videos/user/clip_123.json"},
		{"clip.MOV", "clip.json"},
		{"noext", "noext.json"},
	}

	for _, tc := range cases {
		if got := SiblingJSON(tc.in); got != tc.want {
			t.Errorf("SiblingJSON(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
