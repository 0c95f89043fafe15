package util

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SiblingJSON returns the metadata JSON path next to a video file
// (videos/user/clip_123.mp4 -> videos/user/clip_123.json).
func SiblingJSON(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".json"
}
