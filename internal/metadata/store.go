// Package metadata owns the per-video JSON documents written by the
// acquisition side. The analyzer only ever replaces the "analysis" subtree;
// every other top-level key passes through untouched.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/framescope/internal/analyzer"
	"github.com/keagan/framescope/pkg/util"
)

// ErrMerge marks a failed metadata read-modify-write. The original file is
// guaranteed untouched when Merge fails.
var ErrMerge = errors.New("metadata merge failed")

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

// Video pairs a downloaded video file with its metadata document.
type Video struct {
	ID           string
	VideoPath    string
	MetadataPath string
}

// FindVideos walks the download directory and returns every video that has a
// sibling metadata JSON. Videos without one were not produced by the
// acquisition step and are skipped.
func FindVideos(root string) ([]Video, error) {
	var videos []Video

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		jsonPath := util.SiblingJSON(path)
		if !util.FileExists(jsonPath) {
			return nil
		}

		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		videos = append(videos, Video{
			ID:           id,
			VideoPath:    path,
			MetadataPath: jsonPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	return videos, nil
}

// Store performs the merge of analysis records into metadata documents.
type Store struct {
	logger zerolog.Logger
}

// NewStore creates a metadata store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		logger: logger.With().Str("component", "metadata").Logger(),
	}
}

// Merge replaces the "analysis" subtree of the metadata document with the
// given record, preserving all unrelated top-level keys. The write is atomic:
// a temp file in the same directory is renamed over the original, so a
// concurrent reader never observes partial JSON.
func (s *Store) Merge(metadataPath string, record *analyzer.Record) error {
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrMerge, metadataPath, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrMerge, metadataPath, err)
	}

	analysisJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode analysis: %v", ErrMerge, err)
	}
	doc["analysis"] = analysisJSON

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrMerge, err)
	}
	out = append(out, '\n')

	tmpPath := filepath.Join(filepath.Dir(metadataPath),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(metadataPath), uuid.NewString()))

	if err := os.WriteFile(tmpPath, out, 0644); err != nil {
		return fmt.Errorf("%w: write temp file: %v", ErrMerge, err)
	}

	if err := os.Rename(tmpPath, metadataPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: replace %s: %v", ErrMerge, metadataPath, err)
	}

	s.logger.Debug().Str("metadata", metadataPath).Msg("analysis merged")
	return nil
}
