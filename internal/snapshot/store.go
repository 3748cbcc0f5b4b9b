// Package snapshot persists rendered chart frames on disk as an image file
// per format plus a JSON metadata sidecar.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"sync"
	"time"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Image formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrInvalidID = errors.New("invalid snapshot id")
)

// SnapshotMeta describes a stored snapshot.
type SnapshotMeta struct {
	ID           string         `json:"id"`
	ChartID      string         `json:"chart_id"`
	Formats      []string       `json:"formats"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	SizeBytes    map[string]int `json:"size_bytes"`
	DrawingCount int            `json:"drawing_count"`
	CreatedAt    time.Time      `json:"created_at"`
	Symbol       string         `json:"symbol,omitempty"`
	Interval     string         `json:"interval,omitempty"`
	Theme        string         `json:"theme,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

// Has reports whether the snapshot was stored in format.
func (m SnapshotMeta) Has(format string) bool {
	return slices.Contains(m.Formats, format)
}

// ContentType maps a stored format to its MIME type.
func ContentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Store manages snapshot files on disk.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validFormat(f string) bool { return f == FormatSVG || f == FormatPNG }

func (s *Store) imagePath(id, format string) string {
	return filepath.Join(s.dir, id+"."+format)
}

// Save writes one image file per entry in images and then the sidecar.
// Formats and sizes on meta are filled from images.
func (s *Store) Save(meta SnapshotMeta, images map[string][]byte) (SnapshotMeta, error) {
	if err := s.validateID(meta.ID); err != nil {
		return SnapshotMeta{}, err
	}
	if len(images) == 0 {
		return SnapshotMeta{}, errors.New("snapshot store: no images")
	}
	for format := range images {
		if !validFormat(format) {
			return SnapshotMeta{}, fmt.Errorf("snapshot store: unsupported format %q", format)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.Formats = nil
	meta.SizeBytes = make(map[string]int, len(images))
	var written []string
	cleanup := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}
	for _, format := range []string{FormatSVG, FormatPNG} {
		data, ok := images[format]
		if !ok {
			continue
		}
		p := s.imagePath(meta.ID, format)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			cleanup()
			return SnapshotMeta{}, fmt.Errorf("snapshot store: write %s image: %w", format, err)
		}
		written = append(written, p)
		meta.Formats = append(meta.Formats, format)
		meta.SizeBytes[format] = len(data)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		cleanup()
		return SnapshotMeta{}, fmt.Errorf("snapshot store: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, meta.ID+".json"), data, 0o644); err != nil {
		cleanup()
		return SnapshotMeta{}, fmt.Errorf("snapshot store: write meta: %w", err)
	}
	return meta, nil
}

// Get reads snapshot metadata by ID.
func (s *Store) Get(id string) (SnapshotMeta, error) {
	if err := s.validateID(id); err != nil {
		return SnapshotMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(filepath.Join(s.dir, id+".json"))
}

func (s *Store) readMeta(path string) (SnapshotMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SnapshotMeta{}, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return SnapshotMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return SnapshotMeta{}, fmt.Errorf("snapshot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns snapshots newest first. A non-empty chartID filters by chart.
// Unreadable sidecars are skipped.
func (s *Store) List(chartID string) ([]SnapshotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}

	metas := make([]SnapshotMeta, 0, len(matches))
	for _, path := range matches {
		meta, err := s.readMeta(path)
		if err != nil {
			slog.Debug("snapshot sidecar skipped", "path", path, "error", err)
			continue
		}
		if chartID != "" && meta.ChartID != chartID {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// ReadImage returns the bytes stored for format. An empty format picks PNG
// when present, else SVG.
func (s *Store) ReadImage(id, format string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	if format == "" {
		format = FormatSVG
		if meta.Has(FormatPNG) {
			format = FormatPNG
		}
	}
	if !meta.Has(format) {
		return nil, "", fmt.Errorf("%w: %s has no %s image", ErrNotFound, id, format)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.imagePath(id, format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: image %s.%s", ErrNotFound, id, format)
		}
		return nil, "", fmt.Errorf("snapshot store: read image: %w", err)
	}
	return data, format, nil
}

// Delete removes every image and the sidecar. Missing image files are logged
// and do not fail the delete.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, format := range meta.Formats {
		if err := os.Remove(s.imagePath(id, format)); err != nil {
			slog.Debug("snapshot image cleanup failed", "id", id, "format", format, "error", err)
		}
	}
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot store: remove meta: %w", err)
	}
	return nil
}
