package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/chartdraw/internal/render"
	"github.com/dgnsrekt/chartdraw/internal/snapshot"
)

// SnapshotRequest selects what a snapshot stores. SVG is always written.
type SnapshotRequest struct {
	PNG   bool          `json:"png,omitempty"`
	Theme *render.Theme `json:"theme,omitempty"`
	Notes string        `json:"notes,omitempty"`
}

// TakeSnapshot renders the committed drawings (no in-progress preview) and
// stores the frame as SVG, plus PNG when requested.
func (s *Service) TakeSnapshot(ctx context.Context, id string, req SnapshotRequest) (snapshot.SnapshotMeta, error) {
	if s.snaps == nil {
		return snapshot.SnapshotMeta{}, newError(CodeValidation, "snapshot storage is not configured", nil)
	}
	if req.Theme != nil && *req.Theme != render.ThemeDark && *req.Theme != render.ThemeLight {
		return snapshot.SnapshotMeta{}, newError(CodeValidation, fmt.Sprintf("unknown theme %q", *req.Theme), nil)
	}
	if req.PNG && s.raster == nil {
		return snapshot.SnapshotMeta{}, newError(CodeRasterUnavailable, "png snapshots need a rasterizer", nil)
	}

	var frame render.Frame
	meta := snapshot.SnapshotMeta{ID: uuid.New().String(), Notes: strings.TrimSpace(req.Notes)}
	err := s.withChart(id, false, func(c *Chart) error {
		if !c.mapper.Ready() {
			return newError(CodeValidation, "chart has no viewport bounds", nil)
		}
		theme := c.theme
		if req.Theme != nil {
			theme = *req.Theme
		}
		prev := c.theme
		c.theme = theme
		frame = c.frame(false)
		c.theme = prev

		meta.ChartID = c.id
		meta.Symbol, meta.Interval = c.symbol, c.interval
		meta.Theme = string(theme)
		meta.DrawingCount = len(frame.Items)
		meta.CreatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return snapshot.SnapshotMeta{}, err
	}
	meta.Width, meta.Height = int(frame.Width), int(frame.Height)

	svg := render.SVG(frame)
	images := map[string][]byte{snapshot.FormatSVG: []byte(svg)}
	if req.PNG {
		png, err := s.raster.Rasterize(ctx, svg, meta.Width, meta.Height)
		if err != nil {
			return snapshot.SnapshotMeta{}, newError(CodeRasterUnavailable, "rasterize snapshot", err)
		}
		images[snapshot.FormatPNG] = png
	}

	saved, err := s.snaps.Save(meta, images)
	if err != nil {
		return snapshot.SnapshotMeta{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.publish(saved.ChartID, EventSnapshotCreated, saved)
	slog.Info("snapshot saved", "id", saved.ID, "chart_id", saved.ChartID, "formats", saved.Formats)
	if s.notifier != nil {
		go s.notifySnapshot(saved)
	}
	return saved, nil
}

const notifyTimeout = 5 * time.Second

func (s *Service) notifySnapshot(meta snapshot.SnapshotMeta) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, snapshotMessage(meta)); err != nil {
		slog.Warn("snapshot notification failed", "id", meta.ID, "error", err)
	}
}

func snapshotMessage(meta snapshot.SnapshotMeta) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Snapshot %s of chart %s", meta.ID, meta.ChartID)
	if meta.Symbol != "" {
		fmt.Fprintf(&sb, " (%s %s)", meta.Symbol, meta.Interval)
	}
	fmt.Fprintf(&sb, ": %d drawings, %s", meta.DrawingCount, strings.Join(meta.Formats, "+"))
	if meta.Notes != "" {
		sb.WriteString(". ")
		sb.WriteString(meta.Notes)
	}
	return sb.String()
}

func (s *Service) ListSnapshots(chartID string) ([]snapshot.SnapshotMeta, error) {
	if s.snaps == nil {
		return []snapshot.SnapshotMeta{}, nil
	}
	return s.snaps.List(strings.TrimSpace(chartID))
}

func (s *Service) GetSnapshot(id string) (snapshot.SnapshotMeta, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return snapshot.SnapshotMeta{}, err
	}
	if s.snaps == nil {
		return snapshot.SnapshotMeta{}, snapshotNotFound(id, nil)
	}
	meta, err := s.snaps.Get(strings.TrimSpace(id))
	if err != nil {
		return snapshot.SnapshotMeta{}, snapshotNotFound(id, err)
	}
	return meta, nil
}

// ReadSnapshotImage returns image bytes and the content type. An empty
// format prefers PNG.
func (s *Service) ReadSnapshotImage(id, format string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return nil, "", err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != snapshot.FormatSVG && format != snapshot.FormatPNG {
		return nil, "", newError(CodeValidation, "format must be \"svg\" or \"png\"", nil)
	}
	if s.snaps == nil {
		return nil, "", snapshotNotFound(id, nil)
	}
	data, got, err := s.snaps.ReadImage(strings.TrimSpace(id), format)
	if err != nil {
		return nil, "", snapshotNotFound(id, err)
	}
	return data, snapshot.ContentType(got), nil
}

func (s *Service) DeleteSnapshot(id string) error {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return err
	}
	if s.snaps == nil {
		return snapshotNotFound(id, nil)
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return snapshotNotFound(id, err)
	}
	return nil
}

// snapshotNotFound maps store errors. Malformed ids are reported as
// validation failures.
func snapshotNotFound(id string, err error) error {
	if errors.Is(err, snapshot.ErrInvalidID) {
		return &CodedError{Code: CodeValidation, Message: err.Error()}
	}
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("snapshot %s: %w", id, err)
	}
	return &CodedError{Code: CodeSnapshotNotFound, Message: fmt.Sprintf("snapshot %q not found", id), Cause: err}
}
