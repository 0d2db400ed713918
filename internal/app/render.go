package app

import (
	"context"

	"lifeweeks/internal/events"
	"lifeweeks/internal/grid"
	"lifeweeks/internal/notes"
	"lifeweeks/internal/settings"
	"lifeweeks/internal/week"
)

// RenderOptions are per-request overrides of the persisted view settings.
type RenderOptions struct {
	// Zoom overrides the saved zoom when > 0.
	Zoom float64
	// Fit computes the zoom from the viewport instead.
	Fit bool
	// Viewport size for Fit; the configured viewport is used when zero.
	Width, Height float64
}

// Render builds the styled grid for the current settings.
func (s *Service) Render(ctx context.Context, opt RenderOptions) (*grid.Grid, error) {
	snap := s.store.Snapshot()
	zoom := s.zoom(snap, opt)
	layout := grid.Layout{
		CellSize:    BaseCellSize * zoom,
		Gap:         BaseGap * zoom,
		DecadeGap:   BaseDecadeGap * zoom,
		Orientation: snap.Orientation,
	}

	r := &grid.Renderer{
		Events: catalogFinder{snap.Events},
		Notes:  noteLookup{sync: s.sync, cats: snap.Events},
	}
	return r.Render(ctx, grid.Params{
		Birthday: snap.Birthday,
		Lifespan: snap.Lifespan,
		Now:      s.now(),
		Colors: grid.Colors{
			Past:    snap.Colors.Past,
			Present: snap.Colors.Present,
			Future:  snap.Colors.Future,
			Filled:  snap.Colors.Filled,
		},
		Filled:             snap.IsFilled,
		Layout:             layout,
		CellShape:          snap.CellShape,
		ShowDecadeMarkers:  snap.ShowDecadeMarkers,
		ShowBirthdayMarker: snap.ShowBirthdayMarker,
		ShowMonthMarkers:   snap.ShowMonthMarkers,
		MarkerFrequency:    snap.MonthMarkerFrequency,
	})
}

func (s *Service) zoom(snap settings.Settings, opt RenderOptions) float64 {
	r := grid.Range{Min: s.cfg.ZoomMin, Max: s.cfg.ZoomMax}
	if opt.Fit {
		w, h := opt.Width, opt.Height
		if w <= 0 || h <= 0 {
			w, h = float64(s.cfg.Viewport.Width), float64(s.cfg.Viewport.Height)
		}
		base := grid.Layout{
			CellSize:    BaseCellSize,
			Gap:         BaseGap,
			DecadeGap:   BaseDecadeGap,
			Orientation: snap.Orientation,
		}
		return grid.FitToScreenZoom(w, h, snap.Lifespan, base, r)
	}
	if opt.Zoom > 0 {
		return r.Clamp(opt.Zoom)
	}
	return r.Clamp(snap.Zoom)
}

type catalogFinder struct{ c *events.Catalog }

func (f catalogFinder) FindEventForWeek(k week.Key) (events.Match, bool) {
	return f.c.FindForWeek(k)
}

// noteLookup exposes week note frontmatter to the renderer. A note naming a
// known category without its own color borrows the category color.
type noteLookup struct {
	sync *notes.Sync
	cats *events.Catalog
}

func (n noteLookup) LookupWeek(ctx context.Context, k week.Key) (grid.NoteEvent, bool, error) {
	md, ok, err := n.sync.Lookup(ctx, k)
	if err != nil || !ok {
		return grid.NoteEvent{}, false, err
	}
	name := md.Name
	if name == "" {
		name = md.Event
	}
	if name == "" || md.Type == "" {
		return grid.NoteEvent{}, false, nil
	}
	color := md.Color
	if color == "" {
		if cat, ok := n.cats.Category(md.Type); ok {
			color = cat.Color
		}
	}
	return grid.NoteEvent{Name: name, Category: md.Type, Color: color}, true, nil
}
