package grid

import "math"

// YearPosition is the offset of a year's column (landscape) or row
// (portrait). Every completed decade adds decadeGap-gap, so year 10 sits
// exactly decadeGap past the end of year 9.
func YearPosition(yearIndex int, cellSize, gap, decadeGap float64) float64 {
	if yearIndex < 0 {
		yearIndex = 0
	}
	i := float64(yearIndex)
	decades := float64(yearIndex / 10)
	return i*(cellSize+gap) + decades*(decadeGap-gap)
}

// WeekPosition is the offset of a week inside its year.
func WeekPosition(weekIndex int, cellSize, gap float64) float64 {
	if weekIndex < 0 {
		weekIndex = 0
	}
	return float64(weekIndex) * (cellSize + gap)
}

// CellPosition places cell (yearIndex, weekIndex). Landscape puts years on
// X; portrait swaps the axes.
func CellPosition(yearIndex, weekIndex int, l Layout) Point {
	y := YearPosition(yearIndex, l.CellSize, l.Gap, l.DecadeGap)
	w := WeekPosition(weekIndex, l.CellSize, l.Gap)
	if l.Orientation == Portrait {
		return Point{X: w, Y: y}
	}
	return Point{X: y, Y: w}
}

// GridSize is the pixel extent of a grid with the given number of years.
func GridSize(years int, l Layout) (width, height float64) {
	if years <= 0 {
		return 0, 0
	}
	along := YearPosition(years-1, l.CellSize, l.Gap, l.DecadeGap) + l.CellSize
	across := WeekPosition(WeeksPerYear-1, l.CellSize, l.Gap) + l.CellSize
	if l.Orientation == Portrait {
		return across, along
	}
	return along, across
}

// Range bounds a zoom factor.
type Range struct {
	Min float64
	Max float64
}

// Clamp bounds v to the range; the minimum never drops below 0.1.
func (r Range) Clamp(v float64) float64 {
	lo, hi := r.Min, r.Max
	if lo <= 0 {
		lo = 0.1
	}
	if hi < lo {
		hi = lo
	}
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fitShare is the fraction of the viewport the grid may occupy.
const fitShare = 0.95

// FitToScreenZoom returns the zoom that makes a grid of years, drawn with
// base scaled uniformly, fill 95% of the tighter viewport axis. Cell size,
// gap and decade gap all scale with zoom, so the extent at zoom 1 divides
// the available space directly. Degenerate input (no years, empty
// viewport, non-positive base cell) yields the minimum.
func FitToScreenZoom(width, height float64, years int, base Layout, r Range) float64 {
	floor := r.Clamp(r.Min)
	if width <= 0 || height <= 0 || years <= 0 || base.CellSize <= 0 {
		return floor
	}
	base.Gap = math.Max(base.Gap, 0)
	base.DecadeGap = math.Max(base.DecadeGap, base.Gap)
	w, h := GridSize(years, base)
	zoom := math.Min(width*fitShare/w, height*fitShare/h)
	if zoom <= 0 || math.IsInf(zoom, 0) || math.IsNaN(zoom) {
		return floor
	}
	return r.Clamp(zoom)
}
