// Package grid maps (year, week) cells of a life grid to pixel geometry and
// renders the styled grid.
package grid

// Orientation decides which screen axis carries years.
type Orientation string

const (
	// Landscape puts years on the horizontal axis and weeks on the vertical.
	Landscape Orientation = "landscape"
	// Portrait puts weeks on the horizontal axis and years on the vertical.
	Portrait Orientation = "portrait"
)

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool { return o == Landscape || o == Portrait }

// CellShape is a rendering hint for each week cell.
type CellShape string

const (
	ShapeSquare  CellShape = "square"
	ShapeRounded CellShape = "rounded"
	ShapeCircle  CellShape = "circle"
)

func (s CellShape) Valid() bool {
	return s == ShapeSquare || s == ShapeRounded || s == ShapeCircle
}

// Frequency selects which months receive a marker.
type Frequency string

const (
	EveryMonth Frequency = "all"
	Quarterly  Frequency = "quarterly"
	HalfYearly Frequency = "half-yearly"
	Yearly     Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case EveryMonth, Quarterly, HalfYearly, Yearly:
		return true
	}
	return false
}

// WeeksPerYear is the fixed number of rows shown per year. Week 53 of long
// ISO years has no row of its own.
const WeeksPerYear = 52

// Point is a pixel position of a cell's top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the geometry input shared by all position functions.
type Layout struct {
	CellSize    float64
	Gap         float64
	DecadeGap   float64
	Orientation Orientation
}
