package grid

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeweeks/internal/events"
	"lifeweeks/internal/week"
)

// State is a cell's base life-progress state.
type State string

const (
	StatePast    State = "past"
	StatePresent State = "present"
	StateFuture  State = "future"
	StateFilled  State = "filled"
)

// Colors are the base colors per state.
type Colors struct {
	Past    string
	Present string
	Future  string
	Filled  string
}

func (c Colors) of(s State) string {
	switch s {
	case StatePast:
		return c.Past
	case StatePresent:
		return c.Present
	case StateFilled:
		return c.Filled
	}
	return c.Future
}

// Style is the resolved look of one cell.
type Style struct {
	State      State  `json:"state"`
	Color      string `json:"color"`
	EventName  string `json:"event,omitempty"`
	Category   string `json:"category,omitempty"`
	EventColor string `json:"eventColor,omitempty"`

	// FromNote is set when the event came from the week note's frontmatter
	// rather than the event store.
	FromNote bool `json:"fromNote,omitempty"`
}

// Cell is one week of the grid.
type Cell struct {
	YearIndex int      `json:"year"`
	WeekIndex int      `json:"week"`
	Key       week.Key `json:"key"`
	Date      string   `json:"date"`
	Pos       Point    `json:"pos"`
	Style     Style    `json:"style"`
}

// Grid is a fully styled grid ready to paint.
type Grid struct {
	Years       int           `json:"years"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
	Layout      Layout        `json:"-"`
	Orientation Orientation   `json:"orientation"`
	CellSize    float64       `json:"cellSize"`
	CellShape   CellShape     `json:"cellShape"`
	WeeksLived  int           `json:"weeksLived"`
	Cells       []Cell        `json:"cells"`
	Markers     []MonthMarker `json:"markers,omitempty"`

	// Decades holds the year offsets of decade separators.
	Decades        []float64 `json:"decades,omitempty"`
	BirthdayMarker bool      `json:"birthdayMarker"`
}

// EventFinder resolves the store event covering a week.
type EventFinder interface {
	FindEventForWeek(k week.Key) (events.Match, bool)
}

// NoteEvent is the event metadata mirrored in a week note.
type NoteEvent struct {
	Name     string
	Category string
	Color    string
}

// NoteLookup reads a week note's event metadata. Implementations may block
// on I/O and must honor ctx.
type NoteLookup interface {
	LookupWeek(ctx context.Context, k week.Key) (NoteEvent, bool, error)
}

// Params is everything a render needs besides the collaborators.
type Params struct {
	Birthday time.Time
	Lifespan int
	Now      time.Time
	Colors   Colors
	Filled   func(week.Key) bool

	Layout    Layout
	CellShape CellShape

	ShowDecadeMarkers  bool
	ShowBirthdayMarker bool
	ShowMonthMarkers   bool
	MarkerFrequency    Frequency
}

// DefaultConcurrency bounds parallel style lookups in one render.
const DefaultConcurrency = 16

// Renderer builds styled grids. Notes may be nil.
type Renderer struct {
	Events      EventFinder
	Notes       NoteLookup
	Concurrency int
}

// Render enumerates 52 rows per year and resolves every cell's style before
// returning, so the first paint already shows note-derived events.
func (r *Renderer) Render(ctx context.Context, p Params) (*Grid, error) {
	years := p.Lifespan
	if years < 0 {
		years = 0
	}
	birth := week.Midnight(p.Birthday)
	lived := week.WeeksBetween(birth, p.Now)

	g := &Grid{
		Years:          years,
		Layout:         p.Layout,
		Orientation:    p.Layout.Orientation,
		CellSize:       p.Layout.CellSize,
		CellShape:      p.CellShape,
		WeeksLived:     lived,
		Cells:          make([]Cell, 0, years*WeeksPerYear),
		BirthdayMarker: p.ShowBirthdayMarker,
	}
	g.Width, g.Height = GridSize(years, p.Layout)

	for y := 0; y < years; y++ {
		for w := 0; w < WeeksPerYear; w++ {
			i := y*WeeksPerYear + w
			d := birth.AddDate(0, 0, 7*i)
			k := week.KeyFor(d)
			g.Cells = append(g.Cells, Cell{
				YearIndex: y,
				WeekIndex: w,
				Key:       k,
				Date:      week.FormatDate(d),
				Pos:       CellPosition(y, w, p.Layout),
				Style:     baseStyle(i, lived, k, p),
			})
		}
	}

	if err := r.styleEvents(ctx, g.Cells); err != nil {
		return nil, err
	}

	if p.ShowDecadeMarkers {
		for y := 10; y < years; y += 10 {
			g.Decades = append(g.Decades, YearPosition(y, p.Layout.CellSize, p.Layout.Gap, p.Layout.DecadeGap))
		}
	}
	if p.ShowMonthMarkers {
		g.Markers = MonthMarkers(birth, years, p.MarkerFrequency)
	}
	return g, nil
}

func baseStyle(i, lived int, k week.Key, p Params) Style {
	s := StateFuture
	switch {
	case i < lived:
		s = StatePast
	case i == lived:
		s = StatePresent
	case p.Filled != nil && p.Filled(k):
		s = StateFilled
	}
	return Style{State: s, Color: p.Colors.of(s)}
}

// styleEvents resolves every cell's event through a bounded worker batch.
// Each goroutine writes only its own cell.
func (r *Renderer) styleEvents(ctx context.Context, cells []Cell) error {
	if r.Events == nil && r.Notes == nil {
		return nil
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range cells {
		c := &cells[i]
		g.Go(func() error {
			return r.styleCell(gctx, c)
		})
	}
	return g.Wait()
}

func (r *Renderer) styleCell(ctx context.Context, c *Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Events != nil {
		if m, ok := r.Events.FindEventForWeek(c.Key); ok {
			c.Style.EventName = m.Event.Description
			c.Style.Category = m.Category
			c.Style.EventColor = m.Color
			return nil
		}
	}
	if r.Notes == nil {
		return nil
	}
	ne, ok, err := r.Notes.LookupWeek(ctx, c.Key)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A broken note only loses its decoration.
		return nil
	}
	if !ok || ne.Color == "" {
		return nil
	}
	c.Style.EventName = ne.Name
	c.Style.Category = ne.Category
	c.Style.EventColor = ne.Color
	c.Style.FromNote = true
	return nil
}

// Fill returns the color a cell is painted with.
func (s Style) Fill() string {
	if s.EventColor != "" {
		return s.EventColor
	}
	return s.Color
}
