package grid

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lifeweeks/internal/events"
	"lifeweeks/internal/week"
)

type fakeNotes struct {
	byKey map[week.Key]NoteEvent
	calls atomic.Int64
	err   error
}

func (f *fakeNotes) LookupWeek(ctx context.Context, k week.Key) (NoteEvent, bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return NoteEvent{}, false, f.err
	}
	ne, ok := f.byKey[k]
	return ne, ok, nil
}

// catalogFinder adapts *events.Catalog to EventFinder.
type catalogFinder struct{ c *events.Catalog }

func (f catalogFinder) FindEventForWeek(k week.Key) (events.Match, bool) {
	return f.c.FindForWeek(k)
}

func testParams() Params {
	return Params{
		Birthday: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.Local),
		Lifespan: 90,
		Now:      time.Date(2024, time.March, 6, 15, 0, 0, 0, time.Local),
		Colors:   Colors{Past: "#past", Present: "#now", Future: "#future", Filled: "#filled"},
		Layout:   Layout{CellSize: 10, Gap: 2, DecadeGap: 8, Orientation: Landscape},
	}
}

func TestRenderEventCells(t *testing.T) {
	cat := events.NewCatalog()
	grad, _ := week.ParseDate("2022-06-15")
	if err := cat.Add(events.MajorLife, "", events.NewSingle(week.KeyFor(grad), "Graduated")); err != nil {
		t.Fatal(err)
	}
	if err := cat.Add(events.Travel, "", events.NewRange("2023-W01", "2023-W05", "Trip")); err != nil {
		t.Fatal(err)
	}

	r := &Renderer{Events: catalogFinder{cat}}
	g, err := r.Render(context.Background(), testParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Cells) != 90*WeeksPerYear {
		t.Fatalf("cells = %d", len(g.Cells))
	}

	var graduated, trip []week.Key
	for _, c := range g.Cells {
		switch c.Style.EventName {
		case "Graduated":
			graduated = append(graduated, c.Key)
			if c.Style.EventColor != "#4CAF50" || c.Style.Category != events.MajorLife {
				t.Errorf("graduated style = %+v", c.Style)
			}
		case "Trip":
			trip = append(trip, c.Key)
		}
	}
	if len(graduated) != 1 || graduated[0] != "2022-W24" {
		t.Errorf("graduated cells = %v", graduated)
	}
	want := []week.Key{"2023-W01", "2023-W02", "2023-W03", "2023-W04", "2023-W05"}
	if len(trip) != len(want) {
		t.Fatalf("trip cells = %v", trip)
	}
	for i := range want {
		if trip[i] != want[i] {
			t.Errorf("trip cells = %v, want %v", trip, want)
			break
		}
	}
}

func TestRenderStates(t *testing.T) {
	p := testParams()
	filledKey := week.KeyFor(p.Birthday.AddDate(0, 0, 7*(40*WeeksPerYear)))
	p.Filled = func(k week.Key) bool { return k == filledKey }

	g, err := (&Renderer{}).Render(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}

	counts := map[State]int{}
	for i, c := range g.Cells {
		counts[c.Style.State]++
		if c.Style.Color != p.Colors.of(c.Style.State) {
			t.Fatalf("cell %d color %q for state %s", i, c.Style.Color, c.Style.State)
		}
	}
	lived := week.WeeksBetween(p.Birthday, p.Now)
	if counts[StatePresent] != 1 || counts[StatePast] != lived || counts[StateFilled] != 1 {
		t.Errorf("state counts = %v, lived = %d", counts, lived)
	}
	if g.Cells[lived].Style.State != StatePresent {
		t.Errorf("present cell at %d is %s", lived, g.Cells[lived].Style.State)
	}
}

func TestRenderPastWeeksNeverFilled(t *testing.T) {
	p := testParams()
	p.Filled = func(week.Key) bool { return true }
	g, err := (&Renderer{}).Render(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if g.Cells[0].Style.State != StatePast {
		t.Errorf("first cell state = %s", g.Cells[0].Style.State)
	}
}

func TestRenderAwaitsNoteLookups(t *testing.T) {
	cat := events.NewCatalog()
	_ = cat.Add(events.Travel, "", events.NewSingle("2010-W10", "Store event"))

	notes := &fakeNotes{byKey: map[week.Key]NoteEvent{
		"2010-W10": {Name: "Shadowed", Color: "#000000"},
		"2015-W20": {Name: "Noted", Category: "Health", Color: "#00FF00"},
		"2016-W01": {Name: "No color"},
	}}
	r := &Renderer{Events: catalogFinder{cat}, Notes: notes, Concurrency: 4}
	g, err := r.Render(context.Background(), testParams())
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range g.Cells {
		switch c.Key {
		case "2010-W10":
			if c.Style.EventName != "Store event" || c.Style.FromNote {
				t.Errorf("store event not preferred: %+v", c.Style)
			}
		case "2015-W20":
			if c.Style.EventName != "Noted" || !c.Style.FromNote || c.Style.Fill() != "#00FF00" {
				t.Errorf("note event missing: %+v", c.Style)
			}
		case "2016-W01":
			if c.Style.EventName != "" {
				t.Errorf("colorless note decorated cell: %+v", c.Style)
			}
		}
	}
	// Every cell but the store hit consults its note.
	if got := notes.calls.Load(); got != int64(len(g.Cells)-1) {
		t.Errorf("note lookups = %d, want %d", got, len(g.Cells)-1)
	}
}

func TestRenderNoteErrorsDegrade(t *testing.T) {
	notes := &fakeNotes{err: errors.New("disk on fire")}
	g, err := (&Renderer{Notes: notes}).Render(context.Background(), testParams())
	if err != nil {
		t.Fatalf("note failure broke render: %v", err)
	}
	if len(g.Cells) == 0 {
		t.Fatal("no cells")
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Renderer{Notes: &fakeNotes{}}).Render(ctx, testParams())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderMarkersAndDecades(t *testing.T) {
	p := testParams()
	p.ShowDecadeMarkers = true
	p.ShowMonthMarkers = true
	p.MarkerFrequency = Quarterly
	g, err := (&Renderer{}).Render(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Decades) != 8 {
		t.Errorf("decades = %d, want 8", len(g.Decades))
	}
	if len(g.Markers) == 0 {
		t.Error("no month markers")
	}
}

func TestWriteSVG(t *testing.T) {
	cat := events.NewCatalog()
	_ = cat.Add("Tom & Jerry", "#123456", events.NewSingle("2001-W05", `<fun> & "Jerry's"`))

	p := testParams()
	p.Lifespan = 12
	p.ShowDecadeMarkers = true
	p.ShowMonthMarkers = true
	p.MarkerFrequency = Quarterly
	p.ShowBirthdayMarker = true
	g, err := (&Renderer{Events: catalogFinder{cat}}).Render(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteSVG(&buf, g); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Error("not a complete SVG document")
	}
	if got := strings.Count(out, `data-key=`); got != 12*WeeksPerYear {
		t.Errorf("cell rects = %d", got)
	}
	if !strings.Contains(out, "&lt;fun&gt; &amp; &#34;Jerry&#39;s&#34;") || strings.Contains(out, "<fun>") {
		t.Error("event name not escaped")
	}
	if !strings.Contains(out, `fill="#123456"`) {
		t.Error("event color missing")
	}
	if !strings.Contains(out, ">10</text>") {
		t.Error("decade label missing")
	}
}
