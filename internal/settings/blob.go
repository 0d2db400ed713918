package settings

import (
	"encoding/json"
	"sort"
	"time"

	"lifeweeks/internal/events"
	"lifeweeks/internal/grid"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

// customType is one entry of the persisted customEventTypes list.
type customType struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// blob is the persisted settings document. Events are stored as flat
// strings: one sequence per built-in category plus a customEvents mapping
// keyed by category name, with customEventTypes carrying names and colors.
type blob struct {
	Birthday     string  `json:"birthday"`
	Lifespan     int     `json:"lifespan"`
	PastColor    string  `json:"pastColor"`
	PresentColor string  `json:"presentColor"`
	FutureColor  string  `json:"futureColor"`
	FilledColor  string  `json:"filledColor"`
	ZoomLevel    float64 `json:"zoomLevel"`

	GridOrientation string `json:"gridOrientation"`
	CellShape       string `json:"cellShape"`

	ShowDecadeMarkers    bool   `json:"showDecadeMarkers"`
	ShowBirthdayMarker   bool   `json:"showBirthdayMarker"`
	ShowMonthMarkers     bool   `json:"showMonthMarkers"`
	MonthMarkerFrequency string `json:"monthMarkerFrequency"`

	EnableManualFill bool `json:"enableManualFill"`
	EnableAutoFill   bool `json:"enableAutoFill"`
	AutoFillDay      int  `json:"autoFillDay"`

	NotesFolder string   `json:"notesFolder"`
	FilledWeeks []string `json:"filledWeeks"`

	MajorLifeEvents       []string            `json:"majorLifeEvents"`
	TravelEvents          []string            `json:"travelEvents"`
	RelationshipEvents    []string            `json:"relationshipEvents"`
	EducationCareerEvents []string            `json:"educationCareerEvents"`
	CustomEventTypes      []customType        `json:"customEventTypes"`
	CustomEvents          map[string][]string `json:"customEvents"`
}

// builtinField returns the blob sequence for a built-in category.
func (b *blob) builtinField(name string) *[]string {
	switch name {
	case events.MajorLife:
		return &b.MajorLifeEvents
	case events.Travel:
		return &b.TravelEvents
	case events.Relationship:
		return &b.RelationshipEvents
	case events.EducationCareer:
		return &b.EducationCareerEvents
	}
	return nil
}

func toBlob(s *Settings) *blob {
	b := &blob{
		Birthday:             week.FormatDate(s.Birthday),
		Lifespan:             s.Lifespan,
		PastColor:            s.Colors.Past,
		PresentColor:         s.Colors.Present,
		FutureColor:          s.Colors.Future,
		FilledColor:          s.Colors.Filled,
		ZoomLevel:            s.Zoom,
		GridOrientation:      string(s.Orientation),
		CellShape:            string(s.CellShape),
		ShowDecadeMarkers:    s.ShowDecadeMarkers,
		ShowBirthdayMarker:   s.ShowBirthdayMarker,
		ShowMonthMarkers:     s.ShowMonthMarkers,
		MonthMarkerFrequency: string(s.MonthMarkerFrequency),
		EnableManualFill:     s.EnableManualFill,
		EnableAutoFill:       s.EnableAutoFill,
		AutoFillDay:          int(s.AutoFillDay),
		NotesFolder:          s.NotesFolder,
		FilledWeeks:          make([]string, 0, len(s.FilledWeeks)),
		CustomEventTypes:     []customType{},
		CustomEvents:         map[string][]string{},
	}
	for _, k := range s.FilledWeeks {
		b.FilledWeeks = append(b.FilledWeeks, string(k))
	}

	for _, cat := range s.Events.Categories() {
		encoded := make([]string, 0, len(cat.Events))
		for _, ev := range cat.Events {
			encoded = append(encoded, events.Encode(ev))
		}
		if cat.Builtin {
			*b.builtinField(cat.Name) = encoded
			continue
		}
		b.CustomEventTypes = append(b.CustomEventTypes, customType{Name: cat.Name, Color: cat.Color})
		b.CustomEvents[cat.Name] = encoded
	}
	return b
}

// decodeBlob overlays persisted data on defaults. Fields missing from data
// keep their default values; malformed values are logged and skipped.
func decodeBlob(data []byte) (Settings, error) {
	def := Defaults()
	b := toBlob(&def)
	if err := json.Unmarshal(data, b); err != nil {
		return Settings{}, err
	}

	s := def
	if t, ok := week.ParseDate(b.Birthday); ok {
		s.Birthday = t
	} else {
		appLog.Warn("settings: invalid birthday, using default", "birthday", b.Birthday)
	}
	s.Lifespan = b.Lifespan
	if s.Lifespan < 1 || s.Lifespan > 150 {
		appLog.Warn("settings: invalid lifespan, using default", "lifespan", b.Lifespan)
		s.Lifespan = def.Lifespan
	}
	s.Colors = Colors{
		Past:    orDefault(b.PastColor, def.Colors.Past),
		Present: orDefault(b.PresentColor, def.Colors.Present),
		Future:  orDefault(b.FutureColor, def.Colors.Future),
		Filled:  orDefault(b.FilledColor, def.Colors.Filled),
	}
	if b.ZoomLevel > 0 {
		s.Zoom = b.ZoomLevel
	}
	if o := grid.Orientation(b.GridOrientation); o.Valid() {
		s.Orientation = o
	}
	if c := grid.CellShape(b.CellShape); c.Valid() {
		s.CellShape = c
	}
	s.ShowDecadeMarkers = b.ShowDecadeMarkers
	s.ShowBirthdayMarker = b.ShowBirthdayMarker
	s.ShowMonthMarkers = b.ShowMonthMarkers
	if f := grid.Frequency(b.MonthMarkerFrequency); f.Valid() {
		s.MonthMarkerFrequency = f
	}
	s.EnableManualFill = b.EnableManualFill
	s.EnableAutoFill = b.EnableAutoFill
	if b.AutoFillDay >= 0 && b.AutoFillDay <= 6 {
		s.AutoFillDay = time.Weekday(b.AutoFillDay)
	}
	s.NotesFolder = b.NotesFolder

	s.FilledWeeks = nil
	seen := map[week.Key]bool{}
	for _, raw := range b.FilledWeeks {
		k := week.Key(raw)
		if !k.Valid() || seen[k] {
			continue
		}
		seen[k] = true
		s.FilledWeeks = append(s.FilledWeeks, k)
	}

	cat := events.NewCatalog()
	for _, bi := range events.Builtins {
		cat.Put(bi.Name, "", decodeList(bi.Name, *b.builtinField(bi.Name)))
	}
	registered := map[string]bool{}
	for _, ct := range b.CustomEventTypes {
		if ct.Name == "" || registered[ct.Name] || events.IsBuiltin(ct.Name) {
			continue
		}
		registered[ct.Name] = true
		cat.Put(ct.Name, ct.Color, decodeList(ct.Name, b.CustomEvents[ct.Name]))
	}
	// Events under a name with no type entry: keep them, default color.
	var orphans []string
	for name := range b.CustomEvents {
		if !registered[name] && !events.IsBuiltin(name) {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		appLog.Warn("settings: custom events without a type entry", "category", name)
		cat.Put(name, events.DefaultCustomColor, decodeList(name, b.CustomEvents[name]))
	}
	s.Events = cat

	return s, nil
}

func decodeList(category string, raw []string) []events.Event {
	out := make([]events.Event, 0, len(raw))
	for _, r := range raw {
		ev, err := events.Decode(r)
		if err != nil {
			appLog.Warn("settings: skipping malformed event", "category", category, "value", r)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func encodeBlob(s *Settings) ([]byte, error) {
	return json.MarshalIndent(toBlob(s), "", "  ")
}
