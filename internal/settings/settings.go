// Package settings owns the user's life-grid settings: birthday, display
// options, filled weeks and the event catalog. Every mutation goes through
// Store so persistence and validation live in one place.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lifeweeks/internal/events"
	"lifeweeks/internal/grid"
	"lifeweeks/internal/week"
)

var (
	ErrInvalidBirthday = errors.New("invalid birthday")
	ErrInvalidLifespan = errors.New("lifespan must be between 1 and 150 years")
	ErrInvalidWeekday  = errors.New("auto-fill day must be 0 (Sunday) .. 6 (Saturday)")
)

// Colors are the base cell colors per life-progress state.
type Colors struct {
	Past    string
	Present string
	Future  string
	Filled  string
}

// Settings is the aggregate root.
type Settings struct {
	Birthday time.Time
	Lifespan int
	Colors   Colors

	Zoom        float64
	Orientation grid.Orientation
	CellShape   grid.CellShape

	ShowDecadeMarkers    bool
	ShowBirthdayMarker   bool
	ShowMonthMarkers     bool
	MonthMarkerFrequency grid.Frequency

	EnableManualFill bool
	EnableAutoFill   bool
	AutoFillDay      time.Weekday

	// NotesFolder is relative to the vault root; empty means the root.
	NotesFolder string

	FilledWeeks []week.Key
	Events      *events.Catalog
}

// Defaults returns the settings used before anything was persisted.
func Defaults() Settings {
	return Settings{
		Birthday: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.Local),
		Lifespan: 90,
		Colors: Colors{
			Past:    "#6C7A89",
			Present: "#FF5722",
			Future:  "#E0E0E0",
			Filled:  "#90CAF9",
		},
		Zoom:                 1.0,
		Orientation:          grid.Landscape,
		CellShape:            grid.ShapeSquare,
		ShowDecadeMarkers:    true,
		ShowBirthdayMarker:   true,
		ShowMonthMarkers:     true,
		MonthMarkerFrequency: grid.Quarterly,
		EnableManualFill:     true,
		EnableAutoFill:       false,
		AutoFillDay:          time.Monday,
		Events:               events.NewCatalog(),
	}
}

// Validate checks the scalar fields. Event-level rules are enforced by the
// catalog itself.
func (s *Settings) Validate() error {
	if s.Birthday.IsZero() {
		return ErrInvalidBirthday
	}
	if s.Lifespan < 1 || s.Lifespan > 150 {
		return ErrInvalidLifespan
	}
	if s.AutoFillDay < time.Sunday || s.AutoFillDay > time.Saturday {
		return ErrInvalidWeekday
	}
	if !s.Orientation.Valid() {
		return fmt.Errorf("unknown orientation %q", s.Orientation)
	}
	if !s.CellShape.Valid() {
		return fmt.Errorf("unknown cell shape %q", s.CellShape)
	}
	if !s.MonthMarkerFrequency.Valid() {
		return fmt.Errorf("unknown month marker frequency %q", s.MonthMarkerFrequency)
	}
	if s.Zoom <= 0 {
		return errors.New("zoom must be positive")
	}
	if strings.Contains(s.NotesFolder, "..") {
		return errors.New("notes folder must stay inside the vault")
	}
	return nil
}

// Clone deep-copies s.
func (s Settings) Clone() Settings {
	cp := s
	cp.FilledWeeks = append([]week.Key(nil), s.FilledWeeks...)
	if s.Events != nil {
		cp.Events = s.Events.Clone()
	} else {
		cp.Events = events.NewCatalog()
	}
	return cp
}

// IsFilled reports whether k was marked filled.
func (s *Settings) IsFilled(k week.Key) bool {
	for _, f := range s.FilledWeeks {
		if f == k {
			return true
		}
	}
	return false
}

// WeeksLived is the life-progress marker: whole weeks from birthday to now.
func (s *Settings) WeeksLived(now time.Time) int {
	return week.WeeksBetween(s.Birthday, now)
}
