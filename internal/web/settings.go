package web

import (
	"net/http"
	"time"

	"lifeweeks/internal/grid"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/settings"
	"lifeweeks/internal/week"
)

type colorsView struct {
	Past    string `json:"past"`
	Present string `json:"present"`
	Future  string `json:"future"`
	Filled  string `json:"filled"`
}

type settingsView struct {
	Birthday             string           `json:"birthday"`
	Lifespan             int              `json:"lifespan"`
	WeeksLived           int              `json:"weeksLived"`
	Colors               colorsView       `json:"colors"`
	Zoom                 float64          `json:"zoom"`
	Orientation          grid.Orientation `json:"orientation"`
	CellShape            grid.CellShape   `json:"cellShape"`
	ShowDecadeMarkers    bool             `json:"showDecadeMarkers"`
	ShowBirthdayMarker   bool             `json:"showBirthdayMarker"`
	ShowMonthMarkers     bool             `json:"showMonthMarkers"`
	MonthMarkerFrequency grid.Frequency   `json:"monthMarkerFrequency"`
	EnableManualFill     bool             `json:"enableManualFill"`
	EnableAutoFill       bool             `json:"enableAutoFill"`
	AutoFillDay          int              `json:"autoFillDay"`
	NotesFolder          string           `json:"notesFolder"`
	FilledWeeks          []week.Key       `json:"filledWeeks"`
}

func toSettingsView(s settings.Settings, now time.Time) settingsView {
	filled := s.FilledWeeks
	if filled == nil {
		filled = []week.Key{}
	}
	return settingsView{
		Birthday:             week.FormatDate(s.Birthday),
		Lifespan:             s.Lifespan,
		WeeksLived:           s.WeeksLived(now),
		Colors:               colorsView(s.Colors),
		Zoom:                 s.Zoom,
		Orientation:          s.Orientation,
		CellShape:            s.CellShape,
		ShowDecadeMarkers:    s.ShowDecadeMarkers,
		ShowBirthdayMarker:   s.ShowBirthdayMarker,
		ShowMonthMarkers:     s.ShowMonthMarkers,
		MonthMarkerFrequency: s.MonthMarkerFrequency,
		EnableManualFill:     s.EnableManualFill,
		EnableAutoFill:       s.EnableAutoFill,
		AutoFillDay:          int(s.AutoFillDay),
		NotesFolder:          s.NotesFolder,
		FilledWeeks:          filled,
	}
}

// settingsPatch carries only the fields a client wants to change.
type settingsPatch struct {
	Birthday             *string           `json:"birthday"`
	Lifespan             *int              `json:"lifespan"`
	Colors               *colorsView       `json:"colors"`
	Zoom                 *float64          `json:"zoom"`
	Orientation          *grid.Orientation `json:"orientation"`
	CellShape            *grid.CellShape   `json:"cellShape"`
	ShowDecadeMarkers    *bool             `json:"showDecadeMarkers"`
	ShowBirthdayMarker   *bool             `json:"showBirthdayMarker"`
	ShowMonthMarkers     *bool             `json:"showMonthMarkers"`
	MonthMarkerFrequency *grid.Frequency   `json:"monthMarkerFrequency"`
	EnableManualFill     *bool             `json:"enableManualFill"`
	EnableAutoFill       *bool             `json:"enableAutoFill"`
	AutoFillDay          *int              `json:"autoFillDay"`
	NotesFolder          *string           `json:"notesFolder"`
}

func (p settingsPatch) apply(s *settings.Settings) error {
	if p.Birthday != nil {
		t, ok := week.ParseDate(*p.Birthday)
		if !ok {
			return settings.ErrInvalidBirthday
		}
		s.Birthday = t
	}
	if p.Lifespan != nil {
		s.Lifespan = *p.Lifespan
	}
	if p.Colors != nil {
		c := *p.Colors
		if c.Past != "" {
			s.Colors.Past = c.Past
		}
		if c.Present != "" {
			s.Colors.Present = c.Present
		}
		if c.Future != "" {
			s.Colors.Future = c.Future
		}
		if c.Filled != "" {
			s.Colors.Filled = c.Filled
		}
	}
	if p.Zoom != nil {
		s.Zoom = *p.Zoom
	}
	if p.Orientation != nil {
		s.Orientation = *p.Orientation
	}
	if p.CellShape != nil {
		s.CellShape = *p.CellShape
	}
	if p.ShowDecadeMarkers != nil {
		s.ShowDecadeMarkers = *p.ShowDecadeMarkers
	}
	if p.ShowBirthdayMarker != nil {
		s.ShowBirthdayMarker = *p.ShowBirthdayMarker
	}
	if p.ShowMonthMarkers != nil {
		s.ShowMonthMarkers = *p.ShowMonthMarkers
	}
	if p.MonthMarkerFrequency != nil {
		s.MonthMarkerFrequency = *p.MonthMarkerFrequency
	}
	if p.EnableManualFill != nil {
		s.EnableManualFill = *p.EnableManualFill
	}
	if p.EnableAutoFill != nil {
		s.EnableAutoFill = *p.EnableAutoFill
	}
	if p.AutoFillDay != nil {
		s.AutoFillDay = time.Weekday(*p.AutoFillDay)
	}
	if p.NotesFolder != nil {
		s.NotesFolder = *p.NotesFolder
	}
	return nil
}

// handleSettings reads or patches the user settings.
//
// GET   /api/settings
// PATCH /api/settings   {"lifespan": 80, "orientation": "portrait", ...}
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toSettingsView(s.svc.Store().Snapshot(), time.Now()))
	case http.MethodPatch:
		var p settingsPatch
		if !decodeJSON(w, r, &p) {
			return
		}
		snap, err := s.svc.UpdateSettings(p.apply)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Info("settings updated", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusOK, toSettingsView(snap, time.Now()))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}
