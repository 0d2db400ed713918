// Package app wires the settings store, week notes and grid renderer into
// the operations the CLI and HTTP server expose. Every mutation follows the
// same path: change the store (which persists), update the companion note
// best effort, and leave rendering to the next Render call.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"lifeweeks/internal/autofill"
	"lifeweeks/internal/config"
	"lifeweeks/internal/events"
	"lifeweeks/internal/ics"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/notes"
	"lifeweeks/internal/settings"
	"lifeweeks/internal/week"
)

var (
	ErrManualFillDisabled = errors.New("manual fill is disabled")
	ErrNotFutureWeek      = errors.New("only future weeks can be filled")
)

// Base geometry at zoom 1.
const (
	BaseCellSize  = 12.0
	BaseGap       = 2.0
	BaseDecadeGap = 8.0
)

// Service is the application core shared by the CLI and the HTTP server.
type Service struct {
	cfg   *config.Config
	store *settings.Store
	vault notes.Store
	sync  *notes.Sync
	now   func() time.Time
}

// New builds a Service over an opened store and a note vault.
func New(cfg *config.Config, store *settings.Store, vault notes.Store) *Service {
	snap := store.Snapshot()
	return &Service{
		cfg:   cfg,
		store: store,
		vault: vault,
		sync:  notes.NewSync(vault, store, snap.NotesFolder),
		now:   time.Now,
	}
}

// Open loads the settings file and the on-disk vault named by cfg.
func Open(cfg *config.Config) (*Service, error) {
	store, err := settings.Open(settings.FilePersistence{Path: cfg.SettingsPath})
	if err != nil {
		return nil, fmt.Errorf("open settings %s: %w", cfg.SettingsPath, err)
	}
	return New(cfg, store, notes.OpenDir(cfg.NotesRoot)), nil
}

// SetClock overrides time.Now, for tests and snapshots of a fixed day.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Store() *settings.Store { return s.store }
func (s *Service) Notes() *notes.Sync      { return s.sync }
func (s *Service) Config() *config.Config  { return s.cfg }

// NotesDir is the on-disk notes folder, for the delete watcher.
func (s *Service) NotesDir() string {
	return filepath.Join(s.cfg.NotesRoot, filepath.FromSlash(s.sync.Folder()))
}

// NewEvent is an event as entered by a user: dates, not week keys.
type NewEvent struct {
	Category    string
	Color       string // used when Category is new
	Description string
	Start       time.Time
	End         time.Time // zero for a single-week event
}

// AddResult reports what AddEvent did.
type AddResult struct {
	Event    events.Event
	Category string
	NotePath string // empty when the note could not be written
}

// AddEvent stores the event and mirrors it into its week (or range) note.
// Note failures are logged and do not fail the call.
func (s *Service) AddEvent(ctx context.Context, in NewEvent) (AddResult, error) {
	start, end := week.Midnight(in.Start), week.Midnight(in.End)
	if !in.End.IsZero() && end.Before(start) {
		start, end = end, start
	}

	e := events.NewSingle(week.KeyFor(start), in.Description)
	if !in.End.IsZero() {
		if ek := week.KeyFor(end); ek != e.Start {
			e = events.NewRange(e.Start, ek, in.Description)
		}
	}
	if err := s.store.AddEvent(in.Category, in.Color, e); err != nil {
		return AddResult{}, err
	}
	appLog.Info("event added", "category", in.Category, "event", events.Encode(e))

	res := AddResult{Event: e, Category: in.Category}
	color := in.Color
	if cat, ok := s.store.Category(in.Category); ok {
		color = cat.Color
	}
	md := notes.EventMetadata(in.Category, color, e, start, end)

	var err error
	if e.Kind == events.Range {
		res.NotePath, err = s.sync.UpdateRangeNote(ctx, e.Start, e.End, md)
	} else {
		res.NotePath, err = s.sync.UpdateEventInNote(ctx, e.Start, md)
	}
	if err != nil {
		appLog.Error("note update failed", err, "event", events.Encode(e))
		res.NotePath = ""
	}
	return res, nil
}

// AddEventForWeeks adds an event given week keys instead of dates.
func (s *Service) AddEventForWeeks(ctx context.Context, category, color, desc string, start, end week.Key) (AddResult, error) {
	sd, ok := week.ApproxDate(start)
	if !ok {
		return AddResult{}, fmt.Errorf("start %q: %w", start, week.ErrInvalidKey)
	}
	in := NewEvent{Category: category, Color: color, Description: desc, Start: sd}
	if end != "" && end != start {
		ed, ok := week.ApproxDate(end)
		if !ok {
			return AddResult{}, fmt.Errorf("end %q: %w", end, week.ErrInvalidKey)
		}
		in.End = ed
	}
	return s.AddEvent(ctx, in)
}

// DeleteWeeks removes the events touching keys (whole ranges included).
func (s *Service) DeleteWeeks(keys []week.Key) (int, error) {
	n, err := s.store.DeleteEventsForWeeks(keys)
	if err == nil && n > 0 {
		appLog.Info("events deleted", "weeks", len(keys), "removed", n)
	}
	return n, err
}

// RemoveEvent deletes one stored event. The note is left alone; it belongs
// to the user once written.
func (s *Service) RemoveEvent(category string, e events.Event) (bool, error) {
	ok, err := s.store.RemoveEvent(category, e)
	if err == nil && ok {
		appLog.Info("event removed", "category", category, "event", events.Encode(e))
	}
	return ok, err
}

// ToggleFilled flips a future week in manual fill mode.
func (s *Service) ToggleFilled(k week.Key) (bool, error) {
	snap := s.store.Snapshot()
	if !snap.EnableManualFill {
		return false, ErrManualFillDisabled
	}
	d, ok := week.ApproxDate(k)
	if !ok {
		return false, week.ErrInvalidKey
	}
	cur, _ := week.ApproxDate(week.KeyFor(s.now()))
	if !d.After(cur) {
		return false, ErrNotFutureWeek
	}
	return s.store.ToggleFilled(k)
}

// UpdateSettings applies fn through the store and follows notes folder
// changes.
func (s *Service) UpdateSettings(fn func(*settings.Settings) error) (settings.Settings, error) {
	if err := s.store.Update(fn); err != nil {
		return settings.Settings{}, err
	}
	snap := s.store.Snapshot()
	if snap.NotesFolder != s.sync.Folder() {
		s.sync.SetFolder(snap.NotesFolder)
		appLog.Info("notes folder changed", "folder", snap.NotesFolder)
	}
	return snap, nil
}

// CurrentWeekNote creates (if needed) the note of the current week.
func (s *Service) CurrentWeekNote(ctx context.Context) (string, bool, error) {
	return s.sync.EnsureWeekNote(ctx, week.KeyFor(s.now()))
}

// WeekInfo is everything known about one week.
type WeekInfo struct {
	Key      week.Key        `json:"key"`
	Monday   string          `json:"monday"`
	Filled   bool            `json:"filled"`
	Event    *events.Match   `json:"event,omitempty"`
	Note     *notes.Metadata `json:"note,omitempty"`
	NotePath string          `json:"notePath"`
}

// Week looks up the event, fill state and note frontmatter of k.
func (s *Service) Week(ctx context.Context, k week.Key) (WeekInfo, error) {
	d, ok := week.ApproxDate(k)
	if !ok {
		return WeekInfo{}, week.ErrInvalidKey
	}
	info := WeekInfo{
		Key:      k,
		Monday:   week.FormatDate(d),
		Filled:   s.store.IsFilled(k),
		NotePath: s.sync.WeekPath(k),
	}
	if m, ok := s.store.FindEventForWeek(k); ok {
		info.Event = &m
	}
	md, ok, err := s.sync.Lookup(ctx, k)
	if err != nil {
		appLog.Error("note lookup failed", err, "week", k)
	} else if ok {
		info.Note = &md
	}
	return info, nil
}

// ImportItems adds calendar items not already present. It returns how many
// were added and skipped.
func (s *Service) ImportItems(ctx context.Context, items []ics.Item) (added, skipped int, err error) {
	for _, it := range items {
		if s.hasEvent(it.Category, it.Event) {
			skipped++
			continue
		}
		in := NewEvent{
			Category:    it.Category,
			Color:       it.Color,
			Description: it.Event.Description,
			Start:       it.First,
		}
		if it.Event.Kind == events.Range {
			in.End = it.Last
		}
		if _, err := s.AddEvent(ctx, in); err != nil {
			appLog.Warn("import: event rejected", "uid", it.UID, "err", err)
			skipped++
			continue
		}
		added++
	}
	appLog.Info("import completed", "added", added, "skipped", skipped)
	return added, skipped, nil
}

func (s *Service) hasEvent(category string, e events.Event) bool {
	cat, ok := s.store.Category(category)
	if !ok {
		return false
	}
	for _, ev := range cat.Events {
		if ev == e {
			return true
		}
	}
	return false
}

// ImportWindow bounds recurrence expansion to the life span.
func (s *Service) ImportWindow() (from, to time.Time) {
	snap := s.store.Snapshot()
	return snap.Birthday, snap.Birthday.AddDate(snap.Lifespan, 0, 0)
}

// ExportICS writes every event as an iCalendar document.
func (s *Service) ExportICS(w io.Writer) error {
	return ics.Export(w, s.store.Categories(), s.now())
}

// AutoFill returns a scheduler bound to the store.
func (s *Service) AutoFill() *autofill.Scheduler {
	return autofill.New(s.store)
}
