package settings

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"lifeweeks/internal/config"
	"lifeweeks/internal/events"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

// Persistence loads and saves the settings blob. Load returns nil data and
// no error when nothing was saved yet.
type Persistence interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// FilePersistence keeps the blob in a JSON file written atomically.
type FilePersistence struct {
	Path string
}

func (p FilePersistence) Load() ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (p FilePersistence) Save(data []byte) error {
	return config.WriteFileAtomic(p.Path, data, 0o600)
}

// MemPersistence keeps the blob in memory. Useful for tests and dry runs.
type MemPersistence struct {
	mu    sync.Mutex
	Data  []byte
	Saves int
}

func (m *MemPersistence) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.Data...), nil
}

func (m *MemPersistence) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = append([]byte(nil), data...)
	m.Saves++
	return nil
}

// Store is the single owner of Settings. HTTP handlers and the auto-fill job
// run on different goroutines, so every method takes the lock; mutating
// methods persist before returning (last writer wins).
type Store struct {
	mu sync.RWMutex
	p  Persistence
	s  Settings
}

// Open builds the store from defaults overlaid with persisted data.
func Open(p Persistence) (*Store, error) {
	data, err := p.Load()
	if err != nil {
		return nil, err
	}
	s := Defaults()
	if len(data) > 0 {
		s, err = decodeBlob(data)
		if err != nil {
			return nil, err
		}
	}
	appLog.Info("settings loaded",
		"birthday", week.FormatDate(s.Birthday),
		"lifespan", s.Lifespan,
		"events", s.Events.Count(),
		"filled_weeks", len(s.FilledWeeks),
	)
	return &Store{p: p, s: s}, nil
}

// save persists the current state; caller holds the write lock.
func (st *Store) save() error {
	data, err := encodeBlob(&st.s)
	if err != nil {
		return err
	}
	if err := st.p.Save(data); err != nil {
		appLog.Error("settings save failed", err)
		return err
	}
	return nil
}

// Save persists the current state on demand.
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save()
}

// Snapshot returns a deep copy safe to read without the lock.
func (st *Store) Snapshot() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Clone()
}

// Update applies fn to a copy of the settings and commits it only when fn
// succeeds and the result validates.
func (st *Store) Update(fn func(*Settings) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.s.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	st.s = next
	return st.save()
}

// mutateEvents runs fn against the live catalog and persists when changed.
func (st *Store) mutateEvents(fn func(c *events.Catalog) (bool, error)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	changed, err := fn(st.s.Events)
	if err != nil || !changed {
		return err
	}
	return st.save()
}

// AddEvent appends e to category, registering a custom category with color
// when the name is new.
func (st *Store) AddEvent(category, color string, e events.Event) error {
	return st.mutateEvents(func(c *events.Catalog) (bool, error) {
		return true, c.Add(category, color, e)
	})
}

// RemoveEvent deletes one event from category.
func (st *Store) RemoveEvent(category string, e events.Event) (bool, error) {
	var removed bool
	err := st.mutateEvents(func(c *events.Catalog) (bool, error) {
		removed = c.Remove(category, e)
		return removed, nil
	})
	return removed, err
}

// DeleteEventsForWeeks removes events touching keys, see
// events.Catalog.DeleteForWeeks.
func (st *Store) DeleteEventsForWeeks(keys []week.Key) (int, error) {
	var n int
	err := st.mutateEvents(func(c *events.Catalog) (bool, error) {
		n = c.DeleteForWeeks(keys)
		return n > 0, nil
	})
	return n, err
}

func (st *Store) AddCategory(name, color string) error {
	return st.mutateEvents(func(c *events.Catalog) (bool, error) {
		return true, c.AddCategory(name, color)
	})
}

func (st *Store) RenameCategory(oldName, newName string) error {
	return st.mutateEvents(func(c *events.Catalog) (bool, error) {
		return oldName != newName, c.Rename(oldName, newName)
	})
}

func (st *Store) DeleteCategory(name string) error {
	return st.mutateEvents(func(c *events.Catalog) (bool, error) {
		return true, c.Delete(name)
	})
}

func (st *Store) SetCategoryColor(name, color string) error {
	return st.mutateEvents(func(c *events.Catalog) (bool, error) {
		return true, c.SetColor(name, color)
	})
}

// FindEventForWeek looks up the event covering k.
func (st *Store) FindEventForWeek(k week.Key) (events.Match, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Events.FindForWeek(k)
}

// Categories lists all categories with their events.
func (st *Store) Categories() []events.Category {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Events.Categories()
}

// Category returns a copy of the named category.
func (st *Store) Category(name string) (events.Category, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Events.Category(name)
}

// IsFilled reports whether k is in the filled-weeks set.
func (st *Store) IsFilled(k week.Key) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.IsFilled(k)
}

// MarkFilled adds k to the filled weeks and persists. It reports false
// without saving when k was already filled.
func (st *Store) MarkFilled(k week.Key) (bool, error) {
	if !k.Valid() {
		return false, week.ErrInvalidKey
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.IsFilled(k) {
		return false, nil
	}
	st.s.FilledWeeks = append(st.s.FilledWeeks, k)
	return true, st.save()
}

// ToggleFilled flips k in the filled-weeks set (manual fill mode) and
// returns the new state.
func (st *Store) ToggleFilled(k week.Key) (bool, error) {
	if !k.Valid() {
		return false, week.ErrInvalidKey
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, f := range st.s.FilledWeeks {
		if f == k {
			st.s.FilledWeeks = append(st.s.FilledWeeks[:i], st.s.FilledWeeks[i+1:]...)
			return false, st.save()
		}
	}
	st.s.FilledWeeks = append(st.s.FilledWeeks, k)
	return true, st.save()
}

// AutoFill returns the auto-fill flag and the weekday it fires on.
func (st *Store) AutoFill() (bool, time.Weekday) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.EnableAutoFill, st.s.AutoFillDay
}
