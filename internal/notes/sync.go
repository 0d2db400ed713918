package notes

import (
	"context"
	"fmt"
	"sync"

	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

// Purger removes events touching the given weeks. settings.Store satisfies
// it.
type Purger interface {
	DeleteEventsForWeeks(keys []week.Key) (int, error)
}

// Sync writes event frontmatter into week notes and purges events whose
// note was deleted.
type Sync struct {
	store  Store
	purger Purger

	mu     sync.RWMutex
	folder string
}

// NewSync returns a Sync writing under folder (relative to the vault root).
// purger may be nil when deleted notes should not affect events.
func NewSync(store Store, purger Purger, folder string) *Sync {
	return &Sync{store: store, purger: purger, folder: folder}
}

// SetFolder changes the notes folder for subsequent calls.
func (s *Sync) SetFolder(folder string) {
	s.mu.Lock()
	s.folder = folder
	s.mu.Unlock()
}

func (s *Sync) Folder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folder
}

// WeekPath is the vault path of a week's note.
func (s *Sync) WeekPath(k week.Key) string {
	return joinFolder(s.Folder(), NoteName(k))
}

// RangePath is the vault path of a range event's note.
func (s *Sync) RangePath(start, end week.Key) string {
	return joinFolder(s.Folder(), RangeNoteName(start, end))
}

// UpdateEventInNote writes md into the note of week k, creating the note
// (and the notes folder) when missing. It returns the note path.
func (s *Sync) UpdateEventInNote(ctx context.Context, k week.Key, md Metadata) (string, error) {
	if !k.Valid() {
		return "", week.ErrInvalidKey
	}
	p := s.WeekPath(k)
	return p, s.write(ctx, p, md)
}

// UpdateRangeNote writes md into the note of the range start..end.
func (s *Sync) UpdateRangeNote(ctx context.Context, start, end week.Key, md Metadata) (string, error) {
	if !start.Valid() || !end.Valid() {
		return "", week.ErrInvalidKey
	}
	p := s.RangePath(start, end)
	return p, s.write(ctx, p, md)
}

// EnsureWeekNote creates an empty note for k unless one exists, returning
// its path and whether it was created.
func (s *Sync) EnsureWeekNote(ctx context.Context, k week.Key) (string, bool, error) {
	if !k.Valid() {
		return "", false, week.ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p := s.WeekPath(k)
	ok, err := s.store.Exists(p)
	if err != nil || ok {
		return p, false, err
	}
	if err := s.store.CreateFolder(s.folderPath()); err != nil {
		return p, false, fmt.Errorf("create notes folder: %w", err)
	}
	if err := s.store.Create(p, ""); err != nil {
		return p, false, err
	}
	appLog.Info("week note created", "path", p)
	return p, true, nil
}

func (s *Sync) folderPath() string {
	return joinFolder(s.Folder(), "")
}

func (s *Sync) write(ctx context.Context, p string, md Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, ok, err := s.store.Read(p)
	if err != nil {
		return err
	}
	if ok {
		return s.store.Modify(p, Apply(content, md))
	}
	if err := s.store.CreateFolder(s.folderPath()); err != nil {
		return fmt.Errorf("create notes folder: %w", err)
	}
	return s.store.Create(p, Format(md))
}

// PurgeDeletedNote deletes the events of the week or week range a removed
// note stood for. A range note contributes only its boundary weeks, so
// single events inside the span keep their own notes and events. Names
// that are not note names are ignored.
func (s *Sync) PurgeDeletedNote(name string) (int, error) {
	start, end, ok := ParseNoteName(name)
	if !ok || s.purger == nil {
		return 0, nil
	}
	keys := []week.Key{start}
	if end != start {
		keys = append(keys, end)
	}
	n, err := s.purger.DeleteEventsForWeeks(keys)
	if err != nil {
		return n, err
	}
	if n > 0 {
		appLog.Info("events purged for deleted note", "note", name, "removed", n)
	}
	return n, nil
}

// Lookup reads the frontmatter of week k's note.
func (s *Sync) Lookup(ctx context.Context, k week.Key) (Metadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, false, err
	}
	content, ok, err := s.store.Read(s.WeekPath(k))
	if err != nil || !ok {
		return Metadata{}, false, err
	}
	md, ok := Parse(content)
	return md, ok, nil
}
