package notes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lifeweeks/internal/week"
)

type recordingPurger struct {
	mu    sync.Mutex
	calls [][]week.Key
}

func (p *recordingPurger) DeleteEventsForWeeks(keys []week.Key) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]week.Key(nil), keys...))
	return len(keys), nil
}

func (p *recordingPurger) snapshot() [][]week.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]week.Key(nil), p.calls...)
}

func TestUpdateEventInNoteCreates(t *testing.T) {
	store := NewMemStore()
	s := NewSync(store, nil, "Life")
	ctx := context.Background()

	md := Metadata{Name: "Graduated", Event: "Graduated", Type: "Major Life", Color: "#4CAF50", StartDate: "2022-06-15"}
	p, err := s.UpdateEventInNote(ctx, "2022-W24", md)
	if err != nil {
		t.Fatal(err)
	}
	if p != "Life/2022--W24.md" {
		t.Errorf("path = %s", p)
	}
	content, ok, err := store.Read(p)
	if err != nil || !ok {
		t.Fatalf("read: %v %v", ok, err)
	}
	if !strings.Contains(content, "type: Major Life\n") || !strings.Contains(content, "startDate: 2022-06-15\n") {
		t.Errorf("content:\n%s", content)
	}
}

func TestUpdateEventInNoteReplacesBlock(t *testing.T) {
	store := NewMemStore()
	if err := store.Create("2022--W24.md", "---\nname: Old\n---\n\nmy diary\n"); err != nil {
		t.Fatal(err)
	}
	s := NewSync(store, nil, "")
	if _, err := s.UpdateEventInNote(context.Background(), "2022-W24", Metadata{Name: "New"}); err != nil {
		t.Fatal(err)
	}
	content, _, _ := store.Read("2022--W24.md")
	if content != "---\nname: New\n---\n\nmy diary\n" {
		t.Errorf("content = %q", content)
	}

	md, ok, err := s.Lookup(context.Background(), "2022-W24")
	if err != nil || !ok || md.Name != "New" {
		t.Errorf("Lookup = %+v, %v, %v", md, ok, err)
	}
	if _, ok, _ := s.Lookup(context.Background(), "2022-W25"); ok {
		t.Error("missing note reported present")
	}
}

func TestUpdateRangeNote(t *testing.T) {
	store := NewMemStore()
	s := NewSync(store, nil, "Life")
	p, err := s.UpdateRangeNote(context.Background(), "2023-W01", "2023-W05", Metadata{Name: "Trip", EndDate: "2023-02-01"})
	if err != nil {
		t.Fatal(err)
	}
	if p != "Life/2023--W01_to_2023--W05.md" {
		t.Errorf("path = %s", p)
	}
	if ok, _ := store.Exists(p); !ok {
		t.Error("range note not written")
	}
}

func TestEnsureWeekNote(t *testing.T) {
	store := NewMemStore()
	s := NewSync(store, nil, "Life")
	ctx := context.Background()

	p, created, err := s.EnsureWeekNote(ctx, "2024-W10")
	if err != nil || !created {
		t.Fatalf("first = %s, %v, %v", p, created, err)
	}
	_, created, err = s.EnsureWeekNote(ctx, "2024-W10")
	if err != nil || created {
		t.Errorf("second created = %v, err = %v", created, err)
	}
	if err := store.Create(p, "x"); !errors.Is(err, ErrNoteExists) {
		t.Errorf("Create on existing = %v", err)
	}
}

func TestCanceledContextSkipsIO(t *testing.T) {
	store := NewMemStore()
	s := NewSync(store, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.UpdateEventInNote(ctx, "2022-W24", Metadata{Name: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if ok, _ := store.Exists("2022--W24.md"); ok {
		t.Error("note written despite canceled context")
	}
}

func TestPurgeDeletedNote(t *testing.T) {
	purger := &recordingPurger{}
	s := NewSync(NewMemStore(), purger, "")

	if n, _ := s.PurgeDeletedNote("groceries.md"); n != 0 || len(purger.snapshot()) != 0 {
		t.Error("non-note file triggered a purge")
	}

	if _, err := s.PurgeDeletedNote("2022--W24.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PurgeDeletedNote("Life/2023--W01_to_2023--W05.md"); err != nil {
		t.Fatal(err)
	}
	calls := purger.snapshot()
	if len(calls) != 2 {
		t.Fatalf("calls = %v", calls)
	}
	if len(calls[0]) != 1 || calls[0][0] != "2022-W24" {
		t.Errorf("single purge keys = %v", calls[0])
	}
	rangeKeys := calls[1]
	if len(rangeKeys) != 2 || rangeKeys[0] != "2023-W01" || rangeKeys[1] != "2023-W05" {
		t.Errorf("range purge keys = %v, want boundary weeks only", rangeKeys)
	}
}

func TestWatchPurgesRemovedNotes(t *testing.T) {
	dir := t.TempDir()
	purger := &recordingPurger{}
	s := NewSync(OpenDir(dir), purger, "")

	if _, err := s.UpdateEventInNote(context.Background(), "2022-W24", Metadata{Name: "Graduated"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, dir) }()

	// Give the watcher time to register before removing.
	time.Sleep(200 * time.Millisecond)
	if err := os.Remove(filepath.Join(dir, "2022--W24.md")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(purger.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	calls := purger.snapshot()
	if len(calls) != 1 || calls[0][0] != "2022-W24" {
		t.Errorf("purges = %v", calls)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop")
	}
}

func startWatch(t *testing.T, s *Sync, dir string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, dir) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(200 * time.Millisecond)
}

func TestWatchKeepsNoteSavedThroughBackup(t *testing.T) {
	dir := t.TempDir()
	purger := &recordingPurger{}
	s := NewSync(OpenDir(dir), purger, "")
	if _, err := s.UpdateEventInNote(context.Background(), "2022-W24", Metadata{Name: "Graduated"}); err != nil {
		t.Fatal(err)
	}
	startWatch(t, s, dir)

	// Backup-style save: move the note aside, then write it anew.
	note := filepath.Join(dir, "2022--W24.md")
	if err := os.Rename(note, note+"~"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(note, []byte("---\nname: Graduated\n---\n\nedited\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(3 * settleDelay)
	if calls := purger.snapshot(); len(calls) != 0 {
		t.Errorf("saved note purged: %v", calls)
	}
}

func TestWatchPurgesNoteRenamedAway(t *testing.T) {
	dir := t.TempDir()
	purger := &recordingPurger{}
	s := NewSync(OpenDir(dir), purger, "")
	if _, err := s.UpdateEventInNote(context.Background(), "2022-W24", Metadata{Name: "Graduated"}); err != nil {
		t.Fatal(err)
	}
	startWatch(t, s, dir)

	note := filepath.Join(dir, "2022--W24.md")
	if err := os.Rename(note, filepath.Join(dir, "graduation.md")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(purger.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	calls := purger.snapshot()
	if len(calls) != 1 || calls[0][0] != "2022-W24" {
		t.Errorf("purges = %v", calls)
	}
}

func TestPurgeIgnoresSingleDashNames(t *testing.T) {
	purger := &recordingPurger{}
	s := NewSync(NewMemStore(), purger, "")
	if n, err := s.PurgeDeletedNote("2025-W23.md"); err != nil || n != 0 {
		t.Fatalf("purged %d, %v", n, err)
	}
	if calls := purger.snapshot(); len(calls) != 0 {
		t.Errorf("single-dash name purged %v", calls)
	}
}
