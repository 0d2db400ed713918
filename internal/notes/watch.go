package notes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "lifeweeks/internal/log"
)

// settleDelay is how long a removed or renamed note may take to reappear
// before its events are purged. Editors that save through a backup file
// rename the note away and write it back within this window.
var settleDelay = 300 * time.Millisecond

// Watch turns removals of note files under dir into PurgeDeletedNote calls
// until ctx is done. Renames count as removals, matching how editors and
// file managers move notes to the trash. Either way the purge happens only
// if the note is still absent once settleDelay has passed.
func (s *Sync) Watch(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	appLog.Info("watching notes", "dir", dir)

	gone := make(chan string)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(ev.Name, noteExt) {
				continue
			}
			path := ev.Name
			time.AfterFunc(settleDelay, func() {
				select {
				case gone <- path:
				case <-ctx.Done():
				}
			})
		case path := <-gone:
			if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
				appLog.Debug("note came back, keeping events", "path", path)
				continue
			}
			name := filepath.Base(path)
			if _, err := s.PurgeDeletedNote(name); err != nil {
				appLog.Error("purge for deleted note failed", err, "note", name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Warn("notes watcher error", "err", err)
		}
	}
}
