package notes

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrNoteExists is returned by Create when the path is taken.
var ErrNoteExists = errors.New("note already exists")

// Store is the note vault. Paths are slash-separated and relative to the
// vault root.
type Store interface {
	Read(path string) (content string, ok bool, err error)
	Create(path, content string) error
	Modify(path, content string) error
	Exists(path string) (bool, error)
	CreateFolder(path string) error
}

// FSStore is a Store over a billy filesystem.
type FSStore struct {
	fs billy.Filesystem
}

// NewFSStore wraps an existing filesystem.
func NewFSStore(fsys billy.Filesystem) *FSStore {
	return &FSStore{fs: fsys}
}

// OpenDir serves the vault rooted at dir on disk.
func OpenDir(dir string) *FSStore {
	return NewFSStore(osfs.New(dir))
}

// NewMemStore returns an empty in-memory vault.
func NewMemStore() *FSStore {
	return NewFSStore(memfs.New())
}

// Root is the on-disk root of the vault, or "/" for in-memory vaults.
func (s *FSStore) Root() string { return s.fs.Root() }

func (s *FSStore) Read(path string) (string, bool, error) {
	f, err := s.fs.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), true, nil
}

func (s *FSStore) Create(path, content string) error {
	ok, err := s.Exists(path)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s: %w", path, ErrNoteExists)
	}
	return util.WriteFile(s.fs, path, []byte(content), 0o644)
}

func (s *FSStore) Modify(path, content string) error {
	ok, err := s.Exists(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return util.WriteFile(s.fs, path, []byte(content), 0o644)
}

func (s *FSStore) Exists(path string) (bool, error) {
	_, err := s.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FSStore) CreateFolder(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return s.fs.MkdirAll(path, 0o755)
}

// Remove deletes a note. Callers that also keep events in sync should go
// through Sync.PurgeDeletedNote.
func (s *FSStore) Remove(path string) error {
	return s.fs.Remove(path)
}

// List returns the note file names directly under folder, sorted.
func (s *FSStore) List(folder string) ([]string, error) {
	if folder == "" {
		folder = "."
	}
	infos, err := s.fs.ReadDir(folder)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), noteExt) {
			continue
		}
		out = append(out, fi.Name())
	}
	sort.Strings(out)
	return out, nil
}
