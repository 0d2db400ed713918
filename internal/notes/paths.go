package notes

import (
	"path"
	"strings"

	"lifeweeks/internal/week"
)

const (
	noteExt   = ".md"
	rangeSep  = "_to_"
	weekInfix = "-W"
)

func fileKey(k week.Key) string {
	return strings.Replace(string(k), "W", weekInfix, 1)
}

// keyFromFile maps 2025--W23 back to 2025-W23. Names without the doubled
// dash are not note names.
func keyFromFile(s string) (week.Key, bool) {
	if !strings.Contains(s, "-"+weekInfix) {
		return "", false
	}
	k := week.Key(strings.Replace(s, "-"+weekInfix, "-W", 1))
	return k, k.Valid()
}

// NoteName is the file name of a week's note: 2025-W23 -> 2025--W23.md.
func NoteName(k week.Key) string {
	return fileKey(k) + noteExt
}

// RangeNoteName is the file name of a range event's note.
func RangeNoteName(start, end week.Key) string {
	return fileKey(start) + rangeSep + fileKey(end) + noteExt
}

// ParseNoteName derives the week (start == end) or week range a note file
// name stands for. Directories in name are ignored.
func ParseNoteName(name string) (start, end week.Key, ok bool) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if !strings.HasSuffix(base, noteExt) {
		return "", "", false
	}
	base = strings.TrimSuffix(base, noteExt)

	if a, b, isRange := strings.Cut(base, rangeSep); isRange {
		s, ok1 := keyFromFile(a)
		e, ok2 := keyFromFile(b)
		if !ok1 || !ok2 {
			return "", "", false
		}
		return s, e, true
	}
	k, ok := keyFromFile(base)
	if !ok {
		return "", "", false
	}
	return k, k, true
}

// joinFolder joins name under the notes folder; an empty folder is the
// vault root.
func joinFolder(folder, name string) string {
	folder = strings.Trim(strings.ReplaceAll(folder, `\`, "/"), "/")
	if folder == "" || folder == "." {
		return name
	}
	return path.Join(folder, name)
}
