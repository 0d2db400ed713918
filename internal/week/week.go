// Package week implements ISO-8601 week arithmetic on local wall-clock dates
// and the "YYYY-WNN" week key used throughout lifeweeks.
package week

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidKey is returned when a string is not a "YYYY-WNN" week key.
var ErrInvalidKey = errors.New("invalid week key")

// DateLayout is the on-disk date format (frontmatter, settings blob).
const DateLayout = "2006-01-02"

// Key labels one ISO week, e.g. "2025-W23".
type Key string

// Midnight drops the time-of-day of t in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// isoWeekday returns 1 (Monday) .. 7 (Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// thursdayOf shifts t to the Thursday of its ISO week. The ISO year of t is
// the calendar year of that Thursday.
func thursdayOf(t time.Time) time.Time {
	m := Midnight(t)
	return m.AddDate(0, 0, 4-isoWeekday(m))
}

// ISOWeekNumber returns the ISO-8601 week number (1..53) of t.
func ISOWeekNumber(t time.Time) int {
	return 1 + (thursdayOf(t).YearDay()-1)/7
}

// KeyFor returns the week key of the ISO week containing t.
func KeyFor(t time.Time) Key {
	th := thursdayOf(t)
	return Key(fmt.Sprintf("%04d-W%02d", th.Year(), 1+(th.YearDay()-1)/7))
}

// NewKey builds a key from its parts without validating the week number
// against the year.
func NewKey(year, week int) Key {
	return Key(fmt.Sprintf("%04d-W%02d", year, week))
}

// ParseKey splits a week key into year and week. ok is false for anything
// that is not "YYYY-WNN" with NN in 1..53.
func ParseKey(s string) (year, week int, ok bool) {
	if len(s) != 8 || s[4] != '-' || s[5] != 'W' {
		return 0, 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 0 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(s[6:])
	if err != nil || w < 1 || w > 53 {
		return 0, 0, false
	}
	return y, w, true
}

// Valid reports whether k parses.
func (k Key) Valid() bool {
	_, _, ok := ParseKey(string(k))
	return ok
}

func (k Key) String() string { return string(k) }

// ApproxDate returns the Monday that starts week k in local time. Keys are
// year-local labels, so this is the exact inverse of KeyFor only for keys
// that KeyFor produced.
func ApproxDate(k Key) (time.Time, bool) {
	y, w, ok := ParseKey(string(k))
	if !ok {
		return time.Time{}, false
	}
	simple := time.Date(y, time.January, 1+(w-1)*7, 0, 0, 0, 0, time.Local)
	dow := int(simple.Weekday())
	if dow <= 4 {
		// Sunday (0) moves forward one day; Mon..Thu move back to Monday.
		return simple.AddDate(0, 0, 1-dow), true
	}
	return simple.AddDate(0, 0, 8-dow), true
}

// MustApproxDate is ApproxDate for keys already known to be valid.
func MustApproxDate(k Key) time.Time {
	t, ok := ApproxDate(k)
	if !ok {
		panic(fmt.Sprintf("week: %q: %v", k, ErrInvalidKey))
	}
	return t
}

// civilDay counts days since the Unix epoch for the calendar date of t,
// ignoring its location so DST shifts cannot change the result.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(civilDay(b) - civilDay(a))
}

// WeeksBetween returns the number of whole weeks elapsed from birth to asOf,
// both taken as calendar dates. The result is negative when asOf is before
// birth.
func WeeksBetween(birth, asOf time.Time) int {
	days := DaysBetween(birth, asOf)
	if days < 0 {
		// floor for negatives
		return -((-days + 6) / 7)
	}
	return days / 7
}

// KeysInRange enumerates the week keys from start to end inclusive in
// 7-day steps. Reversed inputs are swapped; the week of end is always
// present even when the stride steps past it.
func KeysInRange(start, end time.Time) []Key {
	start, end = Midnight(start), Midnight(end)
	if end.Before(start) {
		start, end = end, start
	}

	var days []time.Time
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: start,
		Until:   end,
	})
	if err == nil {
		days = r.All()
	} else {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
			days = append(days, d)
		}
	}
	days = append(days, end)

	keys := make([]Key, 0, len(days))
	seen := make(map[Key]bool, len(days))
	for _, d := range days {
		k := KeyFor(d)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// ParseDate parses a "YYYY-MM-DD" date at local midnight.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
