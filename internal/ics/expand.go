package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

const defaultMaxOccurrences = 200

// occurrence is one concrete instance of a VEVENT, as local calendar days.
type occurrence struct {
	ev    vevent
	first time.Time // first day, local midnight
	last  time.Time // last day, inclusive
}

// expandWindow bounds recurrence expansion, usually to the life span.
type expandWindow struct {
	From, To time.Time
	Max      int
}

// expand turns parsed VEVENTs into occurrences. Non-recurring events are
// kept regardless of the window; recurring ones (yearly anniversaries and
// such) are expanded inside it with EXDATE and RECURRENCE-ID applied.
func expand(evs []vevent, w expandWindow) ([]occurrence, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("expand: window end is before start")
	}
	if w.Max <= 0 {
		w.Max = defaultMaxOccurrences
	}

	base := make([]vevent, 0, len(evs))
	overrides := make(map[string][]vevent)
	for _, ev := range evs {
		if ev.isOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		base = append(base, ev)
	}

	out := make([]occurrence, 0, len(base))
	for _, ev := range base {
		if ev.RawRRule == "" {
			out = append(out, makeOccurrence(ev, ev.Start, ev.End))
			continue
		}
		occ, truncated := expandRecurring(ev, overrides[ev.UID], w)
		if truncated {
			appLog.Warn("ics: recurrence truncated", "uid", ev.UID, "cap", w.Max)
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandRecurring(ev vevent, overrides []vevent, w expandWindow) ([]occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(w.From.In(loc), w.To.In(loc), true)
	truncated := false
	if len(starts) > w.Max {
		starts = starts[:w.Max]
		truncated = true
	}

	dur := time.Duration(0)
	if !ev.End.IsZero() && ev.End.After(ev.Start) {
		dur = ev.End.Sub(ev.Start)
	}

	out := make([]occurrence, 0, len(starts))
	for _, s := range starts {
		inst, start, end := ev, s, s.Add(dur)
		if o, ok := findOverride(overrides, s); ok {
			inst, start, end = o, o.Start, o.End
		}
		out = append(out, makeOccurrence(inst, start, end))
	}
	return out, truncated
}

// findOverride finds the override whose RECURRENCE-ID equals start.
func findOverride(overrides []vevent, start time.Time) (vevent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return vevent{}, false
}

// makeOccurrence converts [start, end) into inclusive local days. All-day
// dates keep their calendar day whatever zone the parser attached; their
// DTEND is exclusive, so the last day is the one before it.
func makeOccurrence(ev vevent, start, end time.Time) occurrence {
	day := func(t time.Time) time.Time {
		if ev.AllDay {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
		}
		return week.Midnight(t.In(time.Local))
	}

	first := day(start)
	last := first
	if !end.IsZero() && end.After(start) {
		d := day(end)
		if ev.AllDay || end.In(time.Local).Equal(d) {
			d = d.AddDate(0, 0, -1)
		}
		if d.After(first) {
			last = d
		}
	}
	return occurrence{ev: ev, first: first, last: last}
}
