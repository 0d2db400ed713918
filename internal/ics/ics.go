// Package ics exchanges life events with iCalendar files: export as all-day
// VEVENTs, import (with recurrence expansion) from files or feed URLs.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"lifeweeks/internal/events"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

const propColor = ical.ComponentProperty("COLOR")

// uidSpace namespaces exported UIDs so re-exports keep stable identities.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lifeweeks.local/events"))

// Item is one life event read from a calendar.
type Item struct {
	UID      string
	Category string
	Color    string
	Event    events.Event
	First    time.Time // first day
	Last     time.Time // last day, inclusive
}

// EventUID is the stable calendar UID of an event in category.
func EventUID(category string, e events.Event) string {
	return uuid.NewSHA1(uidSpace, []byte(category+"\x00"+events.Encode(e))).String() + "@lifeweeks"
}

// Export writes every event of cats as an all-day VEVENT spanning its
// weeks (Monday to the Monday after the last week).
func Export(w io.Writer, cats []events.Category, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//lifeweeks//life in weeks//EN")

	n := 0
	for _, cat := range cats {
		for _, e := range cat.Events {
			first, ok := week.ApproxDate(e.Start)
			if !ok {
				continue
			}
			lastWeek := first
			if e.Kind == events.Range {
				if d, ok := week.ApproxDate(e.End); ok {
					lastWeek = d
				}
			}

			ve := cal.AddEvent(EventUID(cat.Name, e))
			ve.SetDtStampTime(now.UTC())
			ve.SetSummary(e.Description)
			ve.SetAllDayStartAt(first)
			ve.SetAllDayEndAt(lastWeek.AddDate(0, 0, 7))
			ve.SetProperty(ical.ComponentPropertyCategories, cat.Name)
			if cat.Color != "" {
				ve.SetProperty(propColor, cat.Color)
			}
			if e.Kind == events.Range {
				ve.SetDescription(fmt.Sprintf("%s to %s", e.Start, e.End))
			} else {
				ve.SetDescription(string(e.Start))
			}
			n++
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return err
	}
	appLog.Info("ics export completed", "event_count", n)
	return nil
}

// ImportOptions controls how calendar entries become events.
type ImportOptions struct {
	// DefaultCategory receives entries without CATEGORIES. Empty means
	// Major Life.
	DefaultCategory string
	// From and To bound recurrence expansion. A zero To disables
	// recurring entries beyond their first instance.
	From, To time.Time
	// Max caps the instances per recurring entry.
	Max int
}

// Import converts the VEVENTs in body into items. src only labels logs.
// Colons in summaries become dashes since descriptions may not hold them.
func Import(src string, body []byte, opt ImportOptions) ([]Item, error) {
	parsed, err := parseCalendar(src, body)
	if err != nil {
		return nil, err
	}
	if opt.To.IsZero() {
		for i := range parsed {
			parsed[i].RawRRule = ""
		}
	}
	occ, err := expand(parsed, expandWindow{From: opt.From, To: opt.To, Max: opt.Max})
	if err != nil {
		return nil, err
	}

	def := opt.DefaultCategory
	if def == "" {
		def = events.MajorLife
	}

	items := make([]Item, 0, len(occ))
	for _, o := range occ {
		desc := strings.TrimSpace(strings.ReplaceAll(o.ev.Summary, ":", " -"))
		start, end := week.KeyFor(o.first), week.KeyFor(o.last)

		e := events.NewSingle(start, desc)
		if end != start {
			e = events.NewRange(start, end, desc)
		}
		if err := e.Validate(); err != nil {
			appLog.Warn("ics: entry skipped", "source", src, "uid", o.ev.UID, "err", err)
			continue
		}

		cat := o.ev.Category
		if cat == "" {
			cat = def
		}
		items = append(items, Item{
			UID:      o.ev.UID,
			Category: cat,
			Color:    o.ev.Color,
			Event:    e,
			First:    o.first,
			Last:     o.last,
		})
	}
	return items, nil
}
