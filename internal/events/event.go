// Package events holds life events attached to weeks and the category
// catalog that owns them.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lifeweeks/internal/week"
)

var (
	ErrEmptyDescription   = errors.New("event description is empty")
	ErrColonInDescription = errors.New("event description must not contain ':'")
	ErrMalformed          = errors.New("malformed encoded event")
)

// Kind tags the two event shapes.
type Kind int

const (
	Single Kind = iota
	Range
)

func (k Kind) String() string {
	if k == Range {
		return "range"
	}
	return "single"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is either a single-week event (End empty) or a range event.
type Event struct {
	Kind        Kind     `json:"kind"`
	Start       week.Key `json:"start"`
	End         week.Key `json:"end,omitempty"`
	Description string   `json:"description"`
}

// NewSingle builds a single-week event.
func NewSingle(k week.Key, desc string) Event {
	return Event{Kind: Single, Start: k, Description: desc}
}

// NewRange builds a range event. Endpoints are stored as given; Validate
// checks ordering.
func NewRange(start, end week.Key, desc string) Event {
	return Event{Kind: Range, Start: start, End: end, Description: desc}
}

// Validate rejects events that cannot be stored or encoded.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.Contains(e.Description, ":") {
		return ErrColonInDescription
	}
	if !e.Start.Valid() {
		return fmt.Errorf("start %q: %w", e.Start, week.ErrInvalidKey)
	}
	if e.Kind == Range {
		if !e.End.Valid() {
			return fmt.Errorf("end %q: %w", e.End, week.ErrInvalidKey)
		}
		if week.MustApproxDate(e.End).Before(week.MustApproxDate(e.Start)) {
			return fmt.Errorf("range %s..%s ends before it starts", e.Start, e.End)
		}
	}
	return nil
}

// Dates returns the Monday of the first and last week covered.
func (e Event) Dates() (start, end time.Time, ok bool) {
	start, ok = week.ApproxDate(e.Start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if e.Kind != Range {
		return start, start, true
	}
	end, ok = week.ApproxDate(e.End)
	return start, end, ok
}

// Covers reports whether week k belongs to the event. Ranges compare
// absolute dates so that ranges crossing a year boundary work.
func (e Event) Covers(k week.Key) bool {
	if e.Kind != Range {
		return e.Start == k
	}
	cell, ok := week.ApproxDate(k)
	if !ok {
		return false
	}
	start, end, ok := e.Dates()
	if !ok {
		return false
	}
	return !cell.Before(start) && !cell.After(end)
}

// Weeks lists every week key the event covers.
func (e Event) Weeks() []week.Key {
	if e.Kind != Range {
		return []week.Key{e.Start}
	}
	start, end, ok := e.Dates()
	if !ok {
		return nil
	}
	return week.KeysInRange(start, end)
}

// Encode renders the persisted flat form: "<key>:<desc>" or
// "<start>:<end>:<desc>".
func Encode(e Event) string {
	if e.Kind == Range {
		return string(e.Start) + ":" + string(e.End) + ":" + e.Description
	}
	return string(e.Start) + ":" + e.Description
}

// Decode parses the flat form. Legacy values whose description contains
// ':' are accepted: the second field decides the shape (a valid week key
// means range) and the remaining fields are joined back.
func Decode(s string) (Event, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || !week.Key(parts[0]).Valid() {
		return Event{}, fmt.Errorf("%q: %w", s, ErrMalformed)
	}
	start := week.Key(parts[0])
	if len(parts) >= 3 && week.Key(parts[1]).Valid() {
		return NewRange(start, week.Key(parts[1]), strings.Join(parts[2:], ":")), nil
	}
	return NewSingle(start, strings.Join(parts[1:], ":")), nil
}
