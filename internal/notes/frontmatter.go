// Package notes mirrors life events into per-week markdown notes as a
// frontmatter block, and maps deleted notes back to the weeks they covered.
//
// The frontmatter is a display cache. The event store stays authoritative
// and hand edits to a note are never reconciled back.
package notes

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"lifeweeks/internal/events"
	"lifeweeks/internal/week"
)

// Metadata is the single-level key/value block at the top of a note.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	Event       string `json:"event,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Color       string `json:"color,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`

	// Extra keeps unknown keys read from a hand-edited note.
	Extra map[string]string `json:"extra,omitempty"`
}

// EventMetadata builds the block for an event of category. start and end
// are the dates the user picked; end is ignored for single events.
func EventMetadata(category, color string, e events.Event, start, end time.Time) Metadata {
	md := Metadata{
		Name:      e.Description,
		Event:     e.Description,
		Type:      category,
		Color:     color,
		StartDate: week.FormatDate(start),
	}
	if e.Kind == events.Range {
		md.EndDate = week.FormatDate(end)
	}
	return md
}

var (
	needsQuote = regexp.MustCompile(`[:#\[\]{}|>*&!%@,]`)

	// block matches a leading frontmatter block and the blank lines after it.
	block = regexp.MustCompile(`^---\r?\n(?:([\s\S]*?)\r?\n)?---[ \t]*(?:\r?\n|$)(?:\r?\n)*`)
)

func quote(v string) string {
	if !needsQuote.MatchString(v) && !strings.HasPrefix(v, `"`) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return strings.ReplaceAll(v[1:len(v)-1], `\"`, `"`)
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return v[1 : len(v)-1]
	}
	return v
}

// Format renders md as a frontmatter block followed by one blank line.
// Empty values are omitted and event is dropped when it equals name.
func Format(md Metadata) string {
	var b strings.Builder
	b.WriteString("---\n")
	put := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(quote(v))
		b.WriteString("\n")
	}
	put("name", md.Name)
	if md.Event != md.Name {
		put("event", md.Event)
	}
	put("description", md.Description)
	put("type", md.Type)
	put("color", md.Color)
	put("startDate", md.StartDate)
	put("endDate", md.EndDate)

	keys := make([]string, 0, len(md.Extra))
	for k := range md.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		put(k, md.Extra[k])
	}
	b.WriteString("---\n\n")
	return b.String()
}

// Parse reads the leading frontmatter block of content. It reports false
// when there is none.
func Parse(content string) (Metadata, bool) {
	m := block.FindStringSubmatch(content)
	if m == nil {
		return Metadata{}, false
	}
	var md Metadata
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimRight(line, "\r")
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = unquote(strings.TrimSpace(v))
		if k == "" {
			continue
		}
		switch k {
		case "name":
			md.Name = v
		case "event":
			md.Event = v
		case "description":
			md.Description = v
		case "type":
			md.Type = v
		case "color":
			md.Color = v
		case "startDate":
			md.StartDate = v
		case "endDate":
			md.EndDate = v
		default:
			if md.Extra == nil {
				md.Extra = map[string]string{}
			}
			md.Extra[k] = v
		}
	}
	if md.Event == "" {
		md.Event = md.Name
	}
	return md, true
}

// Apply replaces the frontmatter block of content with md, or prepends one
// when content has none.
func Apply(content string, md Metadata) string {
	fm := Format(md)
	if loc := block.FindStringIndex(content); loc != nil {
		return fm + content[loc[1]:]
	}
	return fm + content
}
