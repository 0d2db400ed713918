package events

import (
	"errors"
	"fmt"
	"strings"

	"lifeweeks/internal/week"
)

var (
	ErrDuplicateCategory = errors.New("category already exists")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrBuiltinCategory   = errors.New("built-in categories cannot be renamed or deleted")
	ErrEmptyCategory     = errors.New("category name is empty")
)

// Built-in category names.
const (
	MajorLife       = "Major Life"
	Travel          = "Travel"
	Relationship    = "Relationship"
	EducationCareer = "Education/Career"
)

// DefaultCustomColor is used when a custom category is created without one,
// and for orphaned events whose type entry went missing.
const DefaultCustomColor = "#9C27B0"

// Builtin describes one of the fixed categories.
type Builtin struct {
	Name  string
	Color string
}

// Builtins in lookup order.
var Builtins = []Builtin{
	{MajorLife, "#4CAF50"},
	{Travel, "#2196F3"},
	{Relationship, "#E91E63"},
	{EducationCareer, "#FF9800"},
}

// Category owns the name, color and events of one event type. Keeping all
// three in one record means a custom type can never lose its events or
// vice versa.
type Category struct {
	Name    string
	Color   string
	Builtin bool
	Events  []Event
}

// Match is the result of a week lookup.
type Match struct {
	Category string `json:"category"`
	Color    string `json:"color"`
	Event    Event  `json:"event"`
}

// Catalog is the in-memory EventStore. It is not safe for concurrent use;
// settings.Store serializes access.
type Catalog struct {
	cats   []*Category
	byName map[string]*Category
}

// NewCatalog returns a catalog holding the four empty built-in categories.
func NewCatalog() *Catalog {
	c := &Catalog{byName: make(map[string]*Category)}
	for _, b := range Builtins {
		cat := &Category{Name: b.Name, Color: b.Color, Builtin: true}
		c.cats = append(c.cats, cat)
		c.byName[b.Name] = cat
	}
	return c
}

// IsBuiltin reports whether name is one of the fixed categories.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (c *Catalog) lookup(name string) (*Category, bool) {
	cat, ok := c.byName[name]
	return cat, ok
}

// Has reports whether a category with that name exists.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Category returns a copy of the named category.
func (c *Catalog) Category(name string) (Category, bool) {
	cat, ok := c.lookup(name)
	if !ok {
		return Category{}, false
	}
	return copyCategory(cat), true
}

// Categories returns copies of all categories, built-ins first.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.cats))
	for _, cat := range c.cats {
		out = append(out, copyCategory(cat))
	}
	return out
}

func copyCategory(cat *Category) Category {
	cp := *cat
	cp.Events = append([]Event(nil), cat.Events...)
	return cp
}

// Count returns the total number of events.
func (c *Catalog) Count() int {
	n := 0
	for _, cat := range c.cats {
		n += len(cat.Events)
	}
	return n
}

// Clone deep-copies the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{byName: make(map[string]*Category, len(c.cats))}
	for _, cat := range c.cats {
		cp := copyCategory(cat)
		out.cats = append(out.cats, &cp)
		out.byName[cp.Name] = &cp
	}
	return out
}

// AddCategory registers an empty custom category.
func (c *Catalog) AddCategory(name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCategory
	}
	if c.Has(name) {
		return fmt.Errorf("%q: %w", name, ErrDuplicateCategory)
	}
	if color == "" {
		color = DefaultCustomColor
	}
	cat := &Category{Name: name, Color: color}
	c.cats = append(c.cats, cat)
	c.byName[name] = cat
	return nil
}

// Put replaces (or creates) a category wholesale without validating its
// events. It exists for loading persisted data, which may predate the
// current input rules.
func (c *Catalog) Put(name, color string, evs []Event) {
	if cat, ok := c.lookup(name); ok {
		if color != "" {
			cat.Color = color
		}
		cat.Events = append([]Event(nil), evs...)
		return
	}
	if color == "" {
		color = DefaultCustomColor
	}
	cat := &Category{Name: name, Color: color, Events: append([]Event(nil), evs...)}
	c.cats = append(c.cats, cat)
	c.byName[name] = cat
}

// Add appends e to category. An unknown category is first registered as a
// custom type with color. Nothing changes when e is invalid.
func (c *Catalog) Add(category, color string, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	cat, ok := c.lookup(category)
	if !ok {
		if err := c.AddCategory(category, color); err != nil {
			return err
		}
		cat, _ = c.lookup(category)
	}
	cat.Events = append(cat.Events, e)
	return nil
}

// Remove deletes the first event in category equal to e.
func (c *Catalog) Remove(category string, e Event) bool {
	cat, ok := c.lookup(category)
	if !ok {
		return false
	}
	for i, ev := range cat.Events {
		if ev == e {
			cat.Events = append(cat.Events[:i], cat.Events[i+1:]...)
			return true
		}
	}
	return false
}

// FindForWeek returns the first event covering k. Single events match by
// key, ranges by date inclusion. Built-in categories are searched before
// custom ones, each in insertion order.
func (c *Catalog) FindForWeek(k week.Key) (Match, bool) {
	if !k.Valid() {
		return Match{}, false
	}
	for _, cat := range c.cats {
		for _, ev := range cat.Events {
			if ev.Kind == Single && ev.Start == k {
				return Match{Category: cat.Name, Color: cat.Color, Event: ev}, true
			}
		}
		for _, ev := range cat.Events {
			if ev.Kind == Range && ev.Covers(k) {
				return Match{Category: cat.Name, Color: cat.Color, Event: ev}, true
			}
		}
	}
	return Match{}, false
}

// DeleteForWeeks removes every single event whose week is in keys and every
// range whose start or end is in keys. Ranges are removed whole. It returns
// the number of events removed.
func (c *Catalog) DeleteForWeeks(keys []week.Key) int {
	set := make(map[week.Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	removed := 0
	for _, cat := range c.cats {
		kept := cat.Events[:0]
		for _, ev := range cat.Events {
			hit := set[ev.Start] || (ev.Kind == Range && set[ev.End])
			if hit {
				removed++
				continue
			}
			kept = append(kept, ev)
		}
		cat.Events = kept
	}
	return removed
}

// Rename moves a custom category and its events to newName in one step.
func (c *Catalog) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyCategory
	}
	cat, ok := c.lookup(oldName)
	if !ok {
		return fmt.Errorf("%q: %w", oldName, ErrUnknownCategory)
	}
	if cat.Builtin {
		return fmt.Errorf("%q: %w", oldName, ErrBuiltinCategory)
	}
	if newName == oldName {
		return nil
	}
	if c.Has(newName) {
		return fmt.Errorf("%q: %w", newName, ErrDuplicateCategory)
	}
	delete(c.byName, oldName)
	cat.Name = newName
	c.byName[newName] = cat
	return nil
}

// Delete drops a custom category together with all of its events.
func (c *Catalog) Delete(name string) error {
	cat, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownCategory)
	}
	if cat.Builtin {
		return fmt.Errorf("%q: %w", name, ErrBuiltinCategory)
	}
	delete(c.byName, name)
	for i, x := range c.cats {
		if x == cat {
			c.cats = append(c.cats[:i], c.cats[i+1:]...)
			break
		}
	}
	return nil
}

// SetColor changes the color of any category, built-in or custom.
func (c *Catalog) SetColor(name, color string) error {
	cat, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownCategory)
	}
	if strings.TrimSpace(color) == "" {
		return errors.New("color is empty")
	}
	cat.Color = color
	return nil
}
