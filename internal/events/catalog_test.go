package events

import (
	"errors"
	"testing"

	"lifeweeks/internal/week"
)

func TestFindForWeekRangeBoundaries(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(Travel, "", NewRange("2024-W10", "2024-W15", "Sabbatical")); err != nil {
		t.Fatal(err)
	}

	for _, k := range []week.Key{"2024-W10", "2024-W12", "2024-W15"} {
		m, ok := c.FindForWeek(k)
		if !ok {
			t.Errorf("%s: expected match", k)
			continue
		}
		if m.Category != Travel || m.Event.Description != "Sabbatical" {
			t.Errorf("%s: got %+v", k, m)
		}
	}
	for _, k := range []week.Key{"2024-W09", "2024-W16"} {
		if _, ok := c.FindForWeek(k); ok {
			t.Errorf("%s: unexpected match", k)
		}
	}
}

func TestFindForWeekAcrossYearBoundary(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(Travel, "", NewRange("2020-W52", "2021-W02", "Winter")); err != nil {
		t.Fatal(err)
	}
	for _, k := range []week.Key{"2020-W52", "2020-W53", "2021-W01", "2021-W02"} {
		if _, ok := c.FindForWeek(k); !ok {
			t.Errorf("%s: expected match", k)
		}
	}
	if _, ok := c.FindForWeek("2021-W03"); ok {
		t.Error("2021-W03 matched")
	}
}

func TestFindForWeekOrder(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, "Hobby", "#123456", NewSingle("2024-W05", "Custom first"))
	mustAdd(t, c, Relationship, "", NewSingle("2024-W05", "Builtin"))
	mustAdd(t, c, Relationship, "", NewSingle("2024-W05", "Builtin later"))

	m, ok := c.FindForWeek("2024-W05")
	if !ok || m.Event.Description != "Builtin" {
		t.Errorf("got %+v, want built-in first match", m)
	}
	if _, ok := c.FindForWeek("garbage"); ok {
		t.Error("invalid key matched")
	}
}

func TestAddRegistersCustomCategory(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, "Health", "#00AA00", NewSingle("2024-W01", "Marathon"))

	cat, ok := c.Category("Health")
	if !ok {
		t.Fatal("custom category not registered")
	}
	if cat.Color != "#00AA00" || cat.Builtin || len(cat.Events) != 1 {
		t.Errorf("got %+v", cat)
	}

	err := c.Add("Other", "", NewSingle("2024-W01", "bad:desc"))
	if !errors.Is(err, ErrColonInDescription) {
		t.Fatalf("err = %v", err)
	}
	if c.Has("Other") {
		t.Error("invalid event still registered its category")
	}
}

func TestDeleteForWeeks(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, MajorLife, "", NewSingle("2024-W01", "a"))
	mustAdd(t, c, MajorLife, "", NewSingle("2024-W02", "b"))
	mustAdd(t, c, Travel, "", NewRange("2024-W10", "2024-W15", "trip"))
	mustAdd(t, c, Travel, "", NewRange("2024-W20", "2024-W22", "other trip"))

	// Interior week of a range does not delete it.
	if n := c.DeleteForWeeks([]week.Key{"2024-W12"}); n != 0 {
		t.Errorf("interior week removed %d events", n)
	}
	// End key removes the whole range.
	if n := c.DeleteForWeeks([]week.Key{"2024-W15", "2024-W01"}); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if c.Count() != 2 {
		t.Errorf("Count = %d, want 2", c.Count())
	}
	if _, ok := c.FindForWeek("2024-W12"); ok {
		t.Error("range still present")
	}
}

func TestRenameCategory(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, "Work", "#111111", NewSingle("2024-W01", "Job"))
	mustAdd(t, c, "Side", "#222222", NewSingle("2024-W02", "Gig"))

	if err := c.Rename("Work", "Side"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("duplicate rename err = %v", err)
	}
	if err := c.Rename(MajorLife, "Life"); !errors.Is(err, ErrBuiltinCategory) {
		t.Fatalf("builtin rename err = %v", err)
	}
	if err := c.Rename("Missing", "X"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("missing rename err = %v", err)
	}
	if err := c.Rename("Work", "Career"); err != nil {
		t.Fatal(err)
	}
	if c.Has("Work") {
		t.Error("old name still present")
	}
	cat, ok := c.Category("Career")
	if !ok || len(cat.Events) != 1 || cat.Color != "#111111" {
		t.Errorf("renamed category = %+v", cat)
	}
	m, ok := c.FindForWeek("2024-W01")
	if !ok || m.Category != "Career" {
		t.Errorf("lookup after rename = %+v", m)
	}
}

func TestDeleteCategoryLeavesOthers(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, MajorLife, "", NewSingle("2024-W01", "a"))
	mustAdd(t, c, "Doomed", "", NewSingle("2024-W02", "b"))
	mustAdd(t, c, "Doomed", "", NewSingle("2024-W03", "c"))
	mustAdd(t, c, "Kept", "", NewSingle("2024-W04", "d"))

	before := map[string]int{}
	for _, cat := range c.Categories() {
		before[cat.Name] = len(cat.Events)
	}

	if err := c.Delete("Doomed"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(Travel); !errors.Is(err, ErrBuiltinCategory) {
		t.Fatalf("builtin delete err = %v", err)
	}

	for _, cat := range c.Categories() {
		if cat.Name == "Doomed" {
			t.Fatal("category still listed")
		}
		if before[cat.Name] != len(cat.Events) {
			t.Errorf("%s: %d events, had %d", cat.Name, len(cat.Events), before[cat.Name])
		}
	}
	if c.Count() != 2 {
		t.Errorf("Count = %d", c.Count())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := NewCatalog()
	mustAdd(t, c, MajorLife, "", NewSingle("2024-W01", "a"))
	cp := c.Clone()
	mustAdd(t, c, MajorLife, "", NewSingle("2024-W02", "b"))
	if cp.Count() != 1 {
		t.Errorf("clone count = %d", cp.Count())
	}
}

func mustAdd(t *testing.T, c *Catalog, cat, color string, e Event) {
	t.Helper()
	if err := c.Add(cat, color, e); err != nil {
		t.Fatalf("Add(%s, %+v): %v", cat, e, err)
	}
}
