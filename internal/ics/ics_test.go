package ics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lifeweeks/internal/events"
)

func TestExportImportRoundTrip(t *testing.T) {
	cat := events.NewCatalog()
	if err := cat.Add(events.MajorLife, "", events.NewSingle("2022-W24", "Graduated")); err != nil {
		t.Fatal(err)
	}
	if err := cat.Add("Health", "#00FF00", events.NewRange("2023-W01", "2023-W05", "Training")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := Export(&buf, cat.Categories(), now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Fatalf("unexpected calendar:\n%s", out)
	}

	items, err := Import("test", buf.Bytes(), ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	byDesc := map[string]Item{}
	for _, it := range items {
		byDesc[it.Event.Description] = it
	}

	grad := byDesc["Graduated"]
	if grad.Event.Kind != events.Single || grad.Event.Start != "2022-W24" || grad.Category != events.MajorLife {
		t.Errorf("graduated = %+v", grad)
	}
	tr := byDesc["Training"]
	if tr.Event.Kind != events.Range || tr.Event.Start != "2023-W01" || tr.Event.End != "2023-W05" {
		t.Errorf("training = %+v", tr)
	}
	if tr.Category != "Health" || tr.Color != "#00FF00" {
		t.Errorf("training category = %s %s", tr.Category, tr.Color)
	}
}

func TestEventUIDStable(t *testing.T) {
	e := events.NewSingle("2022-W24", "Graduated")
	if EventUID("A", e) != EventUID("A", e) {
		t.Error("UID not deterministic")
	}
	if EventUID("A", e) == EventUID("B", e) {
		t.Error("UID ignores category")
	}
}

const recurringICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:anniv@test\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20150620\r\n" +
	"DTEND;VALUE=DATE:20150621\r\n" +
	"RRULE:FREQ=YEARLY\r\n" +
	"SUMMARY:Anniversary: us\r\n" +
	"CATEGORIES:Relationship\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken@test\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20150620\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportExpandsRecurrence(t *testing.T) {
	from := time.Date(2015, 1, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2019, 12, 31, 0, 0, 0, 0, time.Local)

	items, err := Import("test", []byte(recurringICS), ImportOptions{From: from, To: to})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5 yearly instances", len(items))
	}
	for _, it := range items {
		if it.Event.Description != "Anniversary - us" || it.Category != events.Relationship || it.Event.Kind != events.Single {
			t.Errorf("item = %+v", it)
		}
		if it.First.Month() != time.June || it.First.Day() != 20 {
			t.Errorf("instance day = %s", it.First)
		}
	}

	// Without a window only the first instance is kept.
	items, err = Import("test", []byte(recurringICS), ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Event.Start != "2015-W25" {
		t.Errorf("items = %+v", items)
	}
}

func TestImportEmpty(t *testing.T) {
	if _, err := Import("test", nil, ImportOptions{}); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestFetcherUsesETagAndCache(t *testing.T) {
	var hits atomic.Int64
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if down.Load() {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(recurringICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	res, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil || res.FromCache || len(res.Body) == 0 {
		t.Fatalf("first fetch = %+v, %v", res, err)
	}
	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil || !res.FromCache {
		t.Fatalf("second fetch = %+v, %v", res.FromCache, err)
	}

	down.Store(true)
	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil || !res.FromCache || string(res.Body) != recurringICS {
		t.Fatalf("fallback fetch = %v, %v", res.FromCache, err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d", hits.Load())
	}

	if _, err := f.Fetch(ctx, srv.URL+"/other.ics"); err == nil {
		t.Error("uncached failing feed should error")
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://example.com/private/cal.ics?token=abc"); got != "https://example.com/...(redacted)" {
		t.Errorf("got %s", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("got %s", got)
	}
}
