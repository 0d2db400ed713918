package events

import (
	"errors"
	"testing"

	"lifeweeks/internal/week"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []Event{
		NewSingle("2022-W24", "Graduated"),
		NewSingle("1999-W53", "Party, with friends!"),
		NewRange("2023-W01", "2023-W05", "Backpacking"),
		NewRange("2020-W52", "2021-W02", "Winter break"),
	}
	for _, want := range tests {
		got, err := Decode(Encode(want))
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)): %v", want, err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	if got := Encode(NewSingle("2025-W23", "Moved")); got != "2025-W23:Moved" {
		t.Errorf("single = %q", got)
	}
	if got := Encode(NewRange("2025-W01", "2025-W03", "Trip")); got != "2025-W01:2025-W03:Trip" {
		t.Errorf("range = %q", got)
	}
}

func TestDecodeLegacyColons(t *testing.T) {
	got, err := Decode("2024-W10:Meeting at 10:30")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != Single || got.Description != "Meeting at 10:30" {
		t.Errorf("got %+v", got)
	}

	got, err = Decode("2024-W10:2024-W12:Course: part 1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != Range || got.End != "2024-W12" || got.Description != "Course: part 1" {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, s := range []string{"", "nothing", "2024-10:desc", "W10:desc"} {
		if _, err := Decode(s); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", s, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{"ok", NewSingle("2024-W01", "x"), nil},
		{"empty", NewSingle("2024-W01", "  "), ErrEmptyDescription},
		{"colon", NewSingle("2024-W01", "a:b"), ErrColonInDescription},
		{"bad key", NewSingle("2024-01", "x"), week.ErrInvalidKey},
		{"bad end", NewRange("2024-W01", "nope", "x"), week.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if err := NewRange("2024-W10", "2024-W02", "x").Validate(); err == nil {
		t.Error("reversed range accepted")
	}
}

func TestRangeWeeks(t *testing.T) {
	ev := NewRange("2023-W01", "2023-W05", "Trip")
	got := ev.Weeks()
	if len(got) != 5 || got[0] != "2023-W01" || got[4] != "2023-W05" {
		t.Errorf("Weeks() = %v", got)
	}
}
