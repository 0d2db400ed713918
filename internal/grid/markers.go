package grid

import (
	"time"

	"lifeweeks/internal/week"
)

// MonthMarker labels the first grid week that falls into a calendar month.
type MonthMarker struct {
	WeekIndex     int    `json:"weekIndex"` // weeks since birth
	YearIndex     int    `json:"yearIndex"`
	WeekOfYear    int    `json:"weekOfYear"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	Label         string `json:"label"`
	IsFirstOfYear bool   `json:"isFirstOfYear"`
	IsBirthMonth  bool   `json:"isBirthMonth"`
}

func (f Frequency) includes(m time.Month) bool {
	switch f {
	case EveryMonth:
		return true
	case Quarterly:
		return (m-time.January)%3 == 0
	case HalfYearly:
		return (m-time.January)%6 == 0
	}
	return false
}

// MonthMarkers walks the grid from birth in 7-day strides and emits at most
// one marker per (month, year). January and the birth month are always
// marked; other months only when freq selects them.
func MonthMarkers(birth time.Time, totalYears int, freq Frequency) []MonthMarker {
	if totalYears <= 0 {
		return nil
	}
	birth = week.Midnight(birth)
	birthMonth := birth.Month()

	type monthYear struct {
		m time.Month
		y int
	}
	seen := map[monthYear]bool{}
	// The forward walk emits markers in WeekIndex order.
	var out []MonthMarker

	total := totalYears * WeeksPerYear
	for i := 0; i < total; i++ {
		d := birth.AddDate(0, 0, 7*i)
		key := monthYear{d.Month(), d.Year()}
		if seen[key] {
			continue
		}
		if !freq.includes(d.Month()) && d.Month() != time.January && d.Month() != birthMonth {
			continue
		}
		seen[key] = true
		out = append(out, MonthMarker{
			WeekIndex:     i,
			YearIndex:     i / WeeksPerYear,
			WeekOfYear:    i % WeeksPerYear,
			Month:         int(d.Month()),
			Year:          d.Year(),
			Label:         d.Month().String()[:3],
			IsFirstOfYear: d.Month() == time.January,
			IsBirthMonth:  d.Month() == birthMonth,
		})
	}
	return out
}
