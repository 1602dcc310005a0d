package period

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// MonthRange is a calendar month; End is exclusive and exactly one month after Start.
type MonthRange struct {
	Start time.Time
	End   time.Time
}

func (r MonthRange) Key() string {
	return r.Start.Format(monthLayout)
}

func (r MonthRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

func (r MonthRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// MonthRanges enumerates every (year, month) pair of the inclusive year span in order.
func MonthRanges(startYear, endYear int) ([]MonthRange, error) {
	if endYear < startYear {
		return nil, fmt.Errorf("end year %d is before start year %d", endYear, startYear)
	}

	ranges := make([]MonthRange, 0, (endYear-startYear+1)*12)
	for year := startYear; year <= endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			ranges = append(ranges, MonthRange{
				Start: start,
				End:   start.AddDate(0, 1, 0),
			})
		}
	}
	return ranges, nil
}

// Span returns the window covered by ranges, which must be ordered.
func Span(ranges []MonthRange) (time.Time, time.Time) {
	if len(ranges) == 0 {
		return time.Time{}, time.Time{}
	}
	return ranges[0].Start, ranges[len(ranges)-1].End
}

// Label formats the year span the way chart titles show it, e.g. "2018-2024".
func Label(ranges []MonthRange) string {
	start, end := Span(ranges)
	if start.IsZero() {
		return ""
	}
	last := end.AddDate(0, 0, -1)
	if start.Year() == last.Year() {
		return fmt.Sprintf("%d", start.Year())
	}
	return fmt.Sprintf("%d-%d", start.Year(), last.Year())
}

func ParseMonth(s string) (time.Time, error) {
	return time.Parse(monthLayout, s)
}
