package forecast

import (
	"fmt"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

const dateLayout = "2006-01-02"

// CalendarDate is the UTC year/month/day of a sample timestamp. It is comparable and used as
// the grouping key for samples.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC calendar date containing the Unix timestamp ts.
func DateOf(ts int64) CalendarDate {
	y, m, d := time.Unix(ts, 0).UTC().Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// ParseCalendarDate parses the canonical YYYY-MM-DD form.
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parse calendar date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}, nil
}

// String returns the canonical YYYY-MM-DD form.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalText encodes the date as YYYY-MM-DD so it renders as a JSON string.
func (d CalendarDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes the YYYY-MM-DD form.
func (d *CalendarDate) UnmarshalText(b []byte) error {
	parsed, err := ParseCalendarDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DistinctDates returns the UTC calendar dates present in samples, without duplicates, in order
// of first occurrence. No sorting is applied: a time-sorted input yields chronological dates.
func DistinctDates(samples []models.Sample) []CalendarDate {
	dates := make([]CalendarDate, 0, 8)
	seen := make(map[CalendarDate]struct{}, 8)
	for _, s := range samples {
		d := DateOf(s.Timestamp)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	return dates
}
