package forecast

import (
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// DayStartHour is the first UTC hour at which a sample may represent its day. Earlier samples
// carry the pre-dawn lows and are skipped.
const DayStartHour = 6

// Representative is the sample chosen for one calendar date. Found is false when the date has
// no sample at or after DayStartHour; Sample is then the zero value and must not be rendered as
// data.
type Representative struct {
	Date   CalendarDate
	Sample models.Sample
	Found  bool
}

// Views is everything derived from one sample sequence.
type Views struct {
	// Dates are the distinct calendar dates in first-occurrence order.
	Dates []CalendarDate
	// Representatives parallels Dates.
	Representatives []Representative
	// Today is every sample of Dates[0], in input order.
	Today []models.Sample
}

// qualifies reports whether s may represent its calendar date.
func qualifies(s models.Sample) bool {
	return time.Unix(s.Timestamp, 0).UTC().Hour() >= DayStartHour
}

// SelectRepresentatives returns, for each date, the first sample in input order that falls on
// that date at or after DayStartHour. The result has the same length as dates.
func SelectRepresentatives(samples []models.Sample, dates []CalendarDate) []Representative {
	out := make([]Representative, len(dates))
	for i, d := range dates {
		out[i] = Representative{Date: d}
		for _, s := range samples {
			if DateOf(s.Timestamp) == d && qualifies(s) {
				out[i].Sample = s
				out[i].Found = true
				break
			}
		}
	}
	return out
}

// TodaySamples returns every sample that falls on dates[0], in input order. It returns an empty
// slice when dates is empty.
func TodaySamples(samples []models.Sample, dates []CalendarDate) []models.Sample {
	today := make([]models.Sample, 0, 8)
	if len(dates) == 0 {
		return today
	}
	for _, s := range samples {
		if DateOf(s.Timestamp) == dates[0] {
			today = append(today, s)
		}
	}
	return today
}

// Derive computes Dates, Representatives and Today in a single pass over samples. The result is
// identical to calling DistinctDates, SelectRepresentatives and TodaySamples in turn.
func Derive(samples []models.Sample) Views {
	v := Views{
		Dates:           make([]CalendarDate, 0, 8),
		Representatives: make([]Representative, 0, 8),
		Today:           make([]models.Sample, 0, 8),
	}
	index := make(map[CalendarDate]int, 8)
	for _, s := range samples {
		d := DateOf(s.Timestamp)
		i, ok := index[d]
		if !ok {
			i = len(v.Dates)
			index[d] = i
			v.Dates = append(v.Dates, d)
			v.Representatives = append(v.Representatives, Representative{Date: d})
		}
		if i == 0 {
			v.Today = append(v.Today, s)
		}
		if !v.Representatives[i].Found && qualifies(s) {
			v.Representatives[i].Sample = s
			v.Representatives[i].Found = true
		}
	}
	return v
}
