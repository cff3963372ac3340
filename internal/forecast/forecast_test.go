package forecast

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

var day1 = time.Date(2024, time.December, 19, 0, 0, 0, 0, time.UTC)

func sampleAt(t time.Time, tempK float64) models.Sample {
	return models.Sample{
		Timestamp:     t.Unix(),
		Temperature:   tempK,
		ConditionIcon: "01d",
		Description:   "clear sky",
	}
}

// threeHourly returns n samples every three hours starting at start.
func threeHourly(start time.Time, n int) []models.Sample {
	out := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sampleAt(start.Add(time.Duration(3*i)*time.Hour), 270+float64(i)))
	}
	return out
}

func TestDistinctDates_Empty(t *testing.T) {
	if got := DistinctDates(nil); len(got) != 0 {
		t.Errorf("DistinctDates(nil) = %v, want empty", got)
	}
	if got := DistinctDates([]models.Sample{}); len(got) != 0 {
		t.Errorf("DistinctDates([]) = %v, want empty", got)
	}
}

func TestDistinctDates_SingleDay(t *testing.T) {
	got := DistinctDates(threeHourly(day1, 8))
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].String() != "2024-12-19" {
		t.Errorf("date = %s, want 2024-12-19", got[0])
	}
}

func TestDistinctDates_MidnightBoundary(t *testing.T) {
	samples := []models.Sample{
		sampleAt(day1.Add(23*time.Hour+59*time.Minute+59*time.Second), 280),
		sampleAt(day1.Add(24*time.Hour), 280),
	}
	got := DistinctDates(samples)
	want := []string{"2024-12-19", "2024-12-20"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDistinctDates_FirstOccurrenceOrder(t *testing.T) {
	// Unsorted input keeps first-occurrence order rather than calendar order.
	samples := []models.Sample{
		sampleAt(day1.Add(48*time.Hour), 280),
		sampleAt(day1, 280),
		sampleAt(day1.Add(49*time.Hour), 280),
		sampleAt(day1.Add(24*time.Hour), 280),
	}
	got := DistinctDates(samples)
	want := []string{"2024-12-21", "2024-12-19", "2024-12-20"}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDistinctDates_SevenDayForecast(t *testing.T) {
	// 56 samples from 09:00 on day one span eight calendar dates.
	samples := threeHourly(day1.Add(9*time.Hour), 56)
	got := DistinctDates(samples)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Time().Before(got[i].Time()) {
			t.Errorf("dates not ascending at %d: %s >= %s", i, got[i-1], got[i])
		}
	}
}

func TestSelectRepresentatives_FirstPostDawnSample(t *testing.T) {
	samples := threeHourly(day1, 16)
	dates := DistinctDates(samples)
	reps := SelectRepresentatives(samples, dates)
	if len(reps) != len(dates) {
		t.Fatalf("len = %d, want %d", len(reps), len(dates))
	}
	for i, r := range reps {
		if !r.Found {
			t.Fatalf("reps[%d].Found = false, want true", i)
		}
		if h := r.Sample.Time().Hour(); h != 6 {
			t.Errorf("reps[%d] hour = %d, want 6", i, h)
		}
		if r.Date != dates[i] {
			t.Errorf("reps[%d].Date = %s, want %s", i, r.Date, dates[i])
		}
	}
}

func TestSelectRepresentatives_IgnoresLaterQualifyingSamples(t *testing.T) {
	samples := []models.Sample{
		sampleAt(day1.Add(2*time.Hour), 270),
		sampleAt(day1.Add(7*time.Hour), 271),
		sampleAt(day1.Add(6*time.Hour), 272), // out of order: later in input, earlier in day
		sampleAt(day1.Add(12*time.Hour), 273),
	}
	reps := SelectRepresentatives(samples, DistinctDates(samples))
	if !reps[0].Found || reps[0].Sample.Temperature != 271 {
		t.Errorf("representative = %+v, want the 07:00 sample (first qualifying in input order)", reps[0])
	}
}

func TestSelectRepresentatives_AllBeforeDawn(t *testing.T) {
	samples := []models.Sample{
		sampleAt(day1.Add(18*time.Hour), 280),
		sampleAt(day1.Add(24*time.Hour), 270),
		sampleAt(day1.Add(27*time.Hour), 270),
	}
	reps := SelectRepresentatives(samples, DistinctDates(samples))
	if len(reps) != 2 {
		t.Fatalf("len = %d, want 2", len(reps))
	}
	if !reps[0].Found {
		t.Error("reps[0].Found = false, want true")
	}
	if reps[1].Found {
		t.Errorf("reps[1] = %+v, want not found", reps[1])
	}
	if reps[1].Date.String() != "2024-12-20" {
		t.Errorf("reps[1].Date = %s, want 2024-12-20", reps[1].Date)
	}
}

func TestSelectRepresentatives_DateWithoutSamples(t *testing.T) {
	samples := threeHourly(day1, 8)
	dates := []CalendarDate{DateOf(day1.Unix()), DateOf(day1.Add(72 * time.Hour).Unix())}
	reps := SelectRepresentatives(samples, dates)
	if !reps[0].Found || reps[1].Found {
		t.Errorf("found = [%v %v], want [true false]", reps[0].Found, reps[1].Found)
	}
}

func TestTodaySamples(t *testing.T) {
	samples := threeHourly(day1.Add(15*time.Hour), 10)
	dates := DistinctDates(samples)
	today := TodaySamples(samples, dates)
	if len(today) != 3 {
		t.Fatalf("len = %d, want 3 (15:00, 18:00, 21:00)", len(today))
	}
	for i, s := range today {
		if s != samples[i] {
			t.Errorf("today[%d] = %+v, want %+v", i, s, samples[i])
		}
	}
}

func TestTodaySamples_NoDates(t *testing.T) {
	if got := TodaySamples(threeHourly(day1, 4), nil); len(got) != 0 {
		t.Errorf("TodaySamples(nil dates) = %v, want empty", got)
	}
}

func TestEndToEnd_TwoDates(t *testing.T) {
	samples := threeHourly(day1, 16)

	dates := DistinctDates(samples)
	if len(dates) != 2 || dates[0].String() != "2024-12-19" || dates[1].String() != "2024-12-20" {
		t.Fatalf("dates = %v, want [2024-12-19 2024-12-20]", dates)
	}

	reps := SelectRepresentatives(samples, dates)
	if reps[0].Sample != samples[2] || reps[1].Sample != samples[10] {
		t.Errorf("representatives = %+v, want samples[2] and samples[10]", reps)
	}

	today := TodaySamples(samples, dates)
	if !reflect.DeepEqual(today, samples[:8]) {
		t.Errorf("today = %+v, want first 8 samples", today)
	}
}

func TestEmptyInput(t *testing.T) {
	dates := DistinctDates(nil)
	reps := SelectRepresentatives(nil, dates)
	today := TodaySamples(nil, dates)
	if len(dates) != 0 || len(reps) != 0 || len(today) != 0 {
		t.Errorf("got dates=%v reps=%v today=%v, want all empty", dates, reps, today)
	}
	v := Derive(nil)
	if len(v.Dates) != 0 || len(v.Representatives) != 0 || len(v.Today) != 0 {
		t.Errorf("Derive(nil) = %+v, want empty views", v)
	}
}

func TestInputNotMutated(t *testing.T) {
	samples := threeHourly(day1, 16)
	orig := append([]models.Sample(nil), samples...)
	dates := DistinctDates(samples)
	_ = SelectRepresentatives(samples, dates)
	_ = TodaySamples(samples, dates)
	_ = Derive(samples)
	if !reflect.DeepEqual(samples, orig) {
		t.Error("input samples were mutated")
	}
}

// randomSequence builds a sorted sequence with irregular gaps crossing several days.
func randomSequence(r *rand.Rand) []models.Sample {
	n := r.Intn(60)
	ts := make([]int64, n)
	start := day1.Unix() + int64(r.Intn(86400))
	for i := range ts {
		ts[i] = start + int64(r.Intn(8*86400))
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	out := make([]models.Sample, n)
	for i, v := range ts {
		out[i] = models.Sample{Timestamp: v, Temperature: float64(i)}
	}
	return out
}

func TestProperties_RandomSequences(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		samples := randomSequence(r)
		dates := DistinctDates(samples)

		if again := DistinctDates(samples); !reflect.DeepEqual(dates, again) {
			t.Fatalf("iteration %d: grouping not deterministic", iter)
		}

		members := make(map[CalendarDate]int)
		for _, d := range dates {
			members[d]++
		}
		for _, s := range samples {
			if members[DateOf(s.Timestamp)] != 1 {
				t.Fatalf("iteration %d: sample %d date appears %d times", iter, s.Timestamp, members[DateOf(s.Timestamp)])
			}
		}
		for i := 1; i < len(dates); i++ {
			if !dates[i-1].Time().Before(dates[i].Time()) {
				t.Fatalf("iteration %d: dates not strictly ascending", iter)
			}
		}

		reps := SelectRepresentatives(samples, dates)
		for i, rep := range reps {
			var want *models.Sample
			for j := range samples {
				if DateOf(samples[j].Timestamp) == dates[i] && samples[j].Time().Hour() >= DayStartHour {
					want = &samples[j]
					break
				}
			}
			if (want != nil) != rep.Found {
				t.Fatalf("iteration %d: date %s found = %v, want %v", iter, dates[i], rep.Found, want != nil)
			}
			if want != nil && *want != rep.Sample {
				t.Fatalf("iteration %d: date %s representative = %+v, want %+v", iter, dates[i], rep.Sample, *want)
			}
		}

		v := Derive(samples)
		if !reflect.DeepEqual(v.Dates, dates) {
			t.Fatalf("iteration %d: Derive dates = %v, want %v", iter, v.Dates, dates)
		}
		if !reflect.DeepEqual(v.Representatives, reps) {
			t.Fatalf("iteration %d: Derive representatives differ", iter)
		}
		if today := TodaySamples(samples, dates); !reflect.DeepEqual(v.Today, today) {
			t.Fatalf("iteration %d: Derive today = %v, want %v", iter, v.Today, today)
		}
	}
}

func TestCalendarDate_JSON(t *testing.T) {
	d := DateOf(day1.Add(5 * time.Hour).Unix())
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2024-12-19"` {
		t.Errorf("Marshal() = %s, want \"2024-12-19\"", b)
	}
	var back CalendarDate
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != d {
		t.Errorf("Unmarshal() = %v, want %v", back, d)
	}
	if _, err := ParseCalendarDate("19.12.2024"); err == nil {
		t.Error("ParseCalendarDate() error = nil, want error for wrong layout")
	}
}

func TestKelvinToCelsius(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{273.15, 0},
		{300, 27},
		{260, -13},
		{283.15, 10},
		{0, -273},
	}
	for _, tt := range tests {
		if got := KelvinToCelsius(tt.in); got != tt.want {
			t.Errorf("KelvinToCelsius(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMetersPerSecondToKmPerHour(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "36km/h"},
		{0, "0km/h"},
		{3.03, "11km/h"},
		{1.64, "6km/h"},
	}
	for _, tt := range tests {
		if got := MetersPerSecondToKmPerHour(tt.in); got != tt.want {
			t.Errorf("MetersPerSecondToKmPerHour(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetersToKilometers(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10000, "10km"},
		{0, "0km"},
		{1600, "2km"},
		{1200, "1km"},
	}
	for _, tt := range tests {
		if got := MetersToKilometers(tt.in); got != tt.want {
			t.Errorf("MetersToKilometers(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
