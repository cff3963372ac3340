package summary

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

var start = time.Date(2024, time.December, 19, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func twoDayForecast() models.Forecast {
	var samples []models.Sample
	for i := 0; i < 16; i++ {
		ts := start.Add(time.Duration(3*i) * time.Hour)
		samples = append(samples, models.Sample{
			Timestamp:     ts.Unix(),
			Temperature:   273.15 + float64(i),
			FeelsLike:     272.15,
			TempMin:       270.15,
			TempMax:       280.15,
			Humidity:      75,
			Pressure:      1012,
			ConditionIcon: "04n",
			Description:   "broken clouds",
		})
	}
	return models.Forecast{
		Location: "oslo",
		City:     models.City{Name: "Oslo", Country: "NO", TimezoneOffset: 3600, Sunrise: 1734597000, Sunset: 1734618000},
		Samples:  samples,
	}
}

func TestBuild_Today(t *testing.T) {
	f := twoDayForecast()
	f.Samples[0].Visibility = ptr(8000)
	f.Samples[0].WindSpeed = ptr(10)

	s := Build(f)
	if s.Today.Day != "Thursday" || s.Today.Date != "19.12.2024" {
		t.Errorf("today = %s %s, want Thursday 19.12.2024", s.Today.Day, s.Today.Date)
	}
	if s.Today.Temperature != "0°" || s.Today.FeelsLike != "-1°" || s.Today.TempMin != "-3°" || s.Today.TempMax != "7°" {
		t.Errorf("temperatures = %+v", s.Today)
	}
	if s.Today.Visibility != "8km" || s.Today.WindSpeed != "36km/h" {
		t.Errorf("visibility/wind = %s/%s, want 8km/36km/h", s.Today.Visibility, s.Today.WindSpeed)
	}
	if s.Today.Humidity != "75%" || s.Today.Pressure != "1012hPa" {
		t.Errorf("humidity/pressure = %s/%s", s.Today.Humidity, s.Today.Pressure)
	}
	if s.Today.Icon != "04n" {
		t.Errorf("icon at 00:00 = %s, want night variant 04n", s.Today.Icon)
	}
	if len(s.Today.Timeline) != 8 {
		t.Fatalf("timeline len = %d, want 8", len(s.Today.Timeline))
	}
	if e := s.Today.Timeline[3]; e.Time != "09:00 AM" || e.Icon != "04d" || e.Temperature != "3°" {
		t.Errorf("timeline[3] = %+v, want 09:00 AM 04d 3°", e)
	}
	if len(s.Dates) != 2 {
		t.Errorf("dates = %v, want 2 entries", s.Dates)
	}
}

func TestBuild_TodayDefaults(t *testing.T) {
	s := Build(twoDayForecast())
	if s.Today.Visibility != "10km" {
		t.Errorf("visibility = %s, want default 10km", s.Today.Visibility)
	}
	if s.Today.WindSpeed != "11km/h" {
		t.Errorf("wind = %s, want default 11km/h (3.03 m/s)", s.Today.WindSpeed)
	}
}

func TestBuild_Days(t *testing.T) {
	s := Build(twoDayForecast())
	if len(s.Days) != 1 {
		t.Fatalf("days len = %d, want 1", len(s.Days))
	}
	d := s.Days[0]
	if !d.Available || d.Date != "20.12.2024" || d.Day != "Friday" {
		t.Errorf("day = %+v", d)
	}
	// 06:00 on the second day is sample index 10.
	if d.Temperature != "10°" {
		t.Errorf("day temperature = %s, want 10° from the 06:00 sample", d.Temperature)
	}
	if d.WindSpeed != "6km/h" || d.Visibility != "10km" || d.Pressure != "1012 hPa" {
		t.Errorf("day defaults = %s %s %s", d.WindSpeed, d.Visibility, d.Pressure)
	}
}

func TestBuild_DayWithoutRepresentative(t *testing.T) {
	f := twoDayForecast()
	f.Samples = f.Samples[:10] // second day ends at 03:00
	s := Build(f)
	if len(s.Days) != 1 {
		t.Fatalf("days len = %d, want 1", len(s.Days))
	}
	d := s.Days[0]
	if d.Available {
		t.Error("Available = true, want false for a day with only pre-dawn samples")
	}
	if d.Date != "20.12.2024" || d.Icon != DefaultIcon || d.Temperature != "" {
		t.Errorf("unavailable day = %+v", d)
	}
}

func TestBuild_Empty(t *testing.T) {
	s := Build(models.Forecast{Location: "nowhere"})
	if len(s.Today.Timeline) != 0 || len(s.Days) != 0 || len(s.Dates) != 0 {
		t.Errorf("Build(empty) = %+v, want empty views", s)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if days, ok := decoded["days"].([]interface{}); !ok || len(days) != 0 {
		t.Errorf("days = %v, want empty JSON array", decoded["days"])
	}
}

func TestBuild_CitySunTimes(t *testing.T) {
	s := Build(twoDayForecast())
	// 1734597000 is 08:30 UTC, 09:30 at UTC+1.
	if s.City.Sunrise != "9:30" {
		t.Errorf("sunrise = %s, want 9:30", s.City.Sunrise)
	}
	if s.City.Sunset != "15:20" {
		t.Errorf("sunset = %s, want 15:20", s.City.Sunset)
	}

	empty := Build(models.Forecast{})
	if empty.City.Sunrise == "" {
		t.Error("sunrise empty, want default timestamp rendering")
	}
}

func TestDayOrNightIcon(t *testing.T) {
	tests := []struct {
		icon string
		hour int
		want string
	}{
		{"01n", 6, "01d"},
		{"01d", 5, "01n"},
		{"10d", 17, "10d"},
		{"10d", 18, "10n"},
		{"", 12, ""},
	}
	for _, tt := range tests {
		at := start.Add(time.Duration(tt.hour) * time.Hour)
		if got := DayOrNightIcon(tt.icon, at); got != tt.want {
			t.Errorf("DayOrNightIcon(%q, %02d:00) = %q, want %q", tt.icon, tt.hour, got, tt.want)
		}
	}
}
