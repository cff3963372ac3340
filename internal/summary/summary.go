// Package summary renders a forecast into the today panel and the multi-day list shown to
// clients. It owns every display default: values the upstream omitted and days that have no
// representative sample are filled here, never in the forecast package.
package summary

import (
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// Display defaults for fields the upstream may omit.
const (
	DefaultVisibilityMeters = 10000
	DefaultTodayWindSpeed   = 3.03
	DefaultDailyWindSpeed   = 1.64
	DefaultIcon             = "01d"
	DefaultSunTimestamp     = 1702949452
)

const (
	dayNameLayout = "Monday"
	dateLayout    = "02.01.2006"
	clockLayout   = "03:04 PM"
	sunLayout     = "15:04"
)

// Summary is the rendered forecast for one location.
type Summary struct {
	Location string                  `json:"location"`
	City     CityView                `json:"city"`
	Today    TodayView               `json:"today"`
	Days     []DayView               `json:"days"`
	Dates    []forecast.CalendarDate `json:"dates"`
	Stale    bool                    `json:"stale,omitempty"`
}

// CityView carries the place name and its sun times in local clock format.
type CityView struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// TodayView is the panel for the first forecast date.
type TodayView struct {
	Day         string          `json:"day"`
	Date        string          `json:"date"`
	Temperature string          `json:"temperature"`
	FeelsLike   string          `json:"feelsLike"`
	TempMin     string          `json:"tempMin"`
	TempMax     string          `json:"tempMax"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Visibility  string          `json:"visibility"`
	Humidity    string          `json:"humidity"`
	WindSpeed   string          `json:"windSpeed"`
	Pressure    string          `json:"pressure"`
	Timeline    []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one sample of the today timeline.
type TimelineEntry struct {
	Time        string `json:"time"`
	Icon        string `json:"icon"`
	Temperature string `json:"temperature"`
}

// DayView is one row of the multi-day forecast. Available is false when the day had no sample
// at or after forecast.DayStartHour; temperatures are then left empty.
type DayView struct {
	Date        string `json:"date"`
	Day         string `json:"day"`
	Available   bool   `json:"available"`
	Icon        string `json:"icon"`
	Temperature string `json:"temperature,omitempty"`
	FeelsLike   string `json:"feelsLike,omitempty"`
	TempMin     string `json:"tempMin,omitempty"`
	TempMax     string `json:"tempMax,omitempty"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	Humidity    string `json:"humidity,omitempty"`
	WindSpeed   string `json:"windSpeed"`
	Pressure    string `json:"pressure,omitempty"`
}

// Build renders f. An empty sample sequence yields an empty timeline and no days.
func Build(f models.Forecast) Summary {
	views := forecast.Derive(f.Samples)

	s := Summary{
		Location: f.Location,
		City:     buildCity(f.City),
		Today:    TodayView{Timeline: make([]TimelineEntry, 0, len(views.Today))},
		Days:     make([]DayView, 0, len(views.Dates)),
		Dates:    views.Dates,
		Stale:    f.Stale,
	}
	if len(f.Samples) > 0 {
		s.Today = buildToday(f.Samples[0], views.Today)
	}
	if len(views.Representatives) > 1 {
		for _, rep := range views.Representatives[1:] {
			s.Days = append(s.Days, buildDay(rep))
		}
	}
	return s
}

func buildCity(c models.City) CityView {
	zone := time.FixedZone("", c.TimezoneOffset)
	return CityView{
		Name:    c.Name,
		Country: c.Country,
		Sunrise: sunTime(c.Sunrise, zone),
		Sunset:  sunTime(c.Sunset, zone),
	}
}

func sunTime(ts int64, zone *time.Location) string {
	if ts == 0 {
		ts = DefaultSunTimestamp
	}
	// "H:mm": hour without padding.
	return strings.TrimPrefix(time.Unix(ts, 0).In(zone).Format(sunLayout), "0")
}

func buildToday(first models.Sample, today []models.Sample) TodayView {
	t := first.Time()
	v := TodayView{
		Day:         t.Format(dayNameLayout),
		Date:        t.Format(dateLayout),
		Temperature: degrees(first.Temperature),
		FeelsLike:   degrees(first.FeelsLike),
		TempMin:     degrees(first.TempMin),
		TempMax:     degrees(first.TempMax),
		Description: first.Description,
		Icon:        DayOrNightIcon(first.ConditionIcon, t),
		Visibility:  forecast.MetersToKilometers(valueOr(first.Visibility, DefaultVisibilityMeters)),
		Humidity:    percent(first.Humidity),
		WindSpeed:   forecast.MetersPerSecondToKmPerHour(valueOr(first.WindSpeed, DefaultTodayWindSpeed)),
		Pressure:    formatNumber(first.Pressure) + "hPa",
		Timeline:    make([]TimelineEntry, 0, len(today)),
	}
	for _, s := range today {
		st := s.Time()
		v.Timeline = append(v.Timeline, TimelineEntry{
			Time:        st.Format(clockLayout),
			Icon:        DayOrNightIcon(s.ConditionIcon, st),
			Temperature: degrees(s.Temperature),
		})
	}
	return v
}

func buildDay(rep forecast.Representative) DayView {
	date := rep.Date.Time()
	v := DayView{
		Date:       date.Format(dateLayout),
		Day:        date.Format(dayNameLayout),
		Icon:       DefaultIcon,
		Visibility: forecast.MetersToKilometers(DefaultVisibilityMeters),
		WindSpeed:  forecast.MetersPerSecondToKmPerHour(DefaultDailyWindSpeed),
	}
	if !rep.Found {
		return v
	}
	s := rep.Sample
	v.Available = true
	if s.ConditionIcon != "" {
		v.Icon = s.ConditionIcon
	}
	v.Temperature = degrees(s.Temperature)
	v.FeelsLike = degrees(s.FeelsLike)
	v.TempMin = degrees(s.TempMin)
	v.TempMax = degrees(s.TempMax)
	v.Description = s.Description
	v.Visibility = forecast.MetersToKilometers(valueOr(s.Visibility, DefaultVisibilityMeters))
	v.Humidity = percent(s.Humidity)
	v.WindSpeed = forecast.MetersPerSecondToKmPerHour(valueOr(s.WindSpeed, DefaultDailyWindSpeed))
	v.Pressure = formatNumber(s.Pressure) + " hPa"
	return v
}

// DayOrNightIcon forces the day/night variant of an icon code ("10n" -> "10d") from the UTC
// hour of t: day between 06:00 and 18:00.
func DayOrNightIcon(icon string, t time.Time) string {
	if icon == "" {
		return ""
	}
	h := t.UTC().Hour()
	suffix := "n"
	if h >= 6 && h < 18 {
		suffix = "d"
	}
	return icon[:len(icon)-1] + suffix
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func degrees(k float64) string {
	return strconv.Itoa(forecast.KelvinToCelsius(k)) + "°"
}

func percent(v float64) string {
	return formatNumber(v) + "%"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
