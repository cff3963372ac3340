package models

import "time"

// Sample is one three-hourly forecast observation. Temperatures are in kelvin.
type Sample struct {
	Timestamp     int64    `json:"timestamp"` // Unix seconds
	Temperature   float64  `json:"temperature"`
	FeelsLike     float64  `json:"feelsLike"`
	TempMin       float64  `json:"tempMin"`
	TempMax       float64  `json:"tempMax"`
	Humidity      float64  `json:"humidity"`
	Pressure      float64  `json:"pressure"`
	Visibility    *float64 `json:"visibility,omitempty"` // meters; nil when upstream omits it
	WindSpeed     *float64 `json:"windSpeed,omitempty"`  // m/s; nil when upstream omits it
	ConditionIcon string   `json:"conditionIcon"`
	ConditionID   int      `json:"conditionId"`
	Description   string   `json:"description"`
}

// Time returns the sample timestamp in UTC.
func (s Sample) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// City describes the place a forecast was issued for.
type City struct {
	Name           string `json:"name"`
	Country        string `json:"country"`
	TimezoneOffset int    `json:"timezoneOffset"` // seconds east of UTC
	Sunrise        int64  `json:"sunrise"`
	Sunset         int64  `json:"sunset"`
}

// Forecast is the upstream sample sequence for one location, ordered by timestamp.
type Forecast struct {
	Location  string    `json:"location"`
	City      City      `json:"city"`
	Samples   []Sample  `json:"samples"`
	FetchedAt time.Time `json:"fetchedAt"`
	Stale     bool      `json:"stale,omitempty"` // Indicates data served from stale cache
}

// LocationSuggestion is one match returned by a location search.
type LocationSuggestion struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}
