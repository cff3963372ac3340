package forecast

import (
	"math"
	"strconv"
)

const (
	kelvinOffset    = 273.15
	msToKmh         = 3.6
	metersPerKm     = 1000
	windSpeedSuffix = "km/h"
	distanceSuffix  = "km"
)

// KelvinToCelsius converts k to whole degrees Celsius, rounding half away from zero.
func KelvinToCelsius(k float64) int {
	return int(math.Round(k - kelvinOffset))
}

// MetersPerSecondToKmPerHour converts v to a whole km/h figure with its unit, e.g. "36km/h".
func MetersPerSecondToKmPerHour(v float64) string {
	return strconv.Itoa(int(math.Round(v*msToKmh))) + windSpeedSuffix
}

// MetersToKilometers converts m to whole kilometers with its unit, e.g. "10km".
func MetersToKilometers(m float64) string {
	return strconv.Itoa(int(math.Round(m/metersPerKm))) + distanceSuffix
}
