package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when location length is below the minimum.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrInvalidCoordinates is returned when latitude or longitude is missing or out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ErrQueryTooLong is returned when a search query exceeds the maximum length.
var ErrQueryTooLong = errors.New("search query too long")

// ValidateLocation trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to allowed characters: letters (Unicode), digits, space, comma, hyphen,
// dot and apostrophe ("St. John's").
// Returns the trimmed string or an error suitable for 400 INVALID_LOCATION responses.
// Normalization (e.g. lowercase) is left to the service layer.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

// isAllowedLocationRune reports whether r may appear in a place name.
func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ValidateSearchQuery trims a partial place-name query and checks its length and characters.
// Empty and short queries are valid here; the service decides whether to search.
func ValidateSearchQuery(q string, maxLen int) (string, error) {
	s := strings.TrimSpace(q)
	r := []rune(s)
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrQueryTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

// Coordinates is a validated latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

type coordinateInput struct {
	Lat string `validate:"required,latitude"`
	Lon string `validate:"required,longitude"`
}

// ValidateCoordinates parses decimal-degree query values. Latitude must be within [-90, 90]
// and longitude within [-180, 180].
func ValidateCoordinates(lat, lon string) (Coordinates, error) {
	in := coordinateInput{Lat: strings.TrimSpace(lat), Lon: strings.TrimSpace(lon)}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Coordinates{}, fmt.Errorf("%w: %s fails %q", ErrInvalidCoordinates, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return Coordinates{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	latV, err := strconv.ParseFloat(in.Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: lat: %v", ErrInvalidCoordinates, err)
	}
	lonV, err := strconv.ParseFloat(in.Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: lon: %v", ErrInvalidCoordinates, err)
	}
	return Coordinates{Lat: latV, Lon: lonV}, nil
}
