package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"empty", "", "", ErrLocationEmpty},
		{"spaces", "   ", "", ErrLocationEmpty},
		{"tab", "\t", "", ErrLocationEmpty},
		{"too short", "x", "", ErrLocationTooShort},
		{"too long", strings.Repeat("a", 101), "", ErrLocationTooLong},
		{"slash", "sea/ttle", "", ErrLocationInvalidChars},
		{"question", "sea?ttle", "", ErrLocationInvalidChars},
		{"control", "sea\x00ttle", "", ErrLocationInvalidChars},
		{"percent", "sea%ttle", "", ErrLocationInvalidChars},
		{"simple", "Seattle", "Seattle", nil},
		{"with space", "New York", "New York", nil},
		{"country suffix", "London,uk", "London,uk", nil},
		{"hyphen", "Stratford-upon-Avon", "Stratford-upon-Avon", nil},
		{"dot and apostrophe", "St. John's", "St. John's", nil},
		{"trimmed", "  Boston  ", "Boston", nil},
		{"unicode", "Zürich", "Zürich", nil},
		{"digits", "Area51", "Area51", nil},
		{"min boundary", "ab", "ab", nil},
		{"max boundary", strings.Repeat("a", 100), strings.Repeat("a", 100), nil},
		{"max counts runes", strings.Repeat("ü", 100), strings.Repeat("ü", 100), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateLocation(tc.input, 2, 100)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("ValidateLocation(%q) error = %v, want %v", tc.input, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateLocation(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ValidateLocation(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"empty is allowed", "", "", nil},
		{"short is allowed", " Lo ", "Lo", nil},
		{"prefix", "Lond", "Lond", nil},
		{"too long", strings.Repeat("a", 51), "", ErrQueryTooLong},
		{"invalid chars", "Lon<script>", "", ErrLocationInvalidChars},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateSearchQuery(tc.input, 50)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("ValidateSearchQuery(%q) error = %v, want %v", tc.input, err, tc.wantErr)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ValidateSearchQuery(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lon     string
		want    Coordinates
		wantErr bool
	}{
		{"leipzig", "51.34", "12.37", Coordinates{Lat: 51.34, Lon: 12.37}, false},
		{"negative", "-33.8688", "151.2093", Coordinates{Lat: -33.8688, Lon: 151.2093}, false},
		{"poles and antimeridian", "90", "-180", Coordinates{Lat: 90, Lon: -180}, false},
		{"whitespace trimmed", " 0 ", " 0 ", Coordinates{}, false},
		{"missing lat", "", "12.37", Coordinates{}, true},
		{"missing lon", "51.34", "", Coordinates{}, true},
		{"lat out of range", "91", "0", Coordinates{}, true},
		{"lon out of range", "0", "180.5", Coordinates{}, true},
		{"not a number", "north", "12", Coordinates{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCoordinates(tc.lat, tc.lon)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCoordinates) {
					t.Errorf("ValidateCoordinates(%q, %q) error = %v, want ErrInvalidCoordinates", tc.lat, tc.lon, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCoordinates(%q, %q) unexpected error: %v", tc.lat, tc.lon, err)
			}
			if got != tc.want {
				t.Errorf("ValidateCoordinates(%q, %q) = %+v, want %+v", tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}
