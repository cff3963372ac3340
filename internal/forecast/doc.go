// Package forecast derives the daily views of a three-hourly forecast: the distinct UTC
// calendar dates present in a sample sequence, one representative sample per date, and the
// full sample timeline of the first date. It also holds the unit converters used to render
// those samples.
//
// Everything here is a pure function over its input. Samples are never mutated and each call
// returns freshly allocated slices, so callers may invoke these concurrently on independent
// inputs and simply discard the previous result when a new sequence arrives.
package forecast
