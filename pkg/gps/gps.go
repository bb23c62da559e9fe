// Package gps converts decimal-degree coordinates into the EXIF GPS IFD
// encoding: degrees/minutes/seconds rationals plus hemisphere references.
package gps

import (
	"math"

	"github.com/Fepozopo/geotag/pkg/exif"
)

// SecondsDenominator scales fractional seconds into an integer numerator,
// keeping four decimal digits of precision.
const SecondsDenominator = 10000

// ToDMS converts a non-negative decimal-degree value into the three
// (numerator, denominator) pairs the GPSLatitude/GPSLongitude tags require.
// Degrees and minutes carry denominator 1; seconds are scaled by
// SecondsDenominator and rounded half away from zero. Callers pass the
// absolute value of a signed coordinate; the sign travels separately as the
// hemisphere reference.
func ToDMS(value float64) [3]exif.Rational {
	deg := math.Trunc(value)
	minFloat := (value - deg) * 60
	min := math.Trunc(minFloat)
	sec := math.Round((minFloat - min) * 60 * SecondsDenominator)
	return [3]exif.Rational{
		{Num: uint32(deg), Den: 1},
		{Num: uint32(min), Den: 1},
		{Num: uint32(sec), Den: SecondsDenominator},
	}
}

// LatitudeRef returns the hemisphere reference for a latitude. Zero counts
// as north.
func LatitudeRef(lat float64) string {
	if lat >= 0 {
		return "N"
	}
	return "S"
}

// LongitudeRef returns the hemisphere reference for a longitude. Zero counts
// as east.
func LongitudeRef(lon float64) string {
	if lon >= 0 {
		return "E"
	}
	return "W"
}

// NewIFD builds the four-entry GPS IFD for the given signed coordinates.
func NewIFD(lat, lon float64) exif.IFD {
	latDMS := ToDMS(math.Abs(lat))
	lonDMS := ToDMS(math.Abs(lon))
	return exif.IFD{
		exif.TagGPSLatitudeRef:  exif.Ascii(LatitudeRef(lat)),
		exif.TagGPSLatitude:     exif.Rationals(latDMS[:]...),
		exif.TagGPSLongitudeRef: exif.Ascii(LongitudeRef(lon)),
		exif.TagGPSLongitude:    exif.Rationals(lonDMS[:]...),
	}
}
