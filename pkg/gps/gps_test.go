package gps

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Fepozopo/geotag/pkg/exif"
)

func TestToDMSZero(t *testing.T) {
	got := ToDMS(0.0)
	want := [3]exif.Rational{{Num: 0, Den: 1}, {Num: 0, Den: 1}, {Num: 0, Den: SecondsDenominator}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToDMS(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestToDMSKnownValue(t *testing.T) {
	got := ToDMS(9.574639)
	if got[0].Num != 9 || got[0].Den != 1 {
		t.Fatalf("degrees: want 9/1, got %d/%d", got[0].Num, got[0].Den)
	}
	if got[1].Num != 34 || got[1].Den != 1 {
		t.Fatalf("minutes: want 34/1, got %d/%d", got[1].Num, got[1].Den)
	}
	// 9.574639 deg = 9 deg 34 min 28.7004 sec; allow one unit of rounding slop.
	if got[2].Den != SecondsDenominator {
		t.Fatalf("seconds denominator: want %d, got %d", SecondsDenominator, got[2].Den)
	}
	if d := int64(got[2].Num) - 287004; d < -1 || d > 1 {
		t.Fatalf("seconds numerator: want 287004±1, got %d", got[2].Num)
	}
}

func TestToDMSReconstruction(t *testing.T) {
	// A rounded seconds numerator may be off by half a unit; anything worse
	// means the conversion dropped precision.
	const tol = 1.0 / SecondsDenominator / 3600
	for v := 0.0; v < 180.0; v += 0.1737 {
		dms := ToDMS(v)
		back := float64(dms[0].Num) +
			float64(dms[1].Num)/60 +
			float64(dms[2].Num)/float64(dms[2].Den)/3600
		if math.Abs(back-v) > tol {
			t.Fatalf("value %v reconstructed as %v (diff %v)", v, back, math.Abs(back-v))
		}
	}
}

func TestHemisphereRefs(t *testing.T) {
	cases := []struct {
		lat, lon       float64
		latRef, lonRef string
	}{
		{9.574639, 77.679861, "N", "E"},
		{-33.8688, 151.2093, "S", "E"},
		{51.5074, -0.1278, "N", "W"},
		{-13.1631, -72.5450, "S", "W"},
		{0, 0, "N", "E"}, // zero is the positive hemisphere on both axes
	}
	for _, c := range cases {
		if got := LatitudeRef(c.lat); got != c.latRef {
			t.Fatalf("LatitudeRef(%v): want %q, got %q", c.lat, c.latRef, got)
		}
		if got := LongitudeRef(c.lon); got != c.lonRef {
			t.Fatalf("LongitudeRef(%v): want %q, got %q", c.lon, c.lonRef, got)
		}
	}
}

func TestNewIFD(t *testing.T) {
	ifd := NewIFD(9.574639, -77.679861)
	if len(ifd) != 4 {
		t.Fatalf("expected exactly 4 GPS entries, got %d", len(ifd))
	}
	if got := ifd[exif.TagGPSLatitudeRef].ASCII(); got != "N" {
		t.Fatalf("latitude ref: want N, got %q", got)
	}
	if got := ifd[exif.TagGPSLongitudeRef].ASCII(); got != "W" {
		t.Fatalf("longitude ref: want W, got %q", got)
	}
	lat := ifd[exif.TagGPSLatitude].Rationals()
	if len(lat) != 3 || lat[0].Num != 9 || lat[1].Num != 34 {
		t.Fatalf("unexpected latitude rationals: %v", lat)
	}
	lon := ifd[exif.TagGPSLongitude].Rationals()
	if len(lon) != 3 || lon[0].Num != 77 || lon[1].Num != 40 {
		t.Fatalf("unexpected longitude rationals: %v", lon)
	}
	// The IFD always stores absolute values; signs live in the refs.
	for _, r := range append(lat, lon...) {
		if r.Den == 0 {
			t.Fatalf("zero denominator in %v", r)
		}
	}
}

func TestNewIFDDeterministic(t *testing.T) {
	a := NewIFD(48.858370, 2.294481)
	b := NewIFD(48.858370, 2.294481)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same input produced different IFDs (-a +b):\n%s", diff)
	}
}
