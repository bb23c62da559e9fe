package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildFixture assembles a TIFF stream by hand in the given byte order:
// IFD0 with Orientation (inline), Software (out-of-line) and a GPS pointer,
// then a GPS IFD with a latitude ref (inline ASCII) and latitude rationals.
//
// Layout:
//
//	0   header
//	8   IFD0: 3 entries          (2 + 36 + 4 = 42 bytes)
//	50  "GoTest\x00"             (7 bytes)
//	57  GPS IFD: 2 entries       (2 + 24 + 4 = 30 bytes)
//	87  latitude rationals       (24 bytes)
func buildFixture(order binary.ByteOrder) []byte {
	buf := &bytes.Buffer{}
	if order == binary.ByteOrder(binary.BigEndian) {
		buf.Write([]byte{'M', 'M'})
	} else {
		buf.Write([]byte{'I', 'I'})
	}
	binary.Write(buf, order, uint16(0x2A))
	binary.Write(buf, order, uint32(8))

	// IFD0
	binary.Write(buf, order, uint16(3))
	// Orientation, SHORT, inline, left-justified in the value field
	binary.Write(buf, order, uint16(0x0112))
	binary.Write(buf, order, uint16(3))
	binary.Write(buf, order, uint32(1))
	binary.Write(buf, order, uint16(6))
	binary.Write(buf, order, uint16(0))
	// Software, ASCII, out of line at 50
	binary.Write(buf, order, uint16(0x0131))
	binary.Write(buf, order, uint16(2))
	binary.Write(buf, order, uint32(7))
	binary.Write(buf, order, uint32(50))
	// GPS IFD pointer at 57
	binary.Write(buf, order, uint16(0x8825))
	binary.Write(buf, order, uint16(4))
	binary.Write(buf, order, uint32(1))
	binary.Write(buf, order, uint32(57))
	// next IFD
	binary.Write(buf, order, uint32(0))

	buf.WriteString("GoTest\x00")

	// GPS IFD
	binary.Write(buf, order, uint16(2))
	// GPSLatitudeRef, ASCII "N\x00", inline
	binary.Write(buf, order, uint16(0x0001))
	binary.Write(buf, order, uint16(2))
	binary.Write(buf, order, uint32(2))
	buf.Write([]byte{'N', 0, 0, 0})
	// GPSLatitude, 3 RATIONALs at 87
	binary.Write(buf, order, uint16(0x0002))
	binary.Write(buf, order, uint16(5))
	binary.Write(buf, order, uint32(3))
	binary.Write(buf, order, uint32(87))
	// next IFD
	binary.Write(buf, order, uint32(0))

	for _, v := range []uint32{37, 1, 48, 1, 30, 1} {
		binary.Write(buf, order, v)
	}
	return buf.Bytes()
}

func checkFixtureTree(t *testing.T, tree *TagTree) {
	t.Helper()
	if v, ok := tree.Zeroth[0x0112].Uint(); !ok || v != 6 {
		t.Fatalf("orientation: want 6, got %v (ok=%v)", v, ok)
	}
	if got := tree.Zeroth[TagSoftware].ASCII(); got != "GoTest" {
		t.Fatalf("software: want GoTest, got %q", got)
	}
	if _, ok := tree.Zeroth[0x8825]; ok {
		t.Fatalf("gps pointer tag should be stripped from the 0th group")
	}
	if got := tree.GPS[TagGPSLatitudeRef].ASCII(); got != "N" {
		t.Fatalf("latitude ref: want N, got %q", got)
	}
	want := []Rational{{37, 1}, {48, 1}, {30, 1}}
	if diff := cmp.Diff(want, tree.GPS[TagGPSLatitude].Rationals()); diff != "" {
		t.Fatalf("latitude rationals mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLittleEndian(t *testing.T) {
	tree, err := Decode(buildFixture(binary.LittleEndian))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	checkFixtureTree(t, tree)
}

func TestDecodeBigEndian(t *testing.T) {
	tree, err := Decode(buildFixture(binary.BigEndian))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	checkFixtureTree(t, tree)
}

func TestDecodeWithPreamble(t *testing.T) {
	blob := append([]byte("Exif\x00\x00"), buildFixture(binary.LittleEndian)...)
	tree, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	checkFixtureTree(t, tree)
}

func TestRoundTrip(t *testing.T) {
	tree := NewTagTree()
	tree.Zeroth[TagMake] = Ascii("GoCam")
	tree.Zeroth[TagOrientation] = Short(1)
	tree.Exif[0x9003] = Ascii("2020:01:02 03:04:05") // DateTimeOriginal
	tree.Exif[0x8827] = Short(100)                   // ISOSpeedRatings
	tree.Exif[0x9000] = Undefined([]byte{'0', '2', '3', '2'})
	tree.Interop[0x0001] = Ascii("R98")
	tree.GPS[TagGPSLatitudeRef] = Ascii("S")
	tree.GPS[TagGPSLatitude] = Rationals(Rational{33, 1}, Rational{52, 1}, Rational{76000, 10000})
	tree.First[0x0103] = Short(6) // Compression
	tree.Thumbnail = []byte{0xFF, 0xD8, 0xFF, 0xD9}

	blob, err := tree.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	back, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode of encoded blob failed: %v", err)
	}
	if diff := cmp.Diff(tree, back); diff != "" {
		t.Fatalf("round trip mismatch (-orig +decoded):\n%s", diff)
	}
}

func TestRoundTripBigEndianChain(t *testing.T) {
	tree := NewTagTree()
	tree.Zeroth[TagSoftware] = Ascii("geotag")
	tree.GPS[TagGPSLongitudeRef] = Ascii("E")
	tree.GPS[TagGPSLongitude] = Rationals(Rational{139, 1}, Rational{45, 1}, Rational{111600, 10000})

	chain, err := tree.EncodeChain(binary.BigEndian, 8)
	if err != nil {
		t.Fatalf("EncodeChain failed: %v", err)
	}
	blob := &bytes.Buffer{}
	blob.Write([]byte{'M', 'M'})
	binary.Write(blob, binary.BigEndian, uint16(0x2A))
	binary.Write(blob, binary.BigEndian, uint32(8))
	blob.Write(chain)

	back, err := Decode(blob.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(tree, back); diff != "" {
		t.Fatalf("big-endian round trip mismatch (-orig +decoded):\n%s", diff)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	tree := NewTagTree()
	tree.Zeroth[TagMake] = Ascii("GoCam")
	tree.Zeroth[TagModel] = Ascii("GoCam 2000")
	tree.GPS[TagGPSLatitudeRef] = Ascii("N")
	tree.GPS[TagGPSLongitudeRef] = Ascii("E")

	a, err := tree.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := tree.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two encodes of the same tree differ")
	}
}

func TestDecodeEmptyTreeEncoding(t *testing.T) {
	blob, err := NewTagTree().Encode()
	if err != nil {
		t.Fatalf("Encode of empty tree failed: %v", err)
	}
	tree, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode of empty tree failed: %v", err)
	}
	if len(tree.Zeroth) != 0 || len(tree.GPS) != 0 || tree.Thumbnail != nil {
		t.Fatalf("expected empty tree, got %+v", tree)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"short":          {0x49, 0x49, 0x2A},
		"bad order":      []byte("XXxxxxxxxxxx"),
		"bad magic":      {'I', 'I', 0x2B, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00},
		"offset too big": {'I', 'I', 0x2A, 0x00, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00},
	}
	for name, blob := range cases {
		if _, err := Decode(blob); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestDecodeOverrunningIFD(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write([]byte{'I', 'I'})
	binary.Write(buf, binary.LittleEndian, uint16(0x2A))
	binary.Write(buf, binary.LittleEndian, uint32(8))
	// claims 100 entries but the data ends right here
	binary.Write(buf, binary.LittleEndian, uint16(100))
	if _, err := Decode(buf.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for overrunning IFD, got %v", err)
	}
}

func TestDecodeSkipsBadValueOffset(t *testing.T) {
	// One entry whose value offset points past the end: the entry is
	// dropped, the rest of the directory survives.
	buf := &bytes.Buffer{}
	buf.Write([]byte{'I', 'I'})
	binary.Write(buf, binary.LittleEndian, uint16(0x2A))
	binary.Write(buf, binary.LittleEndian, uint32(8))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	// Software with bogus offset
	binary.Write(buf, binary.LittleEndian, uint16(0x0131))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint32(99))
	binary.Write(buf, binary.LittleEndian, uint32(0xFFFF))
	// Orientation inline, still readable
	binary.Write(buf, binary.LittleEndian, uint16(0x0112))
	binary.Write(buf, binary.LittleEndian, uint16(3))
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(3))
	binary.Write(buf, binary.LittleEndian, uint32(0))

	tree, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := tree.Zeroth[TagSoftware]; ok {
		t.Fatalf("entry with bad offset should have been skipped")
	}
	if v, ok := tree.Zeroth[TagOrientation].Uint(); !ok || v != 3 {
		t.Fatalf("orientation: want 3, got %v (ok=%v)", v, ok)
	}
}
