// Package exif decodes and encodes EXIF tag trees. The tree keeps the five
// standard IFD groups (0th, Exif, GPS, Interop, 1st) plus the thumbnail blob,
// so a decode/modify/encode round trip preserves tags it does not understand.
package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorrupt is returned when a blob cannot be parsed as an EXIF/TIFF stream.
var ErrCorrupt = errors.New("corrupt exif data")

// Rational is an unsigned TIFF RATIONAL (numerator/denominator pair).
type Rational struct {
	Num uint32
	Den uint32
}

// TIFF field types.
const (
	TypeByte      uint16 = 1
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeLong      uint16 = 4
	TypeRational  uint16 = 5
	TypeSByte     uint16 = 6
	TypeUndefined uint16 = 7
	TypeSShort    uint16 = 8
	TypeSLong     uint16 = 9
	TypeSRational uint16 = 10
	TypeFloat     uint16 = 11
	TypeDouble    uint16 = 12
)

// typeLayout describes how a field type is laid out: the size of the unit the
// byte order applies to, and how many units make up one element. RATIONAL is
// two independent LONGs, so its swap unit is 4, not 8.
type typeLayout struct {
	unitSize int
	units    int
}

var layouts = map[uint16]typeLayout{
	TypeByte:      {1, 1},
	TypeASCII:     {1, 1},
	TypeShort:     {2, 1},
	TypeLong:      {4, 1},
	TypeRational:  {4, 2},
	TypeSByte:     {1, 1},
	TypeUndefined: {1, 1},
	TypeSShort:    {2, 1},
	TypeSLong:     {4, 1},
	TypeSRational: {4, 2},
	TypeFloat:     {4, 1},
	TypeDouble:    {8, 1},
}

// Value is a single tag value. Data always holds the little-endian canonical
// form regardless of the byte order of the stream it was decoded from, so
// values compare and re-encode deterministically.
type Value struct {
	Type  uint16
	Count uint32
	Data  []byte
}

// Ascii builds an ASCII value with the mandatory trailing NUL.
func Ascii(s string) Value {
	data := append([]byte(s), 0)
	return Value{Type: TypeASCII, Count: uint32(len(data)), Data: data}
}

// Short builds a SHORT value.
func Short(vals ...uint16) Value {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return Value{Type: TypeShort, Count: uint32(len(vals)), Data: data}
}

// Long builds a LONG value.
func Long(vals ...uint32) Value {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return Value{Type: TypeLong, Count: uint32(len(vals)), Data: data}
}

// Rationals builds a RATIONAL value.
func Rationals(vals ...Rational) Value {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*8:], v.Num)
		binary.LittleEndian.PutUint32(data[i*8+4:], v.Den)
	}
	return Value{Type: TypeRational, Count: uint32(len(vals)), Data: data}
}

// Undefined builds an UNDEFINED value carrying raw bytes.
func Undefined(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)
	return Value{Type: TypeUndefined, Count: uint32(len(data)), Data: data}
}

// ASCII returns the string form of an ASCII value without the trailing NUL.
func (v Value) ASCII() string {
	if idx := bytes.IndexByte(v.Data, 0); idx >= 0 {
		return string(v.Data[:idx])
	}
	return string(v.Data)
}

// Shorts decodes the value as a SHORT list.
func (v Value) Shorts() []uint16 {
	out := make([]uint16, 0, len(v.Data)/2)
	for i := 0; i+2 <= len(v.Data); i += 2 {
		out = append(out, binary.LittleEndian.Uint16(v.Data[i:]))
	}
	return out
}

// Longs decodes the value as a LONG list.
func (v Value) Longs() []uint32 {
	out := make([]uint32, 0, len(v.Data)/4)
	for i := 0; i+4 <= len(v.Data); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(v.Data[i:]))
	}
	return out
}

// Rationals decodes the value as a RATIONAL list.
func (v Value) Rationals() []Rational {
	out := make([]Rational, 0, len(v.Data)/8)
	for i := 0; i+8 <= len(v.Data); i += 8 {
		out = append(out, Rational{
			Num: binary.LittleEndian.Uint32(v.Data[i:]),
			Den: binary.LittleEndian.Uint32(v.Data[i+4:]),
		})
	}
	return out
}

// Uint returns the first element of a BYTE/SHORT/LONG value.
func (v Value) Uint() (uint32, bool) {
	switch v.Type {
	case TypeByte:
		if len(v.Data) >= 1 {
			return uint32(v.Data[0]), true
		}
	case TypeShort:
		if len(v.Data) >= 2 {
			return uint32(binary.LittleEndian.Uint16(v.Data)), true
		}
	case TypeLong:
		if len(v.Data) >= 4 {
			return binary.LittleEndian.Uint32(v.Data), true
		}
	}
	return 0, false
}

// IFD is one image file directory: tag id to value.
type IFD map[uint16]Value

// Clone returns a shallow-value copy of the IFD.
func (d IFD) Clone() IFD {
	out := make(IFD, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// TagTree is a full EXIF tag tree. Zeroth holds the primary image tags, Exif
// the camera tags, GPS the location tags, First the thumbnail image tags.
// Interop is kept as its own group so the interoperability pointer inside the
// Exif IFD survives a rewrite. Thumbnail is the raw thumbnail blob, nil when
// absent.
type TagTree struct {
	Zeroth    IFD
	Exif      IFD
	GPS       IFD
	Interop   IFD
	First     IFD
	Thumbnail []byte
}

// NewTagTree returns a tree with all groups present and empty.
func NewTagTree() *TagTree {
	return &TagTree{
		Zeroth:  IFD{},
		Exif:    IFD{},
		GPS:     IFD{},
		Interop: IFD{},
		First:   IFD{},
	}
}

var exifPreamble = []byte("Exif\x00\x00")

// Decode parses a raw EXIF blob into a TagTree. The blob may start with the
// APP1 "Exif\x00\x00" preamble or directly with the TIFF header. Entries of
// unknown field type or with out-of-range value offsets are skipped, so they
// do not survive a later Encode; a malformed header or directory structure
// returns ErrCorrupt.
func Decode(data []byte) (*TagTree, error) {
	data = bytes.TrimPrefix(data, exifPreamble)
	order, ifdOffset, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	d := &decoder{data: data, order: order}

	tree := NewTagTree()
	next, err := d.readIFD(ifdOffset, tree.Zeroth)
	if err != nil {
		return nil, err
	}

	if off, ok := takePointer(tree.Zeroth, tagExifIFD); ok {
		if _, err := d.readIFD(off, tree.Exif); err != nil {
			return nil, err
		}
	}
	if off, ok := takePointer(tree.Zeroth, tagGPSIFD); ok {
		if _, err := d.readIFD(off, tree.GPS); err != nil {
			return nil, err
		}
	}
	if off, ok := takePointer(tree.Exif, tagInteropIFD); ok {
		if _, err := d.readIFD(off, tree.Interop); err != nil {
			return nil, err
		}
	}
	if next != 0 && int(next) < len(data) {
		if _, err := d.readIFD(next, tree.First); err != nil {
			return nil, err
		}
		tree.extractThumbnail(data)
	}
	return tree, nil
}

// parseHeader validates the TIFF header and returns the byte order and the
// offset of the 0th IFD.
func parseHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: unknown byte order %q", ErrCorrupt, data[:2])
	}
	if order.Uint16(data[2:4]) != 0x2A {
		return nil, 0, fmt.Errorf("%w: bad tiff magic", ErrCorrupt)
	}
	off := order.Uint32(data[4:8])
	if off < 8 || int(off) >= len(data) {
		return nil, 0, fmt.Errorf("%w: ifd offset %d out of range", ErrCorrupt, off)
	}
	return order, off, nil
}

// takePointer removes a sub-IFD pointer tag from the group and returns its
// target offset. Pointer tags are structural; they are recomputed on encode.
func takePointer(ifd IFD, tag uint16) (uint32, bool) {
	v, ok := ifd[tag]
	if !ok {
		return 0, false
	}
	delete(ifd, tag)
	off, ok := v.Uint()
	return off, ok && off != 0
}

type decoder struct {
	data    []byte
	order   binary.ByteOrder
	visited map[uint32]bool
}

// readIFD parses the directory at off into dst and returns the offset of the
// next IFD in the chain (0 when none).
func (d *decoder) readIFD(off uint32, dst IFD) (uint32, error) {
	if d.visited == nil {
		d.visited = map[uint32]bool{}
	}
	if d.visited[off] {
		return 0, fmt.Errorf("%w: ifd cycle at offset %d", ErrCorrupt, off)
	}
	d.visited[off] = true

	data := d.data
	if int(off)+2 > len(data) {
		return 0, fmt.Errorf("%w: ifd at %d truncated", ErrCorrupt, off)
	}
	n := int(d.order.Uint16(data[off : off+2]))
	base := int(off) + 2
	if base+n*12+4 > len(data) {
		return 0, fmt.Errorf("%w: ifd at %d overruns data", ErrCorrupt, off)
	}
	for i := 0; i < n; i++ {
		ent := base + i*12
		tag := d.order.Uint16(data[ent : ent+2])
		typ := d.order.Uint16(data[ent+2 : ent+4])
		count := d.order.Uint32(data[ent+4 : ent+8])
		layout, ok := layouts[typ]
		if !ok {
			continue
		}
		size := layout.unitSize * layout.units * int(count)
		var raw []byte
		if size <= 4 {
			raw = data[ent+8 : ent+8+size]
		} else {
			valOff := int(d.order.Uint32(data[ent+8 : ent+12]))
			if valOff <= 0 || valOff+size > len(data) {
				continue
			}
			raw = data[valOff : valOff+size]
		}
		dst[tag] = Value{Type: typ, Count: count, Data: toCanonical(raw, layout, d.order)}
	}
	next := d.order.Uint32(data[base+n*12 : base+n*12+4])
	return next, nil
}

// toCanonical converts raw value bytes from the stream's byte order into the
// little-endian canonical form.
func toCanonical(raw []byte, layout typeLayout, order binary.ByteOrder) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	if order == binary.ByteOrder(binary.LittleEndian) || layout.unitSize == 1 {
		return out
	}
	swapUnits(out, layout.unitSize)
	return out
}

// swapUnits reverses the bytes of each unitSize-wide unit in place.
func swapUnits(b []byte, unitSize int) {
	for i := 0; i+unitSize <= len(b); i += unitSize {
		for l, r := i, i+unitSize-1; l < r; l, r = l+1, r-1 {
			b[l], b[r] = b[r], b[l]
		}
	}
}

// extractThumbnail pulls the thumbnail blob referenced from the 1st IFD out
// of the stream and drops the offset/length tags; encode re-creates them.
func (t *TagTree) extractThumbnail(data []byte) {
	offVal, okOff := t.First[tagThumbOffset]
	lenVal, okLen := t.First[tagThumbLength]
	if !okOff || !okLen {
		return
	}
	off, ok1 := offVal.Uint()
	length, ok2 := lenVal.Uint()
	delete(t.First, tagThumbOffset)
	delete(t.First, tagThumbLength)
	if !ok1 || !ok2 || length == 0 || int(off)+int(length) > len(data) {
		return
	}
	t.Thumbnail = make([]byte, length)
	copy(t.Thumbnail, data[off:off+length])
}
