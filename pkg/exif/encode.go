package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Encode serializes the tree to a self-contained little-endian TIFF stream
// (header plus IFD chain). Output is deterministic: tags are written in
// ascending order, so encoding the same tree twice yields identical bytes.
func (t *TagTree) Encode() ([]byte, error) {
	chain, err := t.EncodeChain(binary.LittleEndian, 8)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 8+len(chain))
	out = append(out, 'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00)
	return append(out, chain...), nil
}

// EncodeChain serializes the IFD chain without a TIFF header, with all stored
// offsets computed as if the 0th IFD begins at base within the target stream.
// The TIFF splice path uses this to append a rewritten chain to an existing
// file in the file's own byte order.
func (t *TagTree) EncodeChain(order binary.ByteOrder, base uint32) ([]byte, error) {
	zeroth := t.Zeroth.Clone()
	exif := t.Exif.Clone()
	first := t.First.Clone()

	exifPresent := len(exif) > 0 || len(t.Interop) > 0
	interopPresent := len(t.Interop) > 0
	gpsPresent := len(t.GPS) > 0
	firstPresent := len(first) > 0 || t.Thumbnail != nil

	// Reserve pointer entries before measuring so offsets come out right.
	if exifPresent {
		zeroth[tagExifIFD] = Long(0)
	}
	if gpsPresent {
		zeroth[tagGPSIFD] = Long(0)
	}
	if interopPresent {
		exif[tagInteropIFD] = Long(0)
	}
	if t.Thumbnail != nil {
		first[tagThumbOffset] = Long(0)
		first[tagThumbLength] = Long(uint32(len(t.Thumbnail)))
	}

	cur := base + ifdSize(zeroth)
	var exifOff, interopOff, gpsOff, firstOff, thumbOff uint32
	if exifPresent {
		exifOff = cur
		cur += ifdSize(exif)
	}
	if interopPresent {
		interopOff = cur
		cur += ifdSize(t.Interop)
	}
	if gpsPresent {
		gpsOff = cur
		cur += ifdSize(t.GPS)
	}
	if firstPresent {
		firstOff = cur
		cur += ifdSize(first)
	}
	if t.Thumbnail != nil {
		thumbOff = cur
	}

	if exifPresent {
		zeroth[tagExifIFD] = Long(exifOff)
	}
	if gpsPresent {
		zeroth[tagGPSIFD] = Long(gpsOff)
	}
	if interopPresent {
		exif[tagInteropIFD] = Long(interopOff)
	}
	if t.Thumbnail != nil {
		first[tagThumbOffset] = Long(thumbOff)
	}

	var next0 uint32
	if firstPresent {
		next0 = firstOff
	}

	var out bytes.Buffer
	if err := packIFD(&out, zeroth, base, next0, order); err != nil {
		return nil, err
	}
	if exifPresent {
		if err := packIFD(&out, exif, exifOff, 0, order); err != nil {
			return nil, err
		}
	}
	if interopPresent {
		if err := packIFD(&out, t.Interop, interopOff, 0, order); err != nil {
			return nil, err
		}
	}
	if gpsPresent {
		if err := packIFD(&out, t.GPS, gpsOff, 0, order); err != nil {
			return nil, err
		}
	}
	if firstPresent {
		if err := packIFD(&out, first, firstOff, 0, order); err != nil {
			return nil, err
		}
	}
	if t.Thumbnail != nil {
		out.Write(t.Thumbnail)
	}
	return out.Bytes(), nil
}

// ifdSize is the serialized size of one IFD: entry count, 12 bytes per
// entry, the next-IFD pointer, and all out-of-line value data.
func ifdSize(ifd IFD) uint32 {
	size := uint32(2 + 12*len(ifd) + 4)
	for _, v := range ifd {
		if len(v.Data) > 4 {
			size += uint32(len(v.Data))
		}
	}
	return size
}

// packIFD writes one directory plus its out-of-line value area. off is the
// absolute offset the directory starts at in the target stream; stored value
// offsets are computed from it.
func packIFD(out *bytes.Buffer, ifd IFD, off, next uint32, order binary.ByteOrder) error {
	tags := make([]uint16, 0, len(ifd))
	for tag := range ifd {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	dataOff := off + uint32(2+12*len(tags)+4)
	var data bytes.Buffer

	if err := binary.Write(out, order, uint16(len(tags))); err != nil {
		return err
	}
	for _, tag := range tags {
		v := ifd[tag]
		layout, ok := layouts[v.Type]
		if !ok {
			return fmt.Errorf("tag 0x%04X: unsupported field type %d", tag, v.Type)
		}
		binary.Write(out, order, tag)
		binary.Write(out, order, v.Type)
		binary.Write(out, order, v.Count)
		encoded := fromCanonical(v.Data, layout, order)
		if len(encoded) <= 4 {
			// Inline values are left-justified in the 4-byte field.
			var inline [4]byte
			copy(inline[:], encoded)
			out.Write(inline[:])
		} else {
			binary.Write(out, order, dataOff)
			data.Write(encoded)
			dataOff += uint32(len(encoded))
		}
	}
	if err := binary.Write(out, order, next); err != nil {
		return err
	}
	out.Write(data.Bytes())
	return nil
}

// fromCanonical converts canonical little-endian value bytes into the target
// byte order.
func fromCanonical(data []byte, layout typeLayout, order binary.ByteOrder) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if order == binary.ByteOrder(binary.LittleEndian) || layout.unitSize == 1 {
		return out
	}
	swapUnits(out, layout.unitSize)
	return out
}
