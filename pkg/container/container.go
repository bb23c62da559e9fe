// Package container reads and rewrites the EXIF payload of image files. The
// probe detects the host format and pulls out the raw EXIF blob; the splice
// puts a new blob back without disturbing the rest of the file.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"

	// Registered so the probe recognizes these formats by content. Only JPEG
	// and TIFF can be spliced; the rest exist to reject files by name.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Fepozopo/geotag/pkg/exif"
)

// Host formats the splice supports.
const (
	FormatJPEG = "jpeg"
	FormatTIFF = "tiff"
)

// Info is the result of a read-only probe: the detected format name (empty
// when unrecognized) and the raw EXIF blob, nil when the file carries none.
type Info struct {
	Format string
	Exif   []byte
}

// Probe reads the file once, detects its format by content and extracts the
// embedded EXIF blob. The file is not held open afterwards.
func Probe(path string) (Info, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		// Content not recognized by any registered decoder.
		return Info{}, nil
	}
	info := Info{Format: format}
	switch format {
	case FormatJPEG:
		info.Exif = jpegExifPayload(b)
	case FormatTIFF:
		// The TIFF file is itself the EXIF/TIFF stream.
		info.Exif = b
	}
	return info, nil
}

// walkJPEGSegments calls fn for each marker segment between SOI and the scan
// data. Each seg runs from the 0xFF marker byte through the end of the
// payload. It returns the offset where the remainder begins, so callers can
// carry the scan data over untouched.
func walkJPEGSegments(data []byte, fn func(marker byte, seg []byte)) (int, error) {
	i := 2 // skip SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xDA || marker == 0xD9 { // start of scan / end of image
			break
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return i, errors.New("truncated jpeg segment")
		}
		fn(marker, data[i:i+2+segLen])
		i += 2 + segLen
	}
	return i, nil
}

// isExifSegment reports whether seg is an APP1 segment carrying the
// "Exif\x00\x00" preamble. The TIFF stream follows at seg[10:].
func isExifSegment(marker byte, seg []byte) bool {
	return marker == 0xE1 && len(seg) >= 10 && bytes.Equal(seg[4:10], []byte("Exif\x00\x00"))
}

// jpegExifPayload scans the JPEG segment chain for the APP1 Exif segment and
// returns a copy of its TIFF stream, or nil when the file has none.
func jpegExifPayload(data []byte) []byte {
	var payload []byte
	walkJPEGSegments(data, func(marker byte, seg []byte) {
		if payload == nil && isExifSegment(marker, seg) {
			payload = append([]byte(nil), seg[10:]...)
		}
	})
	return payload
}

// maxAPP1Payload is the largest EXIF stream a JPEG APP1 segment can hold:
// 65535 minus the length field and the Exif preamble.
const maxAPP1Payload = 65535 - 2 - 6

// Splice writes the EXIF blob into the file, replacing any previous EXIF
// data. JPEG hosts get a fresh APP1 segment directly after SOI with every
// other segment preserved byte for byte. TIFF hosts get the rewritten IFD
// chain appended at the end of the file with the header patched to point at
// it, so no original byte moves and stale offsets stay valid. The trade-off
// is that each splice leaves the previous chain behind as orphaned bytes, so
// a repeatedly re-tagged TIFF grows a little every time.
func Splice(path string, blob []byte) error {
	orig, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}

	var out []byte
	switch {
	case len(orig) >= 3 && bytes.Equal(orig[:3], []byte{0xFF, 0xD8, 0xFF}):
		out, err = spliceJPEG(orig, blob)
	case len(orig) >= 4 && (bytes.Equal(orig[:2], []byte("II")) || bytes.Equal(orig[:2], []byte("MM"))):
		out, err = spliceTIFF(orig, blob)
	default:
		err = errors.New("file is neither JPEG nor TIFF")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, st.Mode().Perm())
}

// spliceJPEG rebuilds the segment chain: SOI, the new APP1 Exif segment,
// then every original segment except a prior APP1 Exif one, then the scan
// data untouched.
func spliceJPEG(orig, blob []byte) ([]byte, error) {
	if len(blob) > maxAPP1Payload {
		return nil, fmt.Errorf("exif data too large for APP1 segment (%d bytes)", len(blob))
	}
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8})
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(2+6+len(blob)))
	out.Write([]byte("Exif\x00\x00"))
	out.Write(blob)

	rest, err := walkJPEGSegments(orig, func(marker byte, seg []byte) {
		if !isExifSegment(marker, seg) {
			out.Write(seg)
		}
	})
	if err != nil {
		return nil, err
	}
	// Remainder: scan data through EOI.
	out.Write(orig[rest:])
	return out.Bytes(), nil
}

// spliceTIFF appends the re-encoded IFD chain in the host's own byte order
// and repoints the header at it. The previous chain becomes orphaned bytes;
// strip data, SubIFDs and further pages keep their original offsets.
func spliceTIFF(orig, blob []byte) ([]byte, error) {
	var order binary.ByteOrder
	switch {
	case orig[0] == 'I' && orig[1] == 'I':
		order = binary.LittleEndian
	case orig[0] == 'M' && orig[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, errors.New("invalid tiff header")
	}
	tree, err := exif.Decode(blob)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(orig), len(orig)+1)
	copy(out, orig)
	if len(out)%2 != 0 { // keep the new chain word-aligned
		out = append(out, 0)
	}
	base := uint32(len(out))
	chain, err := tree.EncodeChain(order, base)
	if err != nil {
		return nil, err
	}
	out = append(out, chain...)
	order.PutUint32(out[4:8], base)
	return out, nil
}
