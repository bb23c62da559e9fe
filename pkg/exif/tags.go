package exif

// Structural pointer tags. These never appear in a decoded group; decode
// strips them and encode recomputes them from the tree layout.
const (
	tagExifIFD     uint16 = 0x8769
	tagGPSIFD      uint16 = 0x8825
	tagInteropIFD  uint16 = 0xA005
	tagThumbOffset uint16 = 0x0201 // JPEGInterchangeFormat
	tagThumbLength uint16 = 0x0202 // JPEGInterchangeFormatLength
)

// Common 0th IFD tags.
const (
	TagMake        uint16 = 0x010F
	TagModel       uint16 = 0x0110
	TagOrientation uint16 = 0x0112
	TagSoftware    uint16 = 0x0131
	TagDateTime    uint16 = 0x0132
)

// GPS IFD tags, per the EXIF GPS schema.
const (
	TagGPSLatitudeRef  uint16 = 0x0001
	TagGPSLatitude     uint16 = 0x0002
	TagGPSLongitudeRef uint16 = 0x0003
	TagGPSLongitude    uint16 = 0x0004
)
