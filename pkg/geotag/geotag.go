// Package geotag embeds GPS coordinates into the EXIF metadata of JPEG and
// TIFF files, preserving all pre-existing metadata and refusing to clobber
// GPS tags that are already there unless told to overwrite.
package geotag

import (
	"errors"
	"fmt"
	"os"

	"github.com/Fepozopo/geotag/pkg/container"
	"github.com/Fepozopo/geotag/pkg/exif"
	"github.com/Fepozopo/geotag/pkg/gps"
)

// The failure kinds Embed can report. Callers distinguish them with
// errors.Is; everything else coming out of Embed is unexpected.
var (
	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorruptExif       = errors.New("corrupt exif data")
	ErrGPSPresent        = errors.New("image already contains GPS EXIF data")
	ErrWriteFailed       = errors.New("failed to write EXIF data")
)

// Options controls Embed behavior.
type Options struct {
	// Overwrite allows replacing GPS tags that are already present.
	Overwrite bool
	// Backup copies the file to <path>.bak before the write.
	Backup bool
}

// Embed writes the coordinates into the file's GPS IFD. The pipeline is a
// single pass: probe the format, load or initialize the tag tree, apply the
// overwrite guard, replace the GPS group wholesale and splice the result
// back. Every failure before the final write leaves the file untouched; a
// failed write inherits whatever partial state the splice left behind.
func Embed(path string, lat, lon float64, opts Options) error {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	info, err := container.Probe(path)
	if err != nil {
		return fmt.Errorf("probing %s: %w", path, err)
	}
	if info.Format != container.FormatJPEG && info.Format != container.FormatTIFF {
		name := info.Format
		if name == "" {
			name = "unknown"
		}
		return fmt.Errorf("%w: %s (only JPEG and TIFF carry EXIF)", ErrUnsupportedFormat, name)
	}

	tree := exif.NewTagTree()
	if info.Exif != nil {
		tree, err = exif.Decode(info.Exif)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptExif, err)
		}
	}

	// Emptiness, not presence: a stored-but-empty GPS IFD counts as no GPS.
	if len(tree.GPS) > 0 && !opts.Overwrite {
		return fmt.Errorf("%w: use overwrite to replace it", ErrGPSPresent)
	}

	tree.GPS = gps.NewIFD(lat, lon)

	blob, err := tree.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if opts.Backup {
		if err := backupFile(path); err != nil {
			return fmt.Errorf("%w: backup: %v", ErrWriteFailed, err)
		}
	}
	if err := container.Splice(path, blob); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// backupFile copies the file to <path>.bak with the same permissions.
func backupFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path+".bak", b, st.Mode().Perm())
}
