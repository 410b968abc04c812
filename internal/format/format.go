package format

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when an output format name is not recognized.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Codec identifiers understood by the image codec layer.
const (
	CodecJPEG = "JPEG"
	CodecPNG  = "PNG"
	CodecWEBP = "WEBP"
	CodecTIFF = "TIFF"
	CodecBMP  = "BMP"
)

// Format describes a resolved output format: the codec to encode with, the
// output file extension, and whether the codec requires opaque pixel data.
type Format struct {
	Codec          string
	Ext            string
	RequiresOpaque bool
}

// OutputFormats lists the user-facing output format names.
var OutputFormats = []string{"JPG", "JPEG", "PNG", "WEBP", "TIFF", "BMP"}

// inputExts is the recognized input extension set, lowercased with dot.
var inputExts = map[string]struct{}{
	".webp": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
	".bmp": {}, ".tif": {}, ".tiff": {}, ".gif": {}, ".heic": {},
}

// Resolve maps a user-facing format name to its Format. Case-insensitive.
// "JPG" and "JPEG" are both the JPEG codec; they differ only in the
// extension written.
func Resolve(name string) (Format, error) {
	switch strings.ToUpper(name) {
	case "JPG":
		return Format{Codec: CodecJPEG, Ext: "jpg", RequiresOpaque: true}, nil
	case "JPEG":
		return Format{Codec: CodecJPEG, Ext: "jpeg", RequiresOpaque: true}, nil
	case "PNG":
		return Format{Codec: CodecPNG, Ext: "png"}, nil
	case "WEBP":
		return Format{Codec: CodecWEBP, Ext: "webp"}, nil
	case "TIFF":
		return Format{Codec: CodecTIFF, Ext: "tiff"}, nil
	case "BMP":
		return Format{Codec: CodecBMP, Ext: "bmp"}, nil
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// IsInputExt reports whether the path carries a recognized input image
// extension.
func IsInputExt(path string) bool {
	_, ok := inputExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsImageFile reports whether path is a regular file with a recognized
// input image extension.
func IsImageFile(path string) bool {
	if !IsInputExt(path) {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
