// Package export converts one source image into one output file per a
// resolved format and option set, owning the codec-specific edge cases:
// alpha flattening for opaque codecs, paletted transparency for PNG,
// quality controls and EXIF carry-over.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"batchconv/internal/codec"
	"batchconv/internal/format"
)

// ExportError wraps a per-source codec or I/O failure.
type ExportError struct {
	Source string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Source, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Exporter performs single-image conversions through a Codec.
type Exporter struct {
	codec codec.Codec
}

// New creates an exporter backed by the given codec. Pass codec.Default()
// for the in-process decoders and encoders.
func New(c codec.Codec) *Exporter {
	return &Exporter{codec: c}
}

// Export converts source into outDir as {stem}{suffix}.{ext} and returns
// the output path. Later exports with an identical stem and suffix
// overwrite silently; the suffix exists to keep outputs apart from the
// originals, not to guarantee uniqueness across sources.
func (e *Exporter) Export(source, outDir string, f format.Format, quality int, keepMetadata bool, suffix string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", outDir, err)
	}

	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(outDir, stem+suffix+"."+f.Ext)

	img, err := e.codec.Open(source)
	if err != nil {
		return "", &ExportError{Source: source, Err: err}
	}

	pixels := img.Pixels
	if f.RequiresOpaque && img.HasAlpha() {
		pixels = flattenWhite(pixels)
	} else if f.Codec == format.CodecPNG && img.Mode == codec.ModePaletted && img.Transparency {
		// PNG keeps transparency; lift the indexed form to one that
		// retains alpha instead of flattening.
		pixels = toNRGBA(pixels)
	}

	var opts codec.Options
	switch f.Codec {
	case format.CodecJPEG:
		opts.Quality = quality
		opts.Optimize = true
		opts.Progressive = true
	case format.CodecWEBP:
		opts.Quality = quality
		opts.Effort = 6
		opts.Lossless = false
	}
	if keepMetadata && len(img.Exif) > 0 {
		opts.Exif = img.Exif
	}

	if err := e.codec.Save(pixels, outPath, f.Codec, opts); err != nil {
		return "", &ExportError{Source: source, Err: err}
	}
	return outPath, nil
}

// flattenWhite composites the image over an opaque white background,
// yielding a buffer with no effective transparency.
func flattenWhite(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
