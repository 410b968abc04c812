// Package codec provides the image decode/encode capability used by the
// exporter: open a file into a pixel buffer, write a buffer in a given
// codec. Decoders are the stdlib jpeg/png/gif plus x/image bmp, tiff and
// webp; encoders cover the supported output codecs (webp via chai2010).
package codec

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"image/color"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/chai2010/webp"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp"
)

// Mode is the pixel representation of a decoded image, following the
// conventional codec mode names.
type Mode string

const (
	ModeRGB      Mode = "RGB"
	ModeRGBA     Mode = "RGBA"
	ModeGray     Mode = "L"
	ModePaletted Mode = "P"
)

// Image is a decoded source image together with the properties the
// exporter's transformation rules depend on.
type Image struct {
	Pixels image.Image
	Mode   Mode
	// Transparency is set for paletted images whose palette contains a
	// non-opaque entry.
	Transparency bool
	// Exif holds the raw EXIF payload of the source, nil when absent.
	Exif []byte
}

// HasAlpha reports whether the image carries transparency that an opaque
// codec would need flattened.
func (im *Image) HasAlpha() bool {
	switch im.Mode {
	case ModeRGBA:
		return true
	case ModePaletted:
		return im.Transparency
	}
	return false
}

// Options controls a single Save call. Fields not meaningful for the
// target codec are ignored by it.
type Options struct {
	Quality     int
	Optimize    bool
	Progressive bool
	Lossless    bool
	Effort      int
	// Exif, when set, is propagated verbatim into the output where the
	// codec supports it.
	Exif []byte
}

// Codec is the open/save capability consumed by the exporter. The
// interface exists so tests can inject failing or recording codecs.
type Codec interface {
	Open(path string) (*Image, error)
	Save(m image.Image, path string, codecName string, opts Options) error
}

type stdCodec struct{}

// Default returns the codec backed by the registered in-process
// decoders and encoders.
func Default() Codec { return stdCodec{} }

func (stdCodec) Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	img := &Image{Pixels: m}
	img.Mode, img.Transparency = modeOf(m)

	// EXIF is best-effort: sources without it (or formats goexif does
	// not read) simply carry none.
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if x, err := exif.Decode(f); err == nil {
			img.Exif = x.Raw
		}
	}

	return img, nil
}

func (stdCodec) Save(m image.Image, path string, codecName string, opts Options) error {
	var buf bytes.Buffer
	switch codecName {
	case "JPEG":
		if err := jpeg.Encode(&buf, m, &jpeg.Options{Quality: opts.Quality}); err != nil {
			return err
		}
	case "PNG":
		if err := png.Encode(&buf, m); err != nil {
			return err
		}
	case "WEBP":
		if err := webp.Encode(&buf, m, &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.Quality)}); err != nil {
			return err
		}
	case "TIFF":
		if err := tiff.Encode(&buf, m, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
			return err
		}
	case "BMP":
		if err := bmp.Encode(&buf, m); err != nil {
			return err
		}
	default:
		return fmt.Errorf("no encoder for codec %s", codecName)
	}

	data := buf.Bytes()
	if codecName == "JPEG" && len(opts.Exif) > 0 {
		data = spliceEXIF(data, opts.Exif)
	}

	// Write through a temp file so a failed encode never leaves a
	// truncated output behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func modeOf(m image.Image) (Mode, bool) {
	switch p := m.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray, false
	case *image.Paletted:
		return ModePaletted, paletteHasAlpha(p.Palette)
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return ModeRGBA, false
	case *image.YCbCr, *image.CMYK:
		return ModeRGB, false
	}
	if op, ok := m.(interface{ Opaque() bool }); ok && op.Opaque() {
		return ModeRGB, false
	}
	return ModeRGBA, false
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

const exifHeader = "Exif\x00\x00"

// spliceEXIF inserts an APP1 EXIF segment right after the SOI marker of an
// encoded JPEG stream. The stdlib encoder cannot carry metadata itself, so
// the raw payload is re-attached at the byte level.
func spliceEXIF(jpg, raw []byte) []byte {
	if len(jpg) < 2 || jpg[0] != 0xff || jpg[1] != 0xd8 {
		return jpg
	}
	payload := len(exifHeader) + len(raw)
	if payload+2 > 0xffff {
		// Segment length field cannot represent it; leave the image as-is.
		return jpg
	}
	out := make([]byte, 0, len(jpg)+4+payload)
	out = append(out, jpg[:2]...)
	out = append(out, 0xff, 0xe1, byte((payload+2)>>8), byte(payload+2))
	out = append(out, exifHeader...)
	out = append(out, raw...)
	out = append(out, jpg[2:]...)
	return out
}
