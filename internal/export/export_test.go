package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"batchconv/internal/codec"
	"batchconv/internal/format"
)

func writeTransparentPNG(t *testing.T, path string) {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	// Fully transparent everywhere.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			m.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 0})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustResolve(t *testing.T, name string) format.Format {
	t.Helper()
	f, err := format.Resolve(name)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestExportTransparentToJPEGFlattens(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ghost.png")
	writeTransparentPNG(t, src)

	e := New(codec.Default())
	out, err := e.Export(src, filepath.Join(dir, "out"), mustResolve(t, "JPG"), 90, false, "_converted")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(out) != "ghost_converted.jpg" {
		t.Errorf("output name = %s", filepath.Base(out))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	m, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output does not decode as jpeg: %v", err)
	}
	// Composited over white, a fully transparent source becomes white.
	r, g, b, a := m.At(1, 1).RGBA()
	if a != 0xffff {
		t.Error("jpeg output should be opaque")
	}
	if r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("expected near-white pixel, got r=%x g=%x b=%x", r, g, b)
	}
}

func TestExportTransparentToPNGKeepsAlpha(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ghost.png")
	writeTransparentPNG(t, src)

	e := New(codec.Default())
	out, err := e.Export(src, filepath.Join(dir, "out"), mustResolve(t, "PNG"), 90, false, "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output does not decode as png: %v", err)
	}
	if _, _, _, a := m.At(1, 1).RGBA(); a != 0 {
		t.Errorf("transparency lost: alpha = %x", a)
	}
}

func TestExportNameAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pic.png")
	writeTransparentPNG(t, src)
	outDir := filepath.Join(dir, "out")

	e := New(codec.Default())
	first, err := e.Export(src, outDir, mustResolve(t, "png"), 90, false, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Export(src, outDir, mustResolve(t, "png"), 90, false, "")
	if err != nil {
		t.Fatal(err)
	}
	// Same stem and suffix overwrite silently at export time.
	if first != second {
		t.Errorf("expected identical output path, got %s and %s", first, second)
	}
}

func TestExportMissingSource(t *testing.T) {
	e := New(codec.Default())
	_, err := e.Export(filepath.Join(t.TempDir(), "nope.png"), t.TempDir(), mustResolve(t, "PNG"), 90, false, "")
	var ee *ExportError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, expected *ExportError", err)
	}
}

func TestExportOutputDirIsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pic.png")
	writeTransparentPNG(t, src)
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(codec.Default()).Export(src, blocked, mustResolve(t, "PNG"), 90, false, "")
	if err == nil {
		t.Fatal("expected directory creation failure")
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		t.Error("directory failure should not be an ExportError")
	}
}
