package display

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFileDisplayWritesFrameAndCurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	d, err := NewFileDisplay(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.DisplayImage(context.Background(), solid(10, 10, color.Black), nil); err != nil {
		t.Fatalf("display: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "current.png")); err != nil {
		t.Fatalf("current.png missing: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	// One sequenced frame plus current.png.
	if len(entries) != 2 {
		t.Fatalf("spool entries = %d, want 2", len(entries))
	}

	if err := d.DisplayImage(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestApplySettingsRotate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	img.Set(1, 1, color.Black)

	// rotate arrives as float64 when settings come from a JSON config.
	out := ApplySettings(img, map[string]any{"rotate": float64(180)})
	r, _, _, _ := out.At(1, 1).RGBA()
	if r != 0xffff {
		t.Fatalf("rotate 180 did not move the white pixel, got %v", out.At(1, 1))
	}
}

func TestApplySettingsGrayscale(t *testing.T) {
	img := solid(4, 4, color.RGBA{R: 255, A: 255})
	out := ApplySettings(img, map[string]any{"grayscale": true})
	if _, ok := out.(*image.Gray); !ok {
		t.Fatalf("grayscale output is %T", out)
	}
}

func TestApplySettingsIgnoresUnknownKeys(t *testing.T) {
	img := solid(2, 2, color.Black)
	out := ApplySettings(img, map[string]any{"contrast": 1.2})
	if out != img {
		t.Fatal("unknown keys must leave the image untouched")
	}
}

func TestNullDisplay(t *testing.T) {
	var d Null
	if err := d.DisplayImage(context.Background(), solid(2, 2, color.Black), nil); err != nil {
		t.Fatalf("null display: %v", err)
	}
	if err := d.DisplayImage(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil image")
	}
}
