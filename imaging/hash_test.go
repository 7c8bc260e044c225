package imaging

import (
	"image"
	"image/color"
	"testing"
)

func fill(img interface {
	Set(x, y int, c color.Color)
	Bounds() image.Rectangle
}, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestEqualContentHashesEqualAcrossImageTypes(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 8, 8))
	nrgba := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	fill(rgba, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	fill(nrgba, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	h1, err := ComputeImageHash(rgba)
	if err != nil {
		t.Fatalf("hash rgba: %v", err)
	}
	h2, err := ComputeImageHash(nrgba)
	if err != nil {
		t.Fatalf("hash nrgba: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("same pixels, different hashes: %s vs %s", h1, h2)
	}
}

func TestDifferentContentHashesDiffer(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 8, 8))
	b := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fill(a, color.Black)
	fill(b, color.Black)
	b.Set(7, 7, color.White)

	h1, _ := ComputeImageHash(a)
	h2, _ := ComputeImageHash(b)
	if h1 == h2 {
		t.Fatal("single-pixel change did not change the hash")
	}

	// Same pixels, different geometry.
	wide := image.NewRGBA(image.Rect(0, 0, 16, 4))
	fill(wide, color.Black)
	h3, _ := ComputeImageHash(wide)
	if h1 == h3 {
		t.Fatal("different bounds must hash differently")
	}
}

func TestComputeImageHashRejectsInvalidInput(t *testing.T) {
	if _, err := ComputeImageHash(nil); err == nil {
		t.Fatal("expected error for nil image")
	}
	if _, err := ComputeImageHash(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatal("expected error for empty bounds")
	}
}
