package plugins

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/inkdash/inkdash/imaging"
)

func TestRegistryResolve(t *testing.T) {
	reg := DefaultRegistry()
	if got := reg.Resolve("clock"); got == nil {
		t.Fatal("clock plugin missing from default registry")
	}
	if got := reg.Resolve(" banner "); got == nil {
		t.Fatal("resolve must trim the plugin id")
	}
	if got := reg.Resolve("absent"); got != nil {
		t.Fatalf("unknown id resolved to %T", got)
	}
	if got := reg.IDs(); len(got) != 2 || got[0] != "banner" || got[1] != "clock" {
		t.Fatalf("ids = %v", got)
	}
}

func TestNewInstanceAssignsUniqueIDs(t *testing.T) {
	a := NewInstance("clock", "kitchen clock", nil, time.Hour)
	b := NewInstance("clock", "hall clock", nil, time.Hour)
	if a.InstanceID == "" || a.InstanceID == b.InstanceID {
		t.Fatalf("instance ids not unique: %q vs %q", a.InstanceID, b.InstanceID)
	}
	if a.PluginID != "clock" || a.RefreshInterval.Std() != time.Hour {
		t.Fatalf("instance fields lost: %+v", a)
	}
}

func TestClockIsStableWithinAMinute(t *testing.T) {
	clock := NewClock()
	now := time.Date(2026, 8, 27, 14, 30, 5, 0, time.UTC)
	settings := map[string]any{"width": 120, "height": 80}

	first := generate(t, clock, settings, now)
	second := generate(t, clock, settings, now.Add(20*time.Second))
	if hashOf(t, first) != hashOf(t, second) {
		t.Fatal("same minute must render identical pixels")
	}
	third := generate(t, clock, settings, now.Add(time.Minute))
	if hashOf(t, first) == hashOf(t, third) {
		t.Fatal("next minute must render different pixels")
	}
}

func TestBannerHonorsDimensionsAndColor(t *testing.T) {
	banner := NewBanner()
	img := generate(t, banner, map[string]any{"width": float64(64), "height": float64(32), "color": "#ff0000"}, time.Now())
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, _, _ := img.At(10, 10).RGBA()
	if r != 0xffff || g != 0 {
		t.Fatalf("pixel = %v, want pure red", img.At(10, 10))
	}

	if _, err := banner.GenerateImage(context.Background(), map[string]any{"color": "red"}, time.Now()); err == nil {
		t.Fatal("expected error for malformed color")
	}
}

func generate(t *testing.T, p Plugin, settings map[string]any, now time.Time) image.Image {
	t.Helper()
	img, err := p.GenerateImage(context.Background(), settings, now)
	if err != nil {
		t.Fatalf("generate %s: %v", p.ID(), err)
	}
	return img
}

func hashOf(t *testing.T, img image.Image) string {
	t.Helper()
	h, err := imaging.ComputeImageHash(img)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}
