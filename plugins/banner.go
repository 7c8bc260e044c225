package plugins

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/pkg/errors"
)

// Builtin panel geometry, matching common 7.5" e-paper modules.
const (
	defaultWidth  = 800
	defaultHeight = 480
)

// Banner fills the panel with a solid color. Useful as a screensaver slot
// and as the simplest possible plugin for wiring tests.
type Banner struct{}

// NewBanner returns the builtin banner plugin.
func NewBanner() *Banner { return &Banner{} }

func (*Banner) ID() string { return "banner" }

func (*Banner) GenerateImage(ctx context.Context, settings map[string]any, now time.Time) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "banner: context done")
	}
	w, h := settingDimensions(settings)
	bg, err := settingColor(settings, "color", color.White)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img, nil
}

func settingDimensions(settings map[string]any) (int, int) {
	return settingInt(settings, "width", defaultWidth), settingInt(settings, "height", defaultHeight)
}

func settingInt(settings map[string]any, key string, fallback int) int {
	switch v := settings[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		// JSON numbers decode as float64.
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}

func settingColor(settings map[string]any, key string, fallback color.Color) (color.Color, error) {
	raw, ok := settings[key].(string)
	if !ok || raw == "" {
		return fallback, nil
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(raw, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, errors.Errorf("plugins: invalid color %q for %s", raw, key)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
