package plugins

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/pkg/errors"
)

// Clock renders the current time as large block digits. Because the output
// only changes once a minute, consecutive cycles within the same minute
// produce identical pixels and exercise the scheduler's dedup path.
type Clock struct{}

// NewClock returns the builtin clock plugin.
func NewClock() *Clock { return &Clock{} }

func (*Clock) ID() string { return "clock" }

// digitRows is a 3x5 bitmap per glyph, row-major, one bit per cell.
var digitRows = map[rune][5]uint8{
	'0': {0b111, 0b101, 0b101, 0b101, 0b111},
	'1': {0b010, 0b110, 0b010, 0b010, 0b111},
	'2': {0b111, 0b001, 0b111, 0b100, 0b111},
	'3': {0b111, 0b001, 0b111, 0b001, 0b111},
	'4': {0b101, 0b101, 0b111, 0b001, 0b001},
	'5': {0b111, 0b100, 0b111, 0b001, 0b111},
	'6': {0b111, 0b100, 0b111, 0b101, 0b111},
	'7': {0b111, 0b001, 0b010, 0b010, 0b010},
	'8': {0b111, 0b101, 0b111, 0b101, 0b111},
	'9': {0b111, 0b101, 0b111, 0b001, 0b111},
	':': {0b000, 0b010, 0b000, 0b010, 0b000},
}

func (*Clock) GenerateImage(ctx context.Context, settings map[string]any, now time.Time) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "clock: context done")
	}
	w, h := settingDimensions(settings)
	fg, err := settingColor(settings, "foreground", color.Black)
	if err != nil {
		return nil, err
	}
	bg, err := settingColor(settings, "background", color.White)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	text := now.Format("15:04")
	// Glyphs are 3x5 cells plus one cell of spacing; scale to ~60% of width.
	cells := len(text)*4 - 1
	scale := (w * 6 / 10) / (cells)
	if scale < 1 {
		scale = 1
	}
	glyphH := 5 * scale
	x := (w - cells*scale) / 2
	y := (h - glyphH) / 2
	for _, ch := range text {
		rows, ok := digitRows[ch]
		if !ok {
			x += 4 * scale
			continue
		}
		for ry, row := range rows {
			for rx := 0; rx < 3; rx++ {
				if row&(1<<(2-rx)) == 0 {
					continue
				}
				cell := image.Rect(x+rx*scale, y+ry*scale, x+(rx+1)*scale, y+(ry+1)*scale)
				draw.Draw(img, cell, image.NewUniform(fg), image.Point{}, draw.Src)
			}
		}
		x += 4 * scale
	}
	return img, nil
}
