// Package display abstracts the physical panel behind a small sink
// interface and ships a file-backed implementation for development and
// headless deployments.
package display

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Manager renders a final image on the device. Implementations may fail;
// the refresh loop treats a failure as "panel state unknown" and does not
// commit the cycle's refresh snapshot.
type Manager interface {
	DisplayImage(ctx context.Context, img image.Image, imageSettings map[string]any) error
}

// FileDisplay writes each frame as a PNG into a spool directory. The newest
// frame is also mirrored to current.png so external viewers have a stable
// path to watch.
type FileDisplay struct {
	dir string
	seq atomic.Uint64
}

// NewFileDisplay creates the spool directory and returns the sink.
func NewFileDisplay(dir string) (*FileDisplay, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("display: spool dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "display: create spool dir %s", dir)
	}
	return &FileDisplay{dir: dir}, nil
}

// Dir returns the spool directory.
func (d *FileDisplay) Dir() string { return d.dir }

// DisplayImage applies the image settings and writes the frame.
func (d *FileDisplay) DisplayImage(ctx context.Context, img image.Image, imageSettings map[string]any) error {
	if img == nil {
		return errors.New("display: nil image")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "display: context done")
	}
	img = ApplySettings(img, imageSettings)

	seq := d.seq.Add(1)
	name := fmt.Sprintf("frame-%s-%04d.png", time.Now().UTC().Format("20060102T150405"), seq)
	path := filepath.Join(d.dir, name)
	if err := writePNG(path, img); err != nil {
		return err
	}
	current := filepath.Join(d.dir, "current.png")
	if err := writePNG(current, img); err != nil {
		return err
	}
	log.Debug().Str("frame", path).Msg("wrote display frame")
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "display: create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "display: encode %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "display: close %s", path)
	}
	return nil
}

// ApplySettings applies the render options a plugin declares on its config:
// "rotate" (180 only, for upside-down mounts) and "grayscale" (bool).
// Unknown keys are ignored so plugin configs stay forward-compatible.
func ApplySettings(img image.Image, settings map[string]any) image.Image {
	if len(settings) == 0 {
		return img
	}
	if rot, ok := settings["rotate"].(float64); ok && int(rot) == 180 {
		img = rotate180(img)
	}
	if rot, ok := settings["rotate"].(int); ok && rot == 180 {
		img = rotate180(img)
	}
	if gray, ok := settings["grayscale"].(bool); ok && gray {
		img = grayscale(img)
	}
	return img
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(b.Dx()-1-x, b.Dy()-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func grayscale(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Null discards frames. Used by tests and the dry-run CLI flag.
type Null struct{}

func (Null) DisplayImage(ctx context.Context, img image.Image, imageSettings map[string]any) error {
	if img == nil {
		return errors.New("display: nil image")
	}
	return nil
}
