// Package atlas prepares splash sprite sheets for upload as an RGBA texture.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/gekko3d/rainfx/rt/core"
	"golang.org/x/image/draw"
)

// DefaultCell is the edge length in pixels of one frame.
const DefaultCell = 64

var ErrEmptyAtlas = errors.New("atlas has no pixels")

// Load decodes the sprite sheet at path and resamples it so every frame of layout is
// cell x cell pixels.
func Load(path string, layout core.AtlasLayout, cell int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open atlas: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode atlas %s: %w", path, err)
	}
	return Resample(src, layout, cell)
}

// Resample converts src to RGBA sized layout.Columns*cell x layout.Rows*cell.
func Resample(src image.Image, layout core.AtlasLayout, cell int) (*image.RGBA, error) {
	if src.Bounds().Empty() {
		return nil, ErrEmptyAtlas
	}
	if cell <= 0 {
		cell = DefaultCell
	}
	cols, rows := dims(layout)
	dst := image.NewRGBA(image.Rect(0, 0, cols*cell, rows*cell))
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// Procedural draws an expanding, thinning ring per frame. It stands in for a sprite
// sheet when none is configured.
func Procedural(layout core.AtlasLayout, cell int) *image.RGBA {
	if cell <= 0 {
		cell = DefaultCell
	}
	cols, rows := dims(layout)
	frames := cols * rows
	img := image.NewRGBA(image.Rect(0, 0, cols*cell, rows*cell))

	half := float64(cell) / 2
	for f := 0; f < frames; f++ {
		ox, oy := (f%cols)*cell, (f/cols)*cell
		t := (float64(f) + 0.5) / float64(frames)
		radius := half * (0.15 + 0.8*t)
		width := math.Max(1.5, half*0.25*(1-t))

		for y := 0; y < cell; y++ {
			for x := 0; x < cell; x++ {
				dx := float64(x) + 0.5 - half
				// squash vertically so the ring reads as a splash on the ground
				dy := (float64(y) + 0.5 - half) * 2
				d := math.Abs(math.Hypot(dx, dy) - radius)
				if d > width {
					continue
				}
				a := uint8(255 * (1 - d/width))
				img.SetRGBA(ox+x, oy+y, color.RGBA{a, a, a, a})
			}
		}
	}
	return img
}

func dims(layout core.AtlasLayout) (int, int) {
	cols, rows := layout.Columns, layout.Rows
	if cols < 1 || rows < 1 {
		return 1, 1
	}
	return cols, rows
}
