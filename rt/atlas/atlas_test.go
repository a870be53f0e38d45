package atlas

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProceduralSize(t *testing.T) {
	img := Procedural(core.DefaultAtlasLayout, 32)
	assert.Equal(t, image.Pt(128, 128), img.Bounds().Size())

	img = Procedural(core.AtlasLayout{Columns: 8, Rows: 2}, 0)
	assert.Equal(t, image.Pt(8*DefaultCell, 2*DefaultCell), img.Bounds().Size())
}

func TestProceduralFramesDiffer(t *testing.T) {
	img := Procedural(core.DefaultAtlasLayout, 32)
	first := img.SubImage(image.Rect(0, 0, 32, 32)).(*image.RGBA)
	last := img.SubImage(image.Rect(96, 96, 128, 128)).(*image.RGBA)

	opaque := func(m *image.RGBA) int {
		n := 0
		b := m.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if m.RGBAAt(x, y).A > 0 {
					n++
				}
			}
		}
		return n
	}
	assert.Greater(t, opaque(first), 0)
	assert.Greater(t, opaque(last), 0)
	// by the last frame the ring has moved away from the centre
	assert.Equal(t, uint8(0), last.RGBAAt(112, 112).A)
}

func TestLoadResamplesToCells(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 100, 50, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "splash.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := Load(path, core.AtlasLayout{Columns: 4, Rows: 2}, 16)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 32), img.Bounds().Size())
	c := img.RGBAAt(32, 16)
	assert.InDelta(t, 200, int(c.R), 2)
	assert.Equal(t, uint8(255), c.A)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"), core.DefaultAtlasLayout, 16)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Load(path, core.DefaultAtlasLayout, 16)
	assert.Error(t, err)

	_, err = Resample(image.NewRGBA(image.Rectangle{}), core.DefaultAtlasLayout, 16)
	assert.ErrorIs(t, err, ErrEmptyAtlas)
}
