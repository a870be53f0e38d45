package cpu

import (
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
	"github.com/go-gl/mathgl/mgl32"
)

type DrawKind int

const (
	DrawKindRaindrops DrawKind = iota
	DrawKindSplashes
)

// DrawCall is one instanced draw as the host issued it.
type DrawCall struct {
	Kind      DrawKind
	Vertices  int
	Instances int
}

// Streak is the rasterizable output of one raindrop instance.
type Streak struct {
	Index    int
	Head     mgl32.Vec3
	Tail     mgl32.Vec3
	ClipHead mgl32.Vec4
	ClipTail mgl32.Vec4
	Color    mgl32.Vec4
}

// Sprite is the rasterizable output of one active splash instance.
type Sprite struct {
	Index   int
	Frame   int
	Alpha   float32
	Corners [4]mgl32.Vec3
	Clip    [4]mgl32.Vec4
	UVs     [4]mgl32.Vec2
}

// Frame collects everything recorded between ResetFrame calls.
type Frame struct {
	Dispatches int
	Workgroups int
	Barriers   int
	Draws      []DrawCall
	Streaks    []Streak
	Sprites    []Sprite
}

// DrawRaindrops issues one instanced draw of RaindropVertices vertices per drop.
func (c *Backend) DrawRaindrops(pb particles.Buffers, p core.RaindropDrawParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	if c.pending {
		return ErrBarrierMissing
	}
	b, err := buffersOf(pb)
	if err != nil {
		return err
	}

	c.frame.Draws = append(c.frame.Draws, DrawCall{
		Kind:      DrawKindRaindrops,
		Vertices:  core.RaindropVertices,
		Instances: len(b.Drops),
	})

	viewProj := p.Projection.Mul4(p.View)
	color := p.Color.Vec4(1)
	for i, d := range b.Drops {
		head, tail := core.StreakEndpoints(d, p.Length)
		c.frame.Streaks = append(c.frame.Streaks, Streak{
			Index:    i,
			Head:     head,
			Tail:     tail,
			ClipHead: viewProj.Mul4x1(head.Vec4(1)),
			ClipTail: viewProj.Mul4x1(tail.Vec4(1)),
			Color:    color,
		})
	}
	return nil
}

// DrawSplashes issues one instanced draw over the full splash capacity. Inactive slots
// are dropped by the per-instance stage, the same way splash.wgsl collapses them.
func (c *Backend) DrawSplashes(pb particles.Buffers, p core.SplashDrawParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	if c.pending {
		return ErrBarrierMissing
	}
	b, err := buffersOf(pb)
	if err != nil {
		return err
	}

	c.frame.Draws = append(c.frame.Draws, DrawCall{
		Kind:      DrawKindSplashes,
		Vertices:  len(core.SplashQuad),
		Instances: len(b.Splashes),
	})

	viewProj := p.Projection.Mul4(p.View)
	for i, s := range b.Splashes {
		if !s.Active() {
			continue
		}
		corners, uvs := core.SplashCorners(s, p.CameraRight, p.CameraUp, p.Size, p.Atlas)
		sp := Sprite{
			Index:   i,
			Frame:   p.Atlas.FrameIndex(s.Progress()),
			Alpha:   1 - s.Progress(),
			Corners: corners,
			UVs:     uvs,
		}
		for k, corner := range corners {
			sp.Clip[k] = viewProj.Mul4x1(corner.Vec4(1))
		}
		c.frame.Sprites = append(c.frame.Sprites, sp)
	}
	return nil
}
