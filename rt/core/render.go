package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	RaindropParamsSize = 96
	SplashParamsSize   = 112

	// RaindropVertices is the number of vertices each raindrop instance emits (a line segment).
	RaindropVertices = 2
)

// SplashQuad is the shared billboard primitive in triangle-strip order.
var SplashQuad = [4]mgl32.Vec2{
	{-1.0, -0.5}, // left-bottom
	{1.0, -0.5},  // right-bottom
	{-1.0, 0.5},  // left-top
	{1.0, 0.5},   // right-top
}

// AtlasLayout describes a sprite sheet of Columns x Rows equally sized frames,
// read left to right, top to bottom.
type AtlasLayout struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

var DefaultAtlasLayout = AtlasLayout{Columns: 4, Rows: 4}

func (a AtlasLayout) Frames() int {
	if a.Columns < 1 || a.Rows < 1 {
		return 1
	}
	return a.Columns * a.Rows
}

// FrameIndex maps normalized progress to a frame uniformly.
func (a AtlasLayout) FrameIndex(progress float32) int {
	frames := a.Frames()
	p := mgl32.Clamp(progress, 0, 1)
	idx := int(p * float32(frames))
	if idx >= frames {
		idx = frames - 1
	}
	return idx
}

// FrameRect returns the UV rectangle of frame i.
func (a AtlasLayout) FrameRect(i int) (uvMin, uvMax mgl32.Vec2) {
	cols, rows := a.Columns, a.Rows
	if cols < 1 || rows < 1 {
		return mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}
	}
	col := i % cols
	row := i / cols
	w := 1 / float32(cols)
	h := 1 / float32(rows)
	uvMin = mgl32.Vec2{float32(col) * w, float32(row) * h}
	uvMax = uvMin.Add(mgl32.Vec2{w, h})
	return uvMin, uvMax
}

// RaindropDrawParams are the per-frame inputs of the streak renderer.
type RaindropDrawParams struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	DeltaTime  float32
	Length     float32
	Color      mgl32.Vec3
}

// Bytes packs the uniform block.
//
//	struct DrawParams {
//	  view_proj: mat4x4<f32>, // 0
//	  color: vec4<f32>,       // 64
//	  length: f32,            // 80
//	} -> 96 bytes (padded)
func (p RaindropDrawParams) Bytes() []byte {
	buf := make([]byte, RaindropParamsSize)
	putMat4(buf, 0, p.Projection.Mul4(p.View))
	putVec4(buf, 64, p.Color.Vec4(1))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(p.Length))
	return buf
}

// SplashDrawParams are the per-frame inputs of the billboard renderer.
type SplashDrawParams struct {
	Projection  mgl32.Mat4
	View        mgl32.Mat4
	CameraRight mgl32.Vec3
	CameraUp    mgl32.Vec3
	DeltaTime   float32
	Size        float32
	Atlas       AtlasLayout
}

// Bytes packs the uniform block.
//
//	struct SplashParams {
//	  view_proj: mat4x4<f32>,  // 0
//	  camera_right: vec4<f32>, // 64 (w = size)
//	  camera_up: vec4<f32>,    // 80
//	  atlas: vec4<f32>,        // 96 (columns, rows, frames, 0)
//	} -> 112 bytes
func (p SplashDrawParams) Bytes() []byte {
	buf := make([]byte, SplashParamsSize)
	putMat4(buf, 0, p.Projection.Mul4(p.View))
	putVec4(buf, 64, p.CameraRight.Vec4(p.Size))
	putVec4(buf, 80, p.CameraUp.Vec4(0))
	cols, rows := p.Atlas.Columns, p.Atlas.Rows
	if cols < 1 || rows < 1 {
		cols, rows = 1, 1
	}
	putVec4(buf, 96, mgl32.Vec4{float32(cols), float32(rows), float32(cols * rows), 0})
	return buf
}

func putMat4(buf []byte, offset int, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
	}
}

// StreakEndpoints returns the head (current position) and tail of a raindrop streak,
// the tail trailing along -velocity.
func StreakEndpoints(d Raindrop, length float32) (head, tail mgl32.Vec3) {
	head = d.Position.Vec3()
	dir := d.Velocity.Vec3()
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, -1, 0}
	} else {
		dir = dir.Normalize()
	}
	tail = head.Sub(dir.Mul(length))
	return head, tail
}

// SplashCorners expands a splash into its four camera-facing corners (SplashQuad order)
// and the matching UVs inside the atlas frame for its current progress.
func SplashCorners(s Splash, right, up mgl32.Vec3, size float32, atlas AtlasLayout) (corners [4]mgl32.Vec3, uvs [4]mgl32.Vec2) {
	center := s.Position.Vec3()
	uvMin, uvMax := atlas.FrameRect(atlas.FrameIndex(s.Progress()))
	span := uvMax.Sub(uvMin)
	for i, q := range SplashQuad {
		corners[i] = center.
			Add(right.Mul(q.X() * size)).
			Add(up.Mul((q.Y() + 0.5) * size))
		local := mgl32.Vec2{(q.X() + 1) * 0.5, 0.5 - q.Y()}
		uvs[i] = mgl32.Vec2{uvMin.X() + span.X()*local.X(), uvMin.Y() + span.Y()*local.Y()}
	}
	return corners, uvs
}
