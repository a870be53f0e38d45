package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ParticleStride is the byte size of one Raindrop or Splash element in a storage buffer.
const ParticleStride = 32

// Raindrop matches WGSL layout in rain_update.wgsl / raindrop.wgsl
// struct Raindrop { position: vec4<f32>, velocity: vec4<f32> }
type Raindrop struct {
	Position mgl32.Vec4
	Velocity mgl32.Vec4
}

// Splash matches WGSL layout in rain_update.wgsl / splash.wgsl
// struct Splash { position: vec4<f32>, lifetime: vec4<f32> }
// lifetime.x = total, lifetime.y = remaining.
type Splash struct {
	Position mgl32.Vec4
	Lifetime mgl32.Vec4
}

// InactiveSplash is the value every splash slot starts with.
func InactiveSplash() Splash {
	return Splash{
		Position: mgl32.Vec4{0, 0, 0, 1},
		Lifetime: mgl32.Vec4{0, -1, 0, 0},
	}
}

func (s Splash) Total() float32     { return s.Lifetime[0] }
func (s Splash) Remaining() float32 { return s.Lifetime[1] }

// Active reports whether the slot should be drawn.
func (s Splash) Active() bool { return s.Lifetime[1] > 0 }

// Progress is 0 at spawn and approaches 1 as the splash expires.
func (s Splash) Progress() float32 {
	total := s.Lifetime[0]
	if total <= 0 {
		return 1
	}
	p := 1 - s.Lifetime[1]/total
	return mgl32.Clamp(p, 0, 1)
}

func putVec4(buf []byte, offset int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v[i]))
	}
}

func getVec4(buf []byte, offset int) mgl32.Vec4 {
	var v mgl32.Vec4
	for i := 0; i < 4; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[offset+i*4:]))
	}
	return v
}

// EncodeRaindrops packs drops into storage-buffer bytes.
func EncodeRaindrops(drops []Raindrop) []byte {
	buf := make([]byte, len(drops)*ParticleStride)
	for i, d := range drops {
		off := i * ParticleStride
		putVec4(buf, off, d.Position)
		putVec4(buf, off+16, d.Velocity)
	}
	return buf
}

// DecodeRaindrops unpacks storage-buffer bytes into dst. It decodes min(len(dst), len(buf)/32) elements.
func DecodeRaindrops(buf []byte, dst []Raindrop) int {
	n := len(buf) / ParticleStride
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		off := i * ParticleStride
		dst[i].Position = getVec4(buf, off)
		dst[i].Velocity = getVec4(buf, off+16)
	}
	return n
}

func EncodeSplashes(splashes []Splash) []byte {
	buf := make([]byte, len(splashes)*ParticleStride)
	for i, s := range splashes {
		off := i * ParticleStride
		putVec4(buf, off, s.Position)
		putVec4(buf, off+16, s.Lifetime)
	}
	return buf
}

func DecodeSplashes(buf []byte, dst []Splash) int {
	n := len(buf) / ParticleStride
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		off := i * ParticleStride
		dst[i].Position = getVec4(buf, off)
		dst[i].Lifetime = getVec4(buf, off+16)
	}
	return n
}
