package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WorkgroupSize must match @workgroup_size in rain_update.wgsl.
const WorkgroupSize = 64

// UpdateParamsSize is the uniform block size of RainParams.
const UpdateParamsSize = 48

// UpdateParams is everything one compute dispatch needs.
type UpdateParams struct {
	Emitter   Emitter
	DeltaTime float32
	Lifetime  LifetimeRange
	Count     uint32
	FrameSeed uint32
}

// Workgroups returns ceil(count / WorkgroupSize).
func Workgroups(count int) uint32 {
	if count <= 0 {
		return 0
	}
	return uint32((count + WorkgroupSize - 1) / WorkgroupSize)
}

// Bytes packs the params for the uniform buffer.
//
//	struct RainParams {
//	  emitter: vec4<f32>,   // 0  xyz position, w radius
//	  sea_level: f32,       // 16
//	  delta_time: f32,      // 20
//	  min_speed: f32,       // 24
//	  max_speed: f32,       // 28
//	  min_lifetime: f32,    // 32
//	  max_lifetime: f32,    // 36
//	  count: u32,           // 40
//	  frame_seed: u32,      // 44
//	} -> 48 bytes
func (p UpdateParams) Bytes() []byte {
	buf := make([]byte, UpdateParamsSize)
	e := p.Emitter
	putVec4(buf, 0, e.Position.Vec4(e.Radius))
	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	putF32(16, e.SeaLevel)
	putF32(20, p.DeltaTime)
	putF32(24, e.MinSpeed)
	putF32(28, e.MaxSpeed)
	putF32(32, p.Lifetime.Min)
	putF32(36, p.Lifetime.Max)
	binary.LittleEndian.PutUint32(buf[40:], p.Count)
	binary.LittleEndian.PutUint32(buf[44:], p.FrameSeed)
	return buf
}

// StepRaindrop advances slot i by one frame. It touches only drop i and splash i,
// so invocations may run in any order or concurrently.
func StepRaindrop(i uint32, d *Raindrop, s *Splash, p UpdateParams) {
	dt := p.DeltaTime
	d.Position = d.Position.Add(mgl32.Vec4{d.Velocity[0] * dt, d.Velocity[1] * dt, d.Velocity[2] * dt, 0})

	if d.Position[1] <= p.Emitter.SeaLevel {
		rng := NewHashRand(i, p.FrameSeed)
		total := SampleLifetime(rng, p.Lifetime)

		s.Position = mgl32.Vec4{d.Position[0], p.Emitter.SeaLevel, d.Position[2], 1}
		s.Lifetime = mgl32.Vec4{total, total, 0, 0}

		d.Position = SampleDropPosition(rng, p.Emitter)
		d.Velocity = SampleDropVelocity(rng, p.Emitter)
		return
	}

	if s.Lifetime[1] > 0 {
		s.Lifetime[1] -= dt
	}
}
