package core

// Hash is the PCG output hash. random.wgsl implements the same arithmetic,
// so CPU and GPU recycling draw identical streams for a given index and frame seed.
func Hash(x uint32) uint32 {
	state := x*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// HashRand is a per-invocation generator seeded from a slot index and a frame seed.
type HashRand struct {
	state uint32
}

func NewHashRand(index, frameSeed uint32) *HashRand {
	return &HashRand{state: Hash(index ^ Hash(frameSeed))}
}

func (h *HashRand) Uint32() uint32 {
	h.state = Hash(h.state)
	return h.state
}

// Float32 returns a value in [0,1) built from the top 24 bits.
func (h *HashRand) Float32() float32 {
	return float32(h.Uint32()>>8) / 16777216.0
}

// FrameSeed mixes the configured seed with the frame counter.
func FrameSeed(seed uint32, frame uint64) uint32 {
	return Hash(seed ^ uint32(frame) ^ uint32(frame>>32))
}
