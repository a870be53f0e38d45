package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
)

var errForeignBuffers = errors.New("buffers were not allocated by the gpu backend")

// Buffers holds the two storage buffers of one allocation and the compute bind group
// that references them.
type Buffers struct {
	Drops     *wgpu.Buffer
	Splashes  *wgpu.Buffer
	BindGroup *wgpu.BindGroup
	count     int
}

func (b *Buffers) Len() int { return b.count }

func (b *Buffers) Size() uint64 { return uint64(b.count) * core.ParticleStride }

func (b *Buffers) Release() {
	if b.BindGroup != nil {
		b.BindGroup.Release()
		b.BindGroup = nil
	}
	if b.Drops != nil {
		b.Drops.Release()
		b.Drops = nil
	}
	if b.Splashes != nil {
		b.Splashes.Release()
		b.Splashes = nil
	}
	b.count = 0
}

// Allocate uploads drops and splashes into storage buffers sized exactly to their
// length. The buffers double as instance vertex buffers for the draws.
func (b *Backend) Allocate(drops []core.Raindrop, splashes []core.Splash) (particles.Buffers, error) {
	if len(drops) != len(splashes) {
		return nil, particles.ErrCapacityMismatch
	}
	if len(drops) == 0 {
		return nil, fmt.Errorf("rain gpu: empty allocation")
	}
	if b.UpdatePipeline == nil {
		return nil, fmt.Errorf("rain gpu: backend released")
	}

	b.allocations++
	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	out := &Buffers{count: len(drops)}

	var err error
	out.Drops, err = b.createStorage(fmt.Sprintf("Raindrops#%d", b.allocations), core.EncodeRaindrops(drops), usage)
	if err != nil {
		return nil, err
	}
	out.Splashes, err = b.createStorage(fmt.Sprintf("Splashes#%d", b.allocations), core.EncodeSplashes(splashes), usage)
	if err != nil {
		out.Release()
		return nil, err
	}

	out.BindGroup, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.label(fmt.Sprintf("UpdateBG#%d", b.allocations)),
		Layout: b.UpdatePipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.UpdateParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: out.Drops, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: out.Splashes, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("failed to create update bind group: %w", err)
	}
	return out, nil
}

func (b *Backend) createStorage(name string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label(name),
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	b.Queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func buffersOf(pb particles.Buffers) (*Buffers, error) {
	b, ok := pb.(*Buffers)
	if !ok || b.Drops == nil || b.Splashes == nil {
		return nil, errForeignBuffers
	}
	return b, nil
}

func appendFloat32(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}
