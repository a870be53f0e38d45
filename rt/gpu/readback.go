package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
)

// ReadBack copies both storage buffers into drops and splashes. Commands recorded so
// far are submitted and the call blocks until the device has executed them; recording
// then continues on a fresh encoder.
func (b *Backend) ReadBack(pb particles.Buffers, drops []core.Raindrop, splashes []core.Splash) error {
	buf, err := buffersOf(pb)
	if err != nil {
		return err
	}
	size := buf.Size()
	if size == 0 {
		return nil
	}

	dropStaging, err := b.createStaging("DropReadback", size)
	if err != nil {
		return err
	}
	defer dropStaging.Release()
	splashStaging, err := b.createStaging("SplashReadback", size)
	if err != nil {
		return err
	}
	defer splashStaging.Release()

	if err := b.ensureEncoder(); err != nil {
		return err
	}
	if err := b.endCompute(); err != nil {
		return err
	}
	if err := b.endRender(); err != nil {
		return err
	}
	b.frame.encoder.CopyBufferToBuffer(buf.Drops, 0, dropStaging, 0, size)
	b.frame.encoder.CopyBufferToBuffer(buf.Splashes, 0, splashStaging, 0, size)
	if err := b.submit(); err != nil {
		return err
	}

	var dropStatus, splashStatus wgpu.BufferMapAsyncStatus
	dropStaging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		dropStatus = status
	})
	splashStaging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		splashStatus = status
	})
	b.Device.Poll(true, nil)

	if dropStatus != wgpu.BufferMapAsyncStatusSuccess || splashStatus != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("rain gpu: readback map failed (drops %v, splashes %v)", dropStatus, splashStatus)
	}
	core.DecodeRaindrops(dropStaging.GetMappedRange(0, uint(size)), drops)
	dropStaging.Unmap()
	core.DecodeSplashes(splashStaging.GetMappedRange(0, uint(size)), splashes)
	splashStaging.Unmap()
	return nil
}

func (b *Backend) createStaging(name string, size uint64) (*wgpu.Buffer, error) {
	buf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label(name),
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return buf, nil
}
