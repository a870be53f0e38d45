package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
)

// ErrBarrierMissing is returned when a draw is recorded while the update pass is open.
var ErrBarrierMissing = errors.New("draw issued before barrier following dispatch")

var errNoTarget = errors.New("no render target, call BeginFrame first")

// frameState is the command encoder of the frame being recorded and its open pass.
type frameState struct {
	encoder *wgpu.CommandEncoder
	compute *wgpu.ComputePassEncoder
	render  *wgpu.RenderPassEncoder

	target *wgpu.TextureView
	clear  *wgpu.Color
	loaded bool

	// uniforms already written for commands in the current encoder
	written map[*wgpu.Buffer]bool
}

func (f *frameState) abandon() {
	if f.encoder != nil {
		f.encoder.Release()
	}
	*f = frameState{}
}

// BeginFrame starts recording a frame that draws into target. With a non-nil clear the
// first render pass clears the target, otherwise it loads the existing contents.
func (b *Backend) BeginFrame(target *wgpu.TextureView, clear *wgpu.Color) error {
	if b.frame.target != nil {
		return fmt.Errorf("rain gpu: frame already in progress")
	}
	if err := b.ensureEncoder(); err != nil {
		return err
	}
	b.frame.target = target
	b.frame.clear = clear
	return nil
}

// EndFrame closes any open pass and submits the recorded commands.
func (b *Backend) EndFrame() error {
	var err error
	if b.frame.encoder != nil {
		err = b.submit()
	}
	b.frame = frameState{}
	return err
}

func (b *Backend) ensureEncoder() error {
	if b.frame.encoder != nil {
		return nil
	}
	encoder, err := b.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: b.label("Frame")})
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	b.frame.encoder = encoder
	return nil
}

func (b *Backend) endCompute() error {
	if b.frame.compute == nil {
		return nil
	}
	err := b.frame.compute.End()
	b.frame.compute = nil
	return err
}

func (b *Backend) endRender() error {
	if b.frame.render == nil {
		return nil
	}
	err := b.frame.render.End()
	b.frame.render = nil
	return err
}

// submit finishes the current encoder and hands it to the queue. The frame target is
// kept so recording can resume on a fresh encoder.
func (b *Backend) submit() error {
	if err := b.endCompute(); err != nil {
		return fmt.Errorf("rain update pass: %w", err)
	}
	if err := b.endRender(); err != nil {
		return fmt.Errorf("rain render pass: %w", err)
	}
	cmd, err := b.frame.encoder.Finish(nil)
	b.frame.encoder.Release()
	b.frame.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to finish rain commands: %w", err)
	}
	b.Queue.Submit(cmd)
	cmd.Release()
	b.frame.written = nil
	return nil
}

// writeUniform uploads data for the next recorded command. Queue writes land before the
// whole submission, so a second write to the same buffer first flushes what was
// recorded against the previous contents.
func (b *Backend) writeUniform(buf *wgpu.Buffer, data []byte) error {
	if b.frame.written[buf] {
		if err := b.submit(); err != nil {
			return err
		}
		if err := b.ensureEncoder(); err != nil {
			return err
		}
	}
	if b.frame.written == nil {
		b.frame.written = make(map[*wgpu.Buffer]bool)
	}
	b.frame.written[buf] = true
	b.Queue.WriteBuffer(buf, 0, data)
	return nil
}

// Dispatch records the update kernel over every slot of pb.
func (b *Backend) Dispatch(pb particles.Buffers, p core.UpdateParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	buf, err := buffersOf(pb)
	if err != nil {
		return err
	}
	if err := b.ensureEncoder(); err != nil {
		return err
	}
	if err := b.endRender(); err != nil {
		return err
	}

	if uint32(buf.Len()) < p.Count {
		p.Count = uint32(buf.Len())
	}
	if err := b.writeUniform(b.UpdateParamsBuf, p.Bytes()); err != nil {
		return err
	}

	if b.frame.compute == nil {
		b.frame.compute = b.frame.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: b.label("UpdatePass")})
	}
	pass := b.frame.compute
	pass.SetPipeline(b.UpdatePipeline)
	pass.SetBindGroup(0, buf.BindGroup, nil)
	pass.DispatchWorkgroups(core.Workgroups(int(p.Count)), 1, 1)
	return nil
}

// Barrier ends the update pass. Storage writes of one pass are visible to every
// later pass in the same submission.
func (b *Backend) Barrier(pb particles.Buffers) error {
	if err := b.endCompute(); err != nil {
		return fmt.Errorf("rain update pass: %w", err)
	}
	return nil
}

func (b *Backend) drawReady() error {
	if b.frame.compute != nil {
		return ErrBarrierMissing
	}
	if b.frame.target == nil {
		return errNoTarget
	}
	return nil
}

func (b *Backend) renderPass() (*wgpu.RenderPassEncoder, error) {
	if err := b.drawReady(); err != nil {
		return nil, err
	}
	if b.frame.render != nil {
		return b.frame.render, nil
	}
	if err := b.ensureEncoder(); err != nil {
		return nil, err
	}

	attachment := wgpu.RenderPassColorAttachment{
		View:    b.frame.target,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if b.frame.clear != nil && !b.frame.loaded {
		attachment.LoadOp = wgpu.LoadOpClear
		attachment.ClearValue = *b.frame.clear
	}
	b.frame.loaded = true
	b.frame.render = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            b.label("DrawPass"),
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	return b.frame.render, nil
}

// DrawRaindrops records one line per drop, instanced over the drop buffer.
func (b *Backend) DrawRaindrops(pb particles.Buffers, p core.RaindropDrawParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	buf, err := buffersOf(pb)
	if err != nil {
		return err
	}
	if err := b.drawReady(); err != nil {
		return err
	}
	if err := b.writeUniform(b.RaindropParamsBuf, p.Bytes()); err != nil {
		return err
	}
	pass, err := b.renderPass()
	if err != nil {
		return err
	}

	pass.SetPipeline(b.RaindropPipeline)
	pass.SetBindGroup(0, b.RaindropBindGroup, nil)
	pass.SetVertexBuffer(0, buf.Drops, 0, buf.Size())
	pass.Draw(core.RaindropVertices, uint32(buf.Len()), 0, 0)
	return nil
}

// DrawSplashes records one billboard per splash slot. The vertex stage collapses
// inactive slots.
func (b *Backend) DrawSplashes(pb particles.Buffers, p core.SplashDrawParams) error {
	if pb == nil || pb.Len() == 0 {
		return nil
	}
	buf, err := buffersOf(pb)
	if err != nil {
		return err
	}
	if err := b.drawReady(); err != nil {
		return err
	}
	if err := b.writeUniform(b.SplashParamsBuf, p.Bytes()); err != nil {
		return err
	}
	pass, err := b.renderPass()
	if err != nil {
		return err
	}

	pass.SetPipeline(b.SplashPipeline)
	pass.SetBindGroup(0, b.SplashBindGroup, nil)
	pass.SetVertexBuffer(0, b.QuadBuf, 0, b.QuadBuf.GetSize())
	pass.SetVertexBuffer(1, buf.Splashes, 0, buf.Size())
	pass.Draw(uint32(len(core.SplashQuad)), uint32(buf.Len()), 0, 0)
	return nil
}
