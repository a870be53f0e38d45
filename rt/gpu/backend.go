// Package gpu runs the rain pipeline on a WebGPU device.
package gpu

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/shaders"
	"github.com/google/uuid"
)

// Backend owns the pipelines and per-frame uniforms. Particle storage is created per
// allocation, see Allocate.
type Backend struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Format wgpu.TextureFormat
	Label  string

	UpdatePipeline   *wgpu.ComputePipeline
	RaindropPipeline *wgpu.RenderPipeline
	SplashPipeline   *wgpu.RenderPipeline

	UpdateParamsBuf   *wgpu.Buffer
	RaindropParamsBuf *wgpu.Buffer
	SplashParamsBuf   *wgpu.Buffer
	QuadBuf           *wgpu.Buffer

	AtlasTexture *wgpu.Texture
	AtlasView    *wgpu.TextureView
	AtlasSampler *wgpu.Sampler

	RaindropBindGroup *wgpu.BindGroup
	SplashBindGroup   *wgpu.BindGroup

	frame       frameState
	allocations int
}

// NewBackend compiles the rain shaders for targets of the given format and uploads
// atlas as the splash sprite sheet. An empty label gets a random one.
func NewBackend(device *wgpu.Device, format wgpu.TextureFormat, atlas *image.RGBA, label string) (*Backend, error) {
	if label == "" {
		label = "rain-" + uuid.NewString()
	}
	b := &Backend{
		Device: device,
		Queue:  device.GetQueue(),
		Format: format,
		Label:  label,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"update pipeline", b.createUpdatePipeline},
		{"raindrop pipeline", b.createRaindropPipeline},
		{"splash pipeline", b.createSplashPipeline},
		{"uniforms", b.createUniforms},
		{"atlas", func() error { return b.createAtlas(atlas) }},
		{"bind groups", b.createDrawBindGroups},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			b.Release()
			return nil, fmt.Errorf("rain gpu %s: %w", s.name, err)
		}
	}
	return b, nil
}

func (b *Backend) label(name string) string {
	return b.Label + "." + name
}

func (b *Backend) createUpdatePipeline() error {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          b.label("UpdateShader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.UpdateWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create update shader module: %w", err)
	}
	defer module.Release()

	b.UpdatePipeline, err = b.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: b.label("UpdatePipeline"),
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: shaders.UpdateEntry,
		},
	})
	return err
}

func alphaBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
}

// particleAttributes reads one 32-byte particle as two vec4 instance attributes.
func particleAttributes(first uint32) wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: core.ParticleStride,
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: first},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: first + 1},
		},
	}
}

func (b *Backend) createRaindropPipeline() error {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          b.label("RaindropShader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RaindropWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create raindrop shader module: %w", err)
	}
	defer module.Release()

	b.RaindropPipeline, err = b.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: b.label("RaindropPipeline"),
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shaders.VertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{particleAttributes(0)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shaders.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend:     alphaBlend(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (b *Backend) createSplashPipeline() error {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          b.label("SplashShader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SplashWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create splash shader module: %w", err)
	}
	defer module.Release()

	b.SplashPipeline, err = b.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: b.label("SplashPipeline"),
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shaders.VertexEntry,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 8,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					},
				},
				particleAttributes(1),
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shaders.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend:     alphaBlend(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (b *Backend) createUniforms() error {
	uniforms := []struct {
		buf  **wgpu.Buffer
		name string
		size uint64
	}{
		{&b.UpdateParamsBuf, "UpdateParams", core.UpdateParamsSize},
		{&b.RaindropParamsBuf, "RaindropParams", core.RaindropParamsSize},
		{&b.SplashParamsBuf, "SplashParams", core.SplashParamsSize},
	}
	for _, u := range uniforms {
		buf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: b.label(u.name),
			Size:  u.size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		*u.buf = buf
	}

	quad := make([]byte, 0, len(core.SplashQuad)*8)
	for _, v := range core.SplashQuad {
		quad = appendFloat32(quad, v.X())
		quad = appendFloat32(quad, v.Y())
	}
	var err error
	b.QuadBuf, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label("SplashQuad"),
		Size:  uint64(len(quad)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.Queue.WriteBuffer(b.QuadBuf, 0, quad)
	return nil
}

func (b *Backend) createAtlas(img *image.RGBA) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("atlas image is empty")
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tex, err := b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         b.label("SplashAtlas"),
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	b.AtlasTexture = tex

	pix := img.Pix
	if img.Stride != 4*w {
		pix = make([]byte, 0, 4*w*h)
		for y := 0; y < h; y++ {
			off := y * img.Stride
			pix = append(pix, img.Pix[off:off+4*w]...)
		}
	}
	b.Queue.WriteTexture(tex.AsImageCopy(), pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(4 * w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})

	b.AtlasView, err = tex.CreateView(nil)
	if err != nil {
		return err
	}
	b.AtlasSampler, err = b.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	return err
}

func (b *Backend) createDrawBindGroups() error {
	var err error
	b.RaindropBindGroup, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.label("RaindropBG"),
		Layout: b.RaindropPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.RaindropParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return err
	}
	b.SplashBindGroup, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.label("SplashBG"),
		Layout: b.SplashPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.SplashParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: b.AtlasView},
			{Binding: 2, Sampler: b.AtlasSampler},
		},
	})
	return err
}

// Release frees everything NewBackend created. Buffers returned by Allocate are
// released separately.
func (b *Backend) Release() {
	b.frame.abandon()
	for _, bg := range []*wgpu.BindGroup{b.RaindropBindGroup, b.SplashBindGroup} {
		if bg != nil {
			bg.Release()
		}
	}
	for _, buf := range []*wgpu.Buffer{b.UpdateParamsBuf, b.RaindropParamsBuf, b.SplashParamsBuf, b.QuadBuf} {
		if buf != nil {
			buf.Release()
		}
	}
	if b.AtlasSampler != nil {
		b.AtlasSampler.Release()
	}
	if b.AtlasView != nil {
		b.AtlasView.Release()
	}
	if b.AtlasTexture != nil {
		b.AtlasTexture.Release()
	}
	if b.RaindropPipeline != nil {
		b.RaindropPipeline.Release()
	}
	if b.SplashPipeline != nil {
		b.SplashPipeline.Release()
	}
	if b.UpdatePipeline != nil {
		b.UpdatePipeline.Release()
	}
	*b = Backend{Device: b.Device, Queue: b.Queue, Format: b.Format, Label: b.Label}
}
