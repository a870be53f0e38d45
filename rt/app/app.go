package app

import (
	"fmt"
	"image"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/rainfx"
	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultDropCount is what '+' starts from when the rain is disabled.
	DefaultDropCount = 1024
	MaxDropCount     = 1 << 22

	// rotateRate is the arrow-key turn rate before camera sensitivity, per second.
	rotateRate = 900
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Backend  *gpu.Backend
	Rain     *rainfx.System
	Settings rainfx.Config
	Atlas    *image.RGBA

	Camera   *core.CameraState
	Clock    *rainfx.Clock
	Profiler *Profiler
	Logger   rainfx.Logger

	ClearColor wgpu.Color

	held map[glfw.Key]bool

	LastRenderTime time.Time
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

func NewApp(window *glfw.Window, settings rainfx.Config, atlas *image.RGBA, logger rainfx.Logger) *App {
	if logger == nil {
		logger = rainfx.NewNopLogger()
	}
	return &App{
		Window:     window,
		Settings:   settings,
		Atlas:      atlas,
		Camera:     core.NewCameraState(),
		Clock:      rainfx.NewClock(time.Now()),
		Profiler:   NewProfiler(),
		Logger:     logger,
		ClearColor: wgpu.Color{R: 0.02, G: 0.03, B: 0.05, A: 1},
		held:       make(map[glfw.Key]bool),
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	surface := a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))
	a.Surface = surface

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, a.Device, a.Config)
	a.updateAspect(width, height)

	a.Backend, err = gpu.NewBackend(a.Device, format, a.Atlas, "")
	if err != nil {
		return err
	}

	opts := []rainfx.Option{rainfx.WithLogger(a.Logger)}
	if a.Settings.Debug {
		opts = append(opts, rainfx.WithDiagnostics(rainfx.LogDiagnostics(a.Logger)))
	}
	a.Rain, err = rainfx.NewSystem(a.Backend, a.Settings, opts...)
	if err != nil {
		return err
	}
	a.Camera.LookAtRain(a.Rain.Emitter())
	a.Logger.Infof("rain ready: %d drops, surface %dx%d %v", a.Rain.Len(), width, height, format)
	return nil
}

func (a *App) updateAspect(w, h int) {
	if w > 0 && h > 0 {
		a.Camera.Aspect = float32(w) / float32(h)
	}
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		a.updateAspect(w, h)
	}
}

// HandleKey tracks held movement keys and applies one-shot controls on press.
// Key repeats are ignored.
func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	switch action {
	case glfw.Release:
		delete(a.held, key)
		return
	case glfw.Repeat:
		return
	}
	a.held[key] = true

	var err error
	switch key {
	case glfw.KeyEqual, glfw.KeyKPAdd:
		n := a.Settings.DropCount * 2
		if n == 0 {
			n = DefaultDropCount
		}
		err = a.setDropCount(min(n, MaxDropCount))
	case glfw.KeyMinus, glfw.KeyKPSubtract:
		err = a.setDropCount(a.Settings.DropCount / 2)
	case glfw.KeyLeftBracket:
		err = a.setSeaLevel(a.Settings.SeaLevel - 1)
	case glfw.KeyRightBracket:
		err = a.setSeaLevel(a.Settings.SeaLevel + 1)
	case glfw.KeyR:
		a.Camera.LookAtRain(a.Rain.Emitter())
	case glfw.KeyP:
		a.Logger.Infof("\n%s", a.Profiler.GetStatsString())
	case glfw.KeyEscape:
		if a.Window != nil {
			a.Window.SetShouldClose(true)
		}
	}
	if err != nil {
		a.Logger.Warnf("%v", err)
	}
}

func (a *App) setDropCount(n int) error {
	cfg := a.Settings
	cfg.DropCount = n
	if err := a.Rain.Reconfigure(cfg); err != nil {
		return fmt.Errorf("drop count %d: %w", n, err)
	}
	a.Settings = a.Rain.Config()
	return nil
}

func (a *App) setSeaLevel(level float32) error {
	cfg := a.Settings
	cfg.SeaLevel = level
	if err := a.Rain.Reconfigure(cfg); err != nil {
		return fmt.Errorf("sea level %g: %w", level, err)
	}
	a.Settings = a.Rain.Config()
	return nil
}

// movement returns the held direction as (right, up, forward).
func (a *App) movement() mgl32.Vec3 {
	var m mgl32.Vec3
	axis := func(pos, neg glfw.Key) float32 {
		var v float32
		if a.held[pos] {
			v++
		}
		if a.held[neg] {
			v--
		}
		return v
	}
	m[0] = axis(glfw.KeyD, glfw.KeyA)
	m[1] = axis(glfw.KeySpace, glfw.KeyLeftControl)
	m[2] = axis(glfw.KeyW, glfw.KeyS)
	return m
}

// Step advances input and the clock by dt seconds and returns the rain frame input.
func (a *App) Step(dt float32) rainfx.FrameInput {
	if m := a.movement(); m.Len() > 0 {
		a.Camera.Move(m, dt)
	}
	turn := func(pos, neg glfw.Key) float32 {
		var v float32
		if a.held[pos] {
			v++
		}
		if a.held[neg] {
			v--
		}
		return v * rotateRate * dt
	}
	if dx, dy := turn(glfw.KeyRight, glfw.KeyLeft), turn(glfw.KeyUp, glfw.KeyDown); dx != 0 || dy != 0 {
		a.Camera.Rotate(dx, dy)
	}

	return rainfx.FrameInput{
		DeltaTime:   dt,
		Projection:  a.Camera.GetProjectionMatrix(),
		View:        a.Camera.GetViewMatrix(),
		CameraRight: a.Camera.GetRight(),
		CameraUp:    a.Camera.GetUp(),
	}
}

func (a *App) Update() rainfx.FrameInput {
	dt := a.Clock.Tick(time.Now())
	return a.Step(dt)
}

func (a *App) Render(in rainfx.FrameInput) {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Logger.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	if err := a.Backend.BeginFrame(view, &a.ClearColor); err != nil {
		a.Logger.Errorf("%v", err)
		return
	}
	err = a.Profiler.Scope("rain", func() error { return a.Rain.Frame(in) })
	if err != nil {
		a.Logger.Errorf("%v", err)
	}
	err = a.Profiler.Scope("submit", a.Backend.EndFrame)
	if err != nil {
		a.Logger.Errorf("%v", err)
		return
	}
	a.Surface.Present()

	a.Profiler.SetCount("drops", a.Rain.Len())
	a.Profiler.SetCount("frame", int(a.Rain.Frames()))

	now := time.Now()
	if !a.LastRenderTime.IsZero() {
		a.FrameCount++
		a.FPSTime += now.Sub(a.LastRenderTime).Seconds()
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.Profiler.SetCount("fps", int(a.FPS))
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.LastRenderTime = now
}

// Release frees the rain buffers and every GPU object Init created.
func (a *App) Release() {
	if a.Rain != nil {
		a.Rain.ClearRain()
	}
	if a.Backend != nil {
		a.Backend.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}
