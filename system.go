package rainfx

import (
	"fmt"
	"math/rand"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Backend executes the update kernel and the two instanced draws over buffers it allocated.
type Backend interface {
	particles.Allocator
	Dispatch(b particles.Buffers, p core.UpdateParams) error
	Barrier(b particles.Buffers) error
	DrawRaindrops(b particles.Buffers, p core.RaindropDrawParams) error
	DrawSplashes(b particles.Buffers, p core.SplashDrawParams) error
}

// DiagnosticHook receives the particle state after the barrier of each frame.
// The slices are only valid for the duration of the call.
type DiagnosticHook func(frame uint64, drops []core.Raindrop, splashes []core.Splash)

// FrameInput is what the render loop hands the rain system every frame.
type FrameInput struct {
	DeltaTime   float32
	Projection  mgl32.Mat4
	View        mgl32.Mat4
	CameraRight mgl32.Vec3
	CameraUp    mgl32.Vec3
}

type Option func(*System)

func WithLogger(l Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand replaces the initialization generator. newRand is called once per
// InitializeRain so a seeded factory reproduces the same distribution every time.
func WithRand(newRand func() core.RandSource) Option {
	return func(s *System) { s.newRand = newRand }
}

func WithDiagnostics(hook DiagnosticHook) Option {
	return func(s *System) { s.hook = hook }
}

func WithID(id uuid.UUID) Option {
	return func(s *System) { s.id = id }
}

// System sequences the rain pipeline: update, barrier, then raindrop and splash draws.
// Every instance owns its store; nothing is shared between instances.
type System struct {
	id      uuid.UUID
	backend Backend
	store   *particles.Store
	cfg     Config
	logger  Logger
	newRand func() core.RandSource
	hook    DiagnosticHook

	frame          uint64
	warnedNoReader bool
}

// NewSystem validates cfg and allocates cfg.DropCount slots. An allocation failure is
// returned; a zero drop count leaves the system disabled.
func NewSystem(backend Backend, cfg Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &System{
		id:      uuid.New(),
		backend: backend,
		store:   particles.NewStore(),
		cfg:     cfg,
		logger:  NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newRand == nil {
		s.newRand = func() core.RandSource {
			return rand.New(rand.NewSource(s.cfg.Seed))
		}
	}
	if err := s.InitializeRain(cfg.DropCount, cfg.Emitter()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) ID() uuid.UUID         { return s.id }
func (s *System) Config() Config        { return s.cfg }
func (s *System) Len() int              { return s.store.Len() }
func (s *System) Initialized() bool     { return s.store.Initialized() }
func (s *System) Frames() uint64        { return s.frame }
func (s *System) Emitter() core.Emitter { return s.cfg.Emitter() }

// Store exposes the particle store, mainly for diagnostics.
func (s *System) Store() *particles.Store { return s.store }

// InitializeRain discards all particle state and allocates count fresh slots sampled
// from e. count <= 0 leaves the system empty. An invalid emitter is rejected before
// any state is touched.
func (s *System) InitializeRain(count int, e core.Emitter) error {
	cfg := withEmitter(s.cfg, e)
	cfg.DropCount = max(count, 0)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.ClearRain()
	s.cfg = cfg
	s.frame = 0

	if count <= 0 {
		s.logger.Debugf("rain %s disabled", s.id)
		return nil
	}
	if err := s.store.Initialize(count, e, s.newRand(), s.backend); err != nil {
		return fmt.Errorf("initialize rain: %w", err)
	}
	s.logger.Infof("rain %s initialized with %d drops", s.id, count)
	return nil
}

// ClearRain releases every buffer. Calling it on an empty system does nothing.
func (s *System) ClearRain() {
	if s.store.Initialized() {
		s.logger.Debugf("rain %s cleared %d drops", s.id, s.store.Len())
	}
	s.store.Teardown()
}

// Reconfigure applies cfg. A changed drop count triggers a full reset; every other
// parameter takes effect on the next frame.
func (s *System) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DropCount != s.store.Len() {
		s.cfg = cfg
		return s.InitializeRain(cfg.DropCount, cfg.Emitter())
	}
	s.cfg = cfg
	return nil
}

// SetEmitter moves the emission volume. Drops already in flight keep their state and
// respawn from the new volume when they land.
func (s *System) SetEmitter(e core.Emitter) error {
	cfg := withEmitter(s.cfg, e)
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func withEmitter(cfg Config, e core.Emitter) Config {
	cfg.EmitterPos = e.Position
	cfg.EmitterRadius = e.Radius
	cfg.MinSpeed = e.MinSpeed
	cfg.MaxSpeed = e.MaxSpeed
	cfg.SeaLevel = e.SeaLevel
	return cfg
}

// Update dispatches one step of the simulation.
func (s *System) Update(dt float32) error {
	if !s.store.Initialized() {
		return nil
	}
	if dt < 0 {
		dt = 0
	}
	p := core.UpdateParams{
		Emitter:   s.cfg.Emitter(),
		DeltaTime: dt,
		Lifetime:  s.cfg.SplashLifetime,
		Count:     uint32(s.store.Len()),
		FrameSeed: core.FrameSeed(uint32(s.cfg.Seed), s.frame),
	}
	s.frame++
	if err := s.backend.Dispatch(s.store.Buffers(), p); err != nil {
		return fmt.Errorf("dispatch rain update: %w", err)
	}
	return nil
}

// Barrier makes this frame's writes visible to the draws and runs the diagnostic hook.
func (s *System) Barrier() error {
	if !s.store.Initialized() {
		return nil
	}
	if err := s.backend.Barrier(s.store.Buffers()); err != nil {
		return err
	}
	s.runDiagnostics()
	return nil
}

func (s *System) runDiagnostics() {
	if s.hook == nil {
		return
	}
	reader, ok := s.backend.(particles.Reader)
	if !ok {
		if !s.warnedNoReader {
			s.logger.Warnf("rain %s: backend %T cannot read buffers back, diagnostics disabled", s.id, s.backend)
			s.warnedNoReader = true
		}
		return
	}
	if err := s.store.Sync(reader); err != nil {
		s.logger.Errorf("rain %s: readback failed: %v", s.id, err)
		return
	}
	s.hook(s.frame, s.store.Raindrops(), s.store.Splashes())
}

func (s *System) RenderRaindrops(projection, view mgl32.Mat4, dt, length float32, color mgl32.Vec3) error {
	if !s.store.Initialized() {
		return nil
	}
	return s.backend.DrawRaindrops(s.store.Buffers(), core.RaindropDrawParams{
		Projection: projection,
		View:       view,
		DeltaTime:  dt,
		Length:     length,
		Color:      color,
	})
}

func (s *System) RenderSplashes(projection, view mgl32.Mat4, right, up mgl32.Vec3, dt float32) error {
	if !s.store.Initialized() {
		return nil
	}
	return s.backend.DrawSplashes(s.store.Buffers(), core.SplashDrawParams{
		Projection:  projection,
		View:        view,
		CameraRight: right,
		CameraUp:    up,
		DeltaTime:   dt,
		Size:        s.cfg.SplashSize,
		Atlas:       s.cfg.Atlas,
	})
}

// Frame runs update, barrier, then both draws, in that order.
func (s *System) Frame(in FrameInput) error {
	if !s.store.Initialized() {
		return nil
	}
	if err := s.Update(in.DeltaTime); err != nil {
		return err
	}
	if err := s.Barrier(); err != nil {
		return fmt.Errorf("rain barrier: %w", err)
	}
	if err := s.RenderRaindrops(in.Projection, in.View, in.DeltaTime, s.cfg.RaindropLength, s.cfg.RaindropColor); err != nil {
		return fmt.Errorf("draw raindrops: %w", err)
	}
	if err := s.RenderSplashes(in.Projection, in.View, in.CameraRight, in.CameraUp, in.DeltaTime); err != nil {
		return fmt.Errorf("draw splashes: %w", err)
	}
	return nil
}

// LogDiagnostics returns a hook that prints every slot through l at debug level.
func LogDiagnostics(l Logger) DiagnosticHook {
	return func(frame uint64, drops []core.Raindrop, splashes []core.Splash) {
		if !l.DebugEnabled() {
			return
		}
		for i := range drops {
			d, sp := drops[i], splashes[i]
			l.Debugf("frame %d drop %d pos (%.3f, %.3f, %.3f) vel (%.3f, %.3f, %.3f) splash (%.3f, %.3f, %.3f) life %.3f/%.3f",
				frame, i,
				d.Position.X(), d.Position.Y(), d.Position.Z(),
				d.Velocity.X(), d.Velocity.Y(), d.Velocity.Z(),
				sp.Position.X(), sp.Position.Y(), sp.Position.Z(),
				sp.Remaining(), sp.Total())
		}
	}
}
