package cpu

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/gekko3d/rainfx/rt/particles"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(count int) core.UpdateParams {
	return core.UpdateParams{
		Emitter: core.Emitter{
			Position: mgl32.Vec3{0, 50, 0},
			Radius:   10,
			MinSpeed: 8,
			MaxSpeed: 20,
			SeaLevel: 0,
		},
		DeltaTime: 0.25,
		Lifetime:  core.DefaultSplashLifetime,
		Count:     uint32(count),
		FrameSeed: 3,
	}
}

func seededArrays(n int, e core.Emitter) ([]core.Raindrop, []core.Splash) {
	r := rand.New(rand.NewSource(11))
	drops := make([]core.Raindrop, n)
	splashes := make([]core.Splash, n)
	for i := range drops {
		drops[i] = core.NewRaindrop(r, e)
		splashes[i] = core.InactiveSplash()
	}
	return drops, splashes
}

func TestDispatchMatchesSerialKernel(t *testing.T) {
	const n = 1000
	p := testParams(n)
	drops, splashes := seededArrays(n, p.Emitter)

	be := NewBackend()
	be.MaxWorkers = 4
	bufs, err := be.Allocate(drops, splashes)
	require.NoError(t, err)

	for frame := 0; frame < 30; frame++ {
		p.FrameSeed = core.FrameSeed(1, uint64(frame))
		require.NoError(t, be.Dispatch(bufs, p))
		require.NoError(t, be.Barrier(bufs))
		for i := range drops {
			core.StepRaindrop(uint32(i), &drops[i], &splashes[i], p)
		}
	}

	got := bufs.(*Buffers)
	assert.Equal(t, drops, got.Drops)
	assert.Equal(t, splashes, got.Splashes)
	assert.Equal(t, 30, be.LastFrame().Dispatches)
	assert.Equal(t, 30*int(core.Workgroups(n)), be.LastFrame().Workgroups)
}

func TestAllocateCopiesInitialState(t *testing.T) {
	p := testParams(4)
	drops, splashes := seededArrays(4, p.Emitter)
	be := NewBackend()
	bufs, err := be.Allocate(drops, splashes)
	require.NoError(t, err)

	drops[0].Position = mgl32.Vec4{}
	assert.NotEqual(t, drops[0], bufs.(*Buffers).Drops[0])
}

func TestAllocateRejectsMismatch(t *testing.T) {
	be := NewBackend()
	_, err := be.Allocate(make([]core.Raindrop, 3), make([]core.Splash, 2))
	assert.ErrorIs(t, err, particles.ErrCapacityMismatch)
}

func TestDrawWithoutBarrierFails(t *testing.T) {
	p := testParams(128)
	drops, splashes := seededArrays(128, p.Emitter)
	be := NewBackend()
	bufs, err := be.Allocate(drops, splashes)
	require.NoError(t, err)

	require.NoError(t, be.Dispatch(bufs, p))
	err = be.DrawRaindrops(bufs, core.RaindropDrawParams{Projection: mgl32.Ident4(), View: mgl32.Ident4()})
	assert.ErrorIs(t, err, ErrBarrierMissing)

	require.NoError(t, be.Barrier(bufs))
	assert.NoError(t, be.DrawRaindrops(bufs, core.RaindropDrawParams{Projection: mgl32.Ident4(), View: mgl32.Ident4()}))
}

func TestEmptyBuffersAreNoOps(t *testing.T) {
	be := NewBackend()
	p := testParams(0)
	assert.NoError(t, be.Dispatch(nil, p))
	assert.NoError(t, be.Dispatch(&Buffers{}, p))
	assert.NoError(t, be.DrawRaindrops(nil, core.RaindropDrawParams{}))
	assert.NoError(t, be.DrawSplashes(&Buffers{}, core.SplashDrawParams{}))
	assert.Zero(t, be.LastFrame().Dispatches)
	assert.Empty(t, be.LastFrame().Draws)
}

func TestDrawRaindropsOneInstancePerDrop(t *testing.T) {
	be := NewBackend()
	bufs := &Buffers{
		Drops: []core.Raindrop{
			{Position: mgl32.Vec4{0, 5, 0, 1}, Velocity: mgl32.Vec4{0, -10, 0, 0}},
			{Position: mgl32.Vec4{1, 7, 1, 1}, Velocity: mgl32.Vec4{0, -4, 0, 0}},
		},
		Splashes: []core.Splash{core.InactiveSplash(), core.InactiveSplash()},
	}
	err := be.DrawRaindrops(bufs, core.RaindropDrawParams{
		Projection: mgl32.Ident4(),
		View:       mgl32.Ident4(),
		Length:     2,
		Color:      mgl32.Vec3{0.5, 0.6, 0.7},
	})
	require.NoError(t, err)

	f := be.LastFrame()
	require.Len(t, f.Draws, 1)
	assert.Equal(t, DrawCall{Kind: DrawKindRaindrops, Vertices: 2, Instances: 2}, f.Draws[0])
	require.Len(t, f.Streaks, 2)
	assert.InDelta(t, 7, f.Streaks[0].Tail.Y(), 1e-6)
	assert.Equal(t, mgl32.Vec4{0, 5, 0, 1}, f.Streaks[0].ClipHead)
	assert.Equal(t, mgl32.Vec4{0.5, 0.6, 0.7, 1}, f.Streaks[1].Color)
}

func TestDrawSplashesSkipsInactiveSlots(t *testing.T) {
	be := NewBackend()
	bufs := &Buffers{
		Drops: make([]core.Raindrop, 3),
		Splashes: []core.Splash{
			core.InactiveSplash(),
			{Position: mgl32.Vec4{2, 0, 2, 1}, Lifetime: mgl32.Vec4{4, 1, 0, 0}},
			{Position: mgl32.Vec4{5, 0, 5, 1}, Lifetime: mgl32.Vec4{4, 0, 0, 0}},
		},
	}
	err := be.DrawSplashes(bufs, core.SplashDrawParams{
		Projection:  mgl32.Ident4(),
		View:        mgl32.Ident4(),
		CameraRight: mgl32.Vec3{1, 0, 0},
		CameraUp:    mgl32.Vec3{0, 1, 0},
		Size:        1,
		Atlas:       core.AtlasLayout{Columns: 4, Rows: 1},
	})
	require.NoError(t, err)

	f := be.LastFrame()
	require.Len(t, f.Draws, 1)
	assert.Equal(t, 3, f.Draws[0].Instances, "host draws full capacity")
	require.Len(t, f.Sprites, 1)
	assert.Equal(t, 1, f.Sprites[0].Index)
	assert.Equal(t, 3, f.Sprites[0].Frame)
	assert.InDelta(t, 0.25, f.Sprites[0].Alpha, 1e-6)
}

func TestReadBackWaitsForDispatch(t *testing.T) {
	const n = 256
	p := testParams(n)
	drops, splashes := seededArrays(n, p.Emitter)
	be := NewBackend()
	bufs, err := be.Allocate(drops, splashes)
	require.NoError(t, err)

	require.NoError(t, be.Dispatch(bufs, p))
	outDrops := make([]core.Raindrop, n)
	outSplashes := make([]core.Splash, n)
	require.NoError(t, be.ReadBack(bufs, outDrops, outSplashes))

	for i := range drops {
		core.StepRaindrop(uint32(i), &drops[i], &splashes[i], p)
	}
	assert.Equal(t, drops, outDrops)
	assert.Equal(t, splashes, outSplashes)
}
