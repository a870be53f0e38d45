package app

import (
	"errors"
	"testing"
	"time"

	"github.com/gekko3d/rainfx"
	"github.com/gekko3d/rainfx/rt/cpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *cpu.Backend) {
	t.Helper()
	be := cpu.NewBackend()
	cfg := rainfx.DefaultConfig()
	sys, err := rainfx.NewSystem(be, cfg)
	require.NoError(t, err)
	a := NewApp(nil, cfg, nil, nil)
	a.Rain = sys
	return a, be
}

func press(a *App, key glfw.Key) {
	a.HandleKey(key, glfw.Press)
	a.HandleKey(key, glfw.Release)
}

func TestDropCountKeys(t *testing.T) {
	a, _ := newTestApp(t)
	require.Equal(t, 0, a.Rain.Len())

	press(a, glfw.KeyEqual)
	assert.Equal(t, DefaultDropCount, a.Rain.Len())
	press(a, glfw.KeyKPAdd)
	assert.Equal(t, 2*DefaultDropCount, a.Rain.Len())
	assert.Equal(t, 2*DefaultDropCount, a.Settings.DropCount)

	press(a, glfw.KeyMinus)
	assert.Equal(t, DefaultDropCount, a.Rain.Len())
	assert.Equal(t, uint64(0), a.Rain.Frames(), "count change is a full reset")

	for i := 0; i < 20; i++ {
		press(a, glfw.KeyKPSubtract)
	}
	assert.Equal(t, 0, a.Rain.Len())
	assert.False(t, a.Rain.Initialized())
}

func TestSeaLevelKeys(t *testing.T) {
	a, _ := newTestApp(t)
	start := a.Settings.SeaLevel

	press(a, glfw.KeyLeftBracket)
	assert.InDelta(t, start-1, a.Settings.SeaLevel, 1e-5)
	assert.InDelta(t, start-1, a.Rain.Emitter().SeaLevel, 1e-5)

	for i := 0; i < 200; i++ {
		press(a, glfw.KeyRightBracket)
	}
	top := a.Rain.Emitter().Position.Y()
	assert.LessOrEqual(t, a.Settings.SeaLevel, top, "sea level never rises above the emitter")
	assert.Greater(t, a.Settings.SeaLevel, top-1)
}

func TestMovementFollowsHeldKeys(t *testing.T) {
	a, _ := newTestApp(t)
	start := a.Camera.Position

	a.HandleKey(glfw.KeyW, glfw.Press)
	in := a.Step(0.5)
	moved := a.Camera.Position.Sub(start)
	assert.InDelta(t, a.Camera.Speed*0.5, moved.Len(), 1e-3)
	assert.InDelta(t, 0, moved.Y(), 1e-5)
	assert.Equal(t, float32(0.5), in.DeltaTime)

	a.HandleKey(glfw.KeyW, glfw.Release)
	pos := a.Camera.Position
	a.Step(0.5)
	assert.Equal(t, pos, a.Camera.Position)

	a.HandleKey(glfw.KeySpace, glfw.Press)
	a.Step(1)
	assert.InDelta(t, pos.Y()+a.Camera.Speed, a.Camera.Position.Y(), 1e-3)
}

func TestArrowKeysRotate(t *testing.T) {
	a, _ := newTestApp(t)
	az := a.Camera.Azimuth

	a.HandleKey(glfw.KeyRight, glfw.Press)
	a.Step(0.1)
	assert.InDelta(t, az+rotateRate*0.1*a.Camera.Sensitivity, a.Camera.Azimuth, 1e-3)
}

func TestStepFrameInputMatchesCamera(t *testing.T) {
	a, _ := newTestApp(t)
	in := a.Step(0.016)
	assert.Equal(t, a.Camera.GetViewMatrix(), in.View)
	assert.Equal(t, a.Camera.GetProjectionMatrix(), in.Projection)
	assert.Equal(t, a.Camera.GetRight(), in.CameraRight)
	assert.Equal(t, a.Camera.GetUp(), in.CameraUp)
}

func TestRainPresetKey(t *testing.T) {
	a, _ := newTestApp(t)
	a.Camera.Position = mgl32.Vec3{1000, 1000, 1000}
	press(a, glfw.KeyR)

	e := a.Rain.Emitter()
	assert.InDelta(t, e.SeaLevel+2, a.Camera.Position.Y(), 1e-4)
	assert.InDelta(t, e.Position.X(), a.Camera.Position.X(), 1e-4)
}

func TestStepDrivesCPUFrame(t *testing.T) {
	a, be := newTestApp(t)
	press(a, glfw.KeyEqual)
	be.ResetFrame()

	require.NoError(t, a.Rain.Frame(a.Step(1.0/60)))
	f := be.LastFrame()
	assert.Equal(t, 1, f.Dispatches)
	assert.Len(t, f.Draws, 2)
}

func TestProfilerScopes(t *testing.T) {
	p := NewProfiler()
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }

	p.BeginScope("rain")
	now = now.Add(4 * time.Millisecond)
	p.EndScope("rain")
	assert.Equal(t, 4*time.Millisecond, p.Last["rain"])
	assert.Equal(t, 4*time.Millisecond, p.Average["rain"])

	err := p.Scope("rain", func() error {
		now = now.Add(14 * time.Millisecond)
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 14*time.Millisecond, p.Last["rain"])
	assert.Equal(t, 5*time.Millisecond, p.Average["rain"])

	p.BeginScope("submit")
	p.EndScope("submit")
	assert.Equal(t, []string{"rain", "submit"}, p.Order)

	p.SetCount("drops", 1024)
	stats := p.GetStatsString()
	assert.Contains(t, stats, "rain")
	assert.Contains(t, stats, "drops          : 1024")

	p.Reset()
	assert.Equal(t, time.Duration(0), p.Last["rain"])
	assert.Empty(t, p.Average)
}

func TestKeyRepeatDoesNotReallocate(t *testing.T) {
	a, _ := newTestApp(t)
	start := a.Settings.SeaLevel

	a.HandleKey(glfw.KeyEqual, glfw.Press)
	require.Equal(t, DefaultDropCount, a.Rain.Len())
	for i := 0; i < 30; i++ {
		a.HandleKey(glfw.KeyEqual, glfw.Repeat)
	}
	a.HandleKey(glfw.KeyEqual, glfw.Release)
	assert.Equal(t, DefaultDropCount, a.Rain.Len())

	a.HandleKey(glfw.KeyLeftBracket, glfw.Press)
	for i := 0; i < 5; i++ {
		a.HandleKey(glfw.KeyLeftBracket, glfw.Repeat)
	}
	a.HandleKey(glfw.KeyLeftBracket, glfw.Release)
	assert.InDelta(t, start-1, a.Settings.SeaLevel, 1e-5)
}
