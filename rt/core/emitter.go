package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MinFallSpeed keeps velocity.y strictly negative when MinSpeed is zero.
const MinFallSpeed float32 = 1e-3

// Emitter is the volume raindrops are (re)sampled from: a disk of Radius around
// Position.xz, spanning heights SeaLevel..Position.y.
type Emitter struct {
	Position mgl32.Vec3
	Radius   float32
	MinSpeed float32
	MaxSpeed float32
	SeaLevel float32
}

// LifetimeRange bounds the total lifetime sampled for each splash spawn.
type LifetimeRange struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

var DefaultSplashLifetime = LifetimeRange{Min: 3, Max: 5}

// RandSource yields uniform floats in [0,1). *rand.Rand satisfies it.
type RandSource interface {
	Float32() float32
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// SampleDropPosition draws radius, angle then height.
func SampleDropPosition(r RandSource, e Emitter) mgl32.Vec4 {
	radius := e.Radius * float32(math.Sqrt(float64(r.Float32())))
	theta := r.Float32() * 2 * math.Pi
	y := lerp(e.SeaLevel, e.Position.Y(), r.Float32())

	x := e.Position.X() + radius*float32(math.Cos(float64(theta)))
	z := e.Position.Z() + radius*float32(math.Sin(float64(theta)))
	return mgl32.Vec4{x, y, z, 1}
}

func SampleDropVelocity(r RandSource, e Emitter) mgl32.Vec4 {
	speed := lerp(e.MinSpeed, e.MaxSpeed, r.Float32())
	if speed < MinFallSpeed {
		speed = MinFallSpeed
	}
	return mgl32.Vec4{0, -speed, 0, 0}
}

func SampleLifetime(r RandSource, lr LifetimeRange) float32 {
	return lerp(lr.Min, lr.Max, r.Float32())
}

// NewRaindrop samples a drop from the emitter volume.
func NewRaindrop(r RandSource, e Emitter) Raindrop {
	pos := SampleDropPosition(r, e)
	vel := SampleDropVelocity(r, e)
	return Raindrop{Position: pos, Velocity: vel}
}
