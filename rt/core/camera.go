package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is a Y-up free camera. Angles are in degrees.
type CameraState struct {
	Position    mgl32.Vec3
	Azimuth     float32
	Polar       float32
	FOV         float32
	Aspect      float32
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{-9.684, 24.016, 15.113},
		Azimuth:     -135,
		Polar:       -10,
		FOV:         45,
		Aspect:      1200.0 / 800.0,
		Near:        0.1,
		Far:         2000,
		Speed:       30,
		Sensitivity: 0.1,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	az := float64(mgl32.DegToRad(c.Azimuth))
	po := float64(mgl32.DegToRad(c.Polar))
	return mgl32.Vec3{
		float32(math.Cos(po) * math.Cos(az)),
		float32(math.Sin(po)),
		float32(math.Cos(po) * math.Sin(az)),
	}.Normalize()
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return c.GetForward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *CameraState) GetUp() mgl32.Vec3 {
	return c.GetRight().Cross(c.GetForward()).Normalize()
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.GetForward()), mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjectionMatrix() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Move translates along the horizontal forward/right axes and world up.
// move.X is right, move.Y is up, move.Z is forward.
func (c *CameraState) Move(move mgl32.Vec3, dt float32) {
	dist := c.Speed * dt
	f := c.GetForward()
	flat := mgl32.Vec3{f.X(), 0, f.Z()}
	if flat.Len() > 0 {
		flat = flat.Normalize()
	}
	r := c.GetRight()
	r = mgl32.Vec3{r.X(), 0, r.Z()}
	if r.Len() > 0 {
		r = r.Normalize()
	}
	c.Position = c.Position.
		Add(flat.Mul(move.Z() * dist)).
		Add(r.Mul(move.X() * dist)).
		Add(mgl32.Vec3{0, move.Y() * dist, 0})
}

func (c *CameraState) Rotate(dx, dy float32) {
	c.Azimuth += dx * c.Sensitivity
	c.Polar = mgl32.Clamp(c.Polar+dy*c.Sensitivity, -89, 89)
}

func (c *CameraState) Zoom(amount float32) {
	c.FOV = mgl32.Clamp(c.FOV-amount, 1, 45)
}

// LookAtRain points the camera up at the emitter from just above sea level.
func (c *CameraState) LookAtRain(e Emitter) {
	c.Position = mgl32.Vec3{e.Position.X(), e.SeaLevel + 2, e.Position.Z() + e.Radius*0.5}
	c.Azimuth = -97.4
	c.Polar = 3.1
}
