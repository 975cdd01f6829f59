// Package camera provides the viewpoints detail selection is measured from.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/supermodel/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:    10,
		RotationX:   0.3,
		MinDistance: 0.5,
		MaxDistance: 5000,
	}
}

// SetDistance moves the camera along its current direction, clamped to the
// distance constraints.
func (c *OrbitCamera) SetDistance(d float32) {
	c.Distance = math32.Min(math32.Max(d, c.MinDistance), c.MaxDistance)
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinX, cosX := math32.Sincos(c.RotationX)
	sinY, cosY := math32.Sincos(c.RotationY)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cosX * sinY,
		Y: c.Distance * sinX,
		Z: c.Distance * cosX * cosY,
	})
}

// Forward returns the unit view direction, from the camera to the center.
func (c *OrbitCamera) Forward() math.Vec3 {
	return c.Center.Sub(c.Position()).Normalize()
}
