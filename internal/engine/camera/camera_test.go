package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/supermodel/pkg/math"
)

func TestOrbitCameraLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 1, Y: 2, Z: 3}
	c.SetDistance(25)

	pos := c.Position()
	assert.InDelta(t, 25, pos.Distance(c.Center), 1e-3)

	// the center lies Distance units along the view axis
	along := c.Center.Sub(pos).Dot(c.Forward())
	assert.InDelta(t, 25, along, 1e-3)
	assert.InDelta(t, 1, c.Forward().Length(), 1e-5)
}

func TestOrbitCameraClampsDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.SetDistance(0)
	assert.Equal(t, c.MinDistance, c.Distance)
	c.SetDistance(1e6)
	assert.Equal(t, c.MaxDistance, c.Distance)
}
