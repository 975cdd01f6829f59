package catalogue

import (
	gomath "math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/supermodel/pkg/math"
)

func pose(angle, x float32) math.Transform {
	return math.Transform{
		Rotation:    math.QuatFromAxisAngle(math.Vec3{Y: 1}, angle),
		Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		Translation: math.Vec3{X: x},
	}
}

func TestCounterWraps(t *testing.T) {
	var c Counter
	c.v.Store(cookieMask)

	assert.Equal(t, Cookie(0), c.Next())
	assert.Equal(t, Cookie(1), c.Next())
	assert.Equal(t, Cookie(1), c.Current())
	assert.NotEqual(t, NoCookie, c.Current())
}

func TestFreshNodeIsUntouched(t *testing.T) {
	var c Counter
	n := NewNode("Head", pose(0, 1))

	// Cookie 0 is a valid counter value; a fresh node must not claim it.
	assert.Equal(t, float32(0), n.Weight(c.Current()))
	assert.Equal(t, n.Reference(), n.Transform(c.Current()))
}

func TestBlendFirstWriteResets(t *testing.T) {
	n := NewNode("Head", pose(0, 0))

	n.Blend(1, pose(0, 4), 0.5)
	n.Blend(1, pose(0, 8), 0.5)
	assert.Equal(t, float32(1), n.Weight(1))
	assert.InDelta(t, 6, n.Transform(1).Translation.X, 1e-5)

	// A new cookie starts from scratch instead of blending with stale state.
	n.Blend(2, pose(0, 2), 0.25)
	assert.Equal(t, float32(0.25), n.Weight(2))
	assert.Equal(t, float32(0), n.Weight(1))
	assert.InDelta(t, 2, n.Transform(2).Translation.X, 1e-5)
}

func TestBlendClobberIsIdempotent(t *testing.T) {
	a := NewNode("A", pose(0, 0))
	b := NewNode("B", pose(0, 0))
	target := pose(0.8, 3)

	a.BlendClobber(7, target, 1)
	b.BlendClobber(7, target, 1)
	b.BlendClobber(7, target, 1)

	assert.Equal(t, a.Transform(7), b.Transform(7))
	assert.Equal(t, a.Weight(7), b.Weight(7))
}

func TestBlendIsOrderIndependent(t *testing.T) {
	tests := []struct {
		name   string
		w1, w2 float32
	}{
		{"equal weights", 1, 1},
		{"uneven weights", 0.3, 0.9},
		{"tiny second", 1, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1 := pose(0.2, 1)
			p2 := pose(float32(gomath.Pi/2), 5)

			ab := NewNode("ab", math.TransformIdentity())
			ab.Blend(3, p1, tt.w1)
			ab.Blend(3, p2, tt.w2)

			ba := NewNode("ba", math.TransformIdentity())
			ba.Blend(3, p2, tt.w2)
			ba.Blend(3, p1, tt.w1)

			assert.True(t, ab.Transform(3).ApproxEqual(ba.Transform(3), 1e-4),
				"ab=%v ba=%v", ab.Transform(3), ba.Transform(3))
			assert.InDelta(t, tt.w1+tt.w2, ab.Weight(3), 1e-6)
		})
	}
}

func TestOverlayClaimsNode(t *testing.T) {
	n := NewNode("Head", pose(0, 0))

	n.Blend(1, pose(0, 0), 1)
	n.Overlay(1, pose(0, 10), 1)
	assert.InDelta(t, 10, n.Transform(1).Translation.X, 1e-5)
	assert.Equal(t, float32(1), n.Weight(1))

	n.Overlay(2, pose(0, 4), 0.5)
	assert.InDelta(t, 4, n.Transform(2).Translation.X, 1e-5, "overlay on an untouched node clobbers")
	assert.Equal(t, float32(1), n.Weight(2))
}

func TestNodeCatalogueInsertIfAbsent(t *testing.T) {
	c := NewNodeCatalogue()

	first := c.Add(NewNode("Head", pose(0, 1)))
	second := c.Add(NewNode("Head", pose(0, 2)))

	assert.Same(t, first, second)
	assert.Same(t, first, c.Find("Head"))
	assert.Nil(t, c.Find("Tail"))
	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 1, second.Reference().Translation.X, 1e-6, "first registrant keeps its bind pose")
}

func TestNodeCatalogueConcurrentAdd(t *testing.T) {
	c := NewNodeCatalogue()

	var wg sync.WaitGroup
	results := make([]*Node, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Add(NewNode("Spine", math.TransformIdentity()))
		}(i)
	}
	wg.Wait()

	for _, n := range results {
		require.Same(t, results[0], n)
	}
}

func TestNodeCatalogueRangeOrdered(t *testing.T) {
	c := NewNodeCatalogue()
	for _, name := range []string{"c", "a", "b"} {
		c.Add(NewNode(name, math.TransformIdentity()))
	}

	var names []string
	c.Range(func(n *Node) bool {
		names = append(names, n.Name())
		return len(names) < 2
	})
	assert.Equal(t, []string{"a", "b"}, names)
}
