package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/pkg/math"
)

func TestAnimationFrame(t *testing.T) {
	a := &Animation{FrameRate: 10, FrameCount: 20}
	assert.Equal(t, float32(2), a.Duration())

	tests := []struct {
		name    string
		seconds float32
		looping bool
		want    float32
	}{
		{"start", 0, false, 0},
		{"middle", 1, false, 10},
		{"clamped", 5, false, 20},
		{"wrapped", 2.5, true, 5},
		{"negative", -1, true, 0},
		{"long running clock", 2e6, true, 0},
		{"long running clamped", 2e6, false, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, a.Frame(tt.seconds, tt.looping), 1e-4)
		})
	}
}

func TestAnimationFrameLargeTimeReturns(t *testing.T) {
	a := &Animation{FrameRate: 30, FrameCount: 1}

	done := make(chan float32, 1)
	go func() { done <- a.Frame(2e6, true) }()

	select {
	case frame := <-done:
		assert.GreaterOrEqual(t, frame, float32(0))
		assert.Less(t, frame, a.FrameCount)
	case <-time.After(5 * time.Second):
		t.Fatal("looping frame did not wrap")
	}
}

func TestChannelSample(t *testing.T) {
	ref := math.Transform{
		Rotation:    math.QuatIdentity(),
		Scale:       math.Vec3{X: 2, Y: 2, Z: 2},
		Translation: math.Vec3{X: 1},
	}
	quarter := math.QuatFromAxisAngle(math.Vec3{Y: 1}, 1.5707964)
	ch := Channel{
		RotKeys: []RotKey{{Frame: 0, Value: math.QuatIdentity()}, {Frame: 10, Value: quarter}},
		PosKeys: []VecKey{{Frame: 5, Value: math.Vec3{Y: 1}}, {Frame: 15, Value: math.Vec3{Y: 3}}},
		reference: ref,
	}

	got := ch.Sample(10)
	assert.True(t, got.Rotation.ApproxEqual(quarter, 1e-5))
	assert.True(t, got.Translation.ApproxEqual(math.Vec3{Y: 2}, 1e-5))
	assert.Equal(t, ref.Scale, got.Scale, "no scale keys keeps the bind pose")

	before := ch.Sample(0)
	assert.True(t, before.Translation.ApproxEqual(math.Vec3{Y: 1}, 1e-5), "clamped to first key")
	after := ch.Sample(99)
	assert.True(t, after.Translation.ApproxEqual(math.Vec3{Y: 3}, 1e-5), "clamped to last key")
}

func TestAnimationPlayLateOverlays(t *testing.T) {
	node := catalogue.NewNode("Arm", math.TransformIdentity())
	a := &Animation{
		FrameRate:  30,
		FrameCount: 1,
		Channels: []Channel{{
			Node:      node,
			PosKeys:   []VecKey{{Frame: 0, Value: math.Vec3{X: 4}}},
			reference: math.TransformIdentity(),
		}},
	}
	var counter catalogue.Counter
	cookie := counter.Next()

	node.BlendClobber(cookie, math.TransformIdentity(), 1)
	a.Play(cookie, 0, 0.5, false, true)
	assert.InDelta(t, 2, node.Transform(cookie).Translation.X, 1e-5)
	assert.Equal(t, float32(1), node.Weight(cookie))

	a.Play(cookie, 0, 0, false, false)
	assert.InDelta(t, 2, node.Transform(cookie).Translation.X, 1e-5, "zero weight is ignored")
}
