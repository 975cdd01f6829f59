package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/pkg/math"
)

// RotKey is a rotation keyframe.
type RotKey struct {
	Frame float32
	Value math.Quat
}

// VecKey is a position or scale keyframe.
type VecKey struct {
	Frame float32
	Value math.Vec3
}

// Channel animates one skeleton node. Components without keys hold the
// node's bind pose.
type Channel struct {
	Node      *catalogue.Node
	RotKeys   []RotKey
	PosKeys   []VecKey
	ScaleKeys []VecKey

	reference math.Transform
}

// Animation is a set of keyframed channels played at FrameRate.
type Animation struct {
	Name       string
	FrameRate  float32
	FrameCount float32
	Channels   []Channel
}

// Duration returns the animation length in seconds.
func (a *Animation) Duration() float32 {
	if a.FrameRate <= 0 {
		return 0
	}
	return a.FrameCount / a.FrameRate
}

// Frame converts a time in seconds to a frame position. Looping
// animations wrap; others clamp at the last frame.
func (a *Animation) Frame(seconds float32, looping bool) float32 {
	frame := seconds * a.FrameRate
	if frame < 0 {
		frame = 0
	}
	if a.FrameCount <= 0 {
		return 0
	}
	if looping {
		frame = math32.Mod(frame, a.FrameCount)
		if frame < 0 || frame >= a.FrameCount {
			return 0
		}
		return frame
	}
	if frame > a.FrameCount {
		frame = a.FrameCount
	}
	return frame
}

// Sample returns the channel's transform at frame.
func (c *Channel) Sample(frame float32) math.Transform {
	return math.Transform{
		Rotation:    interpolateRotKeys(c.RotKeys, frame, c.reference.Rotation),
		Translation: interpolateVecKeys(c.PosKeys, frame, c.reference.Translation),
		Scale:       interpolateVecKeys(c.ScaleKeys, frame, c.reference.Scale),
	}
}

// Play writes every channel sampled at seconds into its node. Late writes
// are overlaid on the draw's result instead of joining the blend.
func (a *Animation) Play(cookie catalogue.Cookie, seconds, weight float32, looping, late bool) {
	if weight <= 0 {
		return
	}
	frame := a.Frame(seconds, looping)
	for i := range a.Channels {
		ch := &a.Channels[i]
		t := ch.Sample(frame)
		if late {
			ch.Node.Overlay(cookie, t, weight)
		} else {
			ch.Node.Blend(cookie, t, weight)
		}
	}
}

// bracket finds the keys around frame, assuming keys are sorted.
func bracket(n int, frameAt func(int) float32, frame float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if frameAt(i) > frame {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return prev, next, 0
	}
	f0, f1 := frameAt(prev), frameAt(next)
	if f1 != f0 {
		t = (frame - f0) / (f1 - f0)
	}
	return prev, next, t
}

func interpolateRotKeys(keys []RotKey, frame float32, def math.Quat) math.Quat {
	switch len(keys) {
	case 0:
		return def
	case 1:
		return keys[0].Value
	}
	prev, next, t := bracket(len(keys), func(i int) float32 { return keys[i].Frame }, frame)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Slerp(keys[next].Value, t)
}

func interpolateVecKeys(keys []VecKey, frame float32, def math.Vec3) math.Vec3 {
	switch len(keys) {
	case 0:
		return def
	case 1:
		return keys[0].Value
	}
	prev, next, t := bracket(len(keys), func(i int) float32 { return keys[i].Frame }, frame)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Lerp(keys[next].Value, t)
}
