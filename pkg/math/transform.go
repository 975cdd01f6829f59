package math

// Transform is a decomposed node transform. Keeping rotation, scale and
// translation apart lets two poses be blended without shearing.
type Transform struct {
	Rotation    Quat
	Scale       Vec3
	Translation Vec3
}

// TransformIdentity returns the transform that leaves points unchanged.
func TransformIdentity() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3{1, 1, 1},
	}
}

// Blend returns t moved towards other by ratio: rotation is slerped,
// scale and translation are lerped. ratio 0 yields t, 1 yields other.
func (t Transform) Blend(other Transform, ratio float32) Transform {
	switch {
	case ratio <= 0:
		return t
	case ratio >= 1:
		return other
	}
	return Transform{
		Rotation:    t.Rotation.Slerp(other.Rotation, ratio),
		Scale:       t.Scale.Lerp(other.Scale, ratio),
		Translation: t.Translation.Lerp(other.Translation, ratio),
	}
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() Mat4 {
	m := Translate(t.Translation.X, t.Translation.Y, t.Translation.Z)
	m = m.Mul(t.Rotation.ToMat4())
	return m.Mul(Scale(t.Scale.X, t.Scale.Y, t.Scale.Z))
}

// ApproxEqual compares two transforms component-wise within eps.
func (t Transform) ApproxEqual(other Transform, eps float32) bool {
	return t.Rotation.ApproxEqual(other.Rotation, eps) &&
		t.Scale.ApproxEqual(other.Scale, eps) &&
		t.Translation.ApproxEqual(other.Translation, eps)
}
