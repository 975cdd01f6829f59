package math

// Vec4 is a 4-component vector. Shader properties are stored as Vec4.
type Vec4 [4]float32

// Component masks select which Vec4 components a write touches.
const (
	MaskX uint8 = 1 << iota
	MaskY
	MaskZ
	MaskW

	MaskAll = MaskX | MaskY | MaskZ | MaskW
)

// Masked returns v with the components selected by mask replaced by src.
// A zero mask selects every component.
func (v Vec4) Masked(src Vec4, mask uint8) Vec4 {
	if mask == 0 {
		mask = MaskAll
	}
	for i := 0; i < 4; i++ {
		if mask&(1<<i) != 0 {
			v[i] = src[i]
		}
	}
	return v
}
