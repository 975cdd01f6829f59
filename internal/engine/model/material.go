package model

import (
	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/pkg/math"
)

// Material is a shader effect with its texture and constant bindings.
type Material struct {
	Identifier string
	Effect     string
	Textures   map[string]string
	Properties map[string]math.Vec4
}

// PrimitiveGroup is a run of indices drawn with one material.
type PrimitiveGroup struct {
	StartIndex int
	IndexCount int
	Material   *Material

	// Legacy is the fixed-function fallback for Material.
	Legacy *Material
}

func readMaterial(sec *assets.Section) *Material {
	mat := &Material{
		Identifier: sec.ReadString("identifier", ""),
		Effect:     sec.ReadString("effect", ""),
		Textures:   make(map[string]string),
		Properties: make(map[string]math.Vec4),
	}
	if tex := sec.Open("texture"); tex != nil {
		for _, k := range tex.Keys() {
			mat.Textures[k] = tex.ReadString(k, "")
		}
	}
	if props := sec.Open("property"); props != nil {
		for _, k := range props.Keys() {
			mat.Properties[k] = props.ReadVec4(k, math.Vec4{})
		}
	}
	return mat
}
