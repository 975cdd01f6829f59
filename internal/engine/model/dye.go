package model

import (
	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/logger"
	"github.com/Faultbox/supermodel/pkg/math"
)

// DefaultTint names the tint that restores a matter's original material.
const DefaultTint = "Default"

// DyeIndex packs a matter index and a tint index.
type DyeIndex int32

// InvalidDye is returned for unknown matters.
const InvalidDye DyeIndex = -1

// MakeDyeIndex packs matter and tint.
func MakeDyeIndex(matter, tint int) DyeIndex {
	return DyeIndex(int32(matter)<<16 | int32(tint&0xffff))
}

// Matter returns the matter half of the index.
func (d DyeIndex) Matter() int { return int(d >> 16) }

// Tint returns the tint half of the index.
func (d DyeIndex) Tint() int { return int(d & 0xffff) }

// Valid reports whether d names a matter.
func (d DyeIndex) Valid() bool { return d >= 0 }

// DyeProperty binds a tint to one property catalogue slot. Default is the
// value written when the tint is applied.
type DyeProperty struct {
	Name     string
	Index    int
	Controls int
	Mask     uint8
	Default  math.Vec4
}

// Tint is one named appearance of a matter.
type Tint struct {
	Name       string
	Material   *Material
	Legacy     *Material
	Properties []DyeProperty
}

// Matter is a named, replaceable material slot on a model.
type Matter struct {
	Name     string
	Replaces string
	Tints    []*Tint

	useSites []*PrimitiveGroup
	applied  int

	emulsion       int
	emulsionCookie catalogue.Cookie
	overrides      []catalogue.PropertyWrite
}

// UseSites returns how many primitive groups the matter rewrites.
func (m *Matter) UseSites() int { return len(m.useSites) }

// TintIndex returns the index of the named tint, or -1.
func (m *Matter) TintIndex(name string) int {
	for i, t := range m.Tints {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// inherit copies the matter for a child model. Use-sites and emulsion
// state are per model and start empty.
func (m *Matter) inherit() *Matter {
	return &Matter{
		Name:           m.Name,
		Replaces:       m.Replaces,
		Tints:          append([]*Tint(nil), m.Tints...),
		emulsionCookie: catalogue.NoCookie,
	}
}

// gather records the groups that use the replaced material and rebuilds
// the Default tint from the model's own material.
func (m *Matter) gather(groups []PrimitiveGroup, materials map[string]*Material) {
	m.useSites = m.useSites[:0]
	for i := range groups {
		if groups[i].Material != nil && groups[i].Material.Identifier == m.Replaces {
			m.useSites = append(m.useSites, &groups[i])
		}
	}

	original := materials[m.Replaces]
	def := &Tint{Name: DefaultTint, Material: original}
	seen := make(map[int]bool)
	for _, t := range m.Tints[1:] {
		for _, p := range t.Properties {
			if seen[p.Index] || original == nil {
				continue
			}
			if v, ok := original.Properties[p.Name]; ok {
				seen[p.Index] = true
				def.Properties = append(def.Properties, DyeProperty{
					Name: p.Name, Index: p.Index, Controls: p.Controls, Mask: p.Mask, Default: v,
				})
			}
		}
	}
	m.Tints[0] = def
	m.applied = 0
}

func readTint(sec *assets.Section, props *catalogue.PropertyCatalogue) *Tint {
	t := &Tint{Name: sec.ReadString("name", "")}
	if ms := sec.Open("material"); ms != nil {
		t.Material = readMaterial(ms)
	}
	if ls := sec.Open("legacy"); ls != nil {
		t.Legacy = readMaterial(ls)
	}
	for _, ps := range sec.OpenSections("property") {
		name := ps.ReadString("name", "")
		if name == "" {
			continue
		}
		t.Properties = append(t.Properties, DyeProperty{
			Name:     name,
			Index:    props.Index(name),
			Controls: ps.ReadInt("controls", 0),
			Mask:     uint8(ps.ReadInt("mask", 0)),
			Default:  ps.ReadVec4("default", math.Vec4{}),
		})
	}
	return t
}

// GetDye resolves a matter and tint by name. An unknown matter yields
// InvalidDye; an unknown tint on a known matter yields its Default tint.
func (m *Model) GetDye(matter, tint string) DyeIndex {
	mi, ok := m.matterIdx[matter]
	if !ok {
		return InvalidDye
	}
	ti := m.matters[mi].TintIndex(tint)
	if ti < 0 {
		ti = 0
	}
	return MakeDyeIndex(mi, ti)
}

// Soak emulsifies a matter with a tint for the draw stamped with cookie.
// Overrides are written after the tint's own property values.
func (m *Model) Soak(cookie catalogue.Cookie, idx DyeIndex, overrides []catalogue.PropertyWrite) error {
	if !idx.Valid() || idx.Matter() >= len(m.matters) {
		logger.Debug("soak with invalid dye",
			zap.String("model", m.name), zap.Int32("dye", int32(idx)))
		return ErrUnknownMatter
	}
	mat := m.matters[idx.Matter()]
	ti := idx.Tint()
	if ti >= len(mat.Tints) {
		ti = 0
	}
	mat.emulsion = ti
	mat.emulsionCookie = cookie
	mat.overrides = overrides
	return nil
}

// ApplyDyes writes every matter's tint for cookie: property values go to
// the property catalogue in one batch, then use-sites take the tint's
// material. Matters not soaked during this draw apply Default.
func (m *Model) ApplyDyes(cookie catalogue.Cookie) {
	if len(m.matters) == 0 {
		return
	}
	var writes []catalogue.PropertyWrite
	for _, mat := range m.matters {
		ti := 0
		var overrides []catalogue.PropertyWrite
		if mat.emulsionCookie == cookie {
			ti = mat.emulsion
			overrides = mat.overrides
		}
		tint := mat.Tints[ti]
		for _, p := range tint.Properties {
			writes = append(writes, catalogue.PropertyWrite{Index: p.Index, Value: p.Default, Mask: p.Mask})
		}
		writes = append(writes, overrides...)

		if ti == mat.applied {
			continue
		}
		material := tint.Material
		if material == nil {
			material = mat.Tints[0].Material
		}
		legacy := tint.Legacy
		if legacy == nil {
			legacy = material
		}
		for _, g := range mat.useSites {
			g.Material = material
			g.Legacy = legacy
		}
		mat.applied = ti
	}
	m.cats.Properties.Apply(writes)
}

// Tint returns the name of the tint currently on the matter's use-sites.
func (m *Model) Tint(matter string) (string, error) {
	mi, ok := m.matterIdx[matter]
	if !ok {
		return "", ErrUnknownMatter
	}
	mat := m.matters[mi]
	return mat.Tints[mat.applied].Name, nil
}

// PropertySetting overrides one dye property by name.
type PropertySetting struct {
	Name  string
	Value math.Vec4
	Mask  uint8
}

// DyeSelection names a tint for a matter plus property overrides.
type DyeSelection struct {
	Matter     string
	Tint       string
	Properties []PropertySetting
}

// Writes resolves the overrides against the property catalogue.
func (s DyeSelection) Writes(props *catalogue.PropertyCatalogue) []catalogue.PropertyWrite {
	if len(s.Properties) == 0 {
		return nil
	}
	out := make([]catalogue.PropertyWrite, 0, len(s.Properties))
	for _, p := range s.Properties {
		out = append(out, catalogue.PropertyWrite{Index: props.Index(p.Name), Value: p.Value, Mask: p.Mask})
	}
	return out
}
