package model

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/pkg/math"
)

// RootNode names the implicit skeleton root of documents without nodes.
const RootNode = "Scene Root"

func readTransform(sec *assets.Section) math.Transform {
	id := math.TransformIdentity()
	return math.Transform{
		Rotation:    sec.ReadQuat("rotation", id.Rotation).Normalize(),
		Scale:       sec.ReadVec3("scale", id.Scale),
		Translation: sec.ReadVec3("position", id.Translation),
	}
}

// loadSkeleton flattens the node tree parent-first and binds every node to
// its canonical catalogue entry.
func (m *Model) loadSkeleton(doc *assets.Section) {
	nodes := m.cats.Nodes
	var walk func(sec *assets.Section, parent int)
	walk = func(sec *assets.Section, parent int) {
		name := sec.ReadString("name", "")
		if name == "" {
			return
		}
		ref := readTransform(sec)
		idx := len(m.skeleton)
		m.skeleton = append(m.skeleton, skeletonNode{
			node:      nodes.Add(catalogue.NewNode(name, ref)),
			parent:    parent,
			reference: ref,
		})
		for _, child := range sec.OpenSections("node") {
			walk(child, idx)
		}
	}
	for _, root := range doc.OpenSections("node") {
		walk(root, -1)
	}
	if len(m.skeleton) == 0 {
		id := math.TransformIdentity()
		m.skeleton = append(m.skeleton, skeletonNode{
			node:      nodes.Add(catalogue.NewNode(RootNode, id)),
			parent:    -1,
			reference: id,
		})
	}
}

func (m *Model) loadVisual(doc *assets.Section) error {
	m.materials = make(map[string]*Material)
	for _, sec := range doc.OpenSections("material") {
		mat := readMaterial(sec)
		if mat.Identifier == "" {
			return errors.Wrap(assets.ErrMalformed, "material without identifier")
		}
		m.materials[mat.Identifier] = mat
	}
	for _, sec := range doc.OpenSections("primitiveGroup") {
		id := sec.ReadString("material", "")
		mat, ok := m.materials[id]
		if !ok {
			return errors.Wrapf(assets.ErrMalformed, "primitive group uses unknown material %q", id)
		}
		m.groups = append(m.groups, PrimitiveGroup{
			StartIndex: sec.ReadInt("start", 0),
			IndexCount: sec.ReadInt("count", 0),
			Material:   mat,
			Legacy:     mat,
		})
	}
	return nil
}

func (m *Model) bindPose(name string) math.Transform {
	for _, sn := range m.skeleton {
		if sn.node.Name() == name {
			return sn.reference
		}
	}
	if n := m.cats.Nodes.Find(name); n != nil {
		return n.Reference()
	}
	return math.TransformIdentity()
}

func (m *Model) readAnimation(sec *assets.Section) (*Animation, error) {
	a := &Animation{
		Name:       sec.ReadString("name", ""),
		FrameRate:  sec.ReadFloat("frameRate", 30),
		FrameCount: sec.ReadFloat("frames", 0),
	}
	if a.Name == "" {
		return nil, errors.Wrap(assets.ErrMalformed, "animation without name")
	}
	for _, cs := range sec.OpenSections("channel") {
		name := cs.ReadString("node", "")
		if name == "" {
			continue
		}
		ref := m.bindPose(name)
		ch := Channel{
			Node:      m.cats.Nodes.Add(catalogue.NewNode(name, ref)),
			reference: ref,
		}
		for _, k := range cs.OpenSections("rotation") {
			ch.RotKeys = append(ch.RotKeys, RotKey{
				Frame: k.ReadFloat("frame", 0),
				Value: k.ReadQuat("value", ref.Rotation).Normalize(),
			})
		}
		for _, k := range cs.OpenSections("position") {
			ch.PosKeys = append(ch.PosKeys, VecKey{Frame: k.ReadFloat("frame", 0), Value: k.ReadVec3("value", ref.Translation)})
		}
		for _, k := range cs.OpenSections("scale") {
			ch.ScaleKeys = append(ch.ScaleKeys, VecKey{Frame: k.ReadFloat("frame", 0), Value: k.ReadVec3("value", ref.Scale)})
		}
		a.Channels = append(a.Channels, ch)
	}
	return a, nil
}

// loadAnimations copies the parent's table and extends it. An own
// animation sharing an inherited name takes over that index.
func (m *Model) loadAnimations(doc *assets.Section) error {
	m.animIndex = make(map[string]int)
	if m.parent != nil {
		m.animations = append(m.animations, m.parent.animations...)
		for name, idx := range m.parent.animIndex {
			m.animIndex[name] = idx
		}
	}
	for _, sec := range doc.OpenSections("animation") {
		a, err := m.readAnimation(sec)
		if err != nil {
			return err
		}
		if idx, ok := m.animIndex[a.Name]; ok {
			m.animations[idx] = a
			continue
		}
		m.animIndex[a.Name] = len(m.animations)
		m.animations = append(m.animations, a)
	}
	return nil
}

func (m *Model) loadActions(doc *assets.Section) {
	m.actions = make(map[string]*Action)
	for _, sec := range doc.OpenSections("action") {
		a := readAction(sec)
		if a.Name != "" {
			m.actions[a.Name] = a
		}
	}
}

// loadMatters inherits the parent's matters at the same indices, merges
// tints declared here, and gathers use-sites against this model's groups.
func (m *Model) loadMatters(doc *assets.Section) error {
	m.matterIdx = make(map[string]int)
	if m.parent != nil {
		for _, pm := range m.parent.matters {
			m.matterIdx[pm.Name] = len(m.matters)
			m.matters = append(m.matters, pm.inherit())
		}
	}
	for _, sec := range doc.OpenSections("dye") {
		name := sec.ReadString("matter", "")
		if name == "" {
			return errors.Wrap(assets.ErrMalformed, "dye without matter")
		}
		mat, ok := m.matterIdx[name]
		if !ok {
			mat = len(m.matters)
			m.matterIdx[name] = mat
			m.matters = append(m.matters, &Matter{
				Name:           name,
				Tints:          []*Tint{{Name: DefaultTint}},
				emulsionCookie: catalogue.NoCookie,
			})
		}
		matter := m.matters[mat]
		if r := sec.ReadString("replaces", ""); r != "" {
			matter.Replaces = r
		}
		for _, ts := range sec.OpenSections("tint") {
			tint := readTint(ts, m.cats.Properties)
			if tint.Name == "" || tint.Name == DefaultTint {
				continue
			}
			if ti := matter.TintIndex(tint.Name); ti >= 0 {
				matter.Tints[ti] = tint
			} else {
				matter.Tints = append(matter.Tints, tint)
			}
		}
	}
	for _, matter := range m.matters {
		matter.gather(m.groups, m.materials)
	}
	return nil
}

func (m *Model) load(doc *assets.Section) error {
	m.extent = doc.ReadFloat("extent", -1)
	m.loadSkeleton(doc)
	if err := m.loadVisual(doc); err != nil {
		return err
	}
	if err := m.loadAnimations(doc); err != nil {
		return err
	}
	m.loadActions(doc)
	return m.loadMatters(doc)
}
