// Package model loads visual asset definitions and keeps them shared
// between every instance that draws them.
package model

import (
	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/logger"
	"github.com/Faultbox/supermodel/pkg/math"
)

type skeletonNode struct {
	node      *catalogue.Node
	parent    int
	reference math.Transform
}

// Model is one loaded asset definition: a skeleton, primitive groups,
// animations, actions and matters, optionally backed by a parent that is
// drawn in its place further from the camera.
//
// Dye and pose state is written from the draw goroutine only.
type Model struct {
	name   string
	parent *Model
	extent float32
	reg    *Registry
	cats   *catalogue.Catalogues

	skeleton  []skeletonNode
	materials map[string]*Material
	groups    []PrimitiveGroup

	animations []*Animation
	animIndex  map[string]int
	actions    map[string]*Action
	matters    []*Matter
	matterIdx  map[string]int

	// guarded by reg.mu
	refs       int
	dead       bool
	superseded bool
}

// Name returns the resource name.
func (m *Model) Name() string { return m.name }

// Parent returns the next lower detail model, or nil.
func (m *Model) Parent() *Model { return m.parent }

// Extent returns the distance up to which the model is drawn.
// -1 means always; 0 means the part is hidden once the walk reaches it.
func (m *Model) Extent() float32 { return m.extent }

// Superseded reports whether a reload has replaced this instance.
func (m *Model) Superseded() bool {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	return m.superseded
}

// Retain adds a reference.
func (m *Model) Retain() {
	m.reg.mu.Lock()
	m.refs++
	m.reg.mu.Unlock()
}

// Release drops a reference. The last release unregisters the model and
// releases its parent.
func (m *Model) Release() {
	m.reg.release(m)
}

// Groups returns the primitive groups with their current materials.
func (m *Model) Groups() []PrimitiveGroup {
	return append([]PrimitiveGroup(nil), m.groups...)
}

// Material returns the model's own material with identifier id.
func (m *Model) Material(id string) *Material { return m.materials[id] }

// Nodes returns the skeleton nodes parent-first.
func (m *Model) Nodes() []*catalogue.Node {
	out := make([]*catalogue.Node, len(m.skeleton))
	for i, sn := range m.skeleton {
		out[i] = sn.node
	}
	return out
}

// AnimationIndex returns the index of the named animation, or -1.
func (m *Model) AnimationIndex(name string) int {
	if idx, ok := m.animIndex[name]; ok {
		return idx
	}
	return -1
}

// Animation returns the animation at index, or nil if out of range.
func (m *Model) Animation(index int) *Animation {
	if index < 0 || index >= len(m.animations) {
		logger.Debug("animation index out of range",
			zap.String("model", m.name), zap.Int("index", index), zap.Error(ErrMissingAnimation))
		return nil
	}
	return m.animations[index]
}

// AnimationCount returns the size of the animation table.
func (m *Model) AnimationCount() int { return len(m.animations) }

// Action looks up an action on the model, then on its ancestors.
func (m *Model) Action(name string) *Action {
	for cur := m; cur != nil; cur = cur.parent {
		if a, ok := cur.actions[name]; ok {
			return a
		}
	}
	return nil
}

// Actions returns the names of the model's own actions.
func (m *Model) Actions() []string {
	out := make([]string, 0, len(m.actions))
	for name := range m.actions {
		out = append(out, name)
	}
	return out
}

// Matters returns the matter table in index order.
func (m *Model) Matters() []*Matter {
	return append([]*Matter(nil), m.matters...)
}

// DressDefault fills every node the draw left under full weight with the
// model's bind pose.
func (m *Model) DressDefault(cookie catalogue.Cookie) {
	for _, sn := range m.skeleton {
		w := sn.node.Weight(cookie)
		switch {
		case w <= 0:
			sn.node.BlendClobber(cookie, sn.reference, 1)
		case w < 1:
			sn.node.Blend(cookie, sn.reference, 1-w)
		}
	}
}

// Traverse composes world matrices parent-first from the blended node
// transforms.
func (m *Model) Traverse(world math.Mat4, cookie catalogue.Cookie) {
	for _, sn := range m.skeleton {
		parent := world
		if sn.parent >= 0 {
			parent = m.skeleton[sn.parent].node.World()
		}
		sn.node.SetWorld(parent.Mul(sn.node.Transform(cookie).Matrix()))
	}
}
