// Package supermodel composes several models into one drawable instance.
// Each draw picks a detail level per part, lets fashions pose and dye the
// shared skeleton, and hands the resolved parts to a Renderer.
package supermodel

import (
	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/engine/model"
	"github.com/Faultbox/supermodel/internal/logger"
	"github.com/Faultbox/supermodel/pkg/math"
)

// DrawItem is one resolved part handed to the renderer.
type DrawItem struct {
	Owner  uuid.UUID
	Part   int
	Model  *model.Model
	World  math.Mat4
	Groups []model.PrimitiveGroup
}

// Renderer consumes resolved parts. The core never issues draw calls.
type Renderer interface {
	Submit(item DrawItem)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(item DrawItem)

// Submit calls f(item).
func (f RendererFunc) Submit(item DrawItem) { f(item) }

// NoLODOverride leaves the detail level to the camera.
const NoLODOverride float32 = -1

// DrawContext carries the per-draw camera state.
type DrawContext struct {
	CameraPos   math.Vec3
	CameraDir   math.Vec3
	Zoom        float32
	LODOverride float32
}

// NewDrawContext returns a context for a camera at pos looking along dir.
func NewDrawContext(pos, dir math.Vec3) DrawContext {
	return DrawContext{CameraPos: pos, CameraDir: dir.Normalize(), Zoom: 1, LODOverride: NoLODOverride}
}

// WithLOD returns a copy of c that forces lod.
func (c DrawContext) WithLOD(lod float32) DrawContext {
	c.LODOverride = lod
	return c
}

// LOD returns the detail value of an object placed at world: its distance
// along the view axis, divided by its vertical scale and multiplied by zoom.
func (c DrawContext) LOD(world math.Mat4) float32 {
	if c.LODOverride >= 0 {
		return c.LODOverride
	}
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	dist := world.Translation().Sub(c.CameraPos).Dot(c.CameraDir)
	yScale := math32.Max(1, world.TransformDirection(math.Vec3{Y: 1}).Length())
	return dist / yScale * zoom
}

type part struct {
	root     *model.Model
	previous *model.Model
	current  *model.Model
	hidden   bool
}

// SuperModel is a set of parts drawn together as one object.
type SuperModel struct {
	id   uuid.UUID
	reg  *model.Registry
	cats *catalogue.Catalogues
	log  *zap.Logger

	parts []part

	lod         float32
	lodNextUp   float32
	lodNextDown float32

	cookie   catalogue.Cookie
	late     bool
	released bool
}

// New loads every named model as a part. A part that fails to load is
// left out and its error is returned alongside the instance, which stays
// usable with the remaining parts.
func New(reg *model.Registry, names ...string) (*SuperModel, error) {
	sm := &SuperModel{
		id:          uuid.New(),
		reg:         reg,
		cats:        reg.Catalogues(),
		lodNextUp:   math32.Inf(1),
		lodNextDown: math32.Inf(-1),
		cookie:      catalogue.NoCookie,
	}
	sm.log = logger.Named("supermodel").With(zap.Stringer("id", sm.id))

	var errs error
	for _, name := range names {
		m, err := reg.Get(name, true)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sm.parts = append(sm.parts, part{root: m, current: m})
	}
	sm.log.Debug("supermodel created", zap.Strings("parts", names), zap.Int("loaded", len(sm.parts)))
	return sm, errs
}

// ID identifies the instance in logs and draw items.
func (sm *SuperModel) ID() uuid.UUID { return sm.id }

// NumParts returns the number of parts.
func (sm *SuperModel) NumParts() int { return len(sm.parts) }

// Root returns the model a part was created from.
func (sm *SuperModel) Root(i int) *model.Model {
	if i < 0 || i >= len(sm.parts) {
		return nil
	}
	return sm.parts[i].root
}

// Current returns the model selected for part i by the last draw, or nil
// if the part is hidden.
func (sm *SuperModel) Current(i int) *model.Model {
	if i < 0 || i >= len(sm.parts) || sm.parts[i].hidden {
		return nil
	}
	return sm.parts[i].current
}

// LOD returns the detail value of the last draw.
func (sm *SuperModel) LOD() float32 { return sm.lod }

// Bounds returns the range (up, down] in which the selection is reused.
func (sm *SuperModel) Bounds() (up, down float32) { return sm.lodNextUp, sm.lodNextDown }

// Cookie returns the blend cookie of the draw in progress.
func (sm *SuperModel) Cookie() catalogue.Cookie { return sm.cookie }

// Late reports whether late fashions are being dressed.
func (sm *SuperModel) Late() bool { return sm.late }

// Catalogues returns the shared tables the parts are bound to.
func (sm *SuperModel) Catalogues() *catalogue.Catalogues { return sm.cats }

// Release drops the references held on every part.
func (sm *SuperModel) Release() {
	if sm.released {
		return
	}
	sm.released = true
	for _, p := range sm.parts {
		p.root.Release()
	}
	sm.parts = nil
}

// SelectLOD chooses the model drawn for every part at lod, unless lod lies
// within the bounds of the previous selection.
func (sm *SuperModel) SelectLOD(lod float32) {
	sm.lod = lod
	if sm.lodNextUp < lod && lod <= sm.lodNextDown {
		return
	}

	up, down := math32.Inf(-1), math32.Inf(1)
	for i := range sm.parts {
		p := &sm.parts[i]
		p.previous, p.current, p.hidden = nil, p.root, false

		for m := p.root; m != nil; m = m.Parent() {
			ext := m.Extent()
			if ext == -1 || (ext == 0 && m == p.root) {
				p.current = m
				break
			}
			if ext == 0 {
				p.current = p.previous
				p.hidden = true
				break
			}
			if lod <= ext {
				p.current = m
				down = math32.Min(down, ext)
				break
			}
			up = math32.Max(up, ext)
			p.previous = m
			p.current = m
		}
	}

	if up != sm.lodNextUp || down != sm.lodNextDown {
		sm.log.Debug("lod selection changed",
			zap.Float32("lod", lod), zap.Float32("up", up), zap.Float32("down", down))
	}
	sm.lodNextUp, sm.lodNextDown = up, down
}

// Draw resolves and submits every visible part. Fashions dress in order
// before the parts take their default pose; late fashions dress after it.
// Both are undressed in reverse once the parts are submitted.
func (sm *SuperModel) Draw(ctx DrawContext, world math.Mat4, fashions, late []Fashion, r Renderer) {
	if sm.released {
		return
	}
	sm.cookie = sm.cats.Cookies.Next()
	sm.SelectLOD(ctx.LOD(world))

	for _, f := range fashions {
		f.Dress(sm)
	}
	for i := range sm.parts {
		if m := sm.Current(i); m != nil {
			m.DressDefault(sm.cookie)
		}
	}

	sm.late = true
	for _, f := range late {
		f.Dress(sm)
	}
	sm.late = false

	for i := range sm.parts {
		m := sm.Current(i)
		if m == nil {
			continue
		}
		m.Traverse(world, sm.cookie)
		m.ApplyDyes(sm.cookie)
		if r != nil {
			r.Submit(DrawItem{Owner: sm.id, Part: i, Model: m, World: world, Groups: m.Groups()})
		}
	}

	for i := len(late) - 1; i >= 0; i-- {
		late[i].Undress(sm)
	}
	for i := len(fashions) - 1; i >= 0; i-- {
		fashions[i].Undress(sm)
	}
}
