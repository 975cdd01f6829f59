package supermodel

import (
	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/engine/model"
)

// Fashion changes how a SuperModel looks for the duration of one draw.
type Fashion interface {
	Dress(sm *SuperModel)
	Undress(sm *SuperModel)
}

// AnimationFashion plays one animation on every part that has it.
type AnimationFashion struct {
	Name    string
	Time    float32
	Weight  float32
	Looping bool

	indices []int
}

// GetAnimation resolves name on every part. Indices are taken from the
// part roots; lower detail levels that lack the animation keep their
// default pose.
func (sm *SuperModel) GetAnimation(name string) *AnimationFashion {
	f := &AnimationFashion{Name: name, Weight: 1, Looping: true, indices: make([]int, len(sm.parts))}
	found := false
	for i, p := range sm.parts {
		f.indices[i] = p.root.AnimationIndex(name)
		found = found || f.indices[i] >= 0
	}
	if !found {
		sm.log.Debug("animation not found", zap.String("animation", name))
		return nil
	}
	return f
}

// Dress plays the animation into the shared skeleton.
func (f *AnimationFashion) Dress(sm *SuperModel) {
	for i, idx := range f.indices {
		if idx < 0 {
			continue
		}
		m := sm.Current(i)
		if m == nil {
			continue
		}
		anim := m.Animation(idx)
		if anim == nil {
			continue
		}
		anim.Play(sm.Cookie(), f.Time, f.Weight, f.Looping, sm.Late())
	}
}

// Undress does nothing; node writes expire with the cookie.
func (f *AnimationFashion) Undress(*SuperModel) {}

// ActionFashion plays an action, ramping its weight in and out by the
// action's blend times.
type ActionFashion struct {
	Action *model.Action
	Time   float32

	stopAt   float32
	stopping bool
	lastTime float32
	duration float32
	indices  []int
}

// GetAction finds name on the part roots or their ancestors.
func (sm *SuperModel) GetAction(name string) *ActionFashion {
	var act *model.Action
	for _, p := range sm.parts {
		if act = p.root.Action(name); act != nil {
			break
		}
	}
	if act == nil {
		sm.log.Debug("action not found", zap.String("action", name))
		return nil
	}
	f := &ActionFashion{Action: act, indices: make([]int, len(sm.parts))}
	for i, p := range sm.parts {
		f.indices[i] = p.root.AnimationIndex(act.AnimationName)
		if f.indices[i] < 0 {
			continue
		}
		if d := p.root.Animation(f.indices[i]).Duration(); d > f.duration {
			f.duration = d
		}
	}
	return f
}

// Stop starts blending the action out from the current time.
func (f *ActionFashion) Stop() {
	if !f.stopping {
		f.stopping = true
		f.stopAt = f.Time
	}
}

// Weight returns the blend weight at the current time.
func (f *ActionFashion) Weight() float32 {
	w := float32(1)
	if in := f.Action.BlendInTime; in > 0 && f.Time < in {
		w = f.Time / in
	}
	if f.stopping {
		out := f.Action.BlendOutTime
		if out <= 0 {
			return 0
		}
		w *= 1 - (f.Time-f.stopAt)/out
	}
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}

// Finished reports whether the action has fully blended out, or reached
// its end without looping.
func (f *ActionFashion) Finished() bool {
	if f.stopping && f.Weight() <= 0 {
		return true
	}
	if f.Action.IsLooping {
		return false
	}
	return f.Time >= f.duration
}

// Delta returns the time advanced since the previous draw.
func (f *ActionFashion) Delta() float32 { return f.Time - f.lastTime }

// Dress plays the action's animation at its current weight.
func (f *ActionFashion) Dress(sm *SuperModel) {
	w := f.Weight()
	if w <= 0 {
		return
	}
	for i, idx := range f.indices {
		if idx < 0 {
			continue
		}
		m := sm.Current(i)
		if m == nil {
			continue
		}
		if anim := m.Animation(idx); anim != nil {
			anim.Play(sm.Cookie(), f.Time, w, f.Action.IsLooping, sm.Late())
		}
	}
}

// Undress records the time drawn so Delta measures the next step.
func (f *ActionFashion) Undress(*SuperModel) { f.lastTime = f.Time }

// Dye soaks a matter with a tint on every part that has the matter.
type Dye struct {
	Selection model.DyeSelection

	overrides []catalogue.PropertyWrite
}

// GetDye resolves sel against the parts. It returns nil when no part has
// the matter.
func (sm *SuperModel) GetDye(sel model.DyeSelection) *Dye {
	for _, p := range sm.parts {
		if p.root.GetDye(sel.Matter, sel.Tint).Valid() {
			return &Dye{Selection: sel, overrides: sel.Writes(sm.cats.Properties)}
		}
	}
	sm.log.Debug("dye matter not found", zap.String("matter", sel.Matter), zap.Error(model.ErrUnknownMatter))
	return nil
}

// Dress emulsifies the matter on each visible part's selected model.
func (d *Dye) Dress(sm *SuperModel) {
	for i := range sm.parts {
		m := sm.Current(i)
		if m == nil {
			continue
		}
		idx := m.GetDye(d.Selection.Matter, d.Selection.Tint)
		if !idx.Valid() {
			continue
		}
		if err := m.Soak(sm.Cookie(), idx, d.overrides); err != nil {
			sm.log.Debug("dye soak failed", zap.String("model", m.Name()),
				zap.String("matter", d.Selection.Matter), zap.Error(err))
		}
	}
}

// Undress does nothing; matters revert to Default on the next draw that
// does not soak them.
func (d *Dye) Undress(*SuperModel) {}
