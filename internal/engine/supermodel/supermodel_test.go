package supermodel

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/engine/model"
	"github.com/Faultbox/supermodel/pkg/math"
)

var testDocs = map[string]string{
	"hat":      "parent: hat_lod1\nextent: 5\n",
	"hat_lod1": "parent: hat_lod2\nextent: 20\n",
	"hat_lod2": "extent: -1\n",

	"gun":     "parent: gun_far\nextent: 10\n",
	"gun_far": "parent: gun_end\nextent: 0\n",
	"gun_end": "extent: -1\n",

	"marker": "extent: 0\n",

	"body": `
extent: -1
node:
  name: Root
  node:
    - name: Spine
      position: [0, 1, 0]
      node:
        - name: Neck
          position: [0, 0.5, 0]
    - name: Tail
      position: [0, 0, -1]
material:
  - identifier: body_mat
    effect: shaders/skinned.fx
    property:
      bodyColour: [1, 1, 1, 1]
  - identifier: eyes_mat
    effect: shaders/std.fx
primitiveGroup:
  - {material: body_mat, start: 0, count: 300}
  - {material: eyes_mat, start: 300, count: 12}
  - {material: body_mat, start: 312, count: 90}
animation:
  - name: nod
    frameRate: 10
    frames: 10
    channel:
      - node: Neck
        position:
          - {frame: 0, value: [0, 0.5, 0]}
          - {frame: 10, value: [0, 1.5, 0]}
action:
  - name: Nod
    animation: nod
    blendInTime: 0.5
    blendOutTime: 0.25
dye:
  - matter: body
    replaces: body_mat
    tint:
      - name: Red
        material: {identifier: body_red, effect: shaders/skinned.fx}
        property:
          - {name: bodyColour, default: [1, 0, 0, 1]}
      - name: Blue
        material: {identifier: body_blue, effect: shaders/skinned.fx}
        property:
          - {name: bodyColour, default: [0, 0, 1, 1]}
`,
}

type recorder struct {
	items []DrawItem
}

func (r *recorder) Submit(item DrawItem) { r.items = append(r.items, item) }

func newRegistry(t *testing.T) *model.Registry {
	t.Helper()
	src := assets.NewMemSource()
	for name, doc := range testDocs {
		src.Set(name+".model", []byte(doc))
	}
	m := assets.NewManager(".model")
	m.AddSource(src)
	return model.NewRegistry(m, catalogue.New())
}

func newSuperModel(t *testing.T, names ...string) *SuperModel {
	t.Helper()
	sm, err := New(newRegistry(t), names...)
	require.NoError(t, err)
	t.Cleanup(sm.Release)
	return sm
}

func TestHatLODSelection(t *testing.T) {
	sm := newSuperModel(t, "hat")

	tests := []struct {
		lod      float32
		want     string
		up, down float32
	}{
		{12, "hat_lod1", 5, 20},
		{2, "hat", math32.Inf(-1), 5},
		{1000, "hat_lod2", 20, math32.Inf(1)},
	}
	for _, tt := range tests {
		sm.SelectLOD(tt.lod)
		assert.Equal(t, tt.want, sm.Current(0).Name(), "lod %v", tt.lod)
		up, down := sm.Bounds()
		assert.Equal(t, tt.up, up, "up at lod %v", tt.lod)
		assert.Equal(t, tt.down, down, "down at lod %v", tt.lod)
	}
}

func TestLODHysteresis(t *testing.T) {
	sm := newSuperModel(t, "hat")
	sm.SelectLOD(12)
	first := sm.Current(0)

	for _, lod := range []float32{5.5, 19, 20, 13, 6} {
		sm.SelectLOD(lod)
		assert.Same(t, first, sm.Current(0), "lod %v", lod)
	}

	sm.SelectLOD(20.5)
	assert.Equal(t, "hat_lod2", sm.Current(0).Name())
	sm.SelectLOD(5)
	assert.Equal(t, "hat", sm.Current(0).Name())
}

func TestExtentZeroHidesPart(t *testing.T) {
	sm := newSuperModel(t, "gun", "marker")

	sm.SelectLOD(5)
	require.NotNil(t, sm.Current(0))
	assert.Equal(t, "gun", sm.Current(0).Name())

	sm.SelectLOD(50)
	assert.Nil(t, sm.Current(0), "gun is hidden past its zero extent")
	require.NotNil(t, sm.Current(1), "a root with zero extent is always shown")
	assert.Equal(t, "marker", sm.Current(1).Name())

	var r recorder
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}).WithLOD(50), math.Identity(), nil, nil, &r)
	require.Len(t, r.items, 1)
	assert.Equal(t, 1, r.items[0].Part)
}

func TestDrawContextLOD(t *testing.T) {
	ctx := NewDrawContext(math.Vec3{}, math.Vec3{Z: 1})
	assert.InDelta(t, 12, ctx.LOD(math.Translate(3, 0, 12)), 1e-5)
	assert.InDelta(t, 6, ctx.LOD(math.Translate(0, 0, 12).Mul(math.Scale(1, 2, 1))), 1e-5)

	ctx.Zoom = 2
	assert.InDelta(t, 24, ctx.LOD(math.Translate(0, 0, 12)), 1e-5)
	assert.Equal(t, float32(3), ctx.WithLOD(3).LOD(math.Translate(0, 0, 12)))
}

func TestDrawSelectsByCameraDistance(t *testing.T) {
	sm := newSuperModel(t, "hat")
	var r recorder
	ctx := NewDrawContext(math.Vec3{}, math.Vec3{Z: 1})

	sm.Draw(ctx, math.Translate(0, 0, 12), nil, nil, &r)
	require.Len(t, r.items, 1)
	assert.Equal(t, "hat_lod1", r.items[0].Model.Name())
	assert.Equal(t, sm.ID(), r.items[0].Owner)
	assert.Equal(t, float32(12), sm.LOD())
}

func TestDefaultPoseCoverage(t *testing.T) {
	sm := newSuperModel(t, "body")
	var r recorder
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Translate(0, 0, 3), nil, nil, &r)

	cookie := sm.Cookie()
	nodes := sm.Catalogues().Nodes
	for _, name := range []string{"Root", "Spine", "Neck", "Tail"} {
		n := nodes.Find(name)
		require.NotNil(t, n, name)
		assert.Equal(t, float32(1), n.Weight(cookie), name)
		assert.True(t, n.Transform(cookie).ApproxEqual(n.Reference(), 1e-5), name)
	}
	neck := nodes.Find("Neck").World().Translation()
	assert.True(t, neck.ApproxEqual(math.Vec3{Y: 1.5, Z: 3}, 1e-5))
}

func TestBodyDyeRedThenDefault(t *testing.T) {
	sm := newSuperModel(t, "body")
	ctx := NewDrawContext(math.Vec3{}, math.Vec3{Z: 1})

	red := sm.GetDye(model.DyeSelection{Matter: "body", Tint: "Red"})
	require.NotNil(t, red)
	assert.Nil(t, sm.GetDye(model.DyeSelection{Matter: "hair", Tint: "Red"}))

	var r recorder
	sm.Draw(ctx, math.Identity(), []Fashion{red}, nil, &r)
	groups := r.items[0].Groups
	assert.Equal(t, "body_red", groups[0].Material.Identifier)
	assert.Equal(t, "eyes_mat", groups[1].Material.Identifier)
	assert.Equal(t, "body_red", groups[2].Material.Identifier)

	props := sm.Catalogues().Properties
	slot, ok := props.Lookup("bodyColour")
	require.True(t, ok)
	assert.Equal(t, math.Vec4{1, 0, 0, 1}, props.Value(slot))

	blue := sm.GetDye(model.DyeSelection{
		Matter:     "body",
		Tint:       "Blue",
		Properties: []model.PropertySetting{{Name: "bodyColour", Value: math.Vec4{0, 0, 0, 0.5}, Mask: math.MaskW}},
	})
	sm.Draw(ctx, math.Identity(), []Fashion{blue}, nil, &r)
	assert.Equal(t, "body_blue", r.items[1].Groups[0].Material.Identifier)
	assert.Equal(t, math.Vec4{0, 0, 1, 0.5}, props.Value(slot))

	sm.Draw(ctx, math.Identity(), nil, nil, &r)
	assert.Equal(t, "body_mat", r.items[2].Groups[0].Material.Identifier)
	assert.Equal(t, math.Vec4{1, 1, 1, 1}, props.Value(slot))
}

type nestedDraw struct {
	other *SuperModel
}

func (f nestedDraw) Dress(*SuperModel) {
	f.other.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), nil, nil, nil)
}

func (f nestedDraw) Undress(*SuperModel) {}

func TestDyeSurvivesInterleavedDraw(t *testing.T) {
	reg := newRegistry(t)
	a, err := New(reg, "body")
	require.NoError(t, err)
	defer a.Release()
	b, err := New(reg, "hat")
	require.NoError(t, err)
	defer b.Release()

	red := a.GetDye(model.DyeSelection{Matter: "body", Tint: "Red"})
	require.NotNil(t, red)

	var r recorder
	a.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(),
		[]Fashion{nestedDraw{other: b}, red}, nil, &r)

	require.NotEqual(t, a.Cookie(), reg.Catalogues().Cookies.Current(), "b advanced the counter mid draw")
	require.Len(t, r.items, 1)
	assert.Equal(t, "body_red", r.items[0].Groups[0].Material.Identifier)
	tint, err := a.Current(0).Tint("body")
	require.NoError(t, err)
	assert.Equal(t, "Red", tint)
}

func TestAnimationFashion(t *testing.T) {
	sm := newSuperModel(t, "body", "hat")
	assert.Nil(t, sm.GetAnimation("dance"))

	nod := sm.GetAnimation("nod")
	require.NotNil(t, nod)
	nod.Time = 0.5
	nod.Looping = false

	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), []Fashion{nod}, nil, nil)
	neck := sm.Catalogues().Nodes.Find("Neck")
	assert.InDelta(t, 1.0, neck.Transform(sm.Cookie()).Translation.Y, 1e-5)

	nod.Weight = 0.5
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), []Fashion{nod}, nil, nil)
	assert.InDelta(t, 0.75, neck.Transform(sm.Cookie()).Translation.Y, 1e-5, "default pose fills the rest")
}

func TestLateFashionOverlays(t *testing.T) {
	sm := newSuperModel(t, "body")
	ctx := NewDrawContext(math.Vec3{}, math.Vec3{Z: 1})

	early := sm.GetAnimation("nod")
	early.Looping = false
	early.Time = 1

	late := sm.GetAnimation("nod")
	late.Looping = false
	late.Time = 0
	late.Weight = 0.5

	sm.Draw(ctx, math.Identity(), []Fashion{early}, []Fashion{late}, nil)
	neck := sm.Catalogues().Nodes.Find("Neck")
	assert.InDelta(t, 1.0, neck.Transform(sm.Cookie()).Translation.Y, 1e-5)
	assert.Equal(t, float32(1), neck.Weight(sm.Cookie()))
}

type orderFashion struct {
	name string
	log  *[]string
}

func (f orderFashion) Dress(sm *SuperModel) {
	phase := "dress"
	if sm.Late() {
		phase = "late"
	}
	*f.log = append(*f.log, phase+":"+f.name)
}

func (f orderFashion) Undress(*SuperModel) { *f.log = append(*f.log, "undress:"+f.name) }

func TestDrawOrder(t *testing.T) {
	sm := newSuperModel(t, "body")
	var log []string
	a := orderFashion{"a", &log}
	b := orderFashion{"b", &log}
	c := orderFashion{"c", &log}

	r := RendererFunc(func(DrawItem) { log = append(log, "submit") })
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), []Fashion{a, b}, []Fashion{c}, r)

	assert.Equal(t, []string{
		"dress:a", "dress:b", "late:c", "submit", "undress:c", "undress:b", "undress:a",
	}, log)
}

func TestActionFashionBlends(t *testing.T) {
	sm := newSuperModel(t, "body")
	assert.Nil(t, sm.GetAction("Wave"))

	nod := sm.GetAction("Nod")
	require.NotNil(t, nod)
	assert.Equal(t, float32(0), nod.Weight())

	nod.Time = 0.25
	assert.InDelta(t, 0.5, nod.Weight(), 1e-5)
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), []Fashion{nod}, nil, nil)
	assert.Equal(t, float32(0), nod.Delta())

	nod.Time = 0.75
	assert.InDelta(t, 0.5, nod.Delta(), 1e-5)
	assert.Equal(t, float32(1), nod.Weight())
	assert.False(t, nod.Finished())

	nod.Stop()
	nod.Time = 0.875
	assert.InDelta(t, 0.5, nod.Weight(), 1e-5)
	nod.Time = 1
	assert.True(t, nod.Finished())
}

func TestPartialLoadKeepsOtherParts(t *testing.T) {
	reg := newRegistry(t)
	sm, err := New(reg, "hat", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLoadFailure))
	require.NotNil(t, sm)
	assert.Equal(t, 1, sm.NumParts())

	sm.Release()
	assert.Empty(t, reg.Names())
	sm.Release()
}

func TestReleasedSuperModelDoesNotDraw(t *testing.T) {
	sm, err := New(newRegistry(t), "hat")
	require.NoError(t, err)
	sm.Release()

	var r recorder
	sm.Draw(NewDrawContext(math.Vec3{}, math.Vec3{Z: 1}), math.Identity(), nil, nil, &r)
	assert.Empty(t, r.items)
}
