package model

import (
	"slices"

	"github.com/Faultbox/supermodel/internal/assets"
)

// MatchState is the caller's movement state tested against action
// constraints.
type MatchState struct {
	Speed float32
	Yaw   float32
	Aux1  float32
	Caps  []int
}

// Constraints bound the states an action may be matched in.
type Constraints struct {
	MinSpeed, MaxSpeed float32
	MinAux1, MaxAux1   float32
	MinYaw, MaxYaw     float32
	CapsOn             []int
	CapsOff            []int
}

// Satisfied reports whether st lies within the constraints and carries
// every required capability and none of the excluded ones.
func (c Constraints) Satisfied(st MatchState) bool {
	if st.Speed < c.MinSpeed || st.Speed > c.MaxSpeed {
		return false
	}
	if st.Aux1 < c.MinAux1 || st.Aux1 > c.MaxAux1 {
		return false
	}
	if st.Yaw < c.MinYaw || st.Yaw > c.MaxYaw {
		return false
	}
	for _, want := range c.CapsOn {
		if !slices.Contains(st.Caps, want) {
			return false
		}
	}
	for _, want := range c.CapsOff {
		if slices.Contains(st.Caps, want) {
			return false
		}
	}
	return true
}

// MatchInfo holds the trigger and cancel constraints of a matchable action.
type MatchInfo struct {
	Trigger Constraints
	Cancel  Constraints
}

// Action is a named, parameterised use of an animation.
type Action struct {
	Name          string
	AnimationName string
	BlendInTime   float32
	BlendOutTime  float32
	Track         int

	Filler        bool
	IsMovement    bool
	IsCoordinated bool
	IsImpacting   bool
	IsLooping     bool

	Match *MatchInfo
}

const unbounded = 1e9

func readConstraints(sec *assets.Section) Constraints {
	c := Constraints{
		MinSpeed: -unbounded, MaxSpeed: unbounded,
		MinAux1: -unbounded, MaxAux1: unbounded,
		MinYaw: -unbounded, MaxYaw: unbounded,
	}
	if sec == nil {
		return c
	}
	c.MinSpeed = sec.ReadFloat("minSpeed", c.MinSpeed)
	c.MaxSpeed = sec.ReadFloat("maxSpeed", c.MaxSpeed)
	c.MinAux1 = sec.ReadFloat("minAux1", c.MinAux1)
	c.MaxAux1 = sec.ReadFloat("maxAux1", c.MaxAux1)
	c.MinYaw = sec.ReadFloat("minYaw", c.MinYaw)
	c.MaxYaw = sec.ReadFloat("maxYaw", c.MaxYaw)
	if err := sec.Decode("capsOn", &c.CapsOn); err != nil {
		c.CapsOn = nil
	}
	if err := sec.Decode("capsOff", &c.CapsOff); err != nil {
		c.CapsOff = nil
	}
	return c
}

func readAction(sec *assets.Section) *Action {
	a := &Action{
		Name:          sec.ReadString("name", ""),
		AnimationName: sec.ReadString("animation", ""),
		BlendInTime:   sec.ReadFloat("blendInTime", 0.3),
		BlendOutTime:  sec.ReadFloat("blendOutTime", 0.3),
		Track:         sec.ReadInt("track", -1),
		Filler:        sec.ReadBool("filler", false),
		IsMovement:    sec.ReadBool("isMovement", false),
		IsCoordinated: sec.ReadBool("isCoordinated", false),
		IsImpacting:   sec.ReadBool("isImpacting", false),
		IsLooping:     sec.ReadBool("isLooping", false),
	}
	if match := sec.Open("match"); match != nil {
		a.Match = &MatchInfo{
			Trigger: readConstraints(match.Open("trigger")),
			Cancel:  readConstraints(match.Open("cancel")),
		}
	}
	return a
}
