package physics

import (
	"fmt"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
)

// Simulation constants.
const (
	MaximumWeight     = 100
	MovementThreshold = 0.001
	AirResistance     = 5

	// delayFrameRate converts seconds into the frame units particle delays
	// are authored in.
	delayFrameRate = 30
)

// SourceType selects which channel an input feeds or an output reads.
type SourceType int

// Source types.
const (
	SourceX SourceType = iota
	SourceY
	SourceAngle
)

func (t SourceType) String() string {
	switch t {
	case SourceX:
		return formats.PhysicsTypeX
	case SourceY:
		return formats.PhysicsTypeY
	case SourceAngle:
		return formats.PhysicsTypeAngle
	default:
		return fmt.Sprintf("SourceType(%d)", int(t))
	}
}

func parseSourceType(s string) (SourceType, error) {
	switch s {
	case formats.PhysicsTypeX:
		return SourceX, nil
	case formats.PhysicsTypeY:
		return SourceY, nil
	case formats.PhysicsTypeAngle:
		return SourceAngle, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSourceType, s)
	}
}

// Range is a {minimum, default, maximum} triple.
type Range struct {
	Minimum float32
	Default float32
	Maximum float32
}

// Input drives the chain root from a parameter.
type Input struct {
	Source  string
	Type    SourceType
	Weight  float32
	Reflect bool

	index int
}

// Output writes a particle displacement into a parameter.
type Output struct {
	Destination string
	VertexIndex int
	Scale       float32
	Weight      float32
	Type        SourceType
	Reflect     bool

	// Most extreme values seen outside the destination range.
	ValueBelowMinimum    float32
	ValueExceededMaximum float32

	indices []int
}

// Particle is one node of a chain. Index 0 is the anchor.
type Particle struct {
	InitialPosition mathx.Vec2
	Position        mathx.Vec2
	LastPosition    mathx.Vec2
	LastGravity     mathx.Vec2
	Velocity        mathx.Vec2
	Force           mathx.Vec2

	Mobility     float32
	Delay        float32
	Acceleration float32
	Radius       float32
}

// Rig is one simulated chain with its input and output bindings.
type Rig struct {
	ID       string
	Name     string
	Position Range
	Angle    Range

	Inputs    []Input
	Outputs   []Output
	Particles []Particle
}

func newRig(s formats.PhysicsSetting) (*Rig, error) {
	if len(s.Vertices) == 0 {
		return nil, fmt.Errorf("%w: setting %q", ErrNoParticles, s.ID)
	}

	r := &Rig{
		ID:       s.ID,
		Position: Range(s.Normalization.Position),
		Angle:    Range(s.Normalization.Angle),
	}

	for _, in := range s.Input {
		typ, err := parseSourceType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("setting %q input %q: %w", s.ID, in.Source.ID, err)
		}
		r.Inputs = append(r.Inputs, Input{
			Source:  in.Source.ID,
			Type:    typ,
			Weight:  in.Weight,
			Reflect: in.Reflect,
			index:   -1,
		})
	}

	for _, out := range s.Output {
		typ, err := parseSourceType(out.Type)
		if err != nil {
			return nil, fmt.Errorf("setting %q output %q: %w", s.ID, out.Destination.ID, err)
		}
		r.Outputs = append(r.Outputs, Output{
			Destination: out.Destination.ID,
			VertexIndex: out.VertexIndex,
			Scale:       out.Scale,
			Weight:      out.Weight,
			Type:        typ,
			Reflect:     out.Reflect,
		})
	}

	for _, v := range s.Vertices {
		r.Particles = append(r.Particles, Particle{
			Mobility:     v.Mobility,
			Delay:        v.Delay,
			Acceleration: v.Acceleration,
			Radius:       v.Radius,
		})
	}

	r.initialize()
	return r, nil
}

// initialize hangs the chain straight down from the origin, each particle
// one radius below its predecessor, at rest.
func (r *Rig) initialize() {
	down := mathx.Vec2{X: 0, Y: 1}
	for i := range r.Particles {
		p := &r.Particles[i]
		if i == 0 {
			p.InitialPosition = mathx.Vec2{}
		} else {
			p.InitialPosition = r.Particles[i-1].InitialPosition.Add(mathx.Vec2{Y: p.Radius})
		}
		p.Position = p.InitialPosition
		p.LastPosition = p.InitialPosition
		p.LastGravity = down
		p.Velocity = mathx.Vec2{}
		p.Force = mathx.Vec2{}
	}
	for i := range r.Outputs {
		r.Outputs[i].ValueBelowMinimum = 0
		r.Outputs[i].ValueExceededMaximum = 0
	}
}

// aggregate sums the normalized inputs into a root translation and angle.
// Unless angleChannel is set, Angle inputs land in the Y translation
// instead of the angle.
func (r *Rig) aggregate(store ParameterStore, angleChannel bool) (mathx.Vec2, float32) {
	var translation mathx.Vec2
	var angle float32

	for _, in := range r.Inputs {
		if in.index < 0 {
			continue
		}
		value := store.ParameterValueAt(in.index)
		pMin := store.ParameterMinimumAt(in.index)
		pMax := store.ParameterMaximumAt(in.index)
		pDef := store.ParameterDefaultAt(in.index)
		weight := in.Weight / MaximumWeight

		switch in.Type {
		case SourceX:
			translation.X += weight * NormalizeParameterValue(value, pMin, pMax, pDef,
				r.Position.Minimum, r.Position.Maximum, r.Position.Default, in.Reflect)
		case SourceY:
			translation.Y += weight * NormalizeParameterValue(value, pMin, pMax, pDef,
				r.Position.Minimum, r.Position.Maximum, r.Position.Default, in.Reflect)
		case SourceAngle:
			v := weight * NormalizeParameterValue(value, pMin, pMax, pDef,
				r.Angle.Minimum, r.Angle.Maximum, r.Angle.Default, in.Reflect)
			if angleChannel {
				angle += v
			} else {
				translation.Y += v
			}
		}
	}

	return translation.Rotate(mathx.DegToRad(-angle)), angle
}

// step advances the chain by dt seconds with the anchor pinned to root.
func (r *Rig) step(root mathx.Vec2, angle float32, wind mathx.Vec2, dt float32) {
	strand := r.Particles
	strand[0].Position = root

	rad := mathx.DegToRad(angle)
	gravity := mathx.Vec2{X: sin(rad), Y: cos(rad)}.Normalize()
	threshold := float32(MovementThreshold) * r.Position.Maximum

	for i := 1; i < len(strand); i++ {
		p := &strand[i]
		prev := strand[i-1].Position

		p.Force = gravity.Scale(p.Acceleration).Add(wind)
		p.LastPosition = p.Position

		delay := p.Delay * dt * delayFrameRate

		direction := p.Position.Sub(prev)
		direction = direction.Rotate(p.LastGravity.AngleTo(gravity) / AirResistance)

		p.Position = prev.Add(direction).
			Add(p.Velocity.Scale(delay)).
			Add(p.Force.Scale(delay * delay))

		// Rigid rod: keep the particle exactly one radius from its parent.
		p.Position = prev.Add(p.Position.Sub(prev).Normalize().Scale(p.Radius))

		if abs(p.Position.X) < threshold {
			p.Position.X = 0
		}

		if delay != 0 {
			p.Velocity = p.Position.Sub(p.LastPosition).Scale(p.Mobility / delay)
		}

		p.Force = mathx.Vec2{}
		p.LastGravity = gravity
	}
}

// outputValue derives the raw output of o from the chain.
func (r *Rig) outputValue(o *Output, gravity mathx.Vec2) float32 {
	v := o.VertexIndex
	translation := r.Particles[v].Position.Sub(r.Particles[v-1].Position)

	var value float32
	switch o.Type {
	case SourceX:
		value = translation.X
	case SourceY:
		value = translation.Y
	case SourceAngle:
		var parent mathx.Vec2
		if v >= 2 {
			parent = r.Particles[v-1].Position.Sub(r.Particles[v-2].Position)
		} else {
			parent = gravity.Neg()
		}
		value = parent.AngleTo(translation)
	}

	if o.Reflect {
		value = -value
	}
	return value
}

// resolve scales raw into [lo, hi], records excursions and blends the
// result into current by the output weight.
func (o *Output) resolve(raw, current, lo, hi float32) float32 {
	value := raw * o.Scale

	if value < lo {
		if value < o.ValueBelowMinimum {
			o.ValueBelowMinimum = value
		}
		value = lo
	} else if value > hi {
		if value > o.ValueExceededMaximum {
			o.ValueExceededMaximum = value
		}
		value = hi
	}

	weight := o.Weight / MaximumWeight
	if weight >= 1 {
		return value
	}
	return current*(1-weight) + value*weight
}
