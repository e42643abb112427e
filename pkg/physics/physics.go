// Package physics simulates the secondary motion of a puppet: chains of
// damped particles whose roots follow input parameters and whose
// displacements are written back into output parameters.
package physics

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
)

// Setup errors.
var (
	ErrNoParticles       = errors.New("physics: setting has no vertices")
	ErrUnknownSourceType = errors.New("physics: unknown source type")
)

// ParameterStore is the parameter surface the engine reads and writes.
// *model.Model satisfies it.
type ParameterStore interface {
	ResolveParameter(name string) ([]int, bool)
	ParameterValueAt(i int) float32
	ParameterMinimumAt(i int) float32
	ParameterMaximumAt(i int) float32
	ParameterDefaultAt(i int) float32
	SetParameterValueAt(i int, v float32)
}

// Engine owns every rig of a model.
type Engine struct {
	rigs    []*Rig
	gravity mathx.Vec2
	wind    mathx.Vec2

	store        ParameterStore
	angleChannel bool
	log          *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithAngleChannel routes Angle inputs into the root angle. By default
// they accumulate into the Y translation.
func WithAngleChannel(enabled bool) Option {
	return func(e *Engine) {
		e.angleChannel = enabled
	}
}

// New builds an engine from a physics3 descriptor with every chain at
// rest.
func New(src *formats.Physics3, opts ...Option) (*Engine, error) {
	e := &Engine{
		gravity: mathx.Vec2{X: src.Meta.EffectiveForces.Gravity.X, Y: src.Meta.EffectiveForces.Gravity.Y},
		wind:    mathx.Vec2{X: src.Meta.EffectiveForces.Wind.X, Y: src.Meta.EffectiveForces.Wind.Y},
		log:     zap.NewNop(),
	}

	names := make(map[string]string, len(src.Meta.PhysicsDictionary))
	for _, d := range src.Meta.PhysicsDictionary {
		names[d.ID] = d.Name
	}

	for i, s := range src.PhysicsSettings {
		r, err := newRig(s)
		if err != nil {
			return nil, fmt.Errorf("physics setting %d: %w", i, err)
		}
		r.Name = names[s.ID]
		e.rigs = append(e.rigs, r)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Bind resolves every input and output parameter against store and
// returns the ids that did not resolve. Unresolved bindings are skipped
// during evaluation.
func (e *Engine) Bind(store ParameterStore) []string {
	e.store = store

	var unresolved []string
	for _, r := range e.rigs {
		for i := range r.Inputs {
			in := &r.Inputs[i]
			in.index = -1
			if ids, ok := store.ResolveParameter(in.Source); ok && len(ids) > 0 {
				in.index = ids[0]
				continue
			}
			unresolved = append(unresolved, in.Source)
		}
		for i := range r.Outputs {
			out := &r.Outputs[i]
			out.indices = nil
			if ids, ok := store.ResolveParameter(out.Destination); ok {
				out.indices = ids
				continue
			}
			unresolved = append(unresolved, out.Destination)
		}
	}

	for _, id := range unresolved {
		e.log.Debug("physics binding not found", zap.String("id", id))
	}
	return unresolved
}

// Evaluate advances every rig by dt seconds in declaration order and
// writes the outputs through the bound store. Outputs whose vertex index
// does not name a particle with a parent are skipped.
func (e *Engine) Evaluate(dt float32) {
	if e.store == nil {
		return
	}

	for _, r := range e.rigs {
		root, angle := r.aggregate(e.store, e.angleChannel)
		r.step(root, angle, e.wind, dt)

		for i := range r.Outputs {
			out := &r.Outputs[i]
			if out.VertexIndex < 1 || out.VertexIndex >= len(r.Particles) {
				continue
			}
			raw := r.outputValue(out, e.gravity)
			for _, idx := range out.indices {
				v := out.resolve(raw, e.store.ParameterValueAt(idx),
					e.store.ParameterMinimumAt(idx), e.store.ParameterMaximumAt(idx))
				e.store.SetParameterValueAt(idx, v)
			}
		}
	}
}

// Reset puts every chain back at rest and clears the output trackers.
func (e *Engine) Reset() {
	for _, r := range e.rigs {
		r.initialize()
	}
}

// Rigs returns the rigs in declaration order.
func (e *Engine) Rigs() []*Rig { return e.rigs }

// Gravity returns the effective gravity.
func (e *Engine) Gravity() mathx.Vec2 { return e.gravity }

// SetGravity overrides the effective gravity.
func (e *Engine) SetGravity(v mathx.Vec2) { e.gravity = v }

// Wind returns the effective wind.
func (e *Engine) Wind() mathx.Vec2 { return e.wind }

// SetWind overrides the effective wind.
func (e *Engine) SetWind(v mathx.Vec2) { e.wind = v }

func sin(x float32) float32 { return float32(math.Sin(float64(x))) }
func cos(x float32) float32 { return float32(math.Cos(float64(x))) }
func abs(x float32) float32 { return float32(math.Abs(float64(x))) }
