package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
)

func approx(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

type param struct {
	value, min, max, def float32
}

// fakeStore is a parameter table that counts writes.
type fakeStore struct {
	ids    []string
	params []param
	writes []int
}

func newFakeStore(entries map[string]param, order ...string) *fakeStore {
	s := &fakeStore{writes: make([]int, len(order))}
	for _, id := range order {
		s.ids = append(s.ids, id)
		s.params = append(s.params, entries[id])
	}
	return s
}

func (s *fakeStore) ResolveParameter(name string) ([]int, bool) {
	for i, id := range s.ids {
		if id == name {
			return []int{i}, true
		}
	}
	return nil, false
}

func (s *fakeStore) ParameterValueAt(i int) float32   { return s.params[i].value }
func (s *fakeStore) ParameterMinimumAt(i int) float32 { return s.params[i].min }
func (s *fakeStore) ParameterMaximumAt(i int) float32 { return s.params[i].max }
func (s *fakeStore) ParameterDefaultAt(i int) float32 { return s.params[i].def }

func (s *fakeStore) SetParameterValueAt(i int, v float32) {
	s.params[i].value = v
	s.writes[i]++
}

func normRange(lo, def, hi float32) formats.PhysicsRange {
	return formats.PhysicsRange{Minimum: lo, Default: def, Maximum: hi}
}

// pendulum is a two-particle chain with one X input and one X output.
func pendulum() *formats.Physics3 {
	return &formats.Physics3{
		Version: 3,
		Meta: formats.Physics3Meta{
			PhysicsSettingCount: 1,
			EffectiveForces: formats.EffectiveForces{
				Gravity: formats.Vector{X: 0, Y: -1},
			},
			PhysicsDictionary: []formats.PhysicsDictionary{{ID: "Hair", Name: "Front hair"}},
		},
		PhysicsSettings: []formats.PhysicsSetting{{
			ID: "Hair",
			Input: []formats.PhysicsInput{
				{Source: formats.PhysicsTarget{Target: "Parameter", ID: "In"}, Weight: 100, Type: "X", Reflect: true},
			},
			Output: []formats.PhysicsOutput{
				{Destination: formats.PhysicsTarget{Target: "Parameter", ID: "Out"}, VertexIndex: 1, Scale: 1, Weight: 100, Type: "X"},
			},
			Vertices: []formats.PhysicsVertex{
				{Mobility: 1, Delay: 1, Acceleration: 1, Radius: 0},
				{Mobility: 1, Delay: 1, Acceleration: 1, Radius: 10},
			},
			Normalization: formats.PhysicsNormalization{
				Position: normRange(-10, 0, 10),
				Angle:    normRange(-10, 0, 10),
			},
		}},
	}
}

func pendulumStore(in float32) *fakeStore {
	return newFakeStore(map[string]param{
		"In":  {value: in, min: -10, max: 10},
		"Out": {min: -100, max: 100},
	}, "In", "Out")
}

func mustEngine(t *testing.T, src *formats.Physics3, opts ...Option) *Engine {
	t.Helper()
	e, err := New(src, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNormalizeParameterValue(t *testing.T) {
	tests := []struct {
		name                    string
		value, pMin, pMax, pDef float32
		nMin, nMax, nDef        float32
		inverted                bool
		want                    float32
	}{
		{"midpoint", 0, -30, 30, 0, -10, 10, 0, true, 0},
		{"maximum", 30, -30, 30, 0, -10, 10, 0, true, 10},
		{"maximum negated", 30, -30, 30, 0, -10, 10, 0, false, -10},
		{"negative half", -15, -30, 30, 0, -10, 10, 0, true, -5},
		{"clamped above", 100, -30, 30, 0, -10, 10, 0, true, 10},
		{"clamped below", -100, -30, 30, 0, -10, 10, 0, true, -10},
		{"swapped parameter range", 30, 30, -30, 0, -10, 10, 0, true, 10},
		{"swapped normalization range", 30, -30, 30, 0, 10, -10, 0, true, 10},
		{"asymmetric upper", 1, 0, 1, 0, -10, 20, 5, true, 20},
		{"asymmetric lower", 0, 0, 1, 0, -10, 20, 5, true, -10},
		{"asymmetric middle", 0.5, 0, 1, 0, -10, 20, 5, true, 5},
		{"zero-length range", 7, 5, 5, 5, -10, 10, 2, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeParameterValue(tt.value, tt.pMin, tt.pMax, tt.pDef, tt.nMin, tt.nMax, tt.nDef, tt.inverted)
			if math.IsNaN(float64(got)) || !approx(got, tt.want, 1e-5) {
				t.Errorf("NormalizeParameterValue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInitializesChain(t *testing.T) {
	src := pendulum()
	src.PhysicsSettings[0].Vertices = append(src.PhysicsSettings[0].Vertices,
		formats.PhysicsVertex{Mobility: 1, Delay: 1, Acceleration: 1, Radius: 5})

	e := mustEngine(t, src)
	if len(e.Rigs()) != 1 {
		t.Fatalf("rigs = %d, want 1", len(e.Rigs()))
	}
	r := e.Rigs()[0]
	if r.Name != "Front hair" {
		t.Errorf("name = %q, want Front hair", r.Name)
	}

	want := []mathx.Vec2{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 15}}
	for i, p := range r.Particles {
		if p.Position != want[i] || p.InitialPosition != want[i] {
			t.Errorf("particle %d at %+v, want %+v", i, p.Position, want[i])
		}
		if p.LastGravity != (mathx.Vec2{X: 0, Y: 1}) {
			t.Errorf("particle %d last gravity %+v, want (0, 1)", i, p.LastGravity)
		}
	}
}

func TestNewErrors(t *testing.T) {
	noVertices := pendulum()
	noVertices.PhysicsSettings[0].Vertices = nil
	if _, err := New(noVertices); !errors.Is(err, ErrNoParticles) {
		t.Errorf("expected ErrNoParticles, got %v", err)
	}

	badType := pendulum()
	badType.PhysicsSettings[0].Input[0].Type = "Z"
	if _, err := New(badType); !errors.Is(err, ErrUnknownSourceType) {
		t.Errorf("expected ErrUnknownSourceType, got %v", err)
	}
}

func TestBindReportsUnresolved(t *testing.T) {
	e := mustEngine(t, pendulum())
	store := newFakeStore(map[string]param{"In": {min: -10, max: 10}}, "In")

	got := e.Bind(store)
	if len(got) != 1 || got[0] != "Out" {
		t.Errorf("unresolved = %v, want [Out]", got)
	}
	e.Evaluate(1.0 / 30)
}

func TestEvaluateWithoutStore(t *testing.T) {
	e := mustEngine(t, pendulum())
	e.Evaluate(1.0 / 30)
	if p := e.Rigs()[0].Particles[1].Position; p != (mathx.Vec2{X: 0, Y: 10}) {
		t.Errorf("unbound engine moved particle to %+v", p)
	}
}

func TestEvaluateAtRest(t *testing.T) {
	e := mustEngine(t, pendulum())
	store := pendulumStore(0)
	e.Bind(store)

	for i := 0; i < 60; i++ {
		e.Evaluate(1.0 / 30)
	}

	p := e.Rigs()[0].Particles[1].Position
	if !approx(p.X, 0, 1e-5) || !approx(p.Y, 10, 1e-4) {
		t.Errorf("resting particle drifted to %+v", p)
	}
	if !approx(store.params[1].value, 0, 1e-5) {
		t.Errorf("Out = %v, want 0 at rest", store.params[1].value)
	}
}

func TestEvaluateSwingsOutput(t *testing.T) {
	e := mustEngine(t, pendulum())
	store := pendulumStore(10)
	e.Bind(store)

	e.Evaluate(1.0 / 30)

	r := e.Rigs()[0]
	if r.Particles[0].Position != (mathx.Vec2{X: 10, Y: 0}) {
		t.Fatalf("anchor at %+v, want (10, 0)", r.Particles[0].Position)
	}
	// The particle lags behind the anchor: direction (-10, 11) scaled to
	// the radius.
	want := float32(-100 / math.Sqrt(221))
	if got := store.params[1].value; !approx(got, want, 1e-3) {
		t.Errorf("Out = %v, want %v", got, want)
	}
}

func TestRigidRodInvariant(t *testing.T) {
	src := pendulum()
	src.PhysicsSettings[0].Vertices = []formats.PhysicsVertex{
		{Mobility: 1, Delay: 1, Acceleration: 1, Radius: 0},
		{Mobility: 0.95, Delay: 0.9, Acceleration: 1.5, Radius: 8},
		{Mobility: 0.9, Delay: 0.8, Acceleration: 2, Radius: 6},
		{Mobility: 0.85, Delay: 0.7, Acceleration: 1, Radius: 4},
	}
	src.Meta.EffectiveForces.Wind = formats.Vector{X: 0.3, Y: 0}
	e := mustEngine(t, src)
	store := pendulumStore(0)
	e.Bind(store)

	for frame := 0; frame < 240; frame++ {
		store.params[0].value = float32(10 * math.Sin(float64(frame)/10))
		e.Evaluate(1.0 / 60)

		ps := e.Rigs()[0].Particles
		for i := 1; i < len(ps); i++ {
			d := ps[i].Position.Distance(ps[i-1].Position)
			// Snapping X below the movement threshold may shorten the rod
			// by at most the threshold itself.
			if !approx(d, ps[i].Radius, 0.011) {
				t.Fatalf("frame %d: particle %d is %v from its parent, radius %v", frame, i, d, ps[i].Radius)
			}
		}
	}
}

func TestZeroDelayKeepsVelocity(t *testing.T) {
	src := pendulum()
	src.PhysicsSettings[0].Vertices[1].Delay = 0
	e := mustEngine(t, src)
	e.Bind(pendulumStore(10))

	e.Evaluate(1.0 / 30)

	p := e.Rigs()[0].Particles[1]
	if p.Velocity != (mathx.Vec2{}) {
		t.Errorf("velocity = %+v, want zero", p.Velocity)
	}
	if d := p.Position.Distance(e.Rigs()[0].Particles[0].Position); !approx(d, 10, 1e-4) {
		t.Errorf("distance = %v, want radius 10", d)
	}
}

func TestAngleInputFeedsTranslationY(t *testing.T) {
	src := pendulum()
	src.PhysicsSettings[0].Input[0].Type = "Angle"
	src.PhysicsSettings[0].Normalization.Angle = normRange(-20, 0, 20)

	t.Run("default", func(t *testing.T) {
		e := mustEngine(t, src)
		e.Bind(pendulumStore(10))

		root, angle := e.Rigs()[0].aggregate(e.store, e.angleChannel)
		if angle != 0 {
			t.Errorf("angle = %v, want 0", angle)
		}
		if !approx(root.X, 0, 1e-6) || !approx(root.Y, 20, 1e-5) {
			t.Errorf("root = %+v, want (0, 20)", root)
		}
	})

	t.Run("angle channel", func(t *testing.T) {
		e := mustEngine(t, src, WithAngleChannel(true))
		e.Bind(pendulumStore(10))

		root, angle := e.Rigs()[0].aggregate(e.store, e.angleChannel)
		if angle != 20 {
			t.Errorf("angle = %v, want 20", angle)
		}
		if root != (mathx.Vec2{}) {
			t.Errorf("root = %+v, want origin", root)
		}
	})
}

func TestOutputResolve(t *testing.T) {
	tests := []struct {
		name            string
		raw, current    float32
		scale, weight   float32
		want            float32
		below, exceeded float32
	}{
		{"in range", 0.5, 0, 10, 100, 5, 0, 0},
		{"clamped high", 2, 0, 10, 100, 10, 0, 20},
		{"clamped low", -3, 0, 10, 100, -10, -30, 0},
		{"half weight", 0.5, 0, 10, 50, 2.5, 0, 0},
		{"half weight from current", 0, 4, 10, 50, 2, 0, 0},
		{"overweight", 0.2, 9, 10, 150, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Output{Scale: tt.scale, Weight: tt.weight}
			got := o.resolve(tt.raw, tt.current, -10, 10)
			if !approx(got, tt.want, 1e-5) {
				t.Errorf("resolve = %v, want %v", got, tt.want)
			}
			if o.ValueBelowMinimum != tt.below || o.ValueExceededMaximum != tt.exceeded {
				t.Errorf("trackers = (%v, %v), want (%v, %v)",
					o.ValueBelowMinimum, o.ValueExceededMaximum, tt.below, tt.exceeded)
			}
		})
	}
}

func TestOutputsWithoutParentAreSkipped(t *testing.T) {
	src := pendulum()
	setting := &src.PhysicsSettings[0]
	setting.Output = []formats.PhysicsOutput{
		{Destination: formats.PhysicsTarget{ID: "Anchor"}, VertexIndex: 0, Scale: 1, Weight: 100, Type: "X"},
		{Destination: formats.PhysicsTarget{ID: "Beyond"}, VertexIndex: 5, Scale: 1, Weight: 100, Type: "X"},
		{Destination: formats.PhysicsTarget{ID: "Out"}, VertexIndex: 1, Scale: 1, Weight: 100, Type: "X"},
	}
	e := mustEngine(t, src)
	store := newFakeStore(map[string]param{
		"In":     {value: 10, min: -10, max: 10},
		"Anchor": {min: -100, max: 100},
		"Beyond": {min: -100, max: 100},
		"Out":    {min: -100, max: 100},
	}, "In", "Anchor", "Beyond", "Out")
	e.Bind(store)

	e.Evaluate(1.0 / 30)

	if store.writes[1] != 0 || store.writes[2] != 0 {
		t.Errorf("skipped outputs written: anchor %d, beyond %d", store.writes[1], store.writes[2])
	}
	if store.writes[3] != 1 {
		t.Errorf("Out written %d times, want 1", store.writes[3])
	}
}

func TestOutputAngle(t *testing.T) {
	src := pendulum()
	src.PhysicsSettings[0].Output[0].Type = "Angle"
	e := mustEngine(t, src)
	r := e.Rigs()[0]

	// Particle swung level with the anchor.
	r.Particles[1].Position = mathx.Vec2{X: 10, Y: 0}
	got := r.outputValue(&r.Outputs[0], e.Gravity())
	if !approx(got, -math.Pi/2, 1e-5) {
		t.Errorf("angle = %v, want -pi/2", got)
	}

	r.Outputs[0].Reflect = true
	got = r.outputValue(&r.Outputs[0], e.Gravity())
	if !approx(got, math.Pi/2, 1e-5) {
		t.Errorf("reflected angle = %v, want pi/2", got)
	}
}

func TestReset(t *testing.T) {
	e := mustEngine(t, pendulum())
	e.Bind(pendulumStore(10))
	e.Evaluate(1.0 / 30)
	e.Evaluate(1.0 / 30)

	e.Reset()
	p := e.Rigs()[0].Particles[1]
	if p.Position != (mathx.Vec2{X: 0, Y: 10}) || p.Velocity != (mathx.Vec2{}) {
		t.Errorf("after reset: position %+v velocity %+v", p.Position, p.Velocity)
	}
}
