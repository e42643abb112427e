package viewer

import (
	"github.com/charmbracelet/harmonica"

	"github.com/Faultbox/marionette/pkg/model"
)

// followGains maps pointer offsets onto head, body and eye parameters.
// Each value is default + X*gainX + Y*gainY + X*Y*gainXY.
var followGains = []struct {
	id                   string
	gainX, gainY, gainXY float32
}{
	{"ParamAngleX", 30, 0, 0},
	{"ParamAngleY", 0, 30, 0},
	{"ParamAngleZ", 0, 0, -30},
	{"ParamBodyAngleX", 10, 0, 0},
	{"ParamEyeBallX", 1, 0, 0},
	{"ParamEyeBallY", 0, 1, 0},
}

type followBinding struct {
	index                int
	gainX, gainY, gainXY float32
}

// Follow smooths a pointer position with a damped spring and turns the
// model towards it. It is a puppet.Driver.
type Follow struct {
	frequency, damping float64
	spring             harmonica.Spring
	springDT           float32

	x, vx float64
	y, vy float64

	targetX, targetY float64

	enabled  bool
	bindings []followBinding
}

// NewFollow binds the follow parameters m has. Missing ones are ignored.
func NewFollow(m *model.Model, frequency, damping float64) *Follow {
	f := &Follow{frequency: frequency, damping: damping, enabled: true}
	for _, g := range followGains {
		i, ok := m.ParameterIndex(g.id)
		if !ok {
			continue
		}
		f.bindings = append(f.bindings, followBinding{index: i, gainX: g.gainX, gainY: g.gainY, gainXY: g.gainXY})
	}
	return f
}

// SetTarget sets the pointer position in [-1, 1], +Y up.
func (f *Follow) SetTarget(x, y float32) {
	f.targetX = float64(clampUnit(x))
	f.targetY = float64(clampUnit(y))
}

// Target returns the current pointer target.
func (f *Follow) Target() (x, y float32) {
	return float32(f.targetX), float32(f.targetY)
}

// Position returns the smoothed pointer position.
func (f *Follow) Position() (x, y float32) {
	return float32(f.x), float32(f.y)
}

// SetEnabled turns parameter writes on or off. Disabling also recenters
// the spring so re-enabling starts from rest.
func (f *Follow) SetEnabled(enabled bool) {
	f.enabled = enabled
	if !enabled {
		f.x, f.vx, f.y, f.vy = 0, 0, 0, 0
	}
}

// Enabled reports whether Drive writes parameters.
func (f *Follow) Enabled() bool { return f.enabled }

// Bound returns how many follow parameters the model has.
func (f *Follow) Bound() int { return len(f.bindings) }

// Drive advances the spring by dt and writes the bound parameters.
func (f *Follow) Drive(m *model.Model, dt float32) {
	if !f.enabled || dt <= 0 {
		return
	}
	if dt != f.springDT {
		f.spring = harmonica.NewSpring(float64(dt), f.frequency, f.damping)
		f.springDT = dt
	}
	f.x, f.vx = f.spring.Update(f.x, f.vx, f.targetX)
	f.y, f.vy = f.spring.Update(f.y, f.vy, f.targetY)

	x, y := float32(f.x), float32(f.y)
	for _, b := range f.bindings {
		v := m.ParameterDefaultAt(b.index) + x*b.gainX + y*b.gainY + x*y*b.gainXY
		m.SetParameterValueAt(b.index, v)
	}
}

// NormalizePointer maps window pixel coordinates to [-1, 1] with +Y up.
func NormalizePointer(px, py, width, height int) (x, y float32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	x = 2*float32(px)/float32(width) - 1
	y = 1 - 2*float32(py)/float32(height)
	return clampUnit(x), clampUnit(y)
}

func clampUnit(v float32) float32 {
	return min(max(v, -1), 1)
}
