package model

import (
	mathx "github.com/Faultbox/marionette/pkg/math"
)

// ParameterCount returns the number of parameters.
func (m *Model) ParameterCount() int {
	return len(m.handle.ParameterIDs())
}

// ParameterIDs returns the parameter ids in index order.
func (m *Model) ParameterIDs() []string {
	return m.handle.ParameterIDs()
}

// ParameterID returns the id of parameter i.
func (m *Model) ParameterID(i int) string {
	return m.handle.ParameterIDs()[i]
}

// ParameterIndex returns the index of a parameter id.
func (m *Model) ParameterIndex(id string) (int, bool) {
	i, ok := m.paramIndex[id]
	return i, ok
}

// ParameterValueAt returns the current value of parameter i.
func (m *Model) ParameterValueAt(i int) float32 {
	return m.handle.ParameterValues()[i]
}

// ParameterMinimumAt returns the minimum of parameter i.
func (m *Model) ParameterMinimumAt(i int) float32 {
	return m.handle.ParameterMinimums()[i]
}

// ParameterMaximumAt returns the maximum of parameter i.
func (m *Model) ParameterMaximumAt(i int) float32 {
	return m.handle.ParameterMaximums()[i]
}

// ParameterDefaultAt returns the default of parameter i.
func (m *Model) ParameterDefaultAt(i int) float32 {
	return m.handle.ParameterDefaults()[i]
}

// SetParameterValueAt stores v into parameter i, clamped to its range.
// NaN is ignored. Drawables are not refreshed.
func (m *Model) SetParameterValueAt(i int, v float32) {
	if v != v {
		return
	}
	lo := m.handle.ParameterMinimums()[i]
	hi := m.handle.ParameterMaximums()[i]
	if lo > hi {
		lo, hi = hi, lo
	}
	m.handle.ParameterValues()[i] = mathx.Clamp(v, lo, hi)
}

// ResolveParameter returns the parameter indices a name refers to: the
// members of a Parameter group with that name, or the parameter itself.
func (m *Model) ResolveParameter(name string) ([]int, bool) {
	if ids, ok := m.paramGroups[name]; ok {
		return ids, true
	}
	if i, ok := m.paramIndex[name]; ok {
		return []int{i}, true
	}
	return nil, false
}

// GetParameterValue returns the value of a parameter. For a group name it
// returns the first member's value. Unknown names log and return 0.
func (m *Model) GetParameterValue(name string) float32 {
	ids, ok := m.ResolveParameter(name)
	if !ok || len(ids) == 0 {
		m.lookupFailed("parameter", name)
		return 0
	}
	return m.ParameterValueAt(ids[0])
}

// GetParameterMinimum returns the minimum of a parameter, or 0.
func (m *Model) GetParameterMinimum(name string) float32 {
	i, ok := m.paramIndex[name]
	if !ok {
		m.lookupFailed("parameter", name)
		return 0
	}
	return m.ParameterMinimumAt(i)
}

// GetParameterMaximum returns the maximum of a parameter, or 0.
func (m *Model) GetParameterMaximum(name string) float32 {
	i, ok := m.paramIndex[name]
	if !ok {
		m.lookupFailed("parameter", name)
		return 0
	}
	return m.ParameterMaximumAt(i)
}

// GetParameterDefault returns the default of a parameter, or 0.
func (m *Model) GetParameterDefault(name string) float32 {
	i, ok := m.paramIndex[name]
	if !ok {
		m.lookupFailed("parameter", name)
		return 0
	}
	return m.ParameterDefaultAt(i)
}

// SetParameterValue sets a parameter, or every member of a Parameter group,
// to v (clamped per parameter). When applyImmediately is set the drawables
// are refreshed once after all members are written. It reports whether
// the name resolved.
func (m *Model) SetParameterValue(name string, v float32, applyImmediately bool) bool {
	ids, ok := m.ResolveParameter(name)
	if !ok {
		m.lookupFailed("parameter", name)
		return false
	}
	for _, i := range ids {
		m.SetParameterValueAt(i, v)
	}
	if applyImmediately {
		m.UpdateDrawables()
	}
	return true
}

// ResetParameters writes every parameter's default value back.
func (m *Model) ResetParameters() {
	values := m.handle.ParameterValues()
	copy(values, m.handle.ParameterDefaults())
}

// PartCount returns the number of parts.
func (m *Model) PartCount() int {
	return len(m.handle.PartIDs())
}

// PartIDs returns the part ids in index order.
func (m *Model) PartIDs() []string {
	return m.handle.PartIDs()
}

// PartIndex returns the index of a part id.
func (m *Model) PartIndex(id string) (int, bool) {
	i, ok := m.partIndex[id]
	return i, ok
}

// PartOpacityAt returns the opacity of part i.
func (m *Model) PartOpacityAt(i int) float32 {
	return m.handle.PartOpacities()[i]
}

// SetPartOpacityAt stores the opacity of part i. Opacities are not clamped.
func (m *Model) SetPartOpacityAt(i int, v float32) {
	m.handle.PartOpacities()[i] = v
}

// PartDefaultAt returns the opacity part i had when the model was loaded.
func (m *Model) PartDefaultAt(i int) float32 {
	return m.partDefaults[i]
}

// ResolvePart returns the part indices a name refers to, PartOpacity
// groups first.
func (m *Model) ResolvePart(name string) ([]int, bool) {
	if ids, ok := m.partGroups[name]; ok {
		return ids, true
	}
	if i, ok := m.partIndex[name]; ok {
		return []int{i}, true
	}
	return nil, false
}

// GetPartOpacityValue returns a part opacity, the first member's for a
// group name. Unknown names log and return 0.
func (m *Model) GetPartOpacityValue(name string) float32 {
	ids, ok := m.ResolvePart(name)
	if !ok || len(ids) == 0 {
		m.lookupFailed("part", name)
		return 0
	}
	return m.PartOpacityAt(ids[0])
}

// SetPartOpacityValue sets a part opacity, or every member of a
// PartOpacity group. See SetParameterValue.
func (m *Model) SetPartOpacityValue(name string, v float32, applyImmediately bool) bool {
	ids, ok := m.ResolvePart(name)
	if !ok {
		m.lookupFailed("part", name)
		return false
	}
	for _, i := range ids {
		m.SetPartOpacityAt(i, v)
	}
	if applyImmediately {
		m.UpdateDrawables()
	}
	return true
}

// ResetParts writes every part's load-time opacity back.
func (m *Model) ResetParts() {
	copy(m.handle.PartOpacities(), m.partDefaults)
}
