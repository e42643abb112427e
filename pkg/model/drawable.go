package model

import (
	"sort"

	mathx "github.com/Faultbox/marionette/pkg/math"
	"github.com/Faultbox/marionette/pkg/moc"
)

// BlendMode selects how a drawable is composited onto what is below it.
type BlendMode int

// Blend modes.
const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiplicative
)

// String returns the mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendAdditive:
		return "additive"
	case BlendMultiplicative:
		return "multiplicative"
	default:
		return "normal"
	}
}

// Drawable is one renderable art mesh.
type Drawable struct {
	// Index is the drawable's position in the runtime's arrays. Mask
	// lists refer to drawables by this index.
	Index        int
	ID           string
	TextureIndex int
	Blend        BlendMode
	DoubleSided  bool
	InvertedMask bool

	Positions []mathx.Vec2
	UVs       []mathx.Vec2
	Indices   []uint16

	DrawOrder   int32
	RenderOrder int32
	Opacity     float32
	Flags       moc.DynamicFlags
	Masks       []int32
}

// Visible reports the runtime's visibility bit.
func (d *Drawable) Visible() bool {
	return d.Flags.Has(moc.IsVisible)
}

// Masked reports whether the drawable is clipped by other drawables.
func (d *Drawable) Masked() bool {
	return len(d.Masks) > 0
}

func blendFromFlags(flags moc.ConstantFlags) BlendMode {
	switch {
	case flags.Has(moc.BlendAdditive):
		return BlendAdditive
	case flags.Has(moc.BlendMultiplicative):
		return BlendMultiplicative
	default:
		return BlendNormal
	}
}

func (m *Model) buildDrawables() {
	ids := m.handle.DrawableIDs()
	textures := m.handle.DrawableTextureIndices()
	flags := m.handle.DrawableConstantFlags()
	masks := m.handle.DrawableMasks()

	m.drawables = make([]Drawable, len(ids))
	m.order = make([]int, len(ids))
	for i, id := range ids {
		// Compared against the double-sided bit, so this is always false
		// unless the real flag is explicitly honored.
		inverted := (flags[i] & moc.IsInvertedMask) == moc.IsDoubleSided
		if m.honorInvertedMask {
			inverted = flags[i].Has(moc.IsInvertedMask)
		}
		m.drawables[i] = Drawable{
			Index:        i,
			ID:           id,
			TextureIndex: int(textures[i]),
			Blend:        blendFromFlags(flags[i]),
			DoubleSided:  flags[i].Has(moc.IsDoubleSided),
			InvertedMask: inverted,
			Masks:        append([]int32(nil), masks[i]...),
		}
		m.drawableIndex[id] = i
		m.order[i] = i
	}
}

// UpdateDrawables re-runs the runtime deformation for the current
// parameter and part values, refreshes every drawable and re-sorts the
// render sequence. It notifies listeners and reports whether any drawable
// changed.
func (m *Model) UpdateDrawables() bool {
	m.handle.ResetDynamicFlags()
	m.handle.Update()

	positions := m.handle.DrawableVertexPositions()
	uvs := m.handle.DrawableVertexUVs()
	indices := m.handle.DrawableIndices()
	opacities := m.handle.DrawableOpacities()
	drawOrders := m.handle.DrawableDrawOrders()
	renderOrders := m.handle.DrawableRenderOrders()
	dynamic := m.handle.DrawableDynamicFlags()

	changed := false
	for i := range m.drawables {
		d := &m.drawables[i]
		d.Positions = append(d.Positions[:0], positions[i]...)
		d.UVs = append(d.UVs[:0], uvs[i]...)
		d.Indices = append(d.Indices[:0], indices[i]...)
		d.Opacity = opacities[i]
		d.DrawOrder = drawOrders[i]
		d.RenderOrder = renderOrders[i]
		d.Flags = dynamic[i]
		if d.Flags&moc.AnyChange != 0 {
			changed = true
		}
	}

	// Sorting the previous sequence keeps ties in their prior order.
	sort.SliceStable(m.order, func(a, b int) bool {
		return m.drawables[m.order[a]].RenderOrder < m.drawables[m.order[b]].RenderOrder
	})

	m.revision++
	for _, fn := range m.listenersInOrder() {
		fn(m)
	}
	return changed
}

// DrawableCount returns the number of drawables.
func (m *Model) DrawableCount() int {
	return len(m.drawables)
}

// Drawables returns the drawables in render order. The returned slice is
// freshly allocated; the drawables themselves are shared.
func (m *Model) Drawables() []*Drawable {
	out := make([]*Drawable, len(m.order))
	for i, idx := range m.order {
		out[i] = &m.drawables[idx]
	}
	return out
}

// RenderSequence returns drawable indices in render order.
func (m *Model) RenderSequence() []int {
	return append([]int(nil), m.order...)
}

// Drawable returns the drawable at runtime index i, or nil.
func (m *Model) Drawable(i int) *Drawable {
	if i < 0 || i >= len(m.drawables) {
		return nil
	}
	return &m.drawables[i]
}

// DrawableByID returns a drawable by id, or nil.
func (m *Model) DrawableByID(id string) *Drawable {
	i, ok := m.drawableIndex[id]
	if !ok {
		m.lookupFailed("drawable", id)
		return nil
	}
	return &m.drawables[i]
}

// Revision increments on every UpdateDrawables call.
func (m *Model) Revision() uint64 {
	return m.revision
}

// OnDrawablesUpdated registers fn to run after every UpdateDrawables.
// The returned function removes the registration.
func (m *Model) OnDrawablesUpdated(fn func(*Model)) (cancel func()) {
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() {
		delete(m.listeners, id)
	}
}

func (m *Model) listenersInOrder() []func(*Model) {
	if len(m.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*Model), len(ids))
	for i, id := range ids {
		fns[i] = m.listeners[id]
	}
	return fns
}
