// Package compositing turns a model's drawables into ordered, blended,
// optionally masked draw batches that a rendering backend can submit
// without knowing anything about the model.
//
// A drawable without masks becomes one PassDirect batch. A masked
// drawable becomes one PassMask batch per mask source, which the backend
// accumulates into an offscreen mask, followed by one PassMaskedContent
// batch that is drawn offscreen and then composited through the mask with
// MaskPreset.
package compositing

import (
	"go.uber.org/zap"

	mathx "github.com/Faultbox/marionette/pkg/math"
	"github.com/Faultbox/marionette/pkg/moc"
	"github.com/Faultbox/marionette/pkg/model"
)

// Pass is the role of a batch in the compositing sequence.
type Pass int

// Passes.
const (
	PassDirect Pass = iota
	PassMask
	PassMaskedContent
)

func (p Pass) String() string {
	switch p {
	case PassDirect:
		return "direct"
	case PassMask:
		return "mask"
	case PassMaskedContent:
		return "masked-content"
	default:
		return "unknown"
	}
}

// ChannelMask selects which channels of the mask buffer a mask source
// writes.
type ChannelMask uint8

// Channels.
const (
	ChannelR ChannelMask = 1 << iota
	ChannelG
	ChannelB
	ChannelA

	ChannelRGBA = ChannelR | ChannelG | ChannelB | ChannelA
)

// Vertex is a triangle corner in canvas pixels with its texture
// coordinate.
type Vertex struct {
	X, Y float32
	U, V float32
}

// Batch is one draw call.
type Batch struct {
	Pass Pass

	// Drawable whose mesh is drawn: the mask source for PassMask, the
	// drawable itself otherwise.
	DrawableIndex int
	DrawableID    string
	// Owner is the drawable being composited. Equal to DrawableIndex
	// except for PassMask.
	Owner int

	TextureIndex int
	Blend        Preset
	Mode         model.BlendMode
	DoubleSided  bool

	InvertedMask bool
	MaskOrdinal  int
	MaskCount    int
	Channels     ChannelMask

	Opacity float32

	// Vertices holds three entries per triangle in index-list order.
	Vertices []Vertex
}

// Triangles returns the number of triangles in the batch.
func (b *Batch) Triangles() int {
	return len(b.Vertices) / 3
}

// Indices returns 0..len(Vertices)-1, for backends that need an index
// buffer. Batches can exceed the 16-bit index range.
func (b *Batch) Indices() []uint32 {
	out := make([]uint32, len(b.Vertices))
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// DrawableSource is what the pipeline reads. *model.Model satisfies it.
type DrawableSource interface {
	Canvas() moc.Canvas
	Drawables() []*model.Drawable
	Drawable(i int) *model.Drawable
}

// Stats summarizes one Build.
type Stats struct {
	Direct        int
	Mask          int
	MaskedContent int
	Triangles     int
	Skipped       int
	BadMasks      int
}

// Batches returns the total number of batches.
func (s Stats) Batches() int {
	return s.Direct + s.Mask + s.MaskedContent
}

// Pipeline builds batches. The zero value is usable.
type Pipeline struct {
	log   *zap.Logger
	stats Stats
}

// NewPipeline returns a pipeline logging through log. A nil log is
// replaced by a no-op logger.
func NewPipeline(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// Build walks src in render order and returns its batches. Drawables
// whose visibility bit is unset produce nothing. Mask indices that do not
// name a drawable are skipped.
func (p *Pipeline) Build(src DrawableSource) []Batch {
	if p.log == nil {
		p.log = zap.NewNop()
	}
	p.stats = Stats{}

	canvas := src.Canvas()
	var batches []Batch

	for _, d := range src.Drawables() {
		if !d.Visible() {
			p.stats.Skipped++
			continue
		}

		if !d.Masked() {
			b := p.batch(canvas, d, d)
			b.Pass = PassDirect
			batches = append(batches, b)
			p.stats.Direct++
			continue
		}

		channels := ChannelA
		if len(d.Masks) == 1 {
			channels = ChannelRGBA
		}

		ordinal := 0
		for _, mi := range d.Masks {
			source := src.Drawable(int(mi))
			if mi < 0 || source == nil {
				p.stats.BadMasks++
				p.log.Debug("mask index out of range",
					zap.String("drawable", d.ID), zap.Int32("mask", mi))
				continue
			}
			b := p.batch(canvas, source, d)
			b.Pass = PassMask
			b.Blend = PresetNormal
			b.Opacity = 1
			b.MaskOrdinal = ordinal
			b.Channels = channels
			batches = append(batches, b)
			p.stats.Mask++
			ordinal++
		}

		b := p.batch(canvas, d, d)
		b.Pass = PassMaskedContent
		b.MaskCount = ordinal
		b.Channels = channels
		batches = append(batches, b)
		p.stats.MaskedContent++
	}

	return batches
}

// Stats returns the statistics of the last Build.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// batch expands mesh's triangles on behalf of owner.
func (p *Pipeline) batch(canvas moc.Canvas, mesh, owner *model.Drawable) Batch {
	b := Batch{
		DrawableIndex: mesh.Index,
		DrawableID:    mesh.ID,
		Owner:         owner.Index,
		TextureIndex:  mesh.TextureIndex,
		Blend:         BlendPreset(owner.Blend),
		Mode:          owner.Blend,
		DoubleSided:   mesh.DoubleSided,
		InvertedMask:  owner.InvertedMask,
		MaskCount:     len(owner.Masks),
		Opacity:       mesh.Opacity,
	}

	n := len(mesh.Indices) / 3 * 3
	b.Vertices = make([]Vertex, 0, n)
	for t := 0; t < n; t += 3 {
		tri := mesh.Indices[t : t+3]
		if int(tri[0]) >= len(mesh.Positions) || int(tri[1]) >= len(mesh.Positions) || int(tri[2]) >= len(mesh.Positions) {
			continue
		}
		for _, idx := range tri {
			b.Vertices = append(b.Vertices, vertex(canvas, mesh.Positions[idx], uvAt(mesh.UVs, int(idx))))
		}
	}

	p.stats.Triangles += len(b.Vertices) / 3
	return b
}

func uvAt(uvs []mathx.Vec2, i int) mathx.Vec2 {
	if i < len(uvs) {
		return uvs[i]
	}
	return mathx.Vec2{}
}

// vertex maps a model-space position to canvas pixels, y down, and flips
// the texture V axis.
func vertex(canvas moc.Canvas, pos, uv mathx.Vec2) Vertex {
	ppu := canvas.PixelsPerUnit
	if ppu == 0 {
		ppu = 1
	}
	return Vertex{
		X: pos.X*ppu + canvas.PivotOrigin.X,
		Y: canvas.PivotOrigin.Y - pos.Y*ppu,
		U: uv.X,
		V: 1 - uv.Y,
	}
}

// Build is a convenience wrapper around a throwaway Pipeline.
func Build(src DrawableSource) []Batch {
	return NewPipeline(nil).Build(src)
}
