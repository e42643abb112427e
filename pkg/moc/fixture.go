package moc

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/marionette/pkg/formats"
	mathx "github.com/Faultbox/marionette/pkg/math"
)

// FixtureCoreName is the registry name of the YAML fixture core.
const FixtureCoreName = "fixture"

// Fixture errors.
var (
	ErrInvalidFixture = errors.New("moc: invalid fixture model")
)

func init() {
	Register(FixtureCoreName, FixtureCore{})
}

// FixtureCore is a pure-Go Core that loads models described in YAML.
// Deformation is limited to per-parameter linear offsets, which is enough
// to drive the whole runtime without the vendor library.
type FixtureCore struct{}

// FixtureModel is the YAML document understood by FixtureCore.
type FixtureModel struct {
	Version    formats.MocVersion `yaml:"version"`
	Canvas     FixtureCanvas      `yaml:"canvas"`
	Parameters []FixtureParameter `yaml:"parameters"`
	Parts      []FixturePart      `yaml:"parts"`
	Drawables  []FixtureDrawable  `yaml:"drawables"`
}

// FixtureCanvas is the canvas section of a fixture.
type FixtureCanvas struct {
	Width         float32 `yaml:"width"`
	Height        float32 `yaml:"height"`
	OriginX       float32 `yaml:"origin_x"`
	OriginY       float32 `yaml:"origin_y"`
	PixelsPerUnit float32 `yaml:"pixels_per_unit"`
}

// FixtureParameter declares one parameter.
type FixtureParameter struct {
	ID      string  `yaml:"id"`
	Min     float32 `yaml:"min"`
	Max     float32 `yaml:"max"`
	Default float32 `yaml:"default"`
}

// FixturePart declares one part and its initial opacity.
type FixturePart struct {
	ID      string   `yaml:"id"`
	Opacity *float32 `yaml:"opacity"`
}

// FixtureDrawable declares one art mesh.
type FixtureDrawable struct {
	ID           string            `yaml:"id"`
	Part         string            `yaml:"part"`
	Texture      int32             `yaml:"texture"`
	Blend        string            `yaml:"blend"`
	DoubleSided  bool              `yaml:"double_sided"`
	InvertedMask bool              `yaml:"inverted_mask"`
	DrawOrder    int32             `yaml:"draw_order"`
	Masks        []string          `yaml:"masks"`
	Vertices     []float32         `yaml:"vertices"`
	UVs          []float32         `yaml:"uvs"`
	Indices      []uint16          `yaml:"indices"`
	Deformers    []FixtureDeformer `yaml:"deformers"`
}

// FixtureDeformer offsets a drawable in proportion to a parameter value.
type FixtureDeformer struct {
	Parameter string  `yaml:"parameter"`
	X         float32 `yaml:"x"`
	Y         float32 `yaml:"y"`
	DrawOrder float32 `yaml:"draw_order"`
	Opacity   float32 `yaml:"opacity"`
}

// LatestMocVersion implements Core.
func (FixtureCore) LatestMocVersion() formats.MocVersion {
	return formats.LatestMocVersion
}

// MocVersion implements Core.
func (FixtureCore) MocVersion(data []byte) formats.MocVersion {
	var head struct {
		Version formats.MocVersion `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return formats.MocVersionUnknown
	}
	return head.Version
}

// Load implements Core.
func (FixtureCore) Load(data []byte) (Handle, error) {
	var doc FixtureModel
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return NewFixture(&doc)
}

type fixtureDeformer struct {
	param int
	FixtureDeformer
}

// fixtureHandle is the Handle produced by FixtureCore.
type fixtureHandle struct {
	canvas Canvas

	paramIDs  []string
	values    []float32
	minimums  []float32
	maximums  []float32
	defaults  []float32
	partIDs   []string
	opacities []float32

	drawableIDs []string
	owners      []int
	textures    []int32
	constFlags  []ConstantFlags
	dynFlags    []DynamicFlags
	restPos     [][]mathx.Vec2
	positions   [][]mathx.Vec2
	uvs         [][]mathx.Vec2
	indices     [][]uint16
	drawOpacity []float32
	baseOrders  []int32
	drawOrders  []int32
	renderOrder []int32
	masks       [][]int32
	deformers   [][]fixtureDeformer

	updated  bool
	released bool
}

// NewFixture builds a handle from an already-decoded fixture document.
func NewFixture(doc *FixtureModel) (Handle, error) {
	h := &fixtureHandle{
		canvas: Canvas{
			Size:          mathx.Vec2{X: doc.Canvas.Width, Y: doc.Canvas.Height},
			PivotOrigin:   mathx.Vec2{X: doc.Canvas.OriginX, Y: doc.Canvas.OriginY},
			PixelsPerUnit: doc.Canvas.PixelsPerUnit,
		},
	}
	if h.canvas.PixelsPerUnit == 0 {
		h.canvas.PixelsPerUnit = 1
	}

	paramIndex := make(map[string]int, len(doc.Parameters))
	for i, p := range doc.Parameters {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: parameter %d has no id", ErrInvalidFixture, i)
		}
		if _, dup := paramIndex[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidFixture, p.ID)
		}
		paramIndex[p.ID] = i
		h.paramIDs = append(h.paramIDs, p.ID)
		h.minimums = append(h.minimums, p.Min)
		h.maximums = append(h.maximums, p.Max)
		h.defaults = append(h.defaults, p.Default)
		h.values = append(h.values, p.Default)
	}

	partIndex := make(map[string]int, len(doc.Parts))
	for i, p := range doc.Parts {
		if _, dup := partIndex[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate part %q", ErrInvalidFixture, p.ID)
		}
		partIndex[p.ID] = i
		h.partIDs = append(h.partIDs, p.ID)
		opacity := float32(1)
		if p.Opacity != nil {
			opacity = *p.Opacity
		}
		h.opacities = append(h.opacities, opacity)
	}

	drawableIndex := make(map[string]int, len(doc.Drawables))
	for i, d := range doc.Drawables {
		if _, dup := drawableIndex[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate drawable %q", ErrInvalidFixture, d.ID)
		}
		drawableIndex[d.ID] = i
	}

	for _, d := range doc.Drawables {
		if len(d.Vertices)%2 != 0 || len(d.UVs) != len(d.Vertices) {
			return nil, fmt.Errorf("%w: drawable %q has mismatched vertex and uv arrays", ErrInvalidFixture, d.ID)
		}
		vertexCount := len(d.Vertices) / 2
		for _, idx := range d.Indices {
			if int(idx) >= vertexCount {
				return nil, fmt.Errorf("%w: drawable %q index %d out of range", ErrInvalidFixture, d.ID, idx)
			}
		}

		owner := -1
		if d.Part != "" {
			p, ok := partIndex[d.Part]
			if !ok {
				return nil, fmt.Errorf("%w: drawable %q references unknown part %q", ErrInvalidFixture, d.ID, d.Part)
			}
			owner = p
		}

		var flags ConstantFlags
		switch d.Blend {
		case "", "normal":
		case "additive":
			flags |= BlendAdditive
		case "multiplicative":
			flags |= BlendMultiplicative
		default:
			return nil, fmt.Errorf("%w: drawable %q has unknown blend %q", ErrInvalidFixture, d.ID, d.Blend)
		}
		if d.DoubleSided {
			flags |= IsDoubleSided
		}
		if d.InvertedMask {
			flags |= IsInvertedMask
		}

		masks := make([]int32, 0, len(d.Masks))
		for _, m := range d.Masks {
			idx, ok := drawableIndex[m]
			if !ok {
				// Unresolvable masks surface as -1, like the native library.
				idx = -1
			}
			masks = append(masks, int32(idx))
		}

		defs := make([]fixtureDeformer, 0, len(d.Deformers))
		for _, def := range d.Deformers {
			p, ok := paramIndex[def.Parameter]
			if !ok {
				return nil, fmt.Errorf("%w: drawable %q deformer references unknown parameter %q", ErrInvalidFixture, d.ID, def.Parameter)
			}
			defs = append(defs, fixtureDeformer{param: p, FixtureDeformer: def})
		}

		rest := toVecs(d.Vertices)
		h.drawableIDs = append(h.drawableIDs, d.ID)
		h.owners = append(h.owners, owner)
		h.textures = append(h.textures, d.Texture)
		h.constFlags = append(h.constFlags, flags)
		h.dynFlags = append(h.dynFlags, 0)
		h.restPos = append(h.restPos, rest)
		h.positions = append(h.positions, append([]mathx.Vec2(nil), rest...))
		h.uvs = append(h.uvs, toVecs(d.UVs))
		h.indices = append(h.indices, d.Indices)
		h.drawOpacity = append(h.drawOpacity, 0)
		h.baseOrders = append(h.baseOrders, d.DrawOrder)
		h.drawOrders = append(h.drawOrders, d.DrawOrder)
		h.renderOrder = append(h.renderOrder, 0)
		h.masks = append(h.masks, masks)
		h.deformers = append(h.deformers, defs)
	}

	h.Update()
	h.ResetDynamicFlags()
	return h, nil
}

func toVecs(flat []float32) []mathx.Vec2 {
	out := make([]mathx.Vec2, len(flat)/2)
	for i := range out {
		out[i] = mathx.Vec2{X: flat[2*i], Y: flat[2*i+1]}
	}
	return out
}

func (h *fixtureHandle) Canvas() Canvas { return h.canvas }

func (h *fixtureHandle) ParameterIDs() []string       { return h.paramIDs }
func (h *fixtureHandle) ParameterValues() []float32   { return h.values }
func (h *fixtureHandle) ParameterMinimums() []float32 { return h.minimums }
func (h *fixtureHandle) ParameterMaximums() []float32 { return h.maximums }
func (h *fixtureHandle) ParameterDefaults() []float32 { return h.defaults }

func (h *fixtureHandle) PartIDs() []string        { return h.partIDs }
func (h *fixtureHandle) PartOpacities() []float32 { return h.opacities }

func (h *fixtureHandle) DrawableIDs() []string                  { return h.drawableIDs }
func (h *fixtureHandle) DrawableTextureIndices() []int32        { return h.textures }
func (h *fixtureHandle) DrawableConstantFlags() []ConstantFlags { return h.constFlags }
func (h *fixtureHandle) DrawableDynamicFlags() []DynamicFlags   { return h.dynFlags }
func (h *fixtureHandle) DrawableVertexPositions() [][]mathx.Vec2 {
	return h.positions
}
func (h *fixtureHandle) DrawableVertexUVs() [][]mathx.Vec2 { return h.uvs }
func (h *fixtureHandle) DrawableIndices() [][]uint16       { return h.indices }
func (h *fixtureHandle) DrawableOpacities() []float32      { return h.drawOpacity }
func (h *fixtureHandle) DrawableDrawOrders() []int32       { return h.drawOrders }
func (h *fixtureHandle) DrawableRenderOrders() []int32     { return h.renderOrder }
func (h *fixtureHandle) DrawableMasks() [][]int32          { return h.masks }

// Update applies deformers, derives opacity from the owning part and
// recomputes render order as the rank of draw order (ties by index).
func (h *fixtureHandle) Update() {
	if h.released {
		return
	}

	for i := range h.drawableIDs {
		var offset mathx.Vec2
		orderShift := float32(0)
		opacityScale := float32(1)
		for _, def := range h.deformers[i] {
			v := h.values[def.param]
			offset = offset.Add(mathx.Vec2{X: def.X * v, Y: def.Y * v})
			orderShift += def.DrawOrder * v
			opacityScale += def.Opacity * v
		}

		moved := false
		for j, rest := range h.restPos[i] {
			p := rest.Add(offset)
			if p != h.positions[i][j] {
				h.positions[i][j] = p
				moved = true
			}
		}
		if moved {
			h.dynFlags[i] |= VertexPositionsDidChange
		}

		opacity := float32(1)
		if owner := h.owners[i]; owner >= 0 {
			opacity = h.opacities[owner]
		}
		opacity = mathx.Clamp(opacity*opacityScale, 0, 1)
		if opacity != h.drawOpacity[i] || !h.updated {
			h.dynFlags[i] |= OpacityDidChange
		}
		h.drawOpacity[i] = opacity

		wasVisible := h.dynFlags[i].Has(IsVisible)
		visible := opacity > 0
		if visible {
			h.dynFlags[i] |= IsVisible
		} else {
			h.dynFlags[i] &^= IsVisible
		}
		if visible != wasVisible {
			h.dynFlags[i] |= VisibilityDidChange
		}

		order := h.baseOrders[i] + int32(math.Round(float64(orderShift)))
		if order != h.drawOrders[i] {
			h.drawOrders[i] = order
			h.dynFlags[i] |= DrawOrderDidChange
		}
	}

	ranked := make([]int, len(h.drawableIDs))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return h.drawOrders[ranked[a]] < h.drawOrders[ranked[b]]
	})
	for rank, idx := range ranked {
		if h.renderOrder[idx] != int32(rank) {
			h.renderOrder[idx] = int32(rank)
			h.dynFlags[idx] |= RenderOrderDidChange
		}
	}

	h.updated = true
}

// ResetDynamicFlags clears change bits and keeps visibility.
func (h *fixtureHandle) ResetDynamicFlags() {
	for i := range h.dynFlags {
		h.dynFlags[i] &= IsVisible
	}
}

func (h *fixtureHandle) Release() {
	h.released = true
}
