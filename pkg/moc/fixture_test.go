package moc

import (
	"errors"
	"testing"

	"github.com/Faultbox/marionette/pkg/formats"
)

const twoDrawableFixture = `
version: 5
canvas: {width: 2, height: 2, origin_x: 1, origin_y: 1, pixels_per_unit: 100}
parameters:
  - {id: ParamAngleX, min: -30, max: 30, default: 0}
  - {id: ParamSwap, min: 0, max: 1, default: 0}
parts:
  - {id: PartBody}
  - {id: PartHidden, opacity: 0}
drawables:
  - id: Face
    part: PartBody
    draw_order: 500
    vertices: [0, 0, 1, 0, 0, 1]
    uvs: [0, 0, 1, 0, 0, 1]
    indices: [0, 1, 2]
    deformers:
      - {parameter: ParamAngleX, x: 0.1}
      - {parameter: ParamSwap, draw_order: 200}
  - id: Hair
    part: PartBody
    blend: additive
    double_sided: true
    draw_order: 600
    masks: [Face, Missing]
    vertices: [0, 0, 1, 0, 0, 1]
    uvs: [0, 0, 1, 0, 0, 1]
    indices: [0, 1, 2]
  - id: Ghost
    part: PartHidden
    blend: multiplicative
    inverted_mask: true
    draw_order: 100
    vertices: [0, 0, 1, 0, 0, 1]
    uvs: [0, 0, 1, 0, 0, 1]
    indices: [0, 1, 2]
`

func loadFixture(t *testing.T, src string) Handle {
	t.Helper()
	h, err := FixtureCore{}.Load([]byte(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

func TestFixtureRegistered(t *testing.T) {
	core, err := Lookup(FixtureCoreName)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if _, ok := core.(FixtureCore); !ok {
		t.Errorf("expected FixtureCore, got %T", core)
	}

	if _, err := Lookup("nope"); !errors.Is(err, ErrUnknownCore) {
		t.Errorf("expected ErrUnknownCore, got %v", err)
	}
}

func TestFixtureMocVersion(t *testing.T) {
	core := FixtureCore{}
	if got := core.MocVersion([]byte("version: 4\n")); got != formats.MocVersion42 {
		t.Errorf("MocVersion = %v, want 4.2.00", got)
	}
	if got := core.MocVersion([]byte("{{{")); got != formats.MocVersionUnknown {
		t.Errorf("MocVersion of garbage = %v, want unknown", got)
	}
	if core.LatestMocVersion() != formats.LatestMocVersion {
		t.Errorf("LatestMocVersion = %v", core.LatestMocVersion())
	}
}

func TestFixtureLoad(t *testing.T) {
	h := loadFixture(t, twoDrawableFixture)

	if got := h.Canvas().PixelsPerUnit; got != 100 {
		t.Errorf("PixelsPerUnit = %v, want 100", got)
	}
	if ids := h.ParameterIDs(); len(ids) != 2 || ids[0] != "ParamAngleX" {
		t.Errorf("ParameterIDs = %v", ids)
	}
	if got := h.PartOpacities(); got[0] != 1 || got[1] != 0 {
		t.Errorf("PartOpacities = %v, want [1 0]", got)
	}

	flags := h.DrawableConstantFlags()
	if flags[0] != 0 {
		t.Errorf("Face flags = %b, want 0", flags[0])
	}
	if !flags[1].Has(BlendAdditive | IsDoubleSided) {
		t.Errorf("Hair flags = %b, want additive and double sided", flags[1])
	}
	if !flags[2].Has(BlendMultiplicative | IsInvertedMask) {
		t.Errorf("Ghost flags = %b, want multiplicative and inverted mask", flags[2])
	}

	masks := h.DrawableMasks()
	if len(masks[1]) != 2 || masks[1][0] != 0 || masks[1][1] != -1 {
		t.Errorf("Hair masks = %v, want [0 -1]", masks[1])
	}

	dyn := h.DrawableDynamicFlags()
	if !dyn[0].Has(IsVisible) || !dyn[1].Has(IsVisible) {
		t.Error("expected Face and Hair visible")
	}
	if dyn[2].Has(IsVisible) {
		t.Error("expected Ghost hidden by its part opacity")
	}

	if ro := h.DrawableRenderOrders(); ro[0] != 1 || ro[1] != 2 || ro[2] != 0 {
		t.Errorf("RenderOrders = %v, want [1 2 0]", ro)
	}
}

func TestFixtureUpdateDeforms(t *testing.T) {
	h := loadFixture(t, twoDrawableFixture)

	h.ParameterValues()[0] = 10
	h.ResetDynamicFlags()
	h.Update()

	if got := h.DrawableVertexPositions()[0][1].X; got != 2 {
		t.Errorf("deformed X = %v, want 2", got)
	}
	if !h.DrawableDynamicFlags()[0].Has(VertexPositionsDidChange) {
		t.Error("expected VertexPositionsDidChange on Face")
	}
	if h.DrawableDynamicFlags()[1].Has(VertexPositionsDidChange) {
		t.Error("Hair has no deformers and must not move")
	}
}

func TestFixtureUpdateRenderOrder(t *testing.T) {
	h := loadFixture(t, twoDrawableFixture)

	h.ParameterValues()[1] = 1
	h.ResetDynamicFlags()
	h.Update()

	if got := h.DrawableDrawOrders()[0]; got != 700 {
		t.Errorf("Face draw order = %d, want 700", got)
	}
	if ro := h.DrawableRenderOrders(); ro[0] != 2 || ro[1] != 1 || ro[2] != 0 {
		t.Errorf("RenderOrders = %v, want [2 1 0]", ro)
	}
	if !h.DrawableDynamicFlags()[0].Has(RenderOrderDidChange | DrawOrderDidChange) {
		t.Error("expected render and draw order change bits on Face")
	}
}

func TestFixturePartOpacityVisibility(t *testing.T) {
	h := loadFixture(t, twoDrawableFixture)

	h.PartOpacities()[1] = 0.5
	h.ResetDynamicFlags()
	h.Update()

	dyn := h.DrawableDynamicFlags()[2]
	if !dyn.Has(IsVisible | VisibilityDidChange | OpacityDidChange) {
		t.Errorf("Ghost flags = %b, want visible with change bits", dyn)
	}
	if got := h.DrawableOpacities()[2]; got != 0.5 {
		t.Errorf("Ghost opacity = %v, want 0.5", got)
	}

	h.ResetDynamicFlags()
	if h.DrawableDynamicFlags()[2] != IsVisible {
		t.Errorf("ResetDynamicFlags left %b, want only IsVisible", h.DrawableDynamicFlags()[2])
	}
}

func TestFixtureLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"garbage", "{{{"},
		{"duplicate parameter", "parameters: [{id: A}, {id: A}]"},
		{"odd vertices", "drawables: [{id: D, vertices: [0, 0, 1], uvs: [0, 0, 1]}]"},
		{"index out of range", "drawables: [{id: D, vertices: [0, 0], uvs: [0, 0], indices: [0, 1, 2]}]"},
		{"unknown part", "drawables: [{id: D, part: Nope}]"},
		{"unknown blend", "drawables: [{id: D, blend: screen}]"},
		{"unknown deformer parameter", "drawables: [{id: D, deformers: [{parameter: Nope}]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FixtureCore{}.Load([]byte(tt.src))
			if !errors.Is(err, ErrInvalidFixture) {
				t.Errorf("expected ErrInvalidFixture, got %v", err)
			}
		})
	}
}
