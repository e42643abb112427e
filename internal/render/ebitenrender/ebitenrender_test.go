package ebitenrender

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Faultbox/marionette/internal/render"
	"github.com/Faultbox/marionette/internal/viewer"
	"github.com/Faultbox/marionette/pkg/compositing"
)

func TestBlendFor(t *testing.T) {
	mask := ebiten.Blend{
		BlendFactorSourceRGB:        ebiten.BlendFactorZero,
		BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
		BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
		BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
	multiply := ebiten.Blend{
		BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
		BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
		BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
		BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
	additive := ebiten.Blend{
		BlendFactorSourceRGB:        ebiten.BlendFactorOne,
		BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
		BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
		BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}

	tests := []struct {
		name   string
		preset compositing.Preset
		want   ebiten.Blend
	}{
		{"normal", compositing.PresetNormal, ebiten.BlendSourceOver},
		{"additive", compositing.PresetAdditive, additive},
		{"multiplicative", compositing.PresetMultiplicative, multiply},
		{"mask in", compositing.PresetMaskIn, mask},
		{"mask out", compositing.PresetMaskOut, ebiten.BlendDestinationOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlendFor(tt.preset); got != tt.want {
				t.Errorf("BlendFor(%s) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestVertices(t *testing.T) {
	b := &compositing.Batch{
		Opacity: 0.5,
		Vertices: []compositing.Vertex{
			{X: 0, Y: 0, U: 0, V: 0},
			{X: 100, Y: 0, U: 1, V: 0},
			{X: 100, Y: 50, U: 1, V: 1},
		},
	}
	tr := render.Transform{Scale: 2, OffsetX: 10, OffsetY: 20}

	got := Vertices(b, tr, 64, 32)
	if len(got) != 3 {
		t.Fatalf("got %d vertices", len(got))
	}
	want := ebiten.Vertex{DstX: 210, DstY: 120, SrcX: 64, SrcY: 32, ColorR: 0.5, ColorG: 0.5, ColorB: 0.5, ColorA: 0.5}
	if got[2] != want {
		t.Errorf("vertex 2 = %+v, want %+v", got[2], want)
	}
	if got[0].DstX != 10 || got[0].DstY != 20 {
		t.Errorf("vertex 0 at (%v, %v), want (10, 20)", got[0].DstX, got[0].DstY)
	}
}

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key  ebiten.Key
		want viewer.Action
	}{
		{ebiten.KeySpace, viewer.ActionToggleMotion},
		{ebiten.KeyN, viewer.ActionNextMotion},
		{ebiten.KeyR, viewer.ActionResetPose},
		{ebiten.KeyP, viewer.ActionTogglePhysics},
		{ebiten.KeyF, viewer.ActionToggleFollow},
		{ebiten.KeyS, viewer.ActionSavePose},
		{ebiten.KeyL, viewer.ActionLoadPose},
		{ebiten.KeyEscape, viewer.ActionQuit},
		{ebiten.KeyQ, viewer.ActionNone},
	}
	for _, tt := range tests {
		if got := KeyAction(tt.key); got != tt.want {
			t.Errorf("KeyAction(%v) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
