package compositing

import (
	"github.com/Faultbox/marionette/pkg/model"
)

// Factor is a blend-equation factor. Colors are premultiplied by alpha.
type Factor int

// Blend factors.
const (
	FactorZero Factor = iota
	FactorOne
	FactorSourceAlpha
	FactorOneMinusSourceAlpha
	FactorDestinationColor
	FactorDestinationAlpha
	FactorOneMinusDestinationAlpha
)

func (f Factor) String() string {
	switch f {
	case FactorZero:
		return "zero"
	case FactorOne:
		return "one"
	case FactorSourceAlpha:
		return "src-alpha"
	case FactorOneMinusSourceAlpha:
		return "one-minus-src-alpha"
	case FactorDestinationColor:
		return "dst-color"
	case FactorDestinationAlpha:
		return "dst-alpha"
	case FactorOneMinusDestinationAlpha:
		return "one-minus-dst-alpha"
	default:
		return "unknown"
	}
}

// Preset is a backend-neutral additive blend equation:
//
//	rgb = src.rgb*SourceRGB + dst.rgb*DestinationRGB
//	a   = src.a*SourceAlpha + dst.a*DestinationAlpha
type Preset struct {
	SourceRGB        Factor
	SourceAlpha      Factor
	DestinationRGB   Factor
	DestinationAlpha Factor
}

// Blend presets for drawables and mask application.
var (
	PresetNormal = Preset{
		SourceRGB:        FactorOne,
		SourceAlpha:      FactorOne,
		DestinationRGB:   FactorOneMinusSourceAlpha,
		DestinationAlpha: FactorOneMinusSourceAlpha,
	}
	PresetAdditive = Preset{
		SourceRGB:        FactorOne,
		SourceAlpha:      FactorZero,
		DestinationRGB:   FactorOne,
		DestinationAlpha: FactorOne,
	}
	PresetMultiplicative = Preset{
		SourceRGB:        FactorDestinationColor,
		SourceAlpha:      FactorZero,
		DestinationRGB:   FactorOneMinusSourceAlpha,
		DestinationAlpha: FactorOne,
	}

	// PresetMaskIn keeps the destination where the mask is opaque.
	PresetMaskIn = Preset{
		SourceRGB:        FactorZero,
		SourceAlpha:      FactorZero,
		DestinationRGB:   FactorSourceAlpha,
		DestinationAlpha: FactorSourceAlpha,
	}
	// PresetMaskOut keeps the destination where the mask is transparent.
	PresetMaskOut = Preset{
		SourceRGB:        FactorZero,
		SourceAlpha:      FactorZero,
		DestinationRGB:   FactorOneMinusSourceAlpha,
		DestinationAlpha: FactorOneMinusSourceAlpha,
	}
)

// BlendPreset returns the equation for a drawable blend mode.
func BlendPreset(mode model.BlendMode) Preset {
	switch mode {
	case model.BlendAdditive:
		return PresetAdditive
	case model.BlendMultiplicative:
		return PresetMultiplicative
	default:
		return PresetNormal
	}
}

// MaskPreset returns the equation that applies an accumulated mask to
// masked content.
func MaskPreset(inverted bool) Preset {
	if inverted {
		return PresetMaskOut
	}
	return PresetMaskIn
}
