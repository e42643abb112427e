package motion

import (
	"errors"
	"testing"

	"github.com/Faultbox/marionette/pkg/formats"
)

func mustCurve(t *testing.T, target string, segments ...float32) *Curve {
	t.Helper()
	c, err := NewCurve(formats.Motion3Curve{Target: target, ID: "Param", Segments: segments})
	if err != nil {
		t.Fatalf("NewCurve: %v", err)
	}
	return c
}

func TestNewCurveLayout(t *testing.T) {
	// linear to (1, 10), bezier to (2, 0), stepped to (3, 5), inverse to (4, 1)
	c := mustCurve(t, "Parameter",
		0, 0,
		0, 1, 10,
		1, 1.3, 10, 1.6, 0, 2, 0,
		2, 3, 5,
		3, 4, 1,
	)

	if c.Target != TargetParameter {
		t.Errorf("target = %v, want Parameter", c.Target)
	}
	if len(c.Points) != 7 {
		t.Fatalf("points = %d, want 7", len(c.Points))
	}

	want := []Segment{
		{SegmentLinear, 0},
		{SegmentBezier, 1},
		{SegmentStepped, 4},
		{SegmentInverseStepped, 5},
	}
	if len(c.Segments) != len(want) {
		t.Fatalf("segments = %d, want %d", len(c.Segments), len(want))
	}
	for i, w := range want {
		if c.Segments[i] != w {
			t.Errorf("segment %d = %+v, want %+v", i, c.Segments[i], w)
		}
	}
	if c.Start() != 0 || c.End() != 4 {
		t.Errorf("span = [%v, %v], want [0, 4]", c.Start(), c.End())
	}
}

func TestCurveEvaluateAt(t *testing.T) {
	c := mustCurve(t, "Parameter",
		0, 0,
		0, 1, 10,
		2, 2, 1,
		3, 3, 5,
	)

	tests := []struct {
		name string
		t    float32
		want float32
	}{
		{"before start", -0.5, 0},
		{"start", 0, 0},
		{"linear middle", 0.5, 5},
		{"linear end boundary", 1, 10},
		{"stepped", 1.5, 10},
		{"inverse stepped", 2.5, 5},
		{"end", 3, 5},
		{"past end", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.EvaluateAt(tt.t, BezierExact); !approx(got, tt.want, 1e-6) {
				t.Errorf("EvaluateAt(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestCurveSingleLinearContinuity(t *testing.T) {
	c := mustCurve(t, "Parameter", 0, 0, 0, 1, 10)

	if got := c.EvaluateAt(0.5, BezierExact); got != 5 {
		t.Errorf("EvaluateAt(0.5) = %v, want 5", got)
	}
	if got := c.EvaluateAt(-1e-6, BezierExact); got != 0 {
		t.Errorf("EvaluateAt(-eps) = %v, want 0", got)
	}
	for _, at := range []float32{1, 1.5, 100} {
		if got := c.EvaluateAt(at, BezierExact); got != 10 {
			t.Errorf("EvaluateAt(%v) = %v, want 10", at, got)
		}
	}
}

func TestCurveOnlyFirstPoint(t *testing.T) {
	c := mustCurve(t, "PartOpacity", 0, 0.75)
	if got := c.EvaluateAt(3, BezierExact); got != 0.75 {
		t.Errorf("EvaluateAt = %v, want 0.75", got)
	}
	if c.Target != TargetPartOpacity {
		t.Errorf("target = %v, want PartOpacity", c.Target)
	}
}

func TestParseTarget(t *testing.T) {
	tests := map[string]Target{
		"Model":       TargetModel,
		"Parameter":   TargetParameter,
		"PartOpacity": TargetPartOpacity,
		"parameter":   TargetNone,
		"":            TargetNone,
	}
	for tag, want := range tests {
		if got := ParseTarget(tag); got != want {
			t.Errorf("ParseTarget(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestNewCurveErrors(t *testing.T) {
	tests := []struct {
		name     string
		segments []float32
		want     error
	}{
		{"empty", nil, ErrMalformedSegments},
		{"one number", []float32{0}, ErrMalformedSegments},
		{"truncated linear", []float32{0, 0, 0, 1}, ErrMalformedSegments},
		{"truncated bezier", []float32{0, 0, 1, 0.3, 1, 0.6, 2}, ErrMalformedSegments},
		{"unknown kind", []float32{0, 0, 7, 1, 1}, ErrUnknownSegmentKind},
		{"fractional kind", []float32{0, 0, 1.5, 1, 1}, ErrUnknownSegmentKind},
		{"negative kind", []float32{0, 0, -1, 1, 1}, ErrUnknownSegmentKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCurve(formats.Motion3Curve{Target: "Parameter", ID: "P", Segments: tt.segments})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
