package motion

import (
	"errors"
	"fmt"

	"github.com/Faultbox/marionette/pkg/formats"
)

// Curve parsing errors.
var (
	ErrMalformedSegments  = errors.New("motion: malformed segment array")
	ErrUnknownSegmentKind = errors.New("motion: unknown segment kind")
)

// Target is what a curve animates.
type Target int

// Curve targets. TargetNone marks curves with an unrecognized target tag;
// players skip them.
const (
	TargetNone Target = iota
	TargetModel
	TargetParameter
	TargetPartOpacity
)

// String returns the motion3 tag of the target.
func (t Target) String() string {
	switch t {
	case TargetModel:
		return formats.CurveTargetModel
	case TargetParameter:
		return formats.CurveTargetParameter
	case TargetPartOpacity:
		return formats.CurveTargetPartOpacity
	default:
		return "None"
	}
}

// ParseTarget maps a motion3 target tag to a Target.
func ParseTarget(tag string) Target {
	switch tag {
	case formats.CurveTargetModel:
		return TargetModel
	case formats.CurveTargetParameter:
		return TargetParameter
	case formats.CurveTargetPartOpacity:
		return TargetPartOpacity
	default:
		return TargetNone
	}
}

// Segment is one span of a curve. First indexes the curve's point slice.
type Segment struct {
	Kind  SegmentKind
	First int
}

// Curve is one animated channel. It is immutable after NewCurve.
type Curve struct {
	Target      Target
	ID          string
	FadeInTime  *float32
	FadeOutTime *float32

	Segments []Segment
	Points   []Point
}

// NewCurve decodes a motion3 curve. The segment array starts with the
// first point (time, value), followed by (kind, points...) records whose
// first point is the previous record's last.
func NewCurve(src formats.Motion3Curve) (*Curve, error) {
	c := &Curve{
		Target:      ParseTarget(src.Target),
		ID:          src.ID,
		FadeInTime:  src.FadeInTime,
		FadeOutTime: src.FadeOutTime,
	}

	data := src.Segments
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: curve %q has %d numbers", ErrMalformedSegments, src.ID, len(data))
	}
	c.Points = append(c.Points, Point{Time: data[0], Value: data[1]})

	for i := 2; i < len(data); {
		kind := SegmentKind(data[i])
		if float32(kind) != data[i] || kind < SegmentLinear || kind > SegmentInverseStepped {
			return nil, fmt.Errorf("%w: %v in curve %q at %d", ErrUnknownSegmentKind, data[i], src.ID, i)
		}
		i++

		added := kind.PointCount() - 1
		if i+2*added > len(data) {
			return nil, fmt.Errorf("%w: curve %q truncated in %s segment at %d", ErrMalformedSegments, src.ID, kind, i-1)
		}

		c.Segments = append(c.Segments, Segment{Kind: kind, First: len(c.Points) - 1})
		for j := 0; j < added; j++ {
			c.Points = append(c.Points, Point{Time: data[i], Value: data[i+1]})
			i += 2
		}
	}

	return c, nil
}

// Start returns the time of the first point.
func (c *Curve) Start() float32 {
	return c.Points[0].Time
}

// End returns the time of the last point.
func (c *Curve) End() float32 {
	return c.Points[len(c.Points)-1].Time
}

// EvaluateAt returns the curve value at time t. Times before the first
// point hold its value; times at or past the end hold the last value.
func (c *Curve) EvaluateAt(t float32, policy BezierPolicy) float32 {
	if t <= c.Points[0].Time {
		return c.Points[0].Value
	}

	for _, seg := range c.Segments {
		last := seg.First + seg.Kind.PointCount() - 1
		if c.Points[last].Time > t {
			return EvaluateSegment(seg.Kind, c.Points[seg.First:last+1], t, policy)
		}
	}

	return c.Points[len(c.Points)-1].Value
}
