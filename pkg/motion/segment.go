// Package motion evaluates keyframed parameter curves and plays them back
// against a model.
package motion

import (
	"math"

	mathx "github.com/Faultbox/marionette/pkg/math"
)

// SegmentKind is the interpolation used between two keyframes.
type SegmentKind int

// Segment kinds, numbered as in the motion3 segment encoding.
const (
	SegmentLinear         SegmentKind = 0
	SegmentBezier         SegmentKind = 1
	SegmentStepped        SegmentKind = 2
	SegmentInverseStepped SegmentKind = 3
)

// String returns the segment kind name.
func (k SegmentKind) String() string {
	switch k {
	case SegmentLinear:
		return "linear"
	case SegmentBezier:
		return "bezier"
	case SegmentStepped:
		return "stepped"
	case SegmentInverseStepped:
		return "inverse-stepped"
	default:
		return "unknown"
	}
}

// PointCount returns how many control points a segment of this kind spans,
// including the point shared with the previous segment.
func (k SegmentKind) PointCount() int {
	if k == SegmentBezier {
		return 4
	}
	return 2
}

// Point is a keyframe control point.
type Point struct {
	Time  float32
	Value float32
}

func lerpPoint(a, b Point, t float32) Point {
	return Point{
		Time:  mathx.Lerp(a.Time, b.Time, t),
		Value: mathx.Lerp(a.Value, b.Value, t),
	}
}

// BezierPolicy selects how Bezier segments map time to the curve parameter.
type BezierPolicy int

const (
	// BezierExact solves the cubic so that the Bezier's time component
	// equals the query time.
	BezierExact BezierPolicy = iota
	// BezierRestricted uses the normalized time fraction as the curve
	// parameter directly. Motions authored with restricted handles rely
	// on it.
	BezierRestricted
)

// PolicyFor returns the policy matching a motion's AreBeziersRestricted flag.
func PolicyFor(restricted bool) BezierPolicy {
	if restricted {
		return BezierRestricted
	}
	return BezierExact
}

// String returns the policy name.
func (p BezierPolicy) String() string {
	if p == BezierRestricted {
		return "restricted"
	}
	return "exact"
}

// cubicEpsilon is the tolerance below which a leading coefficient counts as zero.
const cubicEpsilon = 1e-6

// EvaluateSegment evaluates a segment of the given kind at time t. points
// must hold at least kind.PointCount() points starting at the segment's
// first control point.
func EvaluateSegment(kind SegmentKind, points []Point, t float32, policy BezierPolicy) float32 {
	switch kind {
	case SegmentLinear:
		return evaluateLinear(points, t)
	case SegmentBezier:
		if policy == BezierRestricted {
			return evaluateBezier(points, t)
		}
		return evaluateBezierExact(points, t)
	case SegmentStepped:
		return points[0].Value
	case SegmentInverseStepped:
		return points[1].Value
	default:
		return points[0].Value
	}
}

func evaluateLinear(points []Point, t float32) float32 {
	span := points[1].Time - points[0].Time
	if span == 0 {
		return points[0].Value
	}
	u := (t - points[0].Time) / span
	return mathx.Lerp(points[0].Value, points[1].Value, u)
}

func evaluateBezier(points []Point, t float32) float32 {
	span := points[3].Time - points[0].Time
	if span == 0 {
		return points[0].Value
	}
	return deCasteljau(points, (t-points[0].Time)/span)
}

func evaluateBezierExact(points []Point, t float32) float32 {
	x1 := points[0].Time
	cx1 := points[1].Time
	cx2 := points[2].Time
	x2 := points[3].Time

	a := x2 - 3*cx2 + 3*cx1 - x1
	b := 3*cx2 - 6*cx1 + 3*x1
	c := 3*cx1 - 3*x1
	d := x1 - t

	return deCasteljau(points, solveCubic(a, b, c, d))
}

func deCasteljau(points []Point, u float32) float32 {
	p01 := lerpPoint(points[0], points[1], u)
	p12 := lerpPoint(points[1], points[2], u)
	p23 := lerpPoint(points[2], points[3], u)

	p012 := lerpPoint(p01, p12, u)
	p123 := lerpPoint(p12, p23, u)

	return lerpPoint(p012, p123, u).Value
}

// solveCubic returns a root of a*u³ + b*u² + c*u + d = 0 in [0, 1],
// computed in float32 throughout. With three real roots the first one
// within 0.51 of 0.5 wins, tried in the order of the trigonometric
// solution; otherwise the last one.
func solveCubic(a, b, c, d float32) float32 {
	if abs32(a) < cubicEpsilon {
		return clamp01(solveQuadratic(b, c, d))
	}

	ba := b / a
	ca := c / a
	da := d / a

	p := (3*ca - ba*ba) / 3
	p3 := p / 3
	q := (2*ba*ba*ba - 9*ba*ca + 27*da) / 27
	q2 := q / 2
	discriminant := q2*q2 + p3*p3*p3

	const center = 0.5
	const threshold = center + 0.01

	switch {
	case discriminant < 0:
		mp3 := -p / 3
		r := sqrt32(mp3 * mp3 * mp3)
		cosphi := min(max(-q/(2*r), -1), 1)
		phi := acos32(cosphi)
		t1 := 2 * cbrt32(r)

		root1 := t1*cos32(phi/3) - ba/3
		if abs32(root1-center) < threshold {
			return clamp01(root1)
		}
		root2 := t1*cos32((phi+2*math.Pi)/3) - ba/3
		if abs32(root2-center) < threshold {
			return clamp01(root2)
		}
		root3 := t1*cos32((phi+4*math.Pi)/3) - ba/3
		return clamp01(root3)

	case discriminant == 0:
		var u1 float32
		if q2 < 0 {
			u1 = cbrt32(-q2)
		} else {
			u1 = -cbrt32(q2)
		}
		root1 := 2*u1 - ba/3
		if abs32(root1-center) < threshold {
			return clamp01(root1)
		}
		return clamp01(-u1 - ba/3)

	default:
		sd := sqrt32(discriminant)
		u1 := cbrt32(sd - q2)
		v1 := cbrt32(sd + q2)
		return clamp01(u1 - v1 - ba/3)
	}
}

// solveQuadratic returns a root of a*u² + b*u + c = 0, degrading to the
// linear solution and finally to -c as leading terms vanish. The root
// -(b+√Δ)/2a is preferred when it lies in the same window solveCubic uses.
func solveQuadratic(a, b, c float32) float32 {
	if abs32(a) < cubicEpsilon {
		if abs32(b) < cubicEpsilon {
			return -c
		}
		return -c / b
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		disc = 0
	}
	sd := sqrt32(disc)
	root1 := -(b + sd) / (2 * a)
	if abs32(root1-0.5) < 0.51 {
		return root1
	}
	return (sd - b) / (2 * a)
}

func abs32(x float32) float32  { return float32(math.Abs(float64(x))) }
func sqrt32(x float32) float32 { return float32(math.Sqrt(float64(x))) }
func cbrt32(x float32) float32 { return float32(math.Cbrt(float64(x))) }
func cos32(x float32) float32  { return float32(math.Cos(float64(x))) }
func acos32(x float32) float32 { return float32(math.Acos(float64(x))) }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
