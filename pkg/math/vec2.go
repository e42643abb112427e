// Package math provides the small vector toolkit used by the puppet runtime.
package math

import "math"

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Neg returns -v.
func (v Vec2) Neg() Vec2 {
	return Vec2{-v.X, -v.Y}
}

// Dot returns the dot product.
func (v Vec2) Dot(other Vec2) float32 {
	return v.X*other.X + v.Y*other.Y
}

// Cross returns the z component of the 3D cross product.
func (v Vec2) Cross(other Vec2) float32 {
	return v.X*other.Y - v.Y*other.X
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns a unit vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Distance returns the distance to another point.
func (v Vec2) Distance(other Vec2) float32 {
	return v.Sub(other).Length()
}

// Rotate returns v rotated counter-clockwise by rad radians.
// Both components are computed from the original vector.
func (v Vec2) Rotate(rad float32) Vec2 {
	s, c := math.Sincos(float64(rad))
	x := float64(v.X)
	y := float64(v.Y)
	return Vec2{
		X: float32(x*c - y*s),
		Y: float32(x*s + y*c),
	}
}

// AngleTo returns the signed angle in radians that rotates v onto other.
// The magnitude comes from acos of the normalized dot product and the sign
// from the cross product. Zero-length inputs yield 0.
func (v Vec2) AngleTo(other Vec2) float32 {
	la := v.Length()
	lb := other.Length()
	if la == 0 || lb == 0 {
		return 0
	}
	cos := float64(v.Dot(other) / (la * lb))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	angle := float32(math.Acos(cos))
	if v.Cross(other) < 0 {
		angle = -angle
	}
	return angle
}

// Lerp returns the linear interpolation between a and b.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math.Pi / 180
}
