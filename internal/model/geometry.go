package model

import (
	"fmt"
	"math"
)

// Point3 represents a 3D drawing coordinate in metres.
// Points are compared exactly, so they must be rounded with RoundPoint first.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// SamePlanar reports whether two points share X and Y.
func (p Point3) SamePlanar(o Point3) bool {
	return p.X == o.X && p.Y == o.Y
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	r := math.Round(v*scale) / scale
	if r == 0 {
		// normalise -0 so it matches +0 as a map key
		return 0
	}
	return r
}

// RoundPoint rounds every coordinate of p to the given number of decimals.
func RoundPoint(p Point3, decimals int) Point3 {
	return Point3{
		X: RoundTo(p.X, decimals),
		Y: RoundTo(p.Y, decimals),
		Z: RoundTo(p.Z, decimals),
	}
}

// Distance returns the 3D euclidean distance between a and b.
func Distance(a, b Point3) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Bearing returns the planar angle of the vector a->b in degrees, in [0, 360).
// A purely vertical segment has bearing 0.
func Bearing(a, b Point3) float64 {
	deg := math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
