// Package geometry computes the telemetry of a path drawn between two stages.
//
// Coordinates are percentages of the map bounds. Because a map is rarely
// square, one percent of width and one percent of height differ on screen;
// [Compute] therefore takes the map aspect ratio (width / height) and does
// all distance and angle math in width-percent units.
package geometry

import "math"

// Point is a position in percent of the map bounds.
type Point struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
}

// Rect is the bounding box of a stage in percent of the map bounds.
// X and Y locate the top-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Telemetry describes a rendered path between two stages.
type Telemetry struct {
	From   Point   `json:"from" bson:"from" yaml:"from"`       // anchor on the first stage
	To     Point   `json:"to" bson:"to" yaml:"to"`             // anchor on the second stage
	Length float64 `json:"length" bson:"length" yaml:"length"` // percent of map width
	Angle  float64 `json:"angle" bson:"angle" yaml:"angle"`    // radians, 0 points right, positive turns down
}

// Compute returns the telemetry of a straight path connecting from and to.
//
// Anchors sit on the ellipse inscribed in each rectangle along the line
// between the centers. A rectangle with zero width or height anchors at its
// center. When the centers coincide the path has zero length and angle 0;
// when the ellipses overlap both anchors collapse onto the midpoint between
// the edges. A non-positive aspect is treated as 1.
func Compute(from, to Rect, aspect float64) Telemetry {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}

	c1, c2 := from.Center(), to.Center()

	// Work in width-percent units so that both axes share a scale.
	dx := c2.X - c1.X
	dy := (c2.Y - c1.Y) / aspect
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return Telemetry{From: c1, To: c2}
	}

	ux, uy := dx/dist, dy/dist
	r1 := ellipseRadius(from.Width/2, from.Height/2/aspect, ux, uy)
	r2 := ellipseRadius(to.Width/2, to.Height/2/aspect, ux, uy)

	length := dist - r1 - r2
	if length <= 0 {
		// Overlapping stages: place both anchors where the edges meet.
		t := r1 + (dist-r1-r2)/2
		mid := Point{X: c1.X + ux*t, Y: c1.Y + uy*t*aspect}
		return Telemetry{From: mid, To: mid, Angle: math.Atan2(uy, ux)}
	}

	return Telemetry{
		From:   Point{X: c1.X + ux*r1, Y: c1.Y + uy*r1*aspect},
		To:     Point{X: c2.X - ux*r2, Y: c2.Y - uy*r2*aspect},
		Length: length,
		Angle:  math.Atan2(uy, ux),
	}
}

// ellipseRadius is the distance from the center of an ellipse with radii
// rx, ry to its boundary along the unit direction (ux, uy).
func ellipseRadius(rx, ry, ux, uy float64) float64 {
	if rx <= 0 || ry <= 0 {
		return 0
	}
	a, b := ux/rx, uy/ry
	return 1 / math.Sqrt(a*a+b*b)
}
