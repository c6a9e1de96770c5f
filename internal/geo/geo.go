package geo

import "math"

const earthRadiusMeters = 6.371e6

// Point is a 2D point in image-pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Polygon is an ordered ring of vertices. A valid polygon has at least
// three vertices; the closing edge from the last vertex back to the
// first is implicit.
type Polygon []Point

// Contains reports whether p lies inside the polygon using ray
// casting. The boundary rule is inclusive: a point exactly on an edge
// or vertex counts as inside. The rule is fixed here so counts at ROI
// edges are reproducible.
func (poly Polygon) Contains(p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[j], poly[i]

		if onSegment(a, b, p) {
			return true
		}

		if (b.Y > p.Y) != (a.Y > p.Y) {
			// x of the edge at height p.Y
			cross := (a.X-b.X)*(p.Y-b.Y)/(a.Y-b.Y) + b.X
			if p.X < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p Point) bool {
	const eps = 1e-9
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > eps {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}

// Rect is an axis-aligned bounding box, min-corner plus size.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Area returns the rectangle area, zero for degenerate boxes.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// IoU returns the intersection-over-union of two boxes in [0,1].
// Degenerate boxes yield 0.
func IoU(a, b Rect) float64 {
	ix := math.Max(a.X, b.X)
	iy := math.Max(a.Y, b.Y)
	ix2 := math.Min(a.X+a.Width, b.X+b.Width)
	iy2 := math.Min(a.Y+a.Height, b.Y+b.Height)

	iw := ix2 - ix
	ih := iy2 - iy
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Haversine returns the great-circle distance in meters between two
// coordinates given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = lat1 * math.Pi / 180
	lon1 = lon1 * math.Pi / 180
	lat2 = lat2 * math.Pi / 180
	lon2 = lon2 * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
