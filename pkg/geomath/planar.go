package geomath

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/atwilso/tracktable/pkg/models"
)

// Cartesian2D is the flat plane. Lengths are in coordinate units, speeds
// in units per second, headings and turns in radians.
type Cartesian2D struct{}

func (Cartesian2D) Domain() string          { return models.DomainCartesian2D }
func (Cartesian2D) TimeUnit() time.Duration { return time.Second }

func (Cartesian2D) Distance(a, b []float64) float64 {
	return floats.Distance(a[:2], b[:2], 2)
}

func (Cartesian2D) Interpolate(a, b []float64, t float64) []float64 { return lerp(a, b, t) }

// Bearing is the angle of from->to measured counterclockwise from the x
// axis, in (-pi, pi].
func (Cartesian2D) Bearing(from, to []float64) float64 {
	return math.Atan2(to[1]-from[1], to[0]-from[0])
}

func (Cartesian2D) SignedTurnAngle(a, b, c []float64) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	bcx, bcy := c[0]-b[0], c[1]-b[1]
	return math.Atan2(abx*bcy-aby*bcx, abx*bcx+aby*bcy)
}

func (Cartesian2D) ConvexHull(points [][]float64) [][]float64 { return planarHull(points) }
func (Cartesian2D) HullArea(hull [][]float64) float64         { return math.Abs(signedArea(hull)) }
func (Cartesian2D) HullCentroid(hull [][]float64) []float64   { return polygonCentroid(hull) }

func (Cartesian2D) HullAspectRatio(hull [][]float64) float64 {
	return aspectRatio(hull, polygonCentroid(hull))
}

// Cartesian3D is Euclidean space. It has no heading or hull support.
type Cartesian3D struct{}

func (Cartesian3D) Domain() string          { return models.DomainCartesian3D }
func (Cartesian3D) TimeUnit() time.Duration { return time.Second }

func (Cartesian3D) Distance(a, b []float64) float64 {
	return floats.Distance(a[:3], b[:3], 2)
}

func (Cartesian3D) Interpolate(a, b []float64, t float64) []float64 { return lerp(a, b, t) }

// FeatureSpace holds feature vectors of any length. Only distance and
// interpolation are defined.
type FeatureSpace struct{}

func (FeatureSpace) Domain() string          { return models.DomainFeatureVector }
func (FeatureSpace) TimeUnit() time.Duration { return time.Second }

func (FeatureSpace) Distance(a, b []float64) float64 {
	n := min(len(a), len(b))
	return floats.Distance(a[:n], b[:n], 2)
}

func (FeatureSpace) Interpolate(a, b []float64, t float64) []float64 { return lerp(a, b, t) }

func lerp(a, b []float64, t float64) []float64 {
	n := min(len(a), len(b))
	diff := floats.SubTo(make([]float64, n), b[:n], a[:n])
	return floats.AddScaledTo(make([]float64, n), a[:n], t, diff)
}

func cross(o, a, b []float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// planarHull is Andrew's monotone chain over the first two coordinates.
// Fewer than three distinct points are returned as they are.
func planarHull(points [][]float64) [][]float64 {
	pts := make([][]float64, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	uniq := pts[:0]
	for _, p := range pts {
		if n := len(uniq); n > 0 && uniq[n-1][0] == p[0] && uniq[n-1][1] == p[1] {
			continue
		}
		uniq = append(uniq, p)
	}
	if len(uniq) < 3 {
		return uniq
	}

	hull := make([][]float64, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// signedArea is the shoelace area of an open ring, positive when
// counterclockwise.
func signedArea(ring [][]float64) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		sum += p[0]*q[1] - q[0]*p[1]
	}
	return sum / 2
}

// polygonCentroid returns the area centroid of ring, falling back to the
// vertex mean for degenerate rings.
func polygonCentroid(ring [][]float64) []float64 {
	a := signedArea(ring)
	if math.Abs(a) < 1e-12 {
		return vertexMean(ring)
	}
	var cx, cy float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		f := p[0]*q[1] - q[0]*p[1]
		cx += (p[0] + q[0]) * f
		cy += (p[1] + q[1]) * f
	}
	return []float64{cx / (6 * a), cy / (6 * a)}
}

func vertexMean(points [][]float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points[0]))
	for _, p := range points {
		floats.Add(out, p[:len(out)])
	}
	floats.Scale(1/float64(len(points)), out)
	return out
}

func segmentDistance(p, a, b []float64) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
		t = math.Max(0, math.Min(1, t))
	}
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}

// aspectRatio divides the farthest hull vertex distance from c by the
// nearest hull edge distance. Flat hulls have ratio 0.
func aspectRatio(hull [][]float64, c []float64) float64 {
	if len(hull) < 3 {
		return 0
	}
	long, short := 0.0, math.Inf(1)
	for i, p := range hull {
		q := hull[(i+1)%len(hull)]
		long = math.Max(long, math.Hypot(p[0]-c[0], p[1]-c[1]))
		short = math.Min(short, segmentDistance(c, p, q))
	}
	if short < 1e-5 {
		return 0
	}
	return long / short
}
