package geomath

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/atwilso/tracktable/pkg/models"
)

// EarthRadiusKm is the mean Earth radius used for terrestrial lengths.
const EarthRadiusKm = 6371.0

// Terrestrial is the sphere of (longitude, latitude) in degrees. Lengths
// are in km, speeds in km/h, areas in km² and angles in degrees.
//
// Convex hulls are computed in the longitude/latitude plane, so hulls that
// straddle the antimeridian are wrong.
type Terrestrial struct{}

func (Terrestrial) Domain() string          { return models.DomainTerrestrial }
func (Terrestrial) TimeUnit() time.Duration { return time.Hour }

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance is the haversine great circle distance.
func (Terrestrial) Distance(a, b []float64) float64 {
	lat1, lat2 := radians(a[1]), radians(b[1])
	dlat := lat2 - lat1
	dlon := radians(b[0] - a[0])
	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing is the initial great circle heading from -> to, clockwise from
// north, in [0, 360).
func (Terrestrial) Bearing(from, to []float64) float64 {
	lon1, lat1 := radians(from[0]), radians(from[1])
	lon2, lat2 := radians(to[0]), radians(to[1])
	b := math.Atan2(
		math.Sin(lon2-lon1)*math.Cos(lat2),
		math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1),
	)
	return math.Mod(degrees(b)+360, 360)
}

// SignedTurnAngle is the heading change at b in (-180, 180]. Right turns
// are positive.
func (t Terrestrial) SignedTurnAngle(a, b, c []float64) float64 {
	turn := t.Bearing(b, c) - t.Bearing(a, b)
	switch {
	case turn > 180:
		turn -= 360
	case turn <= -180:
		turn += 360
	}
	return turn
}

func toUnit(p []float64) r3.Vec {
	lon, lat := radians(p[0]), radians(p[1])
	return r3.Vec{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

func fromUnit(v r3.Vec) []float64 {
	v = r3.Unit(v)
	return []float64{
		degrees(math.Atan2(v.Y, v.X)),
		degrees(math.Asin(math.Max(-1, math.Min(1, v.Z)))),
	}
}

// Destination is the position reached from `from` after distance km along
// the great circle with the given initial heading. Longitudes are wrapped
// to [-180, 180).
func (Terrestrial) Destination(from []float64, heading, distance float64) []float64 {
	lon1, lat1 := radians(from[0]), radians(from[1])
	theta, d := radians(heading), distance/EarthRadiusKm
	lat2 := math.Asin(math.Max(-1, math.Min(1,
		math.Sin(lat1)*math.Cos(d)+math.Cos(lat1)*math.Sin(d)*math.Cos(theta))))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	lon := math.Mod(degrees(lon2)+540, 360) - 180
	return []float64{lon, degrees(lat2)}
}

// Interpolate follows the great circle from a to b.
func (Terrestrial) Interpolate(a, b []float64, t float64) []float64 {
	va, vb := toUnit(a), toUnit(b)
	omega := math.Atan2(r3.Norm(r3.Cross(va, vb)), r3.Dot(va, vb))
	if omega < 1e-12 {
		return lerp(a[:2], b[:2], t)
	}
	s := math.Sin(omega)
	v := r3.Add(
		r3.Scale(math.Sin((1-t)*omega)/s, va),
		r3.Scale(math.Sin(t*omega)/s, vb),
	)
	return fromUnit(v)
}

func (Terrestrial) ConvexHull(points [][]float64) [][]float64 { return planarHull(points) }

// HullArea is the area of the spherical polygon with the hull's vertices.
func (Terrestrial) HullArea(hull [][]float64) float64 {
	if len(hull) < 3 {
		return 0
	}
	var sum float64
	for i, p := range hull {
		q := hull[(i+1)%len(hull)]
		sum += radians(q[0]-p[0]) * (2 + math.Sin(radians(p[1])) + math.Sin(radians(q[1])))
	}
	return math.Abs(sum) * EarthRadiusKm * EarthRadiusKm / 2
}

// HullCentroid is the normalized mean of the hull vertices on the unit
// sphere.
func (Terrestrial) HullCentroid(hull [][]float64) []float64 {
	if len(hull) == 0 {
		return nil
	}
	var sum r3.Vec
	for _, p := range hull {
		sum = r3.Add(sum, toUnit(p))
	}
	if r3.Norm(sum) < 1e-12 {
		return []float64{hull[0][0], hull[0][1]}
	}
	return fromUnit(sum)
}

// HullAspectRatio works on an equirectangular projection centred on the
// hull centroid.
func (t Terrestrial) HullAspectRatio(hull [][]float64) float64 {
	c := t.HullCentroid(hull)
	if c == nil {
		return 0
	}
	scale := math.Cos(radians(c[1]))
	projected := make([][]float64, len(hull))
	for i, p := range hull {
		projected[i] = []float64{(p[0] - c[0]) * scale, p[1] - c[1]}
	}
	return aspectRatio(projected, []float64{0, 0})
}
