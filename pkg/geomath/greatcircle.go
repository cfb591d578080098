package geomath

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/atwilso/tracktable/pkg/models"
)

var (
	ErrTooFewPoints    = errors.New("trajectory has too few points")
	ErrDegeneratePlane = errors.New("positions do not define a great circle")
)

// BestFitPlane returns the unit normal of the plane through the Earth's
// centre that minimizes the summed squared distance of the trajectory's
// positions on the unit sphere. The great circle that plane cuts is the
// trajectory's best straight-line path. The normal points along
// first × last, so a trajectory and its reverse have opposite normals.
//
// Only terrestrial trajectories have great circles.
func BestFitPlane[P models.Point](t *models.Trajectory[P]) (r3.Vec, error) {
	if t.Len() < 2 {
		return r3.Vec{}, ErrTooFewPoints
	}
	if d := t.At(0).Traits().Domain; d != models.DomainTerrestrial {
		return r3.Vec{}, fmt.Errorf("%w: great circles in %s", ErrUnsupported, d)
	}

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range t.Points() {
		u := toUnit(models.Coordinates(p))
		xx += u.X * u.X
		xy += u.X * u.Y
		xz += u.X * u.Z
		yy += u.Y * u.Y
		yz += u.Y * u.Z
		zz += u.Z * u.Z
	}
	scatter := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(scatter, true) {
		return r3.Vec{}, ErrDegeneratePlane
	}
	// Eigenvalues are ascending. A rank one scatter (one position, or
	// antipodal pairs only) leaves the plane undetermined.
	values := eig.Values(nil)
	if values[1] <= 1e-12*values[2] {
		return r3.Vec{}, ErrDegeneratePlane
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	normal := r3.Unit(r3.Vec{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)})

	first := toUnit(models.Coordinates(t.At(0)))
	last := toUnit(models.Coordinates(t.At(t.Len() - 1)))
	orient := r3.Cross(first, last)
	if r3.Norm(orient) < 1e-12 {
		orient = r3.Vec{Z: 1}
	}
	if r3.Dot(normal, orient) < 0 {
		normal = r3.Scale(-1, normal)
	}
	return normal, nil
}

// ProjectOntoPlane moves every point of t onto the great circle cut by
// the plane with the given normal. A point at the plane's pole has no
// nearest position on the circle and is left where it is.
func ProjectOntoPlane[P models.Point](t *models.Trajectory[P], normal r3.Vec) error {
	if t.Len() == 0 {
		return ErrTooFewPoints
	}
	if d := t.At(0).Traits().Domain; d != models.DomainTerrestrial {
		return fmt.Errorf("%w: great circles in %s", ErrUnsupported, d)
	}
	if r3.Norm(normal) == 0 {
		return ErrDegeneratePlane
	}
	n := r3.Unit(normal)
	for _, p := range t.Points() {
		coords := models.Coordinates(p)
		u := toUnit(coords)
		onPlane := r3.Sub(u, r3.Scale(r3.Dot(u, n), n))
		if r3.Norm(onPlane) < 1e-12 {
			continue
		}
		lonlat := fromUnit(onPlane)
		coords[0], coords[1] = lonlat[0], lonlat[1]
		models.SetCoordinates(p, coords)
	}
	return nil
}

// GreatCircleFitInPlace projects t onto its best fit great circle.
func GreatCircleFitInPlace[P models.Point](t *models.Trajectory[P]) error {
	normal, err := BestFitPlane(t)
	if err != nil {
		return err
	}
	return ProjectOntoPlane(t, normal)
}

// GreatCircleFit returns a copy of t projected onto its best fit great
// circle. newPoint supplies the copies; t is not modified.
func GreatCircleFit[P models.Point](t *models.Trajectory[P], newPoint func() P) (*models.Trajectory[P], error) {
	out := t.Clone()
	for i, p := range t.Points() {
		q := newPoint()
		copyPoint(q, p)
		out.Points()[i] = q
	}
	if err := GreatCircleFitInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CrossTrackDistance is the distance from p to the great circle with the
// given plane normal, in km. It is the residual BestFitPlane minimizes.
func CrossTrackDistance(p models.Point, normal r3.Vec) float64 {
	u := toUnit(models.Coordinates(p))
	return EarthRadiusKm * math.Abs(math.Asin(math.Max(-1, math.Min(1, r3.Dot(u, r3.Unit(normal))))))
}
