package geomath

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/atwilso/tracktable/pkg/models"
)

// Distance between two points of the same domain.
func Distance(a, b models.Point) (float64, error) {
	s, err := spaceFor2(a, b)
	if err != nil {
		return 0, err
	}
	return s.Distance(models.Coordinates(a), models.Coordinates(b)), nil
}

// Bearing from one point to another.
func Bearing(from, to models.Point) (float64, error) {
	s, err := spaceFor2(from, to)
	if err != nil {
		return 0, err
	}
	d, err := directional(s)
	if err != nil {
		return 0, err
	}
	return d.Bearing(models.Coordinates(from), models.Coordinates(to)), nil
}

// SpeedBetween is the distance from a to b divided by the time between
// them, in length units per the space's TimeUnit. Simultaneous points have
// speed 0.
func SpeedBetween(a, b models.Point) (float64, error) {
	s, err := spaceFor2(a, b)
	if err != nil {
		return 0, err
	}
	ta, okA := models.TimestampOf(a)
	tb, okB := models.TimestampOf(b)
	if !okA || !okB {
		return 0, fmt.Errorf("%w: speed needs timestamps", ErrUnsupported)
	}
	dt := tb.Sub(ta).Abs()
	if dt == 0 {
		return 0, nil
	}
	units := float64(dt) / float64(s.TimeUnit())
	return s.Distance(models.Coordinates(a), models.Coordinates(b)) / units, nil
}

// SignedTurnAngle is the change of heading at b on the path a, b, c.
func SignedTurnAngle(a, b, c models.Point) (float64, error) {
	s, err := spaceFor2(a, b)
	if err != nil {
		return 0, err
	}
	if _, err := spaceFor2(b, c); err != nil {
		return 0, err
	}
	d, err := directional(s)
	if err != nil {
		return 0, err
	}
	return d.SignedTurnAngle(models.Coordinates(a), models.Coordinates(b), models.Coordinates(c)), nil
}

// UnsignedTurnAngle is the magnitude of SignedTurnAngle.
func UnsignedTurnAngle(a, b, c models.Point) (float64, error) {
	angle, err := SignedTurnAngle(a, b, c)
	return math.Abs(angle), err
}

// trajectorySpace resolves the space of a non-empty trajectory and returns
// its coordinates.
func trajectorySpace[P models.Point](t *models.Trajectory[P]) (Space, [][]float64, error) {
	if t.Len() == 0 {
		return nil, nil, ErrEmptyTrajectory
	}
	s, err := SpaceFor(t.At(0))
	if err != nil {
		return nil, nil, err
	}
	coords := make([][]float64, t.Len())
	for i, p := range t.Points() {
		coords[i] = models.Coordinates(p)
	}
	return s, coords, nil
}

// CurrentLengths returns, for each point, the path length travelled from
// the start of the trajectory up to that point.
func CurrentLengths[P models.Point](t *models.Trajectory[P]) ([]float64, error) {
	if t.Len() == 0 {
		return nil, nil
	}
	s, coords, err := trajectorySpace(t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		out[i] = out[i-1] + s.Distance(coords[i-1], coords[i])
	}
	return out, nil
}

// Length is the total path length. Empty trajectories have length 0.
func Length[P models.Point](t *models.Trajectory[P]) (float64, error) {
	lengths, err := CurrentLengths(t)
	if err != nil || len(lengths) == 0 {
		return 0, err
	}
	return lengths[len(lengths)-1], nil
}

// EndToEndDistance is the distance between the first and last points.
func EndToEndDistance[P models.Point](t *models.Trajectory[P]) (float64, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	last, _ := t.Last()
	return Distance(t.At(0), last)
}

func trajectoryHull[P models.Point](t *models.Trajectory[P]) (HullSpace, [][]float64, error) {
	s, coords, err := trajectorySpace(t)
	if err != nil {
		return nil, nil, err
	}
	h, err := hullSpace(s)
	if err != nil {
		return nil, nil, err
	}
	return h, h.ConvexHull(coords), nil
}

// ConvexHull returns the vertices of the convex hull of t's points as an
// open counterclockwise ring.
func ConvexHull[P models.Point](t *models.Trajectory[P]) ([][]float64, error) {
	_, hull, err := trajectoryHull(t)
	return hull, err
}

// ConvexHullArea is the area enclosed by the convex hull.
func ConvexHullArea[P models.Point](t *models.Trajectory[P]) (float64, error) {
	h, hull, err := trajectoryHull(t)
	if err != nil {
		return 0, err
	}
	return h.HullArea(hull), nil
}

// ConvexHullPerimeter is the length of the hull boundary. Degenerate hulls
// of two points count the segment twice.
func ConvexHullPerimeter[P models.Point](t *models.Trajectory[P]) (float64, error) {
	h, hull, err := trajectoryHull(t)
	if err != nil {
		return 0, err
	}
	if len(hull) < 2 {
		return 0, nil
	}
	var sum float64
	for i, p := range hull {
		sum += h.Distance(p, hull[(i+1)%len(hull)])
	}
	return sum, nil
}

// ConvexHullCentroid is the centroid of the hull polygon.
func ConvexHullCentroid[P models.Point](t *models.Trajectory[P]) ([]float64, error) {
	h, hull, err := trajectoryHull(t)
	if err != nil {
		return nil, err
	}
	return h.HullCentroid(hull), nil
}

// ConvexHullAspectRatio compares the longest and shortest extent of the
// hull as seen from its centroid. Flat hulls have ratio 0.
func ConvexHullAspectRatio[P models.Point](t *models.Trajectory[P]) (float64, error) {
	h, hull, err := trajectoryHull(t)
	if err != nil {
		return 0, err
	}
	return h.HullAspectRatio(hull), nil
}

// RadiusOfGyration is the RMS distance of the points from their centre:
// the hull centroid where the space has hulls, the coordinate mean
// otherwise. Trajectories of fewer than two points have radius 0.
func RadiusOfGyration[P models.Point](t *models.Trajectory[P]) (float64, error) {
	if t.Len() < 2 {
		return 0, nil
	}
	s, coords, err := trajectorySpace(t)
	if err != nil {
		return 0, err
	}
	var centre []float64
	if h, ok := s.(HullSpace); ok {
		centre = h.HullCentroid(h.ConvexHull(coords))
	} else {
		centre = vertexMean(coords)
	}

	sq := make([]float64, len(coords))
	for i, c := range coords {
		d := s.Distance(c, centre)
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil)), nil
}

// Box is an axis-aligned bounding box. The zero Box is empty.
type Box struct {
	Min []float64
	Max []float64
}

// Empty reports whether no point has been added.
func (b *Box) Empty() bool { return b.Min == nil }

// Extend grows b to include p.
func (b *Box) Extend(p models.Point) {
	if b.Min == nil {
		b.Min = models.Coordinates(p)
		b.Max = models.Coordinates(p)
		return
	}
	for i := range b.Min {
		v := p.Coordinate(i)
		b.Min[i] = math.Min(b.Min[i], v)
		b.Max[i] = math.Max(b.Max[i], v)
	}
}

// BoundingBox returns the per-coordinate extent of t. It does not handle
// terrestrial boxes that cross the antimeridian.
func BoundingBox[P models.Point](t *models.Trajectory[P]) (Box, error) {
	if t.Len() == 0 {
		return Box{}, ErrEmptyTrajectory
	}
	var box Box
	for _, p := range t.Points() {
		box.Extend(p)
	}
	return box, nil
}
