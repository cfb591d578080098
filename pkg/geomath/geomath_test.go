package geomath

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/models"
)

var t0 = time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)

func planar(x, y float64, offset time.Duration) *domain.Cartesian2DTrajectoryPoint {
	p := domain.NewCartesian2DTrajectoryPoint(x, y)
	p.SetObjectID("p")
	p.SetTimestamp(t0.Add(offset))
	return p
}

func lonlat(lon, lat float64, offset time.Duration) *domain.TerrestrialTrajectoryPoint {
	p := domain.NewTerrestrialTrajectoryPoint(lon, lat)
	p.SetTimestamp(t0.Add(offset))
	return p
}

type flatland struct{ FeatureSpace }

func (flatland) Domain() string { return "flatland" }

func TestRegistry(t *testing.T) {
	for _, name := range []string{
		models.DomainTerrestrial, models.DomainCartesian2D, models.DomainCartesian3D, models.DomainFeatureVector,
	} {
		s, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Domain())
	}

	_, err := Lookup("mars")
	assert.True(t, errors.Is(err, ErrUnknownDomain))

	Register(flatland{})
	s, err := Lookup("flatland")
	require.NoError(t, err)
	assert.Equal(t, "flatland", s.Domain())
	assert.Contains(t, Domains(), "flatland")

	s, err = SpaceFor(domain.NewTerrestrialPoint(0, 0))
	require.NoError(t, err)
	assert.IsType(t, Terrestrial{}, s)
}

func TestTerrestrialDistanceAndBearing(t *testing.T) {
	oneDegree := EarthRadiusKm * math.Pi / 180

	d, err := Distance(domain.NewTerrestrialPoint(0, 0), domain.NewTerrestrialPoint(0, 1))
	require.NoError(t, err)
	assert.InDelta(t, oneDegree, d, 1e-9)

	tests := []struct {
		name    string
		to      *domain.TerrestrialPoint
		bearing float64
	}{
		{"north", domain.NewTerrestrialPoint(0, 1), 0},
		{"east", domain.NewTerrestrialPoint(1, 0), 90},
		{"south", domain.NewTerrestrialPoint(0, -1), 180},
		{"west", domain.NewTerrestrialPoint(-1, 0), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Bearing(domain.NewTerrestrialPoint(0, 0), tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.bearing, b, 1e-9)
		})
	}
}

func TestTurnAngles(t *testing.T) {
	a := domain.NewTerrestrialPoint(0, 0)
	b := domain.NewTerrestrialPoint(0, 1)

	right, err := SignedTurnAngle(a, b, domain.NewTerrestrialPoint(1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 90, right, 0.1)

	left, err := SignedTurnAngle(a, b, domain.NewTerrestrialPoint(-1, 1))
	require.NoError(t, err)
	assert.InDelta(t, -90, left, 0.1)

	straight, err := UnsignedTurnAngle(a, b, domain.NewTerrestrialPoint(0, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0, straight, 1e-9)

	pa, pb := domain.NewCartesian2DPoint(0, 0), domain.NewCartesian2DPoint(1, 0)
	ccw, err := SignedTurnAngle(pa, pb, domain.NewCartesian2DPoint(1, 1))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, ccw, 1e-12)

	cw, err := UnsignedTurnAngle(pa, pb, domain.NewCartesian2DPoint(1, -1))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, cw, 1e-12)

	back, err := SignedTurnAngle(pa, pb, domain.NewCartesian2DPoint(0, 0))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, back, 1e-12)
}

func TestUnsupportedOperations(t *testing.T) {
	a3, b3 := domain.NewCartesian3DPoint(0, 0, 0), domain.NewCartesian3DPoint(1, 0, 0)
	_, err := Bearing(a3, b3)
	assert.True(t, errors.Is(err, ErrUnsupported))

	fa, _ := domain.NewFeatureVector(3)
	fb, _ := domain.NewFeatureVector(3)
	models.SetCoordinates(fb, []float64{1, 2, 2})
	d, err := Distance(fa, fb)
	require.NoError(t, err)
	assert.InDelta(t, 3, d, 1e-12)
	_, err = SignedTurnAngle(fa, fb, fa)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = SpeedBetween(domain.NewCartesian2DPoint(0, 0), domain.NewCartesian2DPoint(1, 0))
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Distance(domain.NewCartesian2DPoint(0, 0), domain.NewTerrestrialPoint(0, 0))
	assert.True(t, errors.Is(err, ErrDomainMismatch))

	traj3 := models.NewTrajectory(a3, b3)
	_, err = ConvexHullArea(traj3)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestSpeedBetween(t *testing.T) {
	speed, err := SpeedBetween(planar(0, 0, 0), planar(3, 4, 2*time.Second))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, speed, 1e-12)

	kmh, err := SpeedBetween(lonlat(0, 0, 0), lonlat(0, 1, time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, kmh, 1e-9)

	still, err := SpeedBetween(planar(0, 0, 0), planar(5, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, still)
}

func unitSquare() *models.Trajectory[*domain.Cartesian2DTrajectoryPoint] {
	return models.NewTrajectory(
		planar(0, 0, 0),
		planar(1, 0, time.Second),
		planar(1, 1, 2*time.Second),
		planar(0, 1, 3*time.Second),
		planar(0.5, 0.5, 4*time.Second),
	)
}

func TestTrajectoryLengths(t *testing.T) {
	traj := unitSquare()

	lengths, err := CurrentLengths(traj)
	require.NoError(t, err)
	require.Len(t, lengths, 5)
	assert.InDeltaSlice(t, []float64{0, 1, 2, 3, 3 + math.Sqrt(0.5)}, lengths, 1e-12)

	total, err := Length(traj)
	require.NoError(t, err)
	assert.InDelta(t, 3+math.Sqrt(0.5), total, 1e-12)

	e2e, err := EndToEndDistance(traj)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.5), e2e, 1e-12)

	empty := models.NewTrajectory[*domain.Cartesian2DTrajectoryPoint]()
	total, err = Length(empty)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestConvexHullMeasures(t *testing.T) {
	traj := unitSquare()

	hull, err := ConvexHull(traj)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, hull)

	area, err := ConvexHullArea(traj)
	require.NoError(t, err)
	assert.InDelta(t, 1, area, 1e-12)

	perimeter, err := ConvexHullPerimeter(traj)
	require.NoError(t, err)
	assert.InDelta(t, 4, perimeter, 1e-12)

	centroid, err := ConvexHullCentroid(traj)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, centroid, 1e-12)

	ratio, err := ConvexHullAspectRatio(traj)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, ratio, 1e-12)

	rog, err := RadiusOfGyration(traj)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.4), rog, 1e-12)

	box, err := BoundingBox(traj)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, box.Min)
	assert.Equal(t, []float64{1, 1}, box.Max)
}

func TestDegenerateHull(t *testing.T) {
	line := models.NewTrajectory(planar(0, 0, 0), planar(2, 2, 0), planar(1, 1, 0), planar(2, 2, 0))

	hull, err := ConvexHull(line)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {2, 2}}, hull)

	area, _ := ConvexHullArea(line)
	assert.Equal(t, 0.0, area)
	ratio, _ := ConvexHullAspectRatio(line)
	assert.Equal(t, 0.0, ratio)
	perimeter, _ := ConvexHullPerimeter(line)
	assert.InDelta(t, 2*math.Sqrt(8), perimeter, 1e-12)

	empty := models.NewTrajectory[*domain.Cartesian2DTrajectoryPoint]()
	_, err = ConvexHull(empty)
	assert.True(t, errors.Is(err, ErrEmptyTrajectory))
	_, err = BoundingBox(empty)
	assert.True(t, errors.Is(err, ErrEmptyTrajectory))

	rog, err := RadiusOfGyration(models.NewTrajectory(planar(4, 4, 0)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, rog)
}

func TestRadiusOfGyrationWithoutHull(t *testing.T) {
	traj := models.NewTrajectory(domain.NewCartesian3DPoint(0, 0, 0), domain.NewCartesian3DPoint(2, 0, 0))
	rog, err := RadiusOfGyration(traj)
	require.NoError(t, err)
	assert.InDelta(t, 1, rog, 1e-12)
}

func TestTerrestrialHull(t *testing.T) {
	traj := models.NewTrajectory(
		lonlat(0, 0, 0), lonlat(1, 0, 0), lonlat(1, 1, 0), lonlat(0, 1, 0),
	)

	area, err := ConvexHullArea(traj)
	require.NoError(t, err)
	want := EarthRadiusKm * EarthRadiusKm * (math.Pi / 180) * math.Sin(math.Pi/180)
	assert.InEpsilon(t, want, area, 1e-9)

	centroid, err := ConvexHullCentroid(traj)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, centroid[0], 1e-9)
	assert.InDelta(t, 0.5, centroid[1], 1e-3)

	ratio, err := ConvexHullAspectRatio(traj)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, ratio, 0.01)
}

func TestInterpolate(t *testing.T) {
	a := lonlat(0, 0, 0)
	a.SetObjectID("a")
	a.Properties().SetReal("speed", 100)
	a.Properties().SetString("name", "first")
	b := lonlat(10, 0, time.Hour)
	b.SetObjectID("b")
	b.Properties().SetReal("speed", 200)
	b.Properties().SetString("name", "second")

	mid := new(domain.TerrestrialTrajectoryPoint)
	require.NoError(t, Interpolate(a, b, 0.25, mid))
	assert.InDelta(t, 2.5, mid.Longitude(), 1e-9)
	assert.InDelta(t, 0, mid.Latitude(), 1e-9)
	assert.Equal(t, "a", mid.ObjectID())
	assert.True(t, t0.Add(15*time.Minute).Equal(mid.Timestamp()))

	speed, _ := mid.Properties().Real("speed")
	assert.InDelta(t, 125, speed, 1e-9)
	name, _ := mid.Properties().Text("name")
	assert.Equal(t, "first", name)

	end := new(domain.TerrestrialTrajectoryPoint)
	require.NoError(t, Interpolate(a, b, 1.5, end))
	assert.Equal(t, 10.0, end.Longitude())
	assert.Equal(t, "b", end.ObjectID())
}

func TestPointAtFraction(t *testing.T) {
	traj := models.NewTrajectory(
		planar(0, 0, 0),
		planar(10, 0, 10*time.Second),
		planar(10, 10, 20*time.Second),
	)

	tests := []struct {
		fraction float64
		x, y     float64
	}{
		{0, 0, 0},
		{0.25, 5, 0},
		{0.75, 10, 5},
		{2, 10, 10},
	}
	for _, tt := range tests {
		dst := new(domain.Cartesian2DTrajectoryPoint)
		require.NoError(t, PointAtTimeFraction(traj, tt.fraction, dst))
		assert.InDelta(t, tt.x, dst.X(), 1e-9, "fraction %v", tt.fraction)
		assert.InDelta(t, tt.y, dst.Y(), 1e-9, "fraction %v", tt.fraction)
	}

	dst := new(domain.Cartesian2DTrajectoryPoint)
	require.NoError(t, PointAtLengthFraction(traj, 0.5, dst))
	assert.InDelta(t, 10, dst.X(), 1e-9)
	assert.InDelta(t, 0, dst.Y(), 1e-9)

	require.NoError(t, PointAtLengthFraction(traj, 0.25, dst))
	assert.InDelta(t, 5, dst.X(), 1e-9)
	assert.True(t, t0.Add(5*time.Second).Equal(dst.Timestamp()))

	base := models.NewTrajectory(domain.NewCartesian2DPoint(0, 0))
	err := PointAtTimeFraction(base, 0.5, domain.NewCartesian2DPoint(0, 0))
	assert.True(t, errors.Is(err, ErrUnsupported))

	err = PointAtTimeFraction(models.NewTrajectory[*domain.Cartesian2DTrajectoryPoint](), 0.5, dst)
	assert.True(t, errors.Is(err, ErrEmptyTrajectory))
}

func TestBoxExtend(t *testing.T) {
	var box Box
	assert.True(t, box.Empty())

	first := domain.NewCartesian3DPoint(1, -2, 3)
	box.Extend(first)
	box.Extend(domain.NewCartesian3DPoint(-1, 5, 3))
	assert.False(t, box.Empty())
	assert.Equal(t, []float64{-1, -2, 3}, box.Min)
	assert.Equal(t, []float64{1, 5, 3}, box.Max)

	// The box holds its own copies of the coordinates.
	first.SetCoordinate(0, 100)
	assert.Equal(t, 1.0, box.Max[0])
}

func TestGreatCircleFit(t *testing.T) {
	// Points straddle the equator symmetrically, so the best fit circle is
	// the equator itself.
	traj := models.NewTrajectory(
		lonlat(0, 0.1, 0), lonlat(0, -0.1, time.Minute),
		lonlat(10, 0.1, 2*time.Minute), lonlat(10, -0.1, 3*time.Minute),
		lonlat(20, 0.1, 4*time.Minute), lonlat(20, -0.1, 5*time.Minute),
	)

	normal, err := BestFitPlane(traj)
	require.NoError(t, err)
	assert.InDelta(t, 0, normal.X, 1e-9)
	assert.InDelta(t, 0, normal.Y, 1e-9)
	assert.InDelta(t, 1, normal.Z, 1e-9)
	assert.InDelta(t, EarthRadiusKm*0.1*math.Pi/180, CrossTrackDistance(traj.At(0), normal), 1e-6)

	fitted, err := GreatCircleFit(traj, func() *domain.TerrestrialTrajectoryPoint {
		return new(domain.TerrestrialTrajectoryPoint)
	})
	require.NoError(t, err)
	require.Equal(t, traj.Len(), fitted.Len())
	assert.Equal(t, traj.UUID(), fitted.UUID())
	for i, p := range fitted.Points() {
		assert.InDelta(t, 0, p.Latitude(), 1e-9, "point %d", i)
		assert.InDelta(t, traj.At(i).Longitude(), p.Longitude(), 1e-9, "point %d", i)
		assert.True(t, traj.At(i).Timestamp().Equal(p.Timestamp()))
		assert.InDelta(t, 0, CrossTrackDistance(p, normal), 1e-6)
	}
	// The source trajectory is untouched.
	assert.Equal(t, 0.1, traj.At(0).Latitude())

	require.NoError(t, GreatCircleFitInPlace(traj))
	assert.InDelta(t, 0, traj.At(0).Latitude(), 1e-9)
}

func TestGreatCircleFitOrientation(t *testing.T) {
	forward := models.NewTrajectory(lonlat(0, 0, 0), lonlat(5, 1, time.Minute), lonlat(10, 2, 2*time.Minute))
	backward := models.NewTrajectory(lonlat(10, 2, 0), lonlat(5, 1, time.Minute), lonlat(0, 0, 2*time.Minute))

	nf, err := BestFitPlane(forward)
	require.NoError(t, err)
	nb, err := BestFitPlane(backward)
	require.NoError(t, err)
	assert.InDelta(t, -1, nf.X*nb.X+nf.Y*nb.Y+nf.Z*nb.Z, 1e-9)
}

func TestGreatCircleFitErrors(t *testing.T) {
	_, err := BestFitPlane(models.NewTrajectory(lonlat(1, 1, 0)))
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = BestFitPlane(models.NewTrajectory(lonlat(1, 1, 0), lonlat(1, 1, time.Minute)))
	assert.ErrorIs(t, err, ErrDegeneratePlane)

	_, err = BestFitPlane(models.NewTrajectory(planar(0, 0, 0), planar(1, 1, time.Minute)))
	assert.ErrorIs(t, err, ErrUnsupported)

	err = ProjectOntoPlane(models.NewTrajectory(lonlat(1, 1, 0)), r3.Vec{})
	assert.ErrorIs(t, err, ErrDegeneratePlane)
}

func TestDestination(t *testing.T) {
	var s Terrestrial
	quarter := math.Pi / 2 * EarthRadiusKm

	north := s.Destination([]float64{0, 0}, 0, quarter)
	assert.InDelta(t, 90, north[1], 1e-9)

	east := s.Destination([]float64{0, 0}, 90, quarter)
	assert.InDelta(t, 90, east[0], 1e-9)
	assert.InDelta(t, 0, east[1], 1e-9)

	wrapped := s.Destination([]float64{170, 0}, 90, 20*math.Pi/180*EarthRadiusKm)
	assert.InDelta(t, -170, wrapped[0], 1e-9)

	from := []float64{-106.5, 35}
	to := s.Destination(from, 42, 250)
	assert.InDelta(t, 250, s.Distance(from, to), 1e-6)
	assert.InDelta(t, 42, s.Bearing(from, to), 1e-6)
}
