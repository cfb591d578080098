package geomath

import (
	"fmt"
	"sort"
	"time"

	"github.com/atwilso/tracktable/pkg/models"
)

func lerpTime(a, b time.Time, t float64) time.Time {
	return a.Add(time.Duration(float64(b.Sub(a)) * t))
}

// Interpolate writes into dst the point a fraction t of the way from a to
// b. Coordinates follow the space's interpolation; timestamps and real or
// timestamp properties present in both points are interpolated linearly;
// the object id and other properties come from whichever endpoint is
// nearer. Fractions outside [0, 1] return a copy of the nearer endpoint.
func Interpolate[P models.Point](a, b P, t float64, dst P) error {
	s, err := spaceFor2(a, b)
	if err != nil {
		return err
	}
	switch {
	case t <= 0:
		copyPoint(dst, a)
		return nil
	case t >= 1:
		copyPoint(dst, b)
		return nil
	}

	models.SetCoordinates(dst, s.Interpolate(models.Coordinates(a), models.Coordinates(b), t))
	near := a
	if t >= 0.5 {
		near = b
	}
	models.CopyAnnotations(dst, near)

	if d, ok := any(dst).(models.TimestampCarrier); ok {
		ta, okA := models.TimestampOf(a)
		tb, okB := models.TimestampOf(b)
		if okA && okB {
			d.SetTimestamp(lerpTime(ta, tb, t))
		}
	}

	props := models.PropertiesOf(dst)
	pa, pb := models.PropertiesOf(a), models.PropertiesOf(b)
	if props == nil || pa == nil || pb == nil {
		return nil
	}
	for name, va := range pa.All() {
		vb, ok := pb.Get(name)
		if !ok || vb.Kind() != va.Kind() {
			continue
		}
		switch va.Kind() {
		case models.KindReal:
			x, _ := va.Real()
			y, _ := vb.Real()
			props.SetReal(name, x+(y-x)*t)
		case models.KindTimestamp:
			x, _ := va.Time()
			y, _ := vb.Time()
			props.SetTimestamp(name, lerpTime(x, y, t))
		}
	}
	return nil
}

func copyPoint(dst, src models.Point) {
	models.SetCoordinates(dst, models.Coordinates(src))
	models.CopyAnnotations(dst, src)
}

// PointAtTime writes into dst the position of traj at instant when. Instants
// outside the trajectory clamp to its endpoints.
func PointAtTime[P models.Point](traj *models.Trajectory[P], when time.Time, dst P) error {
	if traj.Len() == 0 {
		return ErrEmptyTrajectory
	}
	if _, ok := models.TimestampOf(traj.At(0)); !ok {
		return fmt.Errorf("%w: points carry no timestamps", ErrUnsupported)
	}
	points := traj.Points()
	i := sort.Search(len(points), func(i int) bool {
		ts, _ := models.TimestampOf(points[i])
		return !ts.Before(when)
	})
	switch {
	case i == 0:
		copyPoint(dst, points[0])
		return nil
	case i == len(points):
		copyPoint(dst, points[len(points)-1])
		return nil
	}

	before, _ := models.TimestampOf(points[i-1])
	after, _ := models.TimestampOf(points[i])
	span := after.Sub(before)
	if span <= 0 {
		copyPoint(dst, points[i])
		return nil
	}
	return Interpolate(points[i-1], points[i], float64(when.Sub(before))/float64(span), dst)
}

// PointAtTimeFraction writes into dst the position at fraction of the way
// through the trajectory's duration.
func PointAtTimeFraction[P models.Point](traj *models.Trajectory[P], fraction float64, dst P) error {
	start, ok := traj.StartTime()
	if !ok {
		if traj.Len() == 0 {
			return ErrEmptyTrajectory
		}
		return fmt.Errorf("%w: points carry no timestamps", ErrUnsupported)
	}
	return PointAtTime(traj, lerpTime(start, start.Add(traj.Duration()), fraction), dst)
}

// PointAtLengthFraction writes into dst the position at fraction of the
// way along the trajectory's path.
func PointAtLengthFraction[P models.Point](traj *models.Trajectory[P], fraction float64, dst P) error {
	lengths, err := CurrentLengths(traj)
	if err != nil {
		return err
	}
	if len(lengths) == 0 {
		return ErrEmptyTrajectory
	}
	points := traj.Points()
	target := lengths[len(lengths)-1] * fraction
	i := sort.SearchFloat64s(lengths, target)
	switch {
	case i == 0:
		copyPoint(dst, points[0])
		return nil
	case i == len(points):
		copyPoint(dst, points[len(points)-1])
		return nil
	}
	seg := lengths[i] - lengths[i-1]
	if seg <= 0 {
		copyPoint(dst, points[i])
		return nil
	}
	return Interpolate(points[i-1], points[i], (target-lengths[i-1])/seg, dst)
}
