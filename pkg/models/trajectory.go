package models

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

// Trajectory is an ordered sequence of points belonging to one moving
// object, plus trajectory-level properties and a UUID.
type Trajectory[P Point] struct {
	id         uuid.UUID
	points     []P
	properties PropertyMap
}

// NewTrajectory creates a trajectory with a fresh random UUID.
func NewTrajectory[P Point](points ...P) *Trajectory[P] {
	return &Trajectory[P]{
		id:     uuid.New(),
		points: points,
	}
}

func (t *Trajectory[P]) UUID() uuid.UUID { return t.id }

func (t *Trajectory[P]) SetUUID(id uuid.UUID) { t.id = id }

// Properties returns the mutable trajectory-level property map.
func (t *Trajectory[P]) Properties() *PropertyMap { return &t.properties }

// Append adds points to the end of the trajectory.
func (t *Trajectory[P]) Append(points ...P) {
	t.points = append(t.points, points...)
}

func (t *Trajectory[P]) Len() int { return len(t.points) }

// At returns the i'th point.
func (t *Trajectory[P]) At(i int) P { return t.points[i] }

// Points returns the underlying slice. Callers must not retain it across
// calls to Append.
func (t *Trajectory[P]) Points() []P { return t.points }

// Last returns the final point, if any.
func (t *Trajectory[P]) Last() (P, bool) {
	if len(t.points) == 0 {
		var zero P
		return zero, false
	}
	return t.points[len(t.points)-1], true
}

// All iterates over index and point.
func (t *Trajectory[P]) All() iter.Seq2[int, P] {
	return func(yield func(int, P) bool) {
		for i, p := range t.points {
			if !yield(i, p) {
				return
			}
		}
	}
}

// ObjectID returns the object id of the first point, or "" when the
// trajectory is empty or its points carry no id.
func (t *Trajectory[P]) ObjectID() string {
	if len(t.points) == 0 {
		return ""
	}
	return ObjectIDOf(t.points[0])
}

// StartTime returns the timestamp of the first point.
func (t *Trajectory[P]) StartTime() (time.Time, bool) {
	if len(t.points) == 0 {
		return time.Time{}, false
	}
	return TimestampOf(t.points[0])
}

// EndTime returns the timestamp of the last point.
func (t *Trajectory[P]) EndTime() (time.Time, bool) {
	if len(t.points) == 0 {
		return time.Time{}, false
	}
	return TimestampOf(t.points[len(t.points)-1])
}

// Duration is EndTime minus StartTime, or zero when timestamps are absent.
func (t *Trajectory[P]) Duration() time.Duration {
	start, ok1 := t.StartTime()
	end, ok2 := t.EndTime()
	if !ok1 || !ok2 {
		return 0
	}
	return end.Sub(start)
}

// Subset returns a new trajectory holding points [start, end). The UUID and
// properties are copied.
func (t *Trajectory[P]) Subset(start, end int) *Trajectory[P] {
	start = max(start, 0)
	end = min(end, len(t.points))
	out := &Trajectory[P]{id: t.id, properties: *t.properties.Clone()}
	if start < end {
		out.points = append([]P(nil), t.points[start:end]...)
	}
	return out
}

// SubsetDuringInterval returns the points whose timestamps fall in
// [start, end]. Points without timestamps are never included.
func (t *Trajectory[P]) SubsetDuringInterval(start, end time.Time) *Trajectory[P] {
	out := &Trajectory[P]{id: t.id, properties: *t.properties.Clone()}
	for _, p := range t.points {
		ts, ok := TimestampOf(p)
		if !ok || ts.Before(start) || ts.After(end) {
			continue
		}
		out.points = append(out.points, p)
	}
	return out
}

// Clone returns a copy with its own point slice and properties. Points are
// shared.
func (t *Trajectory[P]) Clone() *Trajectory[P] {
	return &Trajectory[P]{
		id:         t.id,
		points:     append([]P(nil), t.points...),
		properties: *t.properties.Clone(),
	}
}
