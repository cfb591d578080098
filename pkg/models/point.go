package models

import (
	"errors"
	"fmt"
	"time"
)

// Domain names understood by the built-in point types and geometry spaces.
const (
	DomainTerrestrial   = "terrestrial"
	DomainCartesian2D   = "cartesian2d"
	DomainCartesian3D   = "cartesian3d"
	DomainFeatureVector = "feature_vector"
)

// ErrMissingCapability is returned when a point type declares a capability
// in its traits but does not implement the matching accessors.
var ErrMissingCapability = errors.New("point type is missing a declared capability")

// Traits describes what a point type can carry. It is fixed per type and is
// queried once when a reader or writer is constructed.
type Traits struct {
	Domain        string
	Dimension     int
	HasObjectID   bool
	HasTimestamp  bool
	HasProperties bool
}

// Validate checks that the traits describe a usable point type.
func (t Traits) Validate() error {
	if t.Domain == "" {
		return fmt.Errorf("traits: empty domain")
	}
	if t.Dimension < 1 {
		return fmt.Errorf("traits: dimension must be positive, got %d", t.Dimension)
	}
	return nil
}

// Point is a fixed-dimension coordinate container.
type Point interface {
	Traits() Traits
	Coordinate(i int) float64
	SetCoordinate(i int, v float64)
}

// ObjectIDCarrier is implemented by points that carry an object identifier.
type ObjectIDCarrier interface {
	ObjectID() string
	SetObjectID(id string)
}

// TimestampCarrier is implemented by points that carry a timestamp.
type TimestampCarrier interface {
	Timestamp() time.Time
	SetTimestamp(t time.Time)
}

// PropertyCarrier is implemented by points that carry named properties.
type PropertyCarrier interface {
	Properties() *PropertyMap
}

// CheckCapabilities verifies that p implements every accessor its traits
// declare. Readers call it once at construction so that population code can
// rely on the type assertions.
func CheckCapabilities(p Point) error {
	traits := p.Traits()
	if err := traits.Validate(); err != nil {
		return err
	}
	if traits.HasObjectID {
		if _, ok := p.(ObjectIDCarrier); !ok {
			return fmt.Errorf("%w: %T declares an object id", ErrMissingCapability, p)
		}
	}
	if traits.HasTimestamp {
		if _, ok := p.(TimestampCarrier); !ok {
			return fmt.Errorf("%w: %T declares a timestamp", ErrMissingCapability, p)
		}
	}
	if traits.HasProperties {
		if _, ok := p.(PropertyCarrier); !ok {
			return fmt.Errorf("%w: %T declares properties", ErrMissingCapability, p)
		}
	}
	return nil
}

// Coordinates copies the coordinates of p into a new slice.
func Coordinates(p Point) []float64 {
	n := p.Traits().Dimension
	out := make([]float64, n)
	for i := range out {
		out[i] = p.Coordinate(i)
	}
	return out
}

// SetCoordinates assigns coords to p. Extra values are ignored.
func SetCoordinates(p Point, coords []float64) {
	n := min(p.Traits().Dimension, len(coords))
	for i := 0; i < n; i++ {
		p.SetCoordinate(i, coords[i])
	}
}

// ObjectIDOf returns the object id of p, or "" if p carries none.
func ObjectIDOf(p Point) string {
	if c, ok := p.(ObjectIDCarrier); ok {
		return c.ObjectID()
	}
	return ""
}

// TimestampOf returns the timestamp of p and whether p carries one.
func TimestampOf(p Point) (time.Time, bool) {
	if c, ok := p.(TimestampCarrier); ok {
		return c.Timestamp(), true
	}
	return time.Time{}, false
}

// PropertiesOf returns the property map of p, or nil if p carries none.
func PropertiesOf(p Point) *PropertyMap {
	if c, ok := p.(PropertyCarrier); ok {
		return c.Properties()
	}
	return nil
}

// Annotations holds the non-coordinate payload of a trajectory point. Embed
// it to gain the object id, timestamp and property capabilities.
type Annotations struct {
	objectID   string
	timestamp  time.Time
	properties PropertyMap
}

// ObjectID returns the object identifier.
func (a *Annotations) ObjectID() string { return a.objectID }

// SetObjectID sets the object identifier.
func (a *Annotations) SetObjectID(id string) { a.objectID = id }

// Timestamp returns the point timestamp.
func (a *Annotations) Timestamp() time.Time { return a.timestamp }

// SetTimestamp sets the point timestamp.
func (a *Annotations) SetTimestamp(t time.Time) { a.timestamp = t }

// Properties returns the mutable property map.
func (a *Annotations) Properties() *PropertyMap { return &a.properties }

// CopyAnnotations copies the object id, timestamp and properties of src
// into dst, for whichever capabilities both points share.
func CopyAnnotations(dst, src Point) {
	if d, ok := dst.(ObjectIDCarrier); ok {
		d.SetObjectID(ObjectIDOf(src))
	}
	if d, ok := dst.(TimestampCarrier); ok {
		if ts, ok := TimestampOf(src); ok {
			d.SetTimestamp(ts)
		}
	}
	if d, ok := dst.(PropertyCarrier); ok {
		if sp := PropertiesOf(src); sp != nil {
			*d.Properties() = *sp.Clone()
		}
	}
}
