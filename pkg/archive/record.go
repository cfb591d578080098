package archive

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atwilso/tracktable/pkg/models"
)

// Record is the msgpack payload of one archive entry.
type Record struct {
	UUID       string        `msgpack:"uuid"`
	Domain     string        `msgpack:"domain"`
	Dimension  int           `msgpack:"dim"`
	Properties []Property    `msgpack:"props,omitempty"`
	Points     []PointRecord `msgpack:"points"`
}

// PointRecord is one trajectory point. ObjectID, Timestamp and Properties
// are only meaningful when the point type carries them.
type PointRecord struct {
	Coordinates []float64  `msgpack:"c"`
	ObjectID    string     `msgpack:"id,omitempty"`
	Timestamp   time.Time  `msgpack:"ts"`
	Properties  []Property `msgpack:"props,omitempty"`
}

// Property is a named, kind-tagged value.
type Property struct {
	Name string    `msgpack:"n"`
	Kind uint8     `msgpack:"k"`
	Real float64   `msgpack:"r,omitempty"`
	Int  int64     `msgpack:"i,omitempty"`
	Str  string    `msgpack:"s,omitempty"`
	Time time.Time `msgpack:"t"`
}

func encodeProperties(m *models.PropertyMap) []Property {
	if m.Len() == 0 {
		return nil
	}
	out := make([]Property, 0, m.Len())
	for name, v := range m.All() {
		p := Property{Name: name, Kind: uint8(v.Kind())}
		switch v.Kind() {
		case models.KindReal:
			p.Real, _ = v.Real()
		case models.KindInteger:
			p.Int, _ = v.Integer()
		case models.KindString:
			p.Str, _ = v.Str()
		case models.KindTimestamp:
			p.Time, _ = v.Time()
		}
		out = append(out, p)
	}
	return out
}

func decodeProperties(props []Property, dst *models.PropertyMap) error {
	for _, p := range props {
		switch models.PropertyKind(p.Kind) {
		case models.KindReal:
			dst.SetReal(p.Name, p.Real)
		case models.KindInteger:
			dst.SetInteger(p.Name, p.Int)
		case models.KindString:
			dst.SetString(p.Name, p.Str)
		case models.KindTimestamp:
			dst.SetTimestamp(p.Name, p.Time.UTC())
		default:
			return fmt.Errorf("property %q has unknown kind %d", p.Name, p.Kind)
		}
	}
	return nil
}

// FromTrajectory converts t to its archive record.
func FromTrajectory[P models.Point](t *models.Trajectory[P]) Record {
	rec := Record{
		UUID:       t.UUID().String(),
		Properties: encodeProperties(t.Properties()),
		Points:     make([]PointRecord, 0, t.Len()),
	}
	for i, p := range t.Points() {
		if i == 0 {
			traits := p.Traits()
			rec.Domain = traits.Domain
			rec.Dimension = traits.Dimension
		}
		pr := PointRecord{
			Coordinates: models.Coordinates(p),
			ObjectID:    models.ObjectIDOf(p),
		}
		if ts, ok := models.TimestampOf(p); ok {
			pr.Timestamp = ts
		}
		if props := models.PropertiesOf(p); props != nil {
			pr.Properties = encodeProperties(props)
		}
		rec.Points = append(rec.Points, pr)
	}
	return rec
}

// ToTrajectory rebuilds a trajectory from rec using newPoint for each
// point. The record's domain must match the point type's.
func ToTrajectory[P models.Point](rec Record, newPoint func() P) (*models.Trajectory[P], error) {
	id, err := uuid.Parse(rec.UUID)
	if err != nil {
		return nil, fmt.Errorf("record uuid: %w", err)
	}

	t := models.NewTrajectory[P]()
	t.SetUUID(id)
	if err := decodeProperties(rec.Properties, t.Properties()); err != nil {
		return nil, err
	}

	for i, pr := range rec.Points {
		p := newPoint()
		traits := p.Traits()
		if i == 0 && rec.Domain != traits.Domain {
			return nil, fmt.Errorf("record domain %q does not match point domain %q", rec.Domain, traits.Domain)
		}
		if len(pr.Coordinates) != traits.Dimension {
			return nil, fmt.Errorf("point %d has %d coordinates, want %d", i, len(pr.Coordinates), traits.Dimension)
		}
		models.SetCoordinates(p, pr.Coordinates)
		if c, ok := any(p).(models.ObjectIDCarrier); ok {
			c.SetObjectID(pr.ObjectID)
		}
		if c, ok := any(p).(models.TimestampCarrier); ok {
			c.SetTimestamp(pr.Timestamp.UTC())
		}
		if props := models.PropertiesOf(p); props != nil {
			if err := decodeProperties(pr.Properties, props); err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
		}
		t.Append(p)
	}
	return t, nil
}
