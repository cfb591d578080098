package delimited

import (
	"maps"
	"slices"

	"github.com/atwilso/tracktable/pkg/models"
)

// Unassigned marks a field that is not read from any column.
const Unassigned = -1

// PropertyColumn is the source column and kind of one property.
type PropertyColumn struct {
	Column int
	Kind   models.PropertyKind
}

// ColumnMap maps point fields to source columns. Coordinates left
// Unassigned keep the point's default value.
type ColumnMap struct {
	coordinates []int
	properties  map[string]PropertyColumn
	objectID    int
	timestamp   int
}

// NewColumnMap returns a map for points of the given dimension with every
// field unassigned.
func NewColumnMap(dimension int) *ColumnMap {
	m := &ColumnMap{coordinates: make([]int, dimension)}
	m.Clear()
	return m
}

// Dimension is the number of coordinate slots.
func (m *ColumnMap) Dimension() int { return len(m.coordinates) }

// AssignCoordinate reads coordinate index from column. Passing Unassigned
// skips the coordinate.
func (m *ColumnMap) AssignCoordinate(index, column int) error {
	if index < 0 || index >= len(m.coordinates) {
		return configErrorf("coordinate column", "coordinate index %d out of range [0, %d)", index, len(m.coordinates))
	}
	if column < Unassigned {
		return configErrorf("coordinate column", "negative column %d for coordinate %d", column, index)
	}
	m.coordinates[index] = column
	return nil
}

// CoordinateColumn returns the column of coordinate index, or Unassigned.
func (m *ColumnMap) CoordinateColumn(index int) int {
	if index < 0 || index >= len(m.coordinates) {
		return Unassigned
	}
	return m.coordinates[index]
}

// ClearCoordinates unassigns every coordinate.
func (m *ColumnMap) ClearCoordinates() {
	for i := range m.coordinates {
		m.coordinates[i] = Unassigned
	}
}

// AssignProperty reads the named property from column as kind. Passing
// Unassigned removes the assignment.
func (m *ColumnMap) AssignProperty(name string, column int, kind models.PropertyKind) error {
	if name == "" {
		return configErrorf("property column", "empty property name")
	}
	if column == Unassigned {
		delete(m.properties, name)
		return nil
	}
	if column < 0 {
		return configErrorf("property column", "negative column %d for property %q", column, name)
	}
	if !kind.Valid() {
		return configErrorf("property column", "unrecognized kind %v for property %q", kind, name)
	}
	m.properties[name] = PropertyColumn{Column: column, Kind: kind}
	return nil
}

// PropertyColumn returns the assignment for name.
func (m *ColumnMap) PropertyColumn(name string) (PropertyColumn, bool) {
	pc, ok := m.properties[name]
	return pc, ok
}

// PropertyNames returns the assigned property names in sorted order.
func (m *ColumnMap) PropertyNames() []string {
	return slices.Sorted(maps.Keys(m.properties))
}

// ClearProperties removes every property assignment.
func (m *ColumnMap) ClearProperties() {
	clear(m.properties)
}

// AssignObjectID reads the object id from column, or Unassigned.
func (m *ColumnMap) AssignObjectID(column int) error {
	if column < Unassigned {
		return configErrorf("object id column", "negative column %d", column)
	}
	m.objectID = column
	return nil
}

// ObjectIDColumn is the object id column, or Unassigned.
func (m *ColumnMap) ObjectIDColumn() int { return m.objectID }

// AssignTimestamp reads the timestamp from column, or Unassigned.
func (m *ColumnMap) AssignTimestamp(column int) error {
	if column < Unassigned {
		return configErrorf("timestamp column", "negative column %d", column)
	}
	m.timestamp = column
	return nil
}

// TimestampColumn is the timestamp column, or Unassigned.
func (m *ColumnMap) TimestampColumn() int { return m.timestamp }

// Clear unassigns every field.
func (m *ColumnMap) Clear() {
	m.ClearCoordinates()
	m.properties = make(map[string]PropertyColumn)
	m.objectID = Unassigned
	m.timestamp = Unassigned
}

// ConfigureFromHeader replaces every assignment with the layout h
// declares: object id, then timestamp, then h.Dimension coordinates, then
// properties in header order. Only the first min(h.Dimension, Dimension())
// coordinates are assigned; column offsets always follow h.Dimension.
func (m *ColumnMap) ConfigureFromHeader(h Header, objectIDPresent, timestampPresent bool) {
	m.Clear()

	next := 0
	if objectIDPresent {
		m.objectID = next
		next++
	}
	if timestampPresent {
		m.timestamp = next
		next++
	}
	for i := 0; i < min(h.Dimension, len(m.coordinates)); i++ {
		m.coordinates[i] = next + i
	}
	next += h.Dimension
	for i, name := range h.PropertyNames {
		m.properties[name] = PropertyColumn{Column: next + i, Kind: h.PropertyKinds[i]}
	}
}

// RequiredTokenCount is the minimum row length: one token per assigned
// coordinate, property, object id and timestamp.
func (m *ColumnMap) RequiredTokenCount() int {
	n := 0
	for _, c := range m.coordinates {
		if c != Unassigned {
			n++
		}
	}
	n += len(m.properties)
	if m.objectID != Unassigned {
		n++
	}
	if m.timestamp != Unassigned {
		n++
	}
	return n
}

// Clone returns an independent copy.
func (m *ColumnMap) Clone() *ColumnMap {
	return &ColumnMap{
		coordinates: slices.Clone(m.coordinates),
		properties:  maps.Clone(m.properties),
		objectID:    m.objectID,
		timestamp:   m.timestamp,
	}
}
