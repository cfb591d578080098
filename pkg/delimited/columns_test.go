package delimited

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atwilso/tracktable/pkg/models"
)

func TestColumnMapStartsUnassigned(t *testing.T) {
	m := NewColumnMap(3)
	assert.Equal(t, 3, m.Dimension())
	for i := 0; i < 3; i++ {
		assert.Equal(t, Unassigned, m.CoordinateColumn(i))
	}
	assert.Equal(t, Unassigned, m.ObjectIDColumn())
	assert.Equal(t, Unassigned, m.TimestampColumn())
	assert.Equal(t, 0, m.RequiredTokenCount())
}

func TestColumnMapConfigurationErrors(t *testing.T) {
	m := NewColumnMap(2)

	tests := []struct {
		name string
		err  error
	}{
		{"coordinate index too large", m.AssignCoordinate(2, 0)},
		{"coordinate index negative", m.AssignCoordinate(-1, 0)},
		{"coordinate column negative", m.AssignCoordinate(0, -5)},
		{"unknown property kind", m.AssignProperty("x", 3, models.KindUnknown)},
		{"out of range property kind", m.AssignProperty("x", 3, models.PropertyKind(17))},
		{"empty property name", m.AssignProperty("", 3, models.KindReal)},
		{"negative object id column", m.AssignObjectID(-3)},
		{"negative timestamp column", m.AssignTimestamp(-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, errors.Is(tt.err, ErrConfiguration))
			var cerr *ConfigError
			assert.True(t, errors.As(tt.err, &cerr))
		})
	}
}

func TestRequiredTokenCount(t *testing.T) {
	m := NewColumnMap(3)
	require.NoError(t, m.AssignCoordinate(0, 4))
	require.NoError(t, m.AssignCoordinate(1, 5))
	require.NoError(t, m.AssignCoordinate(2, Unassigned))
	assert.Equal(t, 2, m.RequiredTokenCount())

	require.NoError(t, m.AssignProperty("speed", 7, models.KindReal))
	require.NoError(t, m.AssignObjectID(0))
	require.NoError(t, m.AssignTimestamp(1))
	assert.Equal(t, 5, m.RequiredTokenCount())

	require.NoError(t, m.AssignProperty("speed", Unassigned, models.KindReal))
	assert.Equal(t, 4, m.RequiredTokenCount())

	m.Clear()
	assert.Equal(t, 0, m.RequiredTokenCount())
}

func TestConfigureFromHeader(t *testing.T) {
	h := Header{
		Domain:        "terrestrial",
		Dimension:     2,
		HasObjectID:   true,
		HasTimestamp:  true,
		PropertyNames: []string{"name", "speed"},
		PropertyKinds: []models.PropertyKind{models.KindString, models.KindReal},
	}

	m := NewColumnMap(2)
	require.NoError(t, m.AssignProperty("stale", 9, models.KindInteger))
	m.ConfigureFromHeader(h, true, true)

	assert.Equal(t, 0, m.ObjectIDColumn())
	assert.Equal(t, 1, m.TimestampColumn())
	assert.Equal(t, 2, m.CoordinateColumn(0))
	assert.Equal(t, 3, m.CoordinateColumn(1))

	name, ok := m.PropertyColumn("name")
	require.True(t, ok)
	assert.Equal(t, PropertyColumn{Column: 4, Kind: models.KindString}, name)
	speed, _ := m.PropertyColumn("speed")
	assert.Equal(t, 5, speed.Column)

	_, ok = m.PropertyColumn("stale")
	assert.False(t, ok, "header replaces earlier assignments")
	assert.Equal(t, 6, m.RequiredTokenCount())
}

func TestConfigureFromHeaderWithoutTimestamp(t *testing.T) {
	h := Header{Dimension: 2, HasObjectID: true}
	m := NewColumnMap(2)
	m.ConfigureFromHeader(h, true, false)

	assert.Equal(t, 0, m.ObjectIDColumn())
	assert.Equal(t, Unassigned, m.TimestampColumn())
	assert.Equal(t, 1, m.CoordinateColumn(0))
	assert.Equal(t, 2, m.CoordinateColumn(1))
}

func TestConfigureFromHeaderDimensionMismatch(t *testing.T) {
	h := Header{
		Dimension:     3,
		PropertyNames: []string{"p"},
		PropertyKinds: []models.PropertyKind{models.KindReal},
	}

	m := NewColumnMap(2)
	m.ConfigureFromHeader(h, false, false)
	assert.Equal(t, 0, m.CoordinateColumn(0))
	assert.Equal(t, 1, m.CoordinateColumn(1))
	p, _ := m.PropertyColumn("p")
	assert.Equal(t, 3, p.Column, "property offset follows the header dimension")

	wide := NewColumnMap(4)
	wide.ConfigureFromHeader(h, false, false)
	assert.Equal(t, Unassigned, wide.CoordinateColumn(3))
}

func TestColumnMapClone(t *testing.T) {
	m := NewColumnMap(2)
	require.NoError(t, m.AssignProperty("a", 2, models.KindReal))
	c := m.Clone()
	require.NoError(t, c.AssignCoordinate(0, 7))
	require.NoError(t, c.AssignProperty("b", 3, models.KindReal))

	assert.Equal(t, Unassigned, m.CoordinateColumn(0))
	assert.Equal(t, []string{"a"}, m.PropertyNames())
	assert.Equal(t, []string{"a", "b"}, c.PropertyNames())
}
