package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropertyKind(t *testing.T) {
	tests := []struct {
		in      string
		want    PropertyKind
		wantErr bool
	}{
		{"1", KindReal, false},
		{"2", KindString, false},
		{"3", KindTimestamp, false},
		{"4", KindInteger, false},
		{"real", KindReal, false},
		{"TIMESTAMP", KindTimestamp, false},
		{" Integer ", KindInteger, false},
		{"0", KindUnknown, true},
		{"7", KindUnknown, true},
		{"bogus", KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePropertyKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPropertyValueAccessors(t *testing.T) {
	ts := time.Date(2014, 1, 1, 12, 0, 0, 0, time.UTC)

	r := RealValue(1.5)
	v, ok := r.Real()
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	_, ok = r.Integer()
	assert.False(t, ok)

	i := IntegerValue(42)
	f, ok := i.Float()
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)

	s := StringValue("Alice")
	str, ok := s.Str()
	assert.True(t, ok)
	assert.Equal(t, "Alice", str)

	tv := TimestampValue(ts)
	got, ok := tv.Time()
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	assert.True(t, PropertyValue{}.IsZero())
	assert.Equal(t, KindUnknown, PropertyValue{}.Kind())
}

func TestPropertyValueEqual(t *testing.T) {
	ts := time.Date(2014, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, RealValue(2).Equal(RealValue(2)))
	assert.False(t, RealValue(2).Equal(IntegerValue(2)))
	assert.True(t, TimestampValue(ts).Equal(TimestampValue(ts.In(time.FixedZone("x", 3600)))))
	assert.False(t, StringValue("a").Equal(StringValue("b")))
}

func TestPropertyMap(t *testing.T) {
	var m PropertyMap
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Names())

	m.SetString("name", "Alice")
	m.SetReal("speed", 12.5)
	m.SetInteger("count", 3)

	assert.Equal(t, []string{"count", "name", "speed"}, m.Names())

	name, ok := m.Text("name")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	_, ok = m.Real("name")
	assert.False(t, ok, "kind mismatch must not convert")

	var order []string
	for k := range m.All() {
		order = append(order, k)
	}
	assert.Equal(t, m.Names(), order)

	clone := m.Clone()
	assert.True(t, clone.Equal(&m))
	clone.Delete("count")
	assert.False(t, clone.Equal(&m))
	assert.True(t, m.Has("count"), "clone must be independent")

	m.Set("speed", PropertyValue{})
	assert.False(t, m.Has("speed"), "setting a zero value removes the entry")
}

func TestPropertyMapNil(t *testing.T) {
	var m *PropertyMap
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("x")
	assert.False(t, ok)
	assert.True(t, m.Equal(&PropertyMap{}))
}
