package models

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"
)

// PropertyKind identifies the type held by a PropertyValue. The numeric
// values are the type tags used in delimited headers.
type PropertyKind uint8

const (
	KindUnknown   PropertyKind = 0
	KindReal      PropertyKind = 1
	KindString    PropertyKind = 2
	KindTimestamp PropertyKind = 3
	KindInteger   PropertyKind = 4
)

var kindNames = map[PropertyKind]string{
	KindUnknown:   "unknown",
	KindReal:      "real",
	KindString:    "string",
	KindTimestamp: "timestamp",
	KindInteger:   "integer",
}

func (k PropertyKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PropertyKind(%d)", uint8(k))
}

// Valid reports whether k is one of the four storable kinds.
func (k PropertyKind) Valid() bool {
	return k >= KindReal && k <= KindInteger
}

// ParsePropertyKind accepts either a numeric tag or a kind name, ignoring case.
func ParsePropertyKind(s string) (PropertyKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if k.Valid() && (name == s || fmt.Sprint(uint8(k)) == s) {
			return k, nil
		}
	}
	switch s {
	case "float", "double":
		return KindReal, nil
	case "int":
		return KindInteger, nil
	}
	return KindUnknown, fmt.Errorf("unknown property kind %q", s)
}

// PropertyValue is a tagged union over the supported property kinds. The
// zero value has KindUnknown and represents no value.
type PropertyValue struct {
	kind PropertyKind
	real float64
	ival int64
	str  string
	ts   time.Time
}

func RealValue(v float64) PropertyValue        { return PropertyValue{kind: KindReal, real: v} }
func IntegerValue(v int64) PropertyValue       { return PropertyValue{kind: KindInteger, ival: v} }
func StringValue(v string) PropertyValue       { return PropertyValue{kind: KindString, str: v} }
func TimestampValue(v time.Time) PropertyValue { return PropertyValue{kind: KindTimestamp, ts: v} }

// Kind returns the kind of value held.
func (v PropertyValue) Kind() PropertyKind { return v.kind }

// IsZero reports whether v holds no value.
func (v PropertyValue) IsZero() bool { return v.kind == KindUnknown }

func (v PropertyValue) Real() (float64, bool) { return v.real, v.kind == KindReal }

func (v PropertyValue) Integer() (int64, bool) { return v.ival, v.kind == KindInteger }

func (v PropertyValue) Str() (string, bool) { return v.str, v.kind == KindString }

func (v PropertyValue) Time() (time.Time, bool) { return v.ts, v.kind == KindTimestamp }

// Float returns a numeric view of real and integer values.
func (v PropertyValue) Float() (float64, bool) {
	switch v.kind {
	case KindReal:
		return v.real, true
	case KindInteger:
		return float64(v.ival), true
	}
	return 0, false
}

// Equal compares kind and payload. Timestamps compare by instant.
func (v PropertyValue) Equal(o PropertyValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindReal:
		return v.real == o.real
	case KindInteger:
		return v.ival == o.ival
	case KindString:
		return v.str == o.str
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	}
	return true
}

func (v PropertyValue) String() string {
	switch v.kind {
	case KindReal:
		return fmt.Sprint(v.real)
	case KindInteger:
		return fmt.Sprint(v.ival)
	case KindString:
		return v.str
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	}
	return "<none>"
}

// PropertyMap maps names to values. The zero value is an empty map ready
// for use. Iteration is always in sorted name order.
type PropertyMap struct {
	values map[string]PropertyValue
}

// NewPropertyMap returns a map holding the given entries.
func NewPropertyMap(entries map[string]PropertyValue) *PropertyMap {
	m := &PropertyMap{}
	for name, v := range entries {
		m.Set(name, v)
	}
	return m
}

// Set stores v under name. Setting a zero value removes the entry.
func (m *PropertyMap) Set(name string, v PropertyValue) {
	if v.IsZero() {
		m.Delete(name)
		return
	}
	if m.values == nil {
		m.values = make(map[string]PropertyValue)
	}
	m.values[name] = v
}

func (m *PropertyMap) SetReal(name string, v float64)        { m.Set(name, RealValue(v)) }
func (m *PropertyMap) SetInteger(name string, v int64)       { m.Set(name, IntegerValue(v)) }
func (m *PropertyMap) SetString(name string, v string)       { m.Set(name, StringValue(v)) }
func (m *PropertyMap) SetTimestamp(name string, v time.Time) { m.Set(name, TimestampValue(v)) }

// Get returns the value stored under name.
func (m *PropertyMap) Get(name string) (PropertyValue, bool) {
	if m == nil {
		return PropertyValue{}, false
	}
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether name is present.
func (m *PropertyMap) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Real returns the named value if it holds a real.
func (m *PropertyMap) Real(name string) (float64, bool) {
	v, _ := m.Get(name)
	return v.Real()
}

// Integer returns the named value if it holds an integer.
func (m *PropertyMap) Integer(name string) (int64, bool) {
	v, _ := m.Get(name)
	return v.Integer()
}

// Text returns the named value if it holds a string.
func (m *PropertyMap) Text(name string) (string, bool) {
	v, _ := m.Get(name)
	return v.Str()
}

// Timestamp returns the named value if it holds a timestamp.
func (m *PropertyMap) Timestamp(name string) (time.Time, bool) {
	v, _ := m.Get(name)
	return v.Time()
}

func (m *PropertyMap) Delete(name string) {
	if m != nil {
		delete(m.values, name)
	}
}

func (m *PropertyMap) Clear() {
	if m != nil {
		clear(m.values)
	}
}

func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

// Names returns the property names in sorted order.
func (m *PropertyMap) Names() []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.values))
}

// All iterates over the entries in sorted name order.
func (m *PropertyMap) All() iter.Seq2[string, PropertyValue] {
	return func(yield func(string, PropertyValue) bool) {
		for _, name := range m.Names() {
			if !yield(name, m.values[name]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (m *PropertyMap) Clone() *PropertyMap {
	out := &PropertyMap{}
	if m != nil && len(m.values) > 0 {
		out.values = maps.Clone(m.values)
	}
	return out
}

// Equal reports whether both maps hold the same names and values.
func (m *PropertyMap) Equal(o *PropertyMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for name, v := range m.All() {
		ov, ok := o.Get(name)
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
