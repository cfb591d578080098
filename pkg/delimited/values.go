package delimited

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// DefaultPrecision formats reals with the fewest digits that parse back to
// the same value.
const DefaultPrecision = -1

// ParseValue converts text to a property of the given kind. Strings are
// taken verbatim; other kinds ignore surrounding whitespace.
func ParseValue(text string, kind models.PropertyKind, conv *timestamp.Converter) (models.PropertyValue, error) {
	switch kind {
	case models.KindString:
		return models.StringValue(text), nil
	case models.KindReal:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return models.PropertyValue{}, err
		}
		return models.RealValue(v), nil
	case models.KindInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return models.PropertyValue{}, err
		}
		return models.IntegerValue(v), nil
	case models.KindTimestamp:
		t, err := conv.Parse(text)
		if err != nil {
			return models.PropertyValue{}, err
		}
		return models.TimestampValue(t), nil
	}
	return models.PropertyValue{}, fmt.Errorf("unsupported property kind %v", kind)
}

// FormatValue renders v for output. A zero value renders as the null marker.
func FormatValue(v models.PropertyValue, conv *timestamp.Converter, precision int) string {
	switch v.Kind() {
	case models.KindString:
		s, _ := v.Str()
		return s
	case models.KindReal:
		f, _ := v.Real()
		return FormatReal(f, precision)
	case models.KindInteger:
		i, _ := v.Integer()
		return strconv.FormatInt(i, 10)
	case models.KindTimestamp:
		t, _ := v.Time()
		return conv.Format(t)
	}
	return conv.NullValue()
}

// FormatReal renders a coordinate or real property.
func FormatReal(f float64, precision int) string {
	return strconv.FormatFloat(f, 'g', precision, 64)
}
