// Package timestamp converts between text and time.Time using strftime
// style patterns.
package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultFormat is the pattern used when none is configured. Parsing also
// accepts fractional seconds after the seconds field.
const DefaultFormat = "%Y-%m-%d %H:%M:%S"

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("timestamp parse error")

// ParseError reports text that does not match the input pattern.
type ParseError struct {
	Text    string
	Pattern string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q with pattern %q: %v", e.Text, e.Pattern, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

var patternProbe = time.Date(2001, time.February, 3, 4, 5, 6, 0, time.UTC)

// ValidatePattern reports whether pattern can be used for both formatting
// and parsing.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty timestamp pattern")
	}
	if _, err := strftime.Parse(pattern, strftime.Format(pattern, patternProbe)); err != nil {
		return fmt.Errorf("timestamp pattern %q: %w", pattern, err)
	}
	return nil
}

// Converter parses and formats timestamps. Input and output patterns are
// independent. Parsed times are in UTC unless the pattern carries a zone.
//
// The converter also carries the null marker: the text that stands for an
// absent optional field. It defaults to the empty string.
type Converter struct {
	inputFormat  string
	outputFormat string
	nullValue    string
}

// NewConverter returns a converter using DefaultFormat in both directions.
func NewConverter() *Converter {
	return &Converter{inputFormat: DefaultFormat, outputFormat: DefaultFormat}
}

func (c *Converter) InputFormat() string  { return c.inputFormat }
func (c *Converter) OutputFormat() string { return c.outputFormat }
func (c *Converter) NullValue() string    { return c.nullValue }

// SetNullValue changes the null marker.
func (c *Converter) SetNullValue(marker string) { c.nullValue = marker }

// IsNull reports whether text is the null marker.
func (c *Converter) IsNull(text string) bool { return text == c.nullValue }

// SetInputFormat changes the parse pattern.
func (c *Converter) SetInputFormat(pattern string) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	c.inputFormat = pattern
	return nil
}

// SetOutputFormat changes the format pattern.
func (c *Converter) SetOutputFormat(pattern string) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	c.outputFormat = pattern
	return nil
}

// SetFormat sets both patterns at once.
func (c *Converter) SetFormat(pattern string) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	c.inputFormat = pattern
	c.outputFormat = pattern
	return nil
}

// Parse converts text to a time using the input pattern. Surrounding
// whitespace is ignored.
func (c *Converter) Parse(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	t, err := strftime.Parse(c.inputFormat, trimmed)
	if err != nil {
		return time.Time{}, &ParseError{Text: text, Pattern: c.inputFormat, Err: err}
	}
	return t.UTC(), nil
}

// Format renders t using the output pattern.
func (c *Converter) Format(t time.Time) string {
	return strftime.Format(c.outputFormat, t.UTC())
}

// Clone returns an independent copy.
func (c *Converter) Clone() *Converter {
	out := *c
	return &out
}
