package delimited

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to classify the typed errors below.
var (
	// ErrFormat marks a header row that could not be parsed.
	ErrFormat = errors.New("malformed header")

	// ErrMalformedRow marks a data row that could not be turned into a point.
	ErrMalformedRow = errors.New("malformed row")

	// ErrInsufficientTokens marks a data row with fewer tokens than the
	// column assignment requires. It is also an ErrMalformedRow.
	ErrInsufficientTokens = errors.New("insufficient tokens")

	// ErrConfiguration marks an invalid reader or column configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// HeaderError describes why a header row was rejected.
type HeaderError struct {
	Field  string
	Token  string
	Reason string
}

func (e *HeaderError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("header %s: %s (token %q)", e.Field, e.Reason, e.Token)
	}
	return fmt.Sprintf("header %s: %s", e.Field, e.Reason)
}

func (e *HeaderError) Unwrap() error { return ErrFormat }

// RowError describes why a data row was skipped. Line is 1-based.
type RowError struct {
	Line     int
	Column   int
	Token    string
	Expected string
	Reason   string
	Tokens   int
	Required int
	Err      error
}

func (e *RowError) Error() string {
	switch {
	case e.Required > 0:
		return fmt.Sprintf("line %d: %s: got %d tokens, need %d", e.Line, e.Reason, e.Tokens, e.Required)
	case e.Expected != "":
		return fmt.Sprintf("line %d column %d: %s: cannot read %q as %s", e.Line, e.Column, e.Reason, e.Token, e.Expected)
	default:
		return fmt.Sprintf("line %d column %d: %s", e.Line, e.Column, e.Reason)
	}
}

func (e *RowError) Unwrap() []error {
	errs := []error{ErrMalformedRow}
	if e.Required > 0 {
		errs = append(errs, ErrInsufficientTokens)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ConfigError describes an invalid configuration request.
type ConfigError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Setting, e.Reason)
}

func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

func configErrorf(setting, format string, args ...any) error {
	return &ConfigError{Setting: setting, Reason: fmt.Sprintf(format, args...)}
}
