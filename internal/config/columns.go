package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atwilso/tracktable/pkg/models"
)

// PropertyColumn is one explicit property assignment from the reader
// configuration.
type PropertyColumn struct {
	Name   string
	Column int
	Kind   models.PropertyKind
}

// ParsePropertyColumns parses reader property assignments.
// Format: ["name:column:kind", ...], for example "altitude:4:real".
// Kind accepts a type name or its numeric tag.
func ParsePropertyColumns(specs []string) ([]PropertyColumn, error) {
	out := make([]PropertyColumn, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid property column %q (expected 'name:column:kind')", spec)
		}

		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("empty property name in: %s", spec)
		}
		if seen[name] {
			return nil, fmt.Errorf("property %s assigned twice", name)
		}
		seen[name] = true

		column, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || column < 0 {
			return nil, fmt.Errorf("invalid column index in: %s", spec)
		}

		kind, err := models.ParsePropertyKind(parts[2])
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", spec, err)
		}

		out = append(out, PropertyColumn{Name: name, Column: column, Kind: kind})
	}
	return out, nil
}
