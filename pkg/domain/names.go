package domain

import (
	"fmt"

	"github.com/atwilso/tracktable/pkg/models"
)

var coordinateNames = map[string][]string{
	models.DomainTerrestrial: {"longitude", "latitude"},
	models.DomainCartesian2D: {"x", "y"},
	models.DomainCartesian3D: {"x", "y", "z"},
}

// CoordinateNames returns column names for the coordinates of a point with
// the given traits. Domains without conventional names get c0, c1, ...
func CoordinateNames(traits models.Traits) []string {
	if names, ok := coordinateNames[traits.Domain]; ok && len(names) == traits.Dimension {
		return append([]string(nil), names...)
	}
	names := make([]string, traits.Dimension)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	return names
}

// Factory returns a constructor for the trajectory point type of the named
// domain. Feature vectors have no trajectory point type.
func Factory(domain string) (func() models.Point, error) {
	switch domain {
	case models.DomainTerrestrial:
		return func() models.Point { return new(TerrestrialTrajectoryPoint) }, nil
	case models.DomainCartesian2D:
		return func() models.Point { return new(Cartesian2DTrajectoryPoint) }, nil
	case models.DomainCartesian3D:
		return func() models.Point { return new(Cartesian3DTrajectoryPoint) }, nil
	}
	return nil, fmt.Errorf("no trajectory point type for domain %q", domain)
}
