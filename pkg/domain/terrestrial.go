// Package domain provides the concrete point types for each coordinate
// domain: terrestrial longitude/latitude, 2D and 3D Cartesian, and
// variable-length feature vectors.
package domain

import "github.com/atwilso/tracktable/pkg/models"

var (
	terrestrialTraits = models.Traits{
		Domain:    models.DomainTerrestrial,
		Dimension: 2,
	}
	terrestrialTrajectoryTraits = models.Traits{
		Domain:        models.DomainTerrestrial,
		Dimension:     2,
		HasObjectID:   true,
		HasTimestamp:  true,
		HasProperties: true,
	}
)

// TerrestrialPoint is a (longitude, latitude) pair in degrees.
type TerrestrialPoint struct {
	coords [2]float64
}

// NewTerrestrialPoint returns a point at the given position.
func NewTerrestrialPoint(longitude, latitude float64) *TerrestrialPoint {
	return &TerrestrialPoint{coords: [2]float64{longitude, latitude}}
}

func (p *TerrestrialPoint) Traits() models.Traits          { return terrestrialTraits }
func (p *TerrestrialPoint) Coordinate(i int) float64       { return p.coords[i] }
func (p *TerrestrialPoint) SetCoordinate(i int, v float64) { p.coords[i] = v }

func (p *TerrestrialPoint) Longitude() float64 { return p.coords[0] }
func (p *TerrestrialPoint) Latitude() float64  { return p.coords[1] }

// TerrestrialTrajectoryPoint adds an object id, timestamp and properties to
// a terrestrial position.
type TerrestrialTrajectoryPoint struct {
	TerrestrialPoint
	models.Annotations
}

// NewTerrestrialTrajectoryPoint returns a trajectory point at the given
// position with no annotations.
func NewTerrestrialTrajectoryPoint(longitude, latitude float64) *TerrestrialTrajectoryPoint {
	return &TerrestrialTrajectoryPoint{
		TerrestrialPoint: TerrestrialPoint{coords: [2]float64{longitude, latitude}},
	}
}

func (p *TerrestrialTrajectoryPoint) Traits() models.Traits { return terrestrialTrajectoryTraits }
