package domain

import "github.com/atwilso/tracktable/pkg/models"

var (
	cartesian2DTraits = models.Traits{Domain: models.DomainCartesian2D, Dimension: 2}
	cartesian3DTraits = models.Traits{Domain: models.DomainCartesian3D, Dimension: 3}

	cartesian2DTrajectoryTraits = models.Traits{
		Domain:        models.DomainCartesian2D,
		Dimension:     2,
		HasObjectID:   true,
		HasTimestamp:  true,
		HasProperties: true,
	}
	cartesian3DTrajectoryTraits = models.Traits{
		Domain:        models.DomainCartesian3D,
		Dimension:     3,
		HasObjectID:   true,
		HasTimestamp:  true,
		HasProperties: true,
	}
)

// Cartesian2DPoint is a point in the plane.
type Cartesian2DPoint struct {
	coords [2]float64
}

func NewCartesian2DPoint(x, y float64) *Cartesian2DPoint {
	return &Cartesian2DPoint{coords: [2]float64{x, y}}
}

func (p *Cartesian2DPoint) Traits() models.Traits          { return cartesian2DTraits }
func (p *Cartesian2DPoint) Coordinate(i int) float64       { return p.coords[i] }
func (p *Cartesian2DPoint) SetCoordinate(i int, v float64) { p.coords[i] = v }

func (p *Cartesian2DPoint) X() float64 { return p.coords[0] }
func (p *Cartesian2DPoint) Y() float64 { return p.coords[1] }

// Cartesian2DTrajectoryPoint is a planar point with annotations.
type Cartesian2DTrajectoryPoint struct {
	Cartesian2DPoint
	models.Annotations
}

func NewCartesian2DTrajectoryPoint(x, y float64) *Cartesian2DTrajectoryPoint {
	return &Cartesian2DTrajectoryPoint{Cartesian2DPoint: Cartesian2DPoint{coords: [2]float64{x, y}}}
}

func (p *Cartesian2DTrajectoryPoint) Traits() models.Traits { return cartesian2DTrajectoryTraits }

// Cartesian3DPoint is a point in space.
type Cartesian3DPoint struct {
	coords [3]float64
}

func NewCartesian3DPoint(x, y, z float64) *Cartesian3DPoint {
	return &Cartesian3DPoint{coords: [3]float64{x, y, z}}
}

func (p *Cartesian3DPoint) Traits() models.Traits          { return cartesian3DTraits }
func (p *Cartesian3DPoint) Coordinate(i int) float64       { return p.coords[i] }
func (p *Cartesian3DPoint) SetCoordinate(i int, v float64) { p.coords[i] = v }

func (p *Cartesian3DPoint) X() float64 { return p.coords[0] }
func (p *Cartesian3DPoint) Y() float64 { return p.coords[1] }
func (p *Cartesian3DPoint) Z() float64 { return p.coords[2] }

// Cartesian3DTrajectoryPoint is a spatial point with annotations.
type Cartesian3DTrajectoryPoint struct {
	Cartesian3DPoint
	models.Annotations
}

func NewCartesian3DTrajectoryPoint(x, y, z float64) *Cartesian3DTrajectoryPoint {
	return &Cartesian3DTrajectoryPoint{Cartesian3DPoint: Cartesian3DPoint{coords: [3]float64{x, y, z}}}
}

func (p *Cartesian3DTrajectoryPoint) Traits() models.Traits { return cartesian3DTrajectoryTraits }
