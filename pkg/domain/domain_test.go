package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atwilso/tracktable/pkg/models"
)

func TestPointTypesPassCapabilityCheck(t *testing.T) {
	fv, err := NewFeatureVector(5)
	require.NoError(t, err)

	points := []models.Point{
		NewTerrestrialPoint(1, 2),
		NewTerrestrialTrajectoryPoint(1, 2),
		NewCartesian2DPoint(1, 2),
		NewCartesian2DTrajectoryPoint(1, 2),
		NewCartesian3DPoint(1, 2, 3),
		NewCartesian3DTrajectoryPoint(1, 2, 3),
		fv,
	}
	for _, p := range points {
		assert.NoError(t, models.CheckCapabilities(p), "%T", p)
	}
}

func TestTrajectoryPointTraits(t *testing.T) {
	p := NewTerrestrialTrajectoryPoint(-70.5, 42.25)
	tr := p.Traits()
	assert.Equal(t, models.DomainTerrestrial, tr.Domain)
	assert.True(t, tr.HasObjectID && tr.HasTimestamp && tr.HasProperties)
	assert.Equal(t, -70.5, p.Longitude())
	assert.Equal(t, 42.25, p.Latitude())

	base := NewTerrestrialPoint(0, 0).Traits()
	assert.False(t, base.HasObjectID || base.HasTimestamp || base.HasProperties)

	c := NewCartesian3DTrajectoryPoint(1, 2, 3)
	c.SetCoordinate(2, 9)
	assert.Equal(t, []float64{1, 2, 9}, models.Coordinates(c))
	assert.Equal(t, 3, c.Traits().Dimension)
}

func TestFeatureVector(t *testing.T) {
	_, err := NewFeatureVector(0)
	assert.Error(t, err)
	_, err = NewFeatureVector(MaxFeatureDimension + 1)
	assert.Error(t, err)

	v, err := NewFeatureVector(MaxFeatureDimension)
	require.NoError(t, err)
	assert.Equal(t, MaxFeatureDimension, v.Traits().Dimension)

	newVec := FeatureVectorFactory(4)
	a, b := newVec(), newVec()
	a.SetCoordinate(0, 1)
	assert.Equal(t, 0.0, b.Coordinate(0))
	assert.Equal(t, models.DomainFeatureVector, a.Traits().Domain)

	assert.Panics(t, func() { FeatureVectorFactory(31) })
}

func TestCoordinateNames(t *testing.T) {
	assert.Equal(t, []string{"longitude", "latitude"}, CoordinateNames(NewTerrestrialPoint(0, 0).Traits()))
	assert.Equal(t, []string{"x", "y", "z"}, CoordinateNames(NewCartesian3DPoint(0, 0, 0).Traits()))

	fv, _ := NewFeatureVector(3)
	assert.Equal(t, []string{"c0", "c1", "c2"}, CoordinateNames(fv.Traits()))

	names := CoordinateNames(NewCartesian2DPoint(0, 0).Traits())
	names[0] = "changed"
	assert.Equal(t, []string{"x", "y"}, CoordinateNames(NewCartesian2DPoint(0, 0).Traits()))
}

func TestFactory(t *testing.T) {
	for _, d := range []string{models.DomainTerrestrial, models.DomainCartesian2D, models.DomainCartesian3D} {
		newPoint, err := Factory(d)
		require.NoError(t, err)
		p := newPoint()
		assert.Equal(t, d, p.Traits().Domain)
		assert.True(t, p.Traits().HasTimestamp)
	}

	_, err := Factory(models.DomainFeatureVector)
	assert.Error(t, err)
	_, err = Factory("mars")
	assert.Error(t, err)
}
