package domain

import (
	"fmt"

	"github.com/atwilso/tracktable/pkg/models"
)

// MaxFeatureDimension bounds the length of a feature vector.
const MaxFeatureDimension = 30

// FeatureVector is a fixed-length vector of reals. Its dimension is chosen
// at construction.
type FeatureVector struct {
	coords []float64
}

// NewFeatureVector returns a zero vector of the given dimension.
func NewFeatureVector(dimension int) (*FeatureVector, error) {
	if dimension < 1 || dimension > MaxFeatureDimension {
		return nil, fmt.Errorf("feature vector dimension must be in [1, %d], got %d", MaxFeatureDimension, dimension)
	}
	return &FeatureVector{coords: make([]float64, dimension)}, nil
}

// FeatureVectorFactory returns a constructor for readers. It panics if the
// dimension is out of range.
func FeatureVectorFactory(dimension int) func() *FeatureVector {
	if _, err := NewFeatureVector(dimension); err != nil {
		panic(err)
	}
	return func() *FeatureVector {
		return &FeatureVector{coords: make([]float64, dimension)}
	}
}

func (p *FeatureVector) Traits() models.Traits {
	return models.Traits{Domain: models.DomainFeatureVector, Dimension: len(p.coords)}
}

func (p *FeatureVector) Coordinate(i int) float64       { return p.coords[i] }
func (p *FeatureVector) SetCoordinate(i int, v float64) { p.coords[i] = v }
