// Package geomath computes geometric measures over points and trajectories.
//
// Each coordinate domain is served by a Space found through a registry
// keyed by Traits.Domain. Spaces implement the measures their domain
// supports; the rest fail with ErrUnsupported.
package geomath

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atwilso/tracktable/pkg/models"
)

var (
	ErrUnsupported     = errors.New("operation not supported in this domain")
	ErrUnknownDomain   = errors.New("unknown domain")
	ErrEmptyTrajectory = errors.New("trajectory has no points")
	ErrDomainMismatch  = errors.New("points belong to different domains")
)

// Space holds the measures every domain supports.
type Space interface {
	Domain() string
	// Distance between two coordinate vectors in the domain's length unit.
	Distance(a, b []float64) float64
	// TimeUnit is the duration speeds are expressed per.
	TimeUnit() time.Duration
	// Interpolate returns the point a fraction t of the way from a to b.
	Interpolate(a, b []float64, t float64) []float64
}

// DirectionalSpace is implemented by spaces with a notion of heading.
type DirectionalSpace interface {
	Space
	Bearing(from, to []float64) float64
	// SignedTurnAngle is the change of heading at b on the path a, b, c.
	// Positive values turn clockwise for terrestrial headings and
	// counterclockwise in the plane.
	SignedTurnAngle(a, b, c []float64) float64
}

// HullSpace is implemented by spaces that can compute a convex hull. The
// hull is returned as an open ring in counterclockwise order.
type HullSpace interface {
	Space
	ConvexHull(points [][]float64) [][]float64
	HullArea(hull [][]float64) float64
	HullCentroid(hull [][]float64) []float64
	HullAspectRatio(hull [][]float64) float64
}

var (
	spaces   = map[string]Space{}
	spacesMu sync.RWMutex
)

func init() {
	Register(Terrestrial{})
	Register(Cartesian2D{})
	Register(Cartesian3D{})
	Register(FeatureSpace{})
}

// Register adds s under its domain name, replacing any earlier space for
// the same domain.
func Register(s Space) {
	spacesMu.Lock()
	defer spacesMu.Unlock()
	spaces[s.Domain()] = s
}

// Lookup returns the space registered for domain.
func Lookup(domain string) (Space, error) {
	spacesMu.RLock()
	defer spacesMu.RUnlock()
	s, ok := spaces[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	return s, nil
}

// Domains lists the registered domain names in sorted order.
func Domains() []string {
	spacesMu.RLock()
	defer spacesMu.RUnlock()
	out := make([]string, 0, len(spaces))
	for name := range spaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SpaceFor returns the space of p's domain.
func SpaceFor(p models.Point) (Space, error) {
	return Lookup(p.Traits().Domain)
}

func spaceFor2(a, b models.Point) (Space, error) {
	if a.Traits().Domain != b.Traits().Domain {
		return nil, fmt.Errorf("%w: %s and %s", ErrDomainMismatch, a.Traits().Domain, b.Traits().Domain)
	}
	return SpaceFor(a)
}

func directional(s Space) (DirectionalSpace, error) {
	d, ok := s.(DirectionalSpace)
	if !ok {
		return nil, fmt.Errorf("%w: headings in %s", ErrUnsupported, s.Domain())
	}
	return d, nil
}

func hullSpace(s Space) (HullSpace, error) {
	h, ok := s.(HullSpace)
	if !ok {
		return nil, fmt.Errorf("%w: convex hull in %s", ErrUnsupported, s.Domain())
	}
	return h, nil
}
