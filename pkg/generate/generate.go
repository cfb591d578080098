// Package generate produces synthetic terrestrial trajectory points for
// tests and demonstrations. A Generator moves at constant speed and asks
// its Steering for a new heading before each step.
package generate

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/geomath"
)

const (
	// DefaultSpeed is 100 mph in m/s.
	DefaultSpeed = 44.704
	// DefaultTurnRate is the Circle turn rate in degrees per second.
	DefaultTurnRate = 0.6
	// DefaultInterval is the time between generated points.
	DefaultInterval = time.Minute
)

var ErrInvalidConfig = errors.New("invalid generator config")

// Steering chooses the heading for the next step.
type Steering interface {
	Steer(heading float64, interval time.Duration) float64
}

// Straight never turns.
type Straight struct{}

func (Straight) Steer(heading float64, _ time.Duration) float64 { return heading }

// Circle turns by a constant rate in degrees per second. Positive rates
// turn right.
type Circle struct {
	Rate float64
}

func (c Circle) Steer(heading float64, interval time.Duration) float64 {
	return heading + c.Rate*interval.Seconds()
}

// Grid flies legs of Lengths[i] steps and then turns 90 degrees, right
// for a positive length and left for a negative one. The lengths repeat.
type Grid struct {
	Lengths []int

	leg   int
	steps int
}

// NewGrid returns a grid with the given leg lengths, or legs of 10 steps
// turning right when none are given.
func NewGrid(lengths ...int) *Grid {
	if len(lengths) == 0 {
		lengths = []int{10}
	}
	return &Grid{Lengths: lengths}
}

func (g *Grid) Steer(heading float64, _ time.Duration) float64 {
	if len(g.Lengths) == 0 {
		return heading
	}
	length := g.Lengths[g.leg%len(g.Lengths)]
	g.steps++
	if g.steps < abs(length) {
		return heading
	}
	g.steps = 0
	g.leg++
	if length < 0 {
		return heading - 90
	}
	return heading + 90
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseSteering accepts straight, circle and grid.
func ParseSteering(name string) (Steering, error) {
	switch strings.ToLower(name) {
	case "", "straight":
		return Straight{}, nil
	case "circle":
		return Circle{Rate: DefaultTurnRate}, nil
	case "grid":
		return NewGrid(), nil
	}
	return nil, fmt.Errorf("%w: unknown pattern %q", ErrInvalidConfig, name)
}

// Config describes one generated object.
type Config struct {
	ObjectID  string
	Start     time.Time
	Longitude float64
	Latitude  float64
	// Speed is in m/s.
	Speed float64
	// Heading is the initial heading in degrees clockwise from north.
	Heading  float64
	Interval time.Duration
	Steering Steering
	Logger   zerolog.Logger
}

// DefaultConfig starts at the origin heading north at DefaultSpeed.
func DefaultConfig() Config {
	return Config{
		ObjectID: "generated",
		Start:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Speed:    DefaultSpeed,
		Interval: DefaultInterval,
		Steering: Straight{},
		Logger:   zerolog.Nop(),
	}
}

// Generator yields the positions of one object. It is not safe for
// concurrent use.
type Generator struct {
	cfg     Config
	space   geomath.Terrestrial
	logger  zerolog.Logger
	pos     []float64
	when    time.Time
	heading float64
	count   int
}

// New validates cfg and returns a generator positioned at its start.
func New(cfg Config) (*Generator, error) {
	switch {
	case cfg.Interval <= 0:
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case cfg.Speed < 0:
		return nil, fmt.Errorf("%w: speed must not be negative", ErrInvalidConfig)
	case cfg.Latitude < -90 || cfg.Latitude > 90:
		return nil, fmt.Errorf("%w: latitude %g out of range", ErrInvalidConfig, cfg.Latitude)
	}
	if cfg.Steering == nil {
		cfg.Steering = Straight{}
	}
	g := &Generator{
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "generator").Str("object_id", cfg.ObjectID).Logger(),
		pos:     []float64{cfg.Longitude, cfg.Latitude},
		when:    cfg.Start,
		heading: normalizeHeading(cfg.Heading),
	}
	g.logger.Debug().
		Float64("speed", cfg.Speed).
		Float64("heading", g.heading).
		Dur("interval", cfg.Interval).
		Msg("Generator created")
	return g, nil
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Next returns the next point. The first call returns the start position;
// each later call moves one interval along the current heading.
func (g *Generator) Next() *domain.TerrestrialTrajectoryPoint {
	if g.count > 0 {
		g.heading = normalizeHeading(g.cfg.Steering.Steer(g.heading, g.cfg.Interval))
		km := g.cfg.Speed * g.cfg.Interval.Seconds() / 1000
		g.pos = g.space.Destination(g.pos, g.heading, km)
		g.when = g.when.Add(g.cfg.Interval)
	}
	g.count++

	p := domain.NewTerrestrialTrajectoryPoint(g.pos[0], g.pos[1])
	p.SetObjectID(g.cfg.ObjectID)
	p.SetTimestamp(g.when)
	p.Properties().SetReal("heading", g.heading)
	p.Properties().SetReal("speed", g.cfg.Speed)
	return p
}

// Count is the number of points returned so far.
func (g *Generator) Count() int { return g.count }

// Points yields the next n points.
func (g *Generator) Points(n int) iter.Seq[*domain.TerrestrialTrajectoryPoint] {
	return func(yield func(*domain.TerrestrialTrajectoryPoint) bool) {
		for range n {
			if !yield(g.Next()) {
				return
			}
		}
	}
}

// Collate yields count points from each generator merged in timestamp
// order. Ties go to the earlier generator.
func Collate(count int, gens ...*Generator) iter.Seq[*domain.TerrestrialTrajectoryPoint] {
	return func(yield func(*domain.TerrestrialTrajectoryPoint) bool) {
		heads := make([]*domain.TerrestrialTrajectoryPoint, len(gens))
		left := make([]int, len(gens))
		for i, g := range gens {
			if count > 0 {
				heads[i] = g.Next()
				left[i] = count - 1
			}
		}
		for {
			best := -1
			for i, p := range heads {
				if p != nil && (best < 0 || p.Timestamp().Before(heads[best].Timestamp())) {
					best = i
				}
			}
			if best < 0 {
				return
			}
			if !yield(heads[best]) {
				return
			}
			if left[best] > 0 {
				heads[best] = gens[best].Next()
				left[best]--
			} else {
				heads[best] = nil
			}
		}
	}
}
