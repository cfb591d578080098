// Package analysis builds trajectories out of point streams.
package analysis

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/atwilso/tracktable/pkg/geomath"
	"github.com/atwilso/tracktable/pkg/models"
)

// AssemblerConfig controls when a new trajectory is started for an object.
type AssemblerConfig struct {
	// SeparationTime is the largest gap between consecutive points of one
	// trajectory. Zero disables the check.
	SeparationTime time.Duration
	// SeparationDistance is the largest jump between consecutive points,
	// in the domain's length unit. Zero disables the check.
	SeparationDistance float64
	// MinimumPoints discards shorter trajectories.
	MinimumPoints int
	// CleanupInterval is how many points are consumed between sweeps that
	// close trajectories idle for longer than SeparationTime. Zero
	// disables sweeping.
	CleanupInterval int
}

// DefaultAssemblerConfig splits on 30 minute gaps and keeps trajectories
// of at least two points.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		SeparationTime:  30 * time.Minute,
		MinimumPoints:   2,
		CleanupInterval: 10000,
	}
}

// Validate checks the configuration.
func (c AssemblerConfig) Validate() error {
	if c.SeparationTime < 0 {
		return fmt.Errorf("separation time must not be negative, got %s", c.SeparationTime)
	}
	if c.SeparationDistance < 0 {
		return fmt.Errorf("separation distance must not be negative, got %g", c.SeparationDistance)
	}
	if c.MinimumPoints < 1 {
		return fmt.Errorf("minimum points must be at least 1, got %d", c.MinimumPoints)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup interval must not be negative, got %d", c.CleanupInterval)
	}
	return nil
}

// AssemblerStats counts what the assembler has done.
type AssemblerStats struct {
	Points       int
	Trajectories int
	Discarded    int
}

type openTrajectory[P models.Point] struct {
	points []P
	last   time.Time
}

// Assembler groups points by object id into trajectories. Points should
// arrive in timestamp order. An Assembler is not safe for concurrent use.
type Assembler[P models.Point] struct {
	cfg    AssemblerConfig
	open   map[string]*openTrajectory[P]
	ready  []*models.Trajectory[P]
	latest time.Time
	stats  AssemblerStats
	logger zerolog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler[P models.Point](cfg AssemblerConfig, logger zerolog.Logger) (*Assembler[P], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Assembler[P]{
		cfg:    cfg,
		open:   make(map[string]*openTrajectory[P]),
		logger: logger.With().Str("component", "assembler").Logger(),
	}
	a.logger.Debug().
		Dur("separation_time", cfg.SeparationTime).
		Float64("separation_distance", cfg.SeparationDistance).
		Int("minimum_points", cfg.MinimumPoints).
		Msg("Assembler configured")
	return a, nil
}

// Add consumes one point. Trajectories it closes become available from
// Drain.
func (a *Assembler[P]) Add(p P) error {
	ts, ok := models.TimestampOf(p)
	if !ok {
		return fmt.Errorf("%w: assembly needs timestamps", models.ErrMissingCapability)
	}
	if _, ok := any(p).(models.ObjectIDCarrier); !ok {
		return fmt.Errorf("%w: assembly needs object ids", models.ErrMissingCapability)
	}
	id := models.ObjectIDOf(p)

	a.stats.Points++
	if ts.After(a.latest) {
		a.latest = ts
	}

	cur, ok := a.open[id]
	if !ok {
		a.open[id] = &openTrajectory[P]{points: []P{p}, last: ts}
		a.maybeSweep()
		return nil
	}

	split, err := a.separated(cur.points[len(cur.points)-1], p, ts.Sub(cur.last))
	if err != nil {
		return err
	}
	if split {
		a.close(cur)
		a.open[id] = &openTrajectory[P]{points: []P{p}, last: ts}
	} else {
		cur.points = append(cur.points, p)
		cur.last = ts
	}
	a.maybeSweep()
	return nil
}

func (a *Assembler[P]) separated(prev, next P, gap time.Duration) (bool, error) {
	if a.cfg.SeparationTime > 0 && gap > a.cfg.SeparationTime {
		return true, nil
	}
	if a.cfg.SeparationDistance > 0 {
		d, err := geomath.Distance(prev, next)
		if err != nil {
			return false, err
		}
		if d > a.cfg.SeparationDistance {
			return true, nil
		}
	}
	return false, nil
}

func (a *Assembler[P]) close(o *openTrajectory[P]) {
	if len(o.points) < a.cfg.MinimumPoints {
		a.stats.Discarded++
		return
	}
	a.ready = append(a.ready, models.NewTrajectory(o.points...))
	a.stats.Trajectories++
	if a.stats.Trajectories%1000 == 0 {
		a.logger.Debug().
			Int("trajectories", a.stats.Trajectories).
			Int("discarded", a.stats.Discarded).
			Msg("Assembly progress")
	}
}

func (a *Assembler[P]) maybeSweep() {
	if a.cfg.CleanupInterval == 0 || a.cfg.SeparationTime == 0 || a.stats.Points%a.cfg.CleanupInterval != 0 {
		return
	}
	cutoff := a.latest.Add(-a.cfg.SeparationTime)
	for _, id := range a.idsByEnd() {
		o := a.open[id]
		if o.last.Before(cutoff) {
			a.close(o)
			delete(a.open, id)
		}
	}
}

// idsByEnd orders open trajectories by last timestamp, then object id.
func (a *Assembler[P]) idsByEnd() []string {
	ids := make([]string, 0, len(a.open))
	for id := range a.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := a.open[ids[i]].last, a.open[ids[j]].last
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Flush closes every open trajectory, oldest first.
func (a *Assembler[P]) Flush() {
	for _, id := range a.idsByEnd() {
		a.close(a.open[id])
		delete(a.open, id)
	}
	a.logger.Info().
		Int("points", a.stats.Points).
		Int("trajectories", a.stats.Trajectories).
		Int("discarded", a.stats.Discarded).
		Msg("Done assembling trajectories")
	if a.stats.Trajectories == 0 && a.stats.Points > 0 {
		a.logger.Warn().Msg("No trajectories produced; check the column layout and separation settings")
	}
}

// Drain returns the trajectories closed since the last call, in the order
// they were closed.
func (a *Assembler[P]) Drain() []*models.Trajectory[P] {
	out := a.ready
	a.ready = nil
	return out
}

// Open is the number of trajectories still being built.
func (a *Assembler[P]) Open() int { return len(a.open) }

func (a *Assembler[P]) Stats() AssemblerStats { return a.stats }

// Assemble runs points through the assembler and yields trajectories as
// they close, followed by the remainder at the end of input. Add errors
// end the sequence; errp, if not nil, receives the error.
func (a *Assembler[P]) Assemble(points iter.Seq[P], errp *error) iter.Seq[*models.Trajectory[P]] {
	return func(yield func(*models.Trajectory[P]) bool) {
		emit := func() bool {
			for _, t := range a.Drain() {
				if !yield(t) {
					return false
				}
			}
			return true
		}
		for p := range points {
			if err := a.Add(p); err != nil {
				if errp != nil {
					*errp = err
				}
				return
			}
			if !emit() {
				return
			}
		}
		a.Flush()
		emit()
	}
}
