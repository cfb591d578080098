package delimited

import (
	"bufio"
	"io"
	"iter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// TrajectoryWriter writes one trajectory per row: the trajectory header,
// the point header, then every point's tokens.
type TrajectoryWriter[P models.Point] struct {
	out    *bufio.Writer
	cfg    WriterConfig
	enc    rowEncoder
	count  int
	logger zerolog.Logger
}

// NewTrajectoryWriter creates a writer on w. Call Flush when done. The
// point header is always written since readers need it to split the row.
func NewTrajectoryWriter[P models.Point](w io.Writer, cfg WriterConfig, logger zerolog.Logger) *TrajectoryWriter[P] {
	if cfg.Converter == nil {
		cfg.Converter = timestamp.NewConverter()
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &TrajectoryWriter[P]{
		out:    bufio.NewWriter(w),
		cfg:    cfg,
		enc:    rowEncoder{conv: cfg.Converter, precision: cfg.Precision},
		logger: logger.With().Str("component", "trajectory-writer").Logger(),
	}
}

// Write writes one trajectory. Empty trajectories are skipped.
func (w *TrajectoryWriter[P]) Write(t *models.Trajectory[P]) error {
	if t.Len() == 0 {
		w.logger.Debug().Str("uuid", t.UUID().String()).Msg("Skipping empty trajectory")
		return nil
	}
	first := t.At(0)
	ph := HeaderFor(first)
	th := TrajectoryHeader{
		UUID:       t.UUID(),
		Domain:     first.Traits().Domain,
		NumPoints:  t.Len(),
		Properties: *t.Properties().Clone(),
	}

	tokens := th.Tokens(w.cfg.Converter, w.cfg.Precision)
	tokens = append(tokens, ph.Tokens()...)
	for _, p := range t.Points() {
		tokens = w.enc.encode(tokens, p, ph)
	}
	if err := joinRow(w.out, tokens, w.cfg.Delimiter, w.cfg.Quote); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteAll writes every trajectory in seq.
func (w *TrajectoryWriter[P]) WriteAll(seq iter.Seq[*models.Trajectory[P]]) (int, error) {
	n := 0
	for t := range seq {
		if err := w.Write(t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Count is the number of trajectories written.
func (w *TrajectoryWriter[P]) Count() int { return w.count }

// Flush writes buffered rows to the underlying writer.
func (w *TrajectoryWriter[P]) Flush() error { return w.out.Flush() }

// TrajectoryReader reads rows written by TrajectoryWriter. Rows that do not
// start with the trajectory magic are ignored. Bad points inside a row are
// dropped; a row that yields no points is skipped.
type TrajectoryReader[P models.Point] struct {
	newPoint  func() P
	source    RowSource
	converter *timestamp.Converter
	warnings  bool
	base      zerolog.Logger
	logger    zerolog.Logger
	line      int
	stats     TrajectoryStats
}

// TrajectoryStats counts trajectory rows by outcome.
type TrajectoryStats struct {
	Rows         int
	Trajectories int
	Skipped      int
	Points       int
	BadPoints    int
}

// NewTrajectoryReader creates a reader that builds points with newPoint.
// It accepts the same options as NewPointReader; column options are
// ignored since every row carries its own header.
func NewTrajectoryReader[P models.Point](newPoint func() P, source RowSource, opts ...ReaderOption) (*TrajectoryReader[P], error) {
	if newPoint == nil {
		return nil, configErrorf("point factory", "nil factory")
	}
	if source == nil {
		return nil, configErrorf("source", "nil row source")
	}
	if err := models.CheckCapabilities(newPoint()); err != nil {
		return nil, &ConfigError{Setting: "point type", Reason: "capability check failed", Err: err}
	}

	o := readerOptions{logger: log.Logger, warnings: true}
	for _, opt := range opts {
		opt(&o)
	}
	conv := timestamp.NewConverter()
	if o.converter != nil {
		conv = o.converter.Clone()
	}
	return &TrajectoryReader[P]{
		newPoint:  newPoint,
		source:    source,
		converter: conv,
		warnings:  o.warnings,
		base:      o.logger,
		logger:    o.logger.With().Str("component", "trajectory-reader").Logger(),
	}, nil
}

// Stats reports counts so far.
func (r *TrajectoryReader[P]) Stats() TrajectoryStats { return r.stats }

// Next returns the next trajectory.
func (r *TrajectoryReader[P]) Next() (*models.Trajectory[P], bool) {
	for {
		row, ok := r.source.NextRow()
		if !ok {
			r.logger.Info().
				Int("trajectories", r.stats.Trajectories).
				Int("skipped", r.stats.Skipped).
				Msg("Done reading trajectories")
			return nil, false
		}
		r.line++
		r.stats.Rows++
		if len(row) == 0 || row[0] != TrajectoryHeaderMagic {
			continue
		}
		t, err := r.parseRow(row)
		if err != nil {
			r.stats.Skipped++
			if r.warnings {
				r.logger.Warn().Err(err).Int("line", r.line).Msg("Skipping trajectory")
			}
			continue
		}
		r.stats.Trajectories++
		return t, true
	}
}

// All iterates over the remaining trajectories.
func (r *TrajectoryReader[P]) All() iter.Seq[*models.Trajectory[P]] {
	return func(yield func(*models.Trajectory[P]) bool) {
		for {
			t, ok := r.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// Err returns the error that ended the source, if the source reports one.
func (r *TrajectoryReader[P]) Err() error {
	if es, ok := r.source.(errSource); ok {
		return es.Err()
	}
	return nil
}

func (r *TrajectoryReader[P]) parseRow(row []string) (*models.Trajectory[P], error) {
	th, used, err := ParseTrajectoryHeader(row, r.converter)
	if err != nil {
		return nil, err
	}
	rest := row[used:]

	ph, used, err := parseHeaderPrefix(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[used:]

	recordLen := ph.RecordLength()
	available := len(rest) / recordLen
	if available < th.NumPoints && r.warnings {
		r.logger.Warn().
			Int("line", r.line).
			Int("declared", th.NumPoints).
			Int("available", available).
			Msg("Trajectory row holds fewer points than declared")
	}
	n := min(available, th.NumPoints)

	rows := make([][]string, 0, n+1)
	rows = append(rows, ph.Tokens())
	for i := 0; i < n; i++ {
		rows = append(rows, rest[i*recordLen:(i+1)*recordLen])
	}

	points, err := NewPointReader(r.newPoint, Rows(rows...),
		WithConverter(r.converter),
		WithWarnings(r.warnings),
		WithLogger(r.base),
		withQuietSummary(),
	)
	if err != nil {
		return nil, err
	}

	t := models.NewTrajectory[P]()
	t.SetUUID(th.UUID)
	*t.Properties() = th.Properties
	for p := range points.All() {
		t.Append(p)
	}
	stats := points.Stats()
	r.stats.Points += stats.Points
	r.stats.BadPoints += stats.Skipped

	if t.Len() == 0 {
		return nil, &RowError{Line: r.line, Reason: "trajectory has no readable points"}
	}
	return t, nil
}
