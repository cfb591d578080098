// Package delimited reads and writes points and trajectories as delimited
// text. Rows may be preceded by a header that declares their layout; the
// reader applies each header it meets and keeps going past bad rows.
package delimited

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// Outcome classifies what a reader did with one row.
type Outcome int

const (
	OutcomePoint Outcome = iota
	OutcomeEmpty
	OutcomeHeader
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePoint:
		return "point"
	case OutcomeEmpty:
		return "empty"
	case OutcomeHeader:
		return "header"
	case OutcomeSkipped:
		return "skipped"
	}
	return "Outcome(" + strconv.Itoa(int(o)) + ")"
}

// RowResult is the outcome of one row. Point is set for OutcomePoint,
// Header for OutcomeHeader and Err for OutcomeSkipped.
type RowResult[P models.Point] struct {
	Line    int
	Outcome Outcome
	Point   P
	Header  *Header
	Err     error
}

// SchemaChange is delivered each time a header replaces the column layout.
type SchemaChange struct {
	Line    int
	Version int
	Header  Header
}

// Stats counts rows by outcome.
type Stats struct {
	Rows    int
	Points  int
	Empty   int
	Headers int
	Skipped int
}

type readerOptions struct {
	logger       zerolog.Logger
	warnings     bool
	ignoreHeader bool
	converter    *timestamp.Converter
	columns      *ColumnMap
	onSchema     func(SchemaChange)
	onSkip       func(line int, err error)
	quietSummary bool
}

// ReaderOption configures a PointReader.
type ReaderOption func(*readerOptions)

// WithLogger sets the logger used for warnings and the end-of-input summary.
func WithLogger(logger zerolog.Logger) ReaderOption {
	return func(o *readerOptions) { o.logger = logger }
}

// WithWarnings turns per-row warnings on or off. They are on by default.
func WithWarnings(enabled bool) ReaderOption {
	return func(o *readerOptions) { o.warnings = enabled }
}

// WithIgnoreHeader makes the reader treat header rows as data.
func WithIgnoreHeader(ignore bool) ReaderOption {
	return func(o *readerOptions) { o.ignoreHeader = ignore }
}

// WithConverter sets the timestamp converter, which also carries the null
// marker. The reader keeps its own copy.
func WithConverter(conv *timestamp.Converter) ReaderOption {
	return func(o *readerOptions) { o.converter = conv }
}

// WithColumns sets the initial column layout. The reader keeps its own copy.
func WithColumns(m *ColumnMap) ReaderOption {
	return func(o *readerOptions) { o.columns = m }
}

// OnSchemaChange registers a callback run after each applied header.
func OnSchemaChange(fn func(SchemaChange)) ReaderOption {
	return func(o *readerOptions) { o.onSchema = fn }
}

// OnSkip registers a callback run for every skipped row.
func OnSkip(fn func(line int, err error)) ReaderOption {
	return func(o *readerOptions) { o.onSkip = fn }
}

// withQuietSummary demotes the end-of-input summary to debug level, for
// readers nested inside another reader.
func withQuietSummary() ReaderOption {
	return func(o *readerOptions) { o.quietSummary = true }
}

// PointReader turns token rows into points of type P. It is pull based and
// not safe for concurrent use. Bad rows never stop it; they are reported
// as skipped results and reading continues with the next row.
type PointReader[P models.Point] struct {
	newPoint func() P
	traits   models.Traits
	source   RowSource

	columns       *ColumnMap
	propertyNames []string
	converter     *timestamp.Converter
	ignoreHeader  bool
	warnings      bool
	quietSummary  bool

	onSchema func(SchemaChange)
	onSkip   func(int, error)

	logger zerolog.Logger
	line   int
	done   bool
	stats  Stats
}

// NewPointReader creates a reader that builds points with newPoint. The
// point type's capabilities are checked here, once. Without WithColumns the
// layout is the one a header with no properties would produce for P.
func NewPointReader[P models.Point](newPoint func() P, source RowSource, opts ...ReaderOption) (*PointReader[P], error) {
	if newPoint == nil {
		return nil, configErrorf("point factory", "nil factory")
	}
	if source == nil {
		return nil, configErrorf("source", "nil row source")
	}

	sample := newPoint()
	if err := models.CheckCapabilities(sample); err != nil {
		return nil, &ConfigError{Setting: "point type", Reason: "capability check failed", Err: err}
	}
	traits := sample.Traits()

	o := readerOptions{
		logger:   log.Logger,
		warnings: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &PointReader[P]{
		newPoint:     newPoint,
		traits:       traits,
		source:       source,
		ignoreHeader: o.ignoreHeader,
		warnings:     o.warnings,
		quietSummary: o.quietSummary,
		onSchema:     o.onSchema,
		onSkip:       o.onSkip,
		logger:       o.logger.With().Str("component", "point-reader").Str("domain", traits.Domain).Logger(),
	}

	if o.converter != nil {
		r.converter = o.converter.Clone()
	} else {
		r.converter = timestamp.NewConverter()
	}

	if o.columns != nil {
		if o.columns.Dimension() != traits.Dimension {
			return nil, configErrorf("columns", "column map has dimension %d, point type has %d",
				o.columns.Dimension(), traits.Dimension)
		}
		r.columns = o.columns.Clone()
	} else {
		r.columns = NewColumnMap(traits.Dimension)
		r.columns.ConfigureFromHeader(Header{Domain: traits.Domain, Dimension: traits.Dimension},
			traits.HasObjectID, traits.HasTimestamp)
	}
	r.propertyNames = r.columns.PropertyNames()

	return r, nil
}

// Traits returns the capabilities of the point type being read.
func (r *PointReader[P]) Traits() models.Traits { return r.traits }

// Columns returns a copy of the current column layout.
func (r *PointReader[P]) Columns() *ColumnMap { return r.columns.Clone() }

// SetColumns replaces the column layout.
func (r *PointReader[P]) SetColumns(m *ColumnMap) error {
	if m.Dimension() != r.traits.Dimension {
		return configErrorf("columns", "column map has dimension %d, point type has %d", m.Dimension(), r.traits.Dimension)
	}
	r.columns = m.Clone()
	r.propertyNames = r.columns.PropertyNames()
	return nil
}

// SetCoordinateColumn reads coordinate index from column, or Unassigned.
func (r *PointReader[P]) SetCoordinateColumn(index, column int) error {
	return r.columns.AssignCoordinate(index, column)
}

// SetObjectIDColumn reads the object id from column, or Unassigned.
func (r *PointReader[P]) SetObjectIDColumn(column int) error {
	return r.columns.AssignObjectID(column)
}

// SetTimestampColumn reads the timestamp from column, or Unassigned.
func (r *PointReader[P]) SetTimestampColumn(column int) error {
	return r.columns.AssignTimestamp(column)
}

// SetPropertyColumn reads property name of the given kind from column.
func (r *PointReader[P]) SetPropertyColumn(name string, column int, kind models.PropertyKind) error {
	if err := r.columns.AssignProperty(name, column, kind); err != nil {
		return err
	}
	r.propertyNames = r.columns.PropertyNames()
	return nil
}

// ClearColumns unassigns every field.
func (r *PointReader[P]) ClearColumns() {
	r.columns.Clear()
	r.propertyNames = nil
}

// SetIgnoreHeader makes later header rows read as data.
func (r *PointReader[P]) SetIgnoreHeader(ignore bool) { r.ignoreHeader = ignore }

// IgnoreHeader reports whether header rows are read as data.
func (r *PointReader[P]) IgnoreHeader() bool { return r.ignoreHeader }

// SetWarnings turns per-row warnings on or off.
func (r *PointReader[P]) SetWarnings(enabled bool) { r.warnings = enabled }

// WarningsEnabled reports whether skipped rows are logged.
func (r *PointReader[P]) WarningsEnabled() bool { return r.warnings }

// SetNullValue sets the token that marks an absent property.
func (r *PointReader[P]) SetNullValue(marker string) { r.converter.SetNullValue(marker) }

// NullValue is the token that marks an absent property.
func (r *PointReader[P]) NullValue() string { return r.converter.NullValue() }

// SetTimestampFormat changes the input pattern for timestamps and
// timestamp properties. Later rows use the new pattern.
func (r *PointReader[P]) SetTimestampFormat(pattern string) error {
	if err := r.converter.SetInputFormat(pattern); err != nil {
		return &ConfigError{Setting: "timestamp format", Reason: "invalid pattern", Err: err}
	}
	return nil
}

// Stats returns the counts so far.
func (r *PointReader[P]) Stats() Stats { return r.stats }

// Err returns the error that ended the source, if the source reports one.
func (r *PointReader[P]) Err() error {
	if es, ok := r.source.(errSource); ok {
		return es.Err()
	}
	return nil
}

// Step consumes exactly one row and reports what happened to it. It returns
// false once the source is exhausted.
func (r *PointReader[P]) Step() (RowResult[P], bool) {
	if r.done {
		return RowResult[P]{}, false
	}
	row, ok := r.source.NextRow()
	if !ok {
		r.finish()
		return RowResult[P]{}, false
	}
	r.line++
	res := r.process(row)
	r.record(res)
	return res, true
}

// Next returns the next point, skipping rows that do not produce one.
func (r *PointReader[P]) Next() (P, bool) {
	for {
		res, ok := r.Step()
		if !ok {
			var zero P
			return zero, false
		}
		if res.Outcome == OutcomePoint {
			return res.Point, true
		}
	}
}

// All iterates over the remaining points.
func (r *PointReader[P]) All() iter.Seq[P] {
	return func(yield func(P) bool) {
		for {
			p, ok := r.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Results iterates over the outcome of every remaining row.
func (r *PointReader[P]) Results() iter.Seq[RowResult[P]] {
	return func(yield func(RowResult[P]) bool) {
		for {
			res, ok := r.Step()
			if !ok || !yield(res) {
				return
			}
		}
	}
}

func (r *PointReader[P]) process(row []string) RowResult[P] {
	res := RowResult[P]{Line: r.line}

	if len(row) == 0 {
		res.Outcome = OutcomeEmpty
		return res
	}

	if IsHeader(row) {
		if !r.ignoreHeader {
			h, err := ParseHeader(row)
			if err != nil {
				res.Outcome = OutcomeSkipped
				res.Err = err
				return res
			}
			r.applyHeader(h)
			res.Outcome = OutcomeHeader
			res.Header = &h
			return res
		}
		if r.warnings {
			r.logger.Warn().Int("line", r.line).Msg("Header row found but header processing is disabled; reading it as data")
		}
	}

	if required := r.columns.RequiredTokenCount(); len(row) < required {
		res.Outcome = OutcomeSkipped
		res.Err = &RowError{Line: r.line, Reason: "too few tokens", Tokens: len(row), Required: required}
		return res
	}

	p, err := r.populate(row)
	if err != nil {
		res.Outcome = OutcomeSkipped
		res.Err = err
		return res
	}
	res.Outcome = OutcomePoint
	res.Point = p
	return res
}

func (r *PointReader[P]) applyHeader(h Header) {
	if h.Dimension != r.traits.Dimension && r.warnings {
		r.logger.Warn().
			Int("line", r.line).
			Int("header_dimension", h.Dimension).
			Int("point_dimension", r.traits.Dimension).
			Msg("Header dimension does not match point type")
	}
	if h.Domain != r.traits.Domain && r.warnings {
		r.logger.Warn().
			Int("line", r.line).
			Str("header_domain", h.Domain).
			Msg("Header domain does not match point type")
	}
	if len(h.PropertyNames) > 0 && !r.traits.HasProperties && r.warnings {
		r.logger.Warn().
			Int("line", r.line).
			Int("properties", len(h.PropertyNames)).
			Msg("Header declares properties but the point type cannot hold them")
	}

	r.columns.ConfigureFromHeader(h, h.HasObjectID, h.HasTimestamp)
	r.propertyNames = r.columns.PropertyNames()
}

func (r *PointReader[P]) record(res RowResult[P]) {
	r.stats.Rows++
	switch res.Outcome {
	case OutcomePoint:
		r.stats.Points++
	case OutcomeEmpty:
		r.stats.Empty++
	case OutcomeHeader:
		r.stats.Headers++
		r.logger.Debug().
			Int("line", res.Line).
			Int("dimension", res.Header.Dimension).
			Int("properties", len(res.Header.PropertyNames)).
			Msg("Applied header")
		if r.onSchema != nil {
			r.onSchema(SchemaChange{Line: res.Line, Version: r.stats.Headers, Header: *res.Header})
		}
	case OutcomeSkipped:
		r.stats.Skipped++
		if r.warnings {
			r.logger.Warn().Err(res.Err).Int("line", res.Line).Msg("Skipping row")
		}
		if r.onSkip != nil {
			r.onSkip(res.Line, res.Err)
		}
	}
}

func (r *PointReader[P]) finish() {
	r.done = true
	ev := r.logger.Info()
	if r.quietSummary {
		ev = r.logger.Debug()
	}
	ev.
		Int("rows", r.stats.Rows).
		Int("points", r.stats.Points).
		Int("skipped", r.stats.Skipped).
		Int("headers", r.stats.Headers).
		Msg("Done reading points")
}

func (r *PointReader[P]) populate(row []string) (P, error) {
	var zero P
	p := r.newPoint()

	for i := 0; i < r.traits.Dimension; i++ {
		col := r.columns.CoordinateColumn(i)
		if col == Unassigned {
			continue
		}
		if col < 0 || col >= len(row) {
			return zero, &RowError{Line: r.line, Column: col, Reason: fmt.Sprintf("coordinate %d column out of range", i)}
		}
		text := strings.TrimSpace(row[col])
		if text == "" {
			return zero, &RowError{Line: r.line, Column: col, Reason: fmt.Sprintf("empty coordinate %d", i)}
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return zero, &RowError{
				Line: r.line, Column: col, Token: row[col], Expected: "float64",
				Reason: fmt.Sprintf("coordinate %d", i), Err: err,
			}
		}
		p.SetCoordinate(i, v)
	}

	if r.traits.HasObjectID {
		if col := r.columns.ObjectIDColumn(); col != Unassigned {
			if col < 0 || col >= len(row) {
				return zero, &RowError{Line: r.line, Column: col, Reason: "object id column out of range"}
			}
			any(p).(models.ObjectIDCarrier).SetObjectID(row[col])
		}
	}

	if r.traits.HasTimestamp {
		if col := r.columns.TimestampColumn(); col != Unassigned {
			if col < 0 || col >= len(row) {
				return zero, &RowError{Line: r.line, Column: col, Reason: "timestamp column out of range"}
			}
			ts, err := r.converter.Parse(row[col])
			if err != nil {
				return zero, &RowError{
					Line: r.line, Column: col, Token: row[col], Expected: "timestamp",
					Reason: "timestamp", Err: err,
				}
			}
			any(p).(models.TimestampCarrier).SetTimestamp(ts)
		}
	}

	if r.traits.HasProperties {
		props := any(p).(models.PropertyCarrier).Properties()
		for _, name := range r.propertyNames {
			pc, _ := r.columns.PropertyColumn(name)
			if pc.Column < 0 || pc.Column >= len(row) {
				return zero, &RowError{Line: r.line, Column: pc.Column, Reason: fmt.Sprintf("property %q column out of range", name)}
			}
			text := row[pc.Column]
			if r.converter.IsNull(text) {
				continue
			}
			v, err := ParseValue(text, pc.Kind, r.converter)
			if err != nil {
				return zero, &RowError{
					Line: r.line, Column: pc.Column, Token: text, Expected: pc.Kind.String(),
					Reason: fmt.Sprintf("property %q", name), Err: err,
				}
			}
			props.Set(name, v)
		}
	}

	return p, nil
}
