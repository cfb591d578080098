package delimited

import (
	"bufio"
	"io"
	"iter"
	"slices"

	"github.com/rs/zerolog"

	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// WriterConfig controls the output of point and trajectory writers.
type WriterConfig struct {
	Delimiter   byte
	Quote       byte
	Precision   int
	WriteHeader bool
	Converter   *timestamp.Converter
}

// DefaultWriterConfig writes comma separated rows with headers.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Delimiter:   ',',
		Quote:       '"',
		Precision:   DefaultPrecision,
		WriteHeader: true,
		Converter:   timestamp.NewConverter(),
	}
}

// rowEncoder turns points into tokens under a fixed header. It is shared
// by the point and trajectory writers.
type rowEncoder struct {
	conv      *timestamp.Converter
	precision int
}

// encode appends the data row for p under layout h. Properties h names
// that p lacks are written as the null marker; extra ones are dropped.
func (e rowEncoder) encode(dst []string, p models.Point, h Header) []string {
	traits := p.Traits()
	if h.HasObjectID {
		dst = append(dst, models.ObjectIDOf(p))
	}
	if h.HasTimestamp {
		if ts, ok := models.TimestampOf(p); ok {
			dst = append(dst, e.conv.Format(ts))
		} else {
			dst = append(dst, e.conv.NullValue())
		}
	}
	for i := 0; i < h.Dimension; i++ {
		if i < traits.Dimension {
			dst = append(dst, FormatReal(p.Coordinate(i), e.precision))
		} else {
			dst = append(dst, e.conv.NullValue())
		}
	}
	props := models.PropertiesOf(p)
	for _, name := range h.PropertyNames {
		v, _ := props.Get(name)
		dst = append(dst, FormatValue(v, e.conv, e.precision))
	}
	return dst
}

func sameLayout(a, b Header) bool {
	return a.Domain == b.Domain &&
		a.Dimension == b.Dimension &&
		a.HasObjectID == b.HasObjectID &&
		a.HasTimestamp == b.HasTimestamp &&
		slices.Equal(a.PropertyNames, b.PropertyNames) &&
		slices.Equal(a.PropertyKinds, b.PropertyKinds)
}

// PointWriter writes points as delimited rows. With WriteHeader set it
// emits a header before the first point and again whenever the layout of
// the next point differs. Without it every row follows the first point's
// layout.
type PointWriter[P models.Point] struct {
	out     *bufio.Writer
	cfg     WriterConfig
	enc     rowEncoder
	header  Header
	started bool
	count   int
	buf     []string
	logger  zerolog.Logger
}

// NewPointWriter creates a writer on w. Call Flush when done.
func NewPointWriter[P models.Point](w io.Writer, cfg WriterConfig, logger zerolog.Logger) *PointWriter[P] {
	if cfg.Converter == nil {
		cfg.Converter = timestamp.NewConverter()
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &PointWriter[P]{
		out:    bufio.NewWriter(w),
		cfg:    cfg,
		enc:    rowEncoder{conv: cfg.Converter, precision: cfg.Precision},
		logger: logger.With().Str("component", "point-writer").Logger(),
	}
}

// Tokens returns the data row for p under its own layout.
func (w *PointWriter[P]) Tokens(p P) []string {
	return w.enc.encode(nil, p, HeaderFor(p))
}

// Write writes one point.
func (w *PointWriter[P]) Write(p P) error {
	h := HeaderFor(p)
	switch {
	case !w.started:
		w.header = h
		w.started = true
		if w.cfg.WriteHeader {
			if err := joinRow(w.out, h.Tokens(), w.cfg.Delimiter, w.cfg.Quote); err != nil {
				return err
			}
		}
	case w.cfg.WriteHeader && !sameLayout(h, w.header):
		w.logger.Debug().Int("point", w.count).Msg("Point layout changed, writing new header")
		w.header = h
		if err := joinRow(w.out, h.Tokens(), w.cfg.Delimiter, w.cfg.Quote); err != nil {
			return err
		}
	}

	w.buf = w.enc.encode(w.buf[:0], p, w.header)
	if err := joinRow(w.out, w.buf, w.cfg.Delimiter, w.cfg.Quote); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteAll writes every point in seq and returns how many were written.
func (w *PointWriter[P]) WriteAll(seq iter.Seq[P]) (int, error) {
	n := 0
	for p := range seq {
		if err := w.Write(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Count is the number of points written so far.
func (w *PointWriter[P]) Count() int { return w.count }

// Flush writes any buffered output.
func (w *PointWriter[P]) Flush() error { return w.out.Flush() }
