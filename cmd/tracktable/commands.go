package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atwilso/tracktable/internal/config"
	"github.com/atwilso/tracktable/internal/export"
	"github.com/atwilso/tracktable/internal/logger"
	"github.com/atwilso/tracktable/internal/shutdown"
	"github.com/atwilso/tracktable/pkg/analysis"
	"github.com/atwilso/tracktable/pkg/archive"
	"github.com/atwilso/tracktable/pkg/delimited"
	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/generate"
	"github.com/atwilso/tracktable/pkg/geomath"
	"github.com/atwilso/tracktable/pkg/kml"
	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// cancelCheckInterval is how many points are read between context checks.
const cancelCheckInterval = 4096

// tokenizer builds a row source for r from the reader configuration.
func (a *app) tokenizer(r io.Reader) (*delimited.Tokenizer, error) {
	delim, err := config.SingleChar(a.cfg.Reader.Delimiter)
	if err != nil {
		return nil, err
	}
	quote, err := config.SingleChar(a.cfg.Reader.QuoteChar)
	if err != nil {
		return nil, err
	}
	return delimited.NewTokenizer(r,
		delimited.WithDelimiter(delim),
		delimited.WithQuote(quote),
		delimited.WithComment(a.cfg.Reader.CommentChar),
	), nil
}

// readerOptions translates the reader configuration. Explicit column
// assignments override the default layout for the point type.
func (a *app) readerOptions(component string) ([]delimited.ReaderOption, error) {
	rc := a.cfg.Reader
	conv := timestamp.NewConverter()
	if err := conv.SetInputFormat(rc.TimestampFormat); err != nil {
		return nil, err
	}
	conv.SetNullValue(rc.NullValue)

	opts := []delimited.ReaderOption{
		delimited.WithLogger(logger.Get(component)),
		delimited.WithWarnings(rc.Warnings),
		delimited.WithIgnoreHeader(rc.IgnoreHeader),
		delimited.WithConverter(conv),
	}

	props, err := config.ParsePropertyColumns(rc.PropertyColumns)
	if err != nil {
		return nil, err
	}
	if len(rc.CoordinateColumns) == 0 && len(props) == 0 && rc.ObjectIDColumn < 0 && rc.TimestampColumn < 0 {
		return opts, nil
	}

	traits := a.newPoint().Traits()
	cols := delimited.NewColumnMap(traits.Dimension)
	cols.ConfigureFromHeader(delimited.Header{Domain: traits.Domain, Dimension: traits.Dimension},
		traits.HasObjectID, traits.HasTimestamp)
	if len(rc.CoordinateColumns) > traits.Dimension {
		return nil, fmt.Errorf("reader.coordinate_columns has %d entries for a %d-dimensional domain",
			len(rc.CoordinateColumns), traits.Dimension)
	}
	for i, c := range rc.CoordinateColumns {
		if err := cols.AssignCoordinate(i, c); err != nil {
			return nil, err
		}
	}
	if rc.ObjectIDColumn >= 0 {
		if err := cols.AssignObjectID(rc.ObjectIDColumn); err != nil {
			return nil, err
		}
	}
	if rc.TimestampColumn >= 0 {
		if err := cols.AssignTimestamp(rc.TimestampColumn); err != nil {
			return nil, err
		}
	}
	for _, p := range props {
		if err := cols.AssignProperty(p.Name, p.Column, p.Kind); err != nil {
			return nil, err
		}
	}
	return append(opts, delimited.WithColumns(cols)), nil
}

// writerConfig translates the writer configuration.
func (a *app) writerConfig() (delimited.WriterConfig, error) {
	wc := delimited.DefaultWriterConfig()
	var err error
	if wc.Delimiter, err = config.SingleChar(a.cfg.Writer.Delimiter); err != nil {
		return wc, err
	}
	if wc.Quote, err = config.SingleChar(a.cfg.Writer.QuoteChar); err != nil {
		return wc, err
	}
	wc.Precision = a.cfg.Writer.CoordinatePrecision
	wc.WriteHeader = a.cfg.Writer.WriteHeader

	conv := timestamp.NewConverter()
	if err := conv.SetOutputFormat(a.cfg.Writer.TimestampFormat); err != nil {
		return wc, err
	}
	conv.SetNullValue(a.cfg.Writer.NullValue)
	wc.Converter = conv
	return wc, nil
}

// fileResult is what reading one point file produced.
type fileResult struct {
	path    string
	points  []models.Point
	stats   delimited.Stats
	schemas int
	box     geomath.Box
}

// readPoints reads one point file. With keep false points are counted but
// not retained.
func (a *app) readPoints(ctx context.Context, path string, keep bool) (fileResult, error) {
	res := fileResult{path: path}
	in, err := openInput(path)
	if err != nil {
		return res, err
	}
	defer in.Close()

	tok, err := a.tokenizer(in)
	if err != nil {
		return res, err
	}
	opts, err := a.readerOptions("point-reader")
	if err != nil {
		return res, err
	}
	opts = append(opts, delimited.OnSchemaChange(func(delimited.SchemaChange) { res.schemas++ }))

	r, err := delimited.NewPointReader(a.newPoint, tok, opts...)
	if err != nil {
		return res, err
	}

	n := 0
	for p := range r.All() {
		res.box.Extend(p)
		if keep {
			res.points = append(res.points, p)
		}
		n++
		if n%cancelCheckInterval == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	if err := r.Err(); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	res.stats = r.Stats()
	return res, nil
}

// readAll reads files concurrently, at most cli.workers at a time, and
// returns results in input order.
func (a *app) readAll(ctx context.Context, paths []string, keep bool) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.CLI.Workers)
	for i, path := range paths {
		g.Go(func() error {
			res, err := a.readPoints(gctx, path, keep)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func formatBox(b geomath.Box) string {
	if b.Empty() {
		return "-"
	}
	parts := make([]string, len(b.Min))
	for i := range b.Min {
		parts[i] = fmt.Sprintf("[%g, %g]", b.Min[i], b.Max[i])
	}
	return strings.Join(parts, " ")
}

// runStats prints point counts, skipped rows, schema changes and the
// bounding box of each file.
func runStats(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (err error) {
	ctx, stop, err := a.setup(ctx, fs, args)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { err = a.finish(ctx, err) }()

	if fs.NArg() == 0 {
		return fmt.Errorf("stats: no input files")
	}
	results, err := a.readAll(ctx, fs.Args(), false)
	if err != nil {
		return err
	}
	for _, r := range results {
		a.printf("%s\tpoints=%d\tskipped=%d\tschemas=%d\tbox=%s\n",
			r.path, r.stats.Points, r.stats.Skipped, r.schemas, formatBox(r.box))
	}
	return nil
}

// runConvert rewrites one point file as delimited text or Parquet.
func runConvert(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (err error) {
	out := fs.String("out", "-", "output file (- for stdout)")
	format := fs.String("format", "csv", "output format: csv or parquet")
	ctx, stop, err := a.setup(ctx, fs, args)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { err = a.finish(ctx, err) }()

	if fs.NArg() != 1 {
		return fmt.Errorf("convert: exactly one input file required")
	}
	res, err := a.readPoints(ctx, fs.Arg(0), true)
	if err != nil {
		return err
	}

	w, err := a.createOutput(*out)
	if err != nil {
		return err
	}

	switch *format {
	case "csv", "text":
		wc, err := a.writerConfig()
		if err != nil {
			return err
		}
		pw := delimited.NewPointWriter[models.Point](w, wc, logger.Get("point-writer"))
		a.shutdown.Register("point writer", closerFunc(pw.Flush), shutdown.PriorityWriters)
		for _, p := range res.points {
			if err := pw.Write(p); err != nil {
				return err
			}
		}
		a.logger.Info().Int("points", pw.Count()).Str("out", *out).Msg("Converted points")
	case "parquet":
		pq, err := export.NewParquetWriter(export.Config{
			Compression:     a.cfg.Export.Compression,
			UseDictionary:   a.cfg.Export.UseDictionary,
			WriteStatistics: a.cfg.Export.WriteStatistics,
			DataPageVersion: a.cfg.Export.DataPageVersion,
		}, logger.Get("export"))
		if err != nil {
			return err
		}
		n, err := export.WritePoints(ctx, pq, w, res.points)
		if err != nil {
			return err
		}
		a.logger.Info().Int("points", n).Str("out", *out).Msg("Exported points")
	default:
		return fmt.Errorf("convert: unknown format %q", *format)
	}
	return nil
}

// kmlWriter builds a KML writer from the kml configuration.
func (a *app) kmlWriter(w io.Writer) (*kml.Writer[models.Point], error) {
	if a.domain != models.DomainTerrestrial {
		return nil, fmt.Errorf("%w: domain %s", kml.ErrNotTerrestrial, a.domain)
	}
	geometry, err := kml.ParseGeometry(a.cfg.KML.Geometry)
	if err != nil {
		return nil, err
	}
	return kml.NewWriter[models.Point](w, kml.Config{
		Color:            a.cfg.KML.Color,
		Width:            a.cfg.KML.Width,
		Geometry:         geometry,
		AltitudeProperty: a.cfg.KML.AltitudeProperty,
		Logger:           logger.Get("kml"),
	})
}

// runAssemble builds trajectories from point files and writes them as
// trajectory text, a binary archive or KML.
func runAssemble(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (err error) {
	out := fs.String("out", "-", "output file (- for stdout)")
	format := fs.String("format", "text", "output format: text, archive or kml")
	ctx, stop, err := a.setup(ctx, fs, args)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { err = a.finish(ctx, err) }()

	if fs.NArg() == 0 {
		return fmt.Errorf("assemble: no input files")
	}

	ac := a.cfg.Assembly
	asm, err := analysis.NewAssembler[models.Point](analysis.AssemblerConfig{
		SeparationTime:     ac.SeparationTime,
		SeparationDistance: ac.SeparationDistance,
		MinimumPoints:      ac.MinimumPoints,
		CleanupInterval:    ac.CleanupInterval,
	}, logger.Get("assembler"))
	if err != nil {
		return err
	}

	// Files are read concurrently; points are fed to the assembler in
	// input order.
	results, err := a.readAll(ctx, fs.Args(), true)
	if err != nil {
		return err
	}

	w, err := a.createOutput(*out)
	if err != nil {
		return err
	}
	var write func(*models.Trajectory[models.Point]) error
	switch *format {
	case "text", "csv":
		wc, err := a.writerConfig()
		if err != nil {
			return err
		}
		tw := delimited.NewTrajectoryWriter[models.Point](w, wc, logger.Get("trajectory-writer"))
		a.shutdown.Register("trajectory writer", closerFunc(tw.Flush), shutdown.PriorityWriters)
		write = tw.Write
	case "archive":
		comp, err := archive.ParseCompression(a.cfg.Archive.Compression)
		if err != nil {
			return err
		}
		aw, err := archive.NewWriter(w, archive.WriterConfig{Compression: comp, Logger: logger.Get("archive")})
		if err != nil {
			return err
		}
		a.shutdown.Register("archive writer", aw, shutdown.PriorityWriters)
		write = func(t *models.Trajectory[models.Point]) error { return archive.WriteTrajectory(aw, t) }
	case "kml":
		kw, err := a.kmlWriter(w)
		if err != nil {
			return err
		}
		a.shutdown.Register("kml writer", kw, shutdown.PriorityWriters)
		write = kw.Write
	default:
		return fmt.Errorf("assemble: unknown format %q", *format)
	}

	points := func(yield func(models.Point) bool) {
		for _, r := range results {
			for _, p := range r.points {
				if !yield(p) {
					return
				}
			}
		}
	}

	var addErr error
	for traj := range asm.Assemble(points, &addErr) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(traj); err != nil {
			return err
		}
	}
	if addErr != nil {
		return addErr
	}

	st := asm.Stats()
	a.logger.Info().
		Int("points", st.Points).
		Int("trajectories", st.Trajectories).
		Int("discarded", st.Discarded).
		Str("out", *out).
		Msg("Assembled trajectories")
	return nil
}

// runTrajectories prints per-trajectory measures from a trajectory text
// file or an archive.
func runTrajectories(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (err error) {
	ctx, stop, err := a.setup(ctx, fs, args)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { err = a.finish(ctx, err) }()

	if fs.NArg() != 1 {
		return fmt.Errorf("trajectories: exactly one input file required")
	}
	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	br := bufio.NewReader(in)
	magic, _ := br.Peek(len(archive.Magic))
	if bytes.Equal(magic, archive.Magic) {
		return a.summarizeArchive(ctx, br)
	}
	return a.summarizeText(ctx, br)
}

func (a *app) summarizeText(ctx context.Context, r io.Reader) error {
	tok, err := a.tokenizer(r)
	if err != nil {
		return err
	}
	opts, err := a.readerOptions("trajectory-reader")
	if err != nil {
		return err
	}
	tr, err := delimited.NewTrajectoryReader(a.newPoint, tok, opts...)
	if err != nil {
		return err
	}
	for traj := range tr.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.printTrajectory(traj)
	}
	return tr.Err()
}

func (a *app) summarizeArchive(ctx context.Context, r io.Reader) error {
	ar, err := archive.NewReader(r, logger.Get("archive"))
	if err != nil {
		return err
	}
	defer ar.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := ar.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		// Archives record their domain; -domain only overrides it.
		newPoint := a.newPoint
		if !a.domainSet {
			if newPoint, err = domain.Factory(entry.Record.Domain); err != nil {
				return err
			}
		}
		traj, err := archive.ToTrajectory(entry.Record, newPoint)
		if err != nil {
			a.logger.Warn().Err(err).Str("uuid", entry.Record.UUID).Msg("Skipping archive record")
			continue
		}
		a.printTrajectory(traj)
	}
	if ar.CorruptedEntries > 0 {
		a.logger.Warn().Int64("corrupted", ar.CorruptedEntries).Msg("Archive had corrupted entries")
	}
	return nil
}

// measure formats a measure, or "-" when the domain does not support it.
func measure(v float64, err error) string {
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}

func (a *app) printTrajectory(t *models.Trajectory[models.Point]) {
	length, lerr := geomath.Length(t)
	rog, rerr := geomath.RadiusOfGyration(t)
	area, aerr := geomath.ConvexHullArea(t)
	a.printf("%s\tobject=%s\tpoints=%d\tlength=%s\tduration=%s\tradius_of_gyration=%s\thull_area=%s\n",
		t.UUID(), t.ObjectID(), t.Len(),
		measure(length, lerr), t.Duration().Round(time.Second), measure(rog, rerr), measure(area, aerr))
}

// runGenerate writes synthetic terrestrial points for one or more objects,
// merged in timestamp order.
func runGenerate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (err error) {
	out := fs.String("out", "-", "output file (- for stdout)")
	pattern := fs.String("pattern", "straight", "flight pattern: straight, circle or grid")
	count := fs.Int("count", 100, "points per object")
	objects := fs.Int("objects", 1, "number of objects")
	lon := fs.Float64("lon", 0, "start longitude")
	lat := fs.Float64("lat", 0, "start latitude")
	heading := fs.Float64("heading", 0, "initial heading in degrees clockwise from north")
	speed := fs.Float64("speed", generate.DefaultSpeed, "speed in m/s")
	interval := fs.Duration("interval", generate.DefaultInterval, "time between points")
	start := fs.String("start", "2000-01-01 00:00:00", "first timestamp")
	ctx, stop, err := a.setup(ctx, fs, args)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { err = a.finish(ctx, err) }()

	if a.domain != models.DomainTerrestrial {
		return fmt.Errorf("generate: only terrestrial points are supported, got %s", a.domain)
	}
	if *count < 0 || *objects < 1 {
		return fmt.Errorf("generate: need a non-negative count and at least one object")
	}
	when, err := timestamp.NewConverter().Parse(*start)
	if err != nil {
		return fmt.Errorf("generate: -start: %w", err)
	}

	gens := make([]*generate.Generator, *objects)
	for i := range gens {
		steering, err := generate.ParseSteering(*pattern)
		if err != nil {
			return err
		}
		cfg := generate.DefaultConfig()
		cfg.ObjectID = fmt.Sprintf("object%03d", i)
		cfg.Start = when
		cfg.Longitude, cfg.Latitude = *lon, *lat
		// Objects share a start and fan out on evenly spaced headings.
		cfg.Heading = *heading + float64(i)*360/float64(*objects)
		cfg.Speed = *speed
		cfg.Interval = *interval
		cfg.Steering = steering
		cfg.Logger = logger.Get("generate")
		if gens[i], err = generate.New(cfg); err != nil {
			return err
		}
	}

	w, err := a.createOutput(*out)
	if err != nil {
		return err
	}
	wc, err := a.writerConfig()
	if err != nil {
		return err
	}
	pw := delimited.NewPointWriter[*domain.TerrestrialTrajectoryPoint](w, wc, logger.Get("point-writer"))
	a.shutdown.Register("point writer", closerFunc(pw.Flush), shutdown.PriorityWriters)
	for p := range generate.Collate(*count, gens...) {
		if pw.Count()%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := pw.Write(p); err != nil {
			return err
		}
	}
	a.logger.Info().
		Int("points", pw.Count()).
		Int("objects", *objects).
		Str("pattern", *pattern).
		Str("out", *out).
		Msg("Generated points")
	return nil
}
