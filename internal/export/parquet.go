// Package export writes points to columnar Parquet files through Arrow.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/models"
)

// Column names for the annotation columns.
const (
	ObjectIDColumn  = "object_id"
	TimestampColumn = "timestamp"
)

// DefaultBatchRows is the number of rows per Arrow record batch.
const DefaultBatchRows = 64 * 1024

// sharedAllocator is safe for concurrent use.
var sharedAllocator = memory.NewGoAllocator()

var timestampType = arrow.FixedWidthTypes.Timestamp_us.(*arrow.TimestampType)

// Config controls the Parquet encoding.
type Config struct {
	Compression     string // snappy, gzip, zstd or none
	UseDictionary   bool
	WriteStatistics bool
	DataPageVersion string // "1.0" or "2.0"
	BatchRows       int
}

// DefaultConfig returns snappy compression with dictionaries and statistics.
func DefaultConfig() Config {
	return Config{
		Compression:     "snappy",
		UseDictionary:   true,
		WriteStatistics: true,
		DataPageVersion: "1.0",
		BatchRows:       DefaultBatchRows,
	}
}

// ParseCompression maps a codec name to its Parquet codec.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown parquet compression %q", name)
}

// ParquetWriter encodes point sets as Parquet files.
type ParquetWriter struct {
	compression     compress.Compression
	useDictionary   bool
	writeStatistics bool
	dataPageVersion string
	batchRows       int

	logger zerolog.Logger
}

// NewParquetWriter creates a writer from cfg.
func NewParquetWriter(cfg Config, logger zerolog.Logger) (*ParquetWriter, error) {
	comp, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	batch := cfg.BatchRows
	if batch <= 0 {
		batch = DefaultBatchRows
	}
	return &ParquetWriter{
		compression:     comp,
		useDictionary:   cfg.UseDictionary,
		writeStatistics: cfg.WriteStatistics,
		dataPageVersion: cfg.DataPageVersion,
		batchRows:       batch,
		logger:          logger.With().Str("component", "parquet-writer").Logger(),
	}, nil
}

// propertyColumn is one property's name and Arrow-facing kind.
type propertyColumn struct {
	name string
	kind models.PropertyKind
}

// layout describes the columns for one point set.
type layout struct {
	traits      models.Traits
	coordinates []string
	properties  []propertyColumn
}

// layoutFor scans points for the union of property names. The first kind
// seen for a name wins; values of other kinds are written as null.
func layoutFor[P models.Point](points []P) (layout, error) {
	if len(points) == 0 {
		return layout{}, fmt.Errorf("no points to export")
	}
	traits := points[0].Traits()
	l := layout{traits: traits, coordinates: domain.CoordinateNames(traits)}

	if traits.HasProperties {
		kinds := make(map[string]models.PropertyKind)
		for _, p := range points {
			props := models.PropertiesOf(p)
			if props == nil {
				continue
			}
			for name, v := range props.All() {
				if _, ok := kinds[name]; !ok {
					kinds[name] = v.Kind()
				}
			}
		}
		names := make([]string, 0, len(kinds))
		for name := range kinds {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if reservedColumn(name, l.coordinates) {
				return layout{}, fmt.Errorf("property %q collides with a point column", name)
			}
			l.properties = append(l.properties, propertyColumn{name: name, kind: kinds[name]})
		}
	}
	return l, nil
}

func reservedColumn(name string, coordinates []string) bool {
	if name == ObjectIDColumn || name == TimestampColumn {
		return true
	}
	for _, c := range coordinates {
		if c == name {
			return true
		}
	}
	return false
}

func arrowType(kind models.PropertyKind) arrow.DataType {
	switch kind {
	case models.KindInteger:
		return arrow.PrimitiveTypes.Int64
	case models.KindString:
		return arrow.BinaryTypes.String
	case models.KindTimestamp:
		return timestampType
	}
	return arrow.PrimitiveTypes.Float64
}

// Schema returns the Arrow schema for l. Annotation columns come first,
// then coordinates, then properties sorted by name.
func (l layout) Schema() *arrow.Schema {
	var fields []arrow.Field
	if l.traits.HasObjectID {
		fields = append(fields, arrow.Field{Name: ObjectIDColumn, Type: arrow.BinaryTypes.String})
	}
	if l.traits.HasTimestamp {
		fields = append(fields, arrow.Field{Name: TimestampColumn, Type: timestampType})
	}
	for _, name := range l.coordinates {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}
	for _, pc := range l.properties {
		fields = append(fields, arrow.Field{Name: pc.name, Type: arrowType(pc.kind), Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord converts points into one Arrow record. The caller releases it.
func buildRecord[P models.Point](mem memory.Allocator, schema *arrow.Schema, l layout, points []P) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, p := range points {
		col := 0
		if l.traits.HasObjectID {
			b.Field(col).(*array.StringBuilder).Append(models.ObjectIDOf(p))
			col++
		}
		if l.traits.HasTimestamp {
			ts, _ := models.TimestampOf(p)
			b.Field(col).(*array.TimestampBuilder).Append(arrow.Timestamp(ts.UnixMicro()))
			col++
		}
		for i := range l.coordinates {
			b.Field(col).(*array.Float64Builder).Append(p.Coordinate(i))
			col++
		}
		props := models.PropertiesOf(p)
		for _, pc := range l.properties {
			appendProperty(b.Field(col), pc, props)
			col++
		}
	}
	return b.NewRecord()
}

func appendProperty(fb array.Builder, pc propertyColumn, props *models.PropertyMap) {
	var v models.PropertyValue
	ok := false
	if props != nil {
		v, ok = props.Get(pc.name)
	}
	if !ok || v.Kind() != pc.kind {
		fb.AppendNull()
		return
	}
	switch pc.kind {
	case models.KindReal:
		x, _ := v.Real()
		fb.(*array.Float64Builder).Append(x)
	case models.KindInteger:
		x, _ := v.Integer()
		fb.(*array.Int64Builder).Append(x)
	case models.KindString:
		x, _ := v.Str()
		fb.(*array.StringBuilder).Append(x)
	case models.KindTimestamp:
		x, _ := v.Time()
		fb.(*array.TimestampBuilder).Append(arrow.Timestamp(x.UnixMicro()))
	default:
		fb.AppendNull()
	}
}

func (w *ParquetWriter) writerProperties() *parquet.WriterProperties {
	opts := []parquet.WriterProperty{
		parquet.WithCompression(w.compression),
		parquet.WithDictionaryDefault(w.useDictionary),
		parquet.WithStats(w.writeStatistics),
	}
	if w.dataPageVersion == "2.0" {
		opts = append(opts, parquet.WithDataPageVersion(parquet.DataPageV2))
	}
	return parquet.NewWriterProperties(opts...)
}

// WritePoints writes points to out as one Parquet file in record batches
// and returns the number of rows written. All points must share a domain.
func WritePoints[P models.Point](ctx context.Context, w *ParquetWriter, out io.Writer, points []P) (int, error) {
	start := time.Now()
	l, err := layoutFor(points)
	if err != nil {
		return 0, err
	}
	schema := l.Schema()

	fw, err := pqarrow.NewFileWriter(schema, out, w.writerProperties(),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return 0, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	rows := 0
	for lo := 0; lo < len(points); lo += w.batchRows {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return rows, err
		}
		hi := min(lo+w.batchRows, len(points))
		for _, p := range points[lo:hi] {
			if p.Traits().Domain != l.traits.Domain {
				fw.Close()
				return rows, fmt.Errorf("point domain %q does not match %q", p.Traits().Domain, l.traits.Domain)
			}
		}
		rec := buildRecord(sharedAllocator, schema, l, points[lo:hi])
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return rows, fmt.Errorf("failed to write record batch: %w", err)
		}
		rows += hi - lo
	}

	if err := fw.Close(); err != nil {
		return rows, fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	w.logger.Debug().
		Int("columns", len(schema.Fields())).
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("Wrote Parquet file")
	return rows, nil
}
