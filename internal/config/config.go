package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/atwilso/tracktable/pkg/kml"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// Config holds all configuration for tracktable
type Config struct {
	Log      LogConfig
	Reader   ReaderConfig
	Writer   WriterConfig
	Assembly AssemblyConfig
	Export   ExportConfig
	Archive  ArchiveConfig
	KML      KMLConfig
	CLI      CLIConfig
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type ReaderConfig struct {
	Delimiter       string
	CommentChar     string
	QuoteChar       string
	NullValue       string
	TimestampFormat string
	IgnoreHeader    bool
	Warnings        bool
	// Explicit column assignments, used when IgnoreHeader is set or the
	// input has no header. -1 leaves the field unassigned.
	ObjectIDColumn    int
	TimestampColumn   int
	CoordinateColumns []int
	PropertyColumns   []string // "name:column:kind"
}

type WriterConfig struct {
	Delimiter           string
	QuoteChar           string
	NullValue           string
	TimestampFormat     string
	CoordinatePrecision int // -1 for shortest round-trip text
	WriteHeader         bool
}

type AssemblyConfig struct {
	SeparationTime     time.Duration
	SeparationDistance float64
	MinimumPoints      int
	CleanupInterval    int
}

type ExportConfig struct {
	Compression     string // Parquet compression: snappy, gzip, zstd, none
	UseDictionary   bool
	WriteStatistics bool
	DataPageVersion string // 1.0 or 2.0
}

type ArchiveConfig struct {
	Compression string // none or zstd
}

type KMLConfig struct {
	Color            string // aabbggrr; empty picks a random color per trajectory
	Width            float64
	Geometry         string // line, points or line+points
	AltitudeProperty string
}

type CLIConfig struct {
	Workers int
}

// Load reads configuration from defaults, an optional TOML file and
// TRACKTABLE_* environment variables. An empty path searches the default
// locations; a missing file is not an error unless path names it.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TRACKTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tracktable")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tracktable/")
		v.AddConfigPath("$HOME/.tracktable/")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// Config file not found is OK, use defaults
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Reader: ReaderConfig{
			Delimiter:         v.GetString("reader.delimiter"),
			CommentChar:       v.GetString("reader.comment_char"),
			QuoteChar:         v.GetString("reader.quote_char"),
			NullValue:         v.GetString("reader.null_value"),
			TimestampFormat:   v.GetString("reader.timestamp_format"),
			IgnoreHeader:      v.GetBool("reader.ignore_header"),
			Warnings:          v.GetBool("reader.warnings"),
			ObjectIDColumn:    v.GetInt("reader.object_id_column"),
			TimestampColumn:   v.GetInt("reader.timestamp_column"),
			CoordinateColumns: v.GetIntSlice("reader.coordinate_columns"),
			PropertyColumns:   v.GetStringSlice("reader.property_columns"),
		},
		Writer: WriterConfig{
			Delimiter:           v.GetString("writer.delimiter"),
			QuoteChar:           v.GetString("writer.quote_char"),
			NullValue:           v.GetString("writer.null_value"),
			TimestampFormat:     v.GetString("writer.timestamp_format"),
			CoordinatePrecision: v.GetInt("writer.coordinate_precision"),
			WriteHeader:         v.GetBool("writer.write_header"),
		},
		Assembly: AssemblyConfig{
			SeparationTime:     v.GetDuration("assembly.separation_time"),
			SeparationDistance: v.GetFloat64("assembly.separation_distance"),
			MinimumPoints:      v.GetInt("assembly.minimum_points"),
			CleanupInterval:    v.GetInt("assembly.clean_up_interval"),
		},
		Export: ExportConfig{
			Compression:     v.GetString("export.compression"),
			UseDictionary:   v.GetBool("export.use_dictionary"),
			WriteStatistics: v.GetBool("export.write_statistics"),
			DataPageVersion: v.GetString("export.data_page_version"),
		},
		Archive: ArchiveConfig{
			Compression: v.GetString("archive.compression"),
		},
		KML: KMLConfig{
			Color:            v.GetString("kml.color"),
			Width:            v.GetFloat64("kml.width"),
			Geometry:         v.GetString("kml.geometry"),
			AltitudeProperty: v.GetString("kml.altitude_property"),
		},
		CLI: CLIConfig{
			Workers: v.GetInt("cli.workers"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Reader defaults
	v.SetDefault("reader.delimiter", ",")
	v.SetDefault("reader.comment_char", "#")
	v.SetDefault("reader.quote_char", `"`)
	v.SetDefault("reader.null_value", "")
	v.SetDefault("reader.timestamp_format", timestamp.DefaultFormat)
	v.SetDefault("reader.ignore_header", false)
	v.SetDefault("reader.warnings", true)
	v.SetDefault("reader.object_id_column", -1)
	v.SetDefault("reader.timestamp_column", -1)
	v.SetDefault("reader.coordinate_columns", []int{})
	v.SetDefault("reader.property_columns", []string{})

	// Writer defaults
	v.SetDefault("writer.delimiter", ",")
	v.SetDefault("writer.quote_char", `"`)
	v.SetDefault("writer.null_value", "")
	v.SetDefault("writer.timestamp_format", timestamp.DefaultFormat)
	v.SetDefault("writer.coordinate_precision", -1)
	v.SetDefault("writer.write_header", true)

	// Assembly defaults; a zero distance disables the distance split
	v.SetDefault("assembly.separation_time", "30m")
	v.SetDefault("assembly.separation_distance", 0.0)
	v.SetDefault("assembly.minimum_points", 2)
	v.SetDefault("assembly.clean_up_interval", 10000)

	// Export defaults
	v.SetDefault("export.compression", "snappy")
	v.SetDefault("export.use_dictionary", true)
	v.SetDefault("export.write_statistics", true)
	v.SetDefault("export.data_page_version", "1.0")

	v.SetDefault("archive.compression", "zstd")

	v.SetDefault("kml.color", "")
	v.SetDefault("kml.width", kml.DefaultWidth)
	v.SetDefault("kml.geometry", "line")
	v.SetDefault("kml.altitude_property", "altitude")

	v.SetDefault("cli.workers", getDefaultWorkers())
}

func getDefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > 8 {
		return 8
	}
	return workers
}

// Validate checks settings that would otherwise fail deep inside a reader
// or writer.
func (cfg *Config) Validate() error {
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format)
	}

	for _, c := range []struct{ key, val string }{
		{"reader.delimiter", cfg.Reader.Delimiter},
		{"reader.quote_char", cfg.Reader.QuoteChar},
		{"writer.delimiter", cfg.Writer.Delimiter},
		{"writer.quote_char", cfg.Writer.QuoteChar},
	} {
		if _, err := SingleChar(c.val); err != nil {
			return fmt.Errorf("%s: %w", c.key, err)
		}
	}
	if cfg.Reader.Delimiter == cfg.Reader.QuoteChar {
		return fmt.Errorf("reader.delimiter and reader.quote_char must differ")
	}
	if cfg.Writer.Delimiter == cfg.Writer.QuoteChar {
		return fmt.Errorf("writer.delimiter and writer.quote_char must differ")
	}

	for _, c := range []struct{ key, val string }{
		{"reader.timestamp_format", cfg.Reader.TimestampFormat},
		{"writer.timestamp_format", cfg.Writer.TimestampFormat},
	} {
		if err := timestamp.ValidatePattern(c.val); err != nil {
			return fmt.Errorf("%s: %w", c.key, err)
		}
	}

	if _, err := ParsePropertyColumns(cfg.Reader.PropertyColumns); err != nil {
		return fmt.Errorf("reader.property_columns: %w", err)
	}

	if p := cfg.Writer.CoordinatePrecision; p != -1 && (p < 1 || p > 17) {
		return fmt.Errorf("writer.coordinate_precision must be -1 or between 1 and 17, got %d", p)
	}

	if cfg.Assembly.SeparationTime < 0 {
		return fmt.Errorf("assembly.separation_time cannot be negative")
	}
	if cfg.Assembly.SeparationDistance < 0 {
		return fmt.Errorf("assembly.separation_distance cannot be negative")
	}
	if cfg.Assembly.MinimumPoints < 1 {
		return fmt.Errorf("assembly.minimum_points must be at least 1")
	}
	if cfg.Assembly.CleanupInterval < 0 {
		return fmt.Errorf("assembly.clean_up_interval cannot be negative")
	}

	switch strings.ToLower(cfg.Export.Compression) {
	case "snappy", "gzip", "zstd", "none":
	default:
		return fmt.Errorf("export.compression must be snappy, gzip, zstd or none, got %q", cfg.Export.Compression)
	}
	switch cfg.Export.DataPageVersion {
	case "1.0", "2.0":
	default:
		return fmt.Errorf("export.data_page_version must be 1.0 or 2.0, got %q", cfg.Export.DataPageVersion)
	}
	switch strings.ToLower(cfg.Archive.Compression) {
	case "none", "zstd":
	default:
		return fmt.Errorf("archive.compression must be none or zstd, got %q", cfg.Archive.Compression)
	}

	if cfg.KML.Color != "" && !kml.ValidColor(cfg.KML.Color) {
		return fmt.Errorf("kml.color must be an aabbggrr hex color, got %q", cfg.KML.Color)
	}
	if cfg.KML.Width <= 0 {
		return fmt.Errorf("kml.width must be positive")
	}
	if _, err := kml.ParseGeometry(cfg.KML.Geometry); err != nil {
		return fmt.Errorf("kml.geometry: %w", err)
	}

	if cfg.CLI.Workers < 1 {
		return fmt.Errorf("cli.workers must be at least 1, got %d", cfg.CLI.Workers)
	}
	return nil
}

// SingleChar returns the only byte of s, which must be one printable ASCII
// character or a tab.
func SingleChar(s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("must be a single character, got %q", s)
	}
	c := s[0]
	if c != '\t' && (c < 0x20 || c > 0x7e) {
		return 0, fmt.Errorf("must be a printable ASCII character, got %q", s)
	}
	return c, nil
}
