package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atwilso/tracktable/pkg/models"
)

// inEmptyDir runs the test from a directory with no config file.
func inEmptyDir(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad_Defaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaults error = %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if cfg.Reader.Delimiter != "," || cfg.Reader.CommentChar != "#" || cfg.Reader.QuoteChar != `"` {
		t.Errorf("Reader punctuation = %q %q %q", cfg.Reader.Delimiter, cfg.Reader.CommentChar, cfg.Reader.QuoteChar)
	}
	if !cfg.Reader.Warnings {
		t.Error("Reader.Warnings should default to true")
	}
	if cfg.Reader.ObjectIDColumn != -1 || cfg.Reader.TimestampColumn != -1 {
		t.Errorf("Reader annotation columns = %d/%d, want -1/-1", cfg.Reader.ObjectIDColumn, cfg.Reader.TimestampColumn)
	}
	if cfg.Writer.CoordinatePrecision != -1 {
		t.Errorf("Writer.CoordinatePrecision = %d, want -1", cfg.Writer.CoordinatePrecision)
	}
	if cfg.Assembly.SeparationTime != 30*time.Minute {
		t.Errorf("Assembly.SeparationTime = %v, want 30m", cfg.Assembly.SeparationTime)
	}
	if cfg.Assembly.MinimumPoints != 2 {
		t.Errorf("Assembly.MinimumPoints = %d, want 2", cfg.Assembly.MinimumPoints)
	}
	if cfg.Export.Compression != "snappy" {
		t.Errorf("Export.Compression = %s, want snappy", cfg.Export.Compression)
	}
	if cfg.Archive.Compression != "zstd" {
		t.Errorf("Archive.Compression = %s, want zstd", cfg.Archive.Compression)
	}
	if cfg.KML.Width != 3 || cfg.KML.Geometry != "line" || cfg.KML.AltitudeProperty != "altitude" {
		t.Errorf("KML = %+v", cfg.KML)
	}
	if cfg.CLI.Workers < 1 || cfg.CLI.Workers > 8 {
		t.Errorf("CLI.Workers = %d, want 1..8", cfg.CLI.Workers)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	inEmptyDir(t)

	t.Setenv("TRACKTABLE_LOG_LEVEL", "debug")
	t.Setenv("TRACKTABLE_WRITER_COORDINATE_PRECISION", "8")
	t.Setenv("TRACKTABLE_ASSEMBLY_SEPARATION_TIME", "1h")
	t.Setenv("TRACKTABLE_CLI_WORKERS", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug (from env)", cfg.Log.Level)
	}
	if cfg.Writer.CoordinatePrecision != 8 {
		t.Errorf("Writer.CoordinatePrecision = %d, want 8 (from env)", cfg.Writer.CoordinatePrecision)
	}
	if cfg.Assembly.SeparationTime != time.Hour {
		t.Errorf("Assembly.SeparationTime = %v, want 1h (from env)", cfg.Assembly.SeparationTime)
	}
	if cfg.CLI.Workers != 3 {
		t.Errorf("CLI.Workers = %d, want 3 (from env)", cfg.CLI.Workers)
	}
}

func TestLoad_File(t *testing.T) {
	inEmptyDir(t)

	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[reader]
delimiter = "|"
ignore_header = true
coordinate_columns = [2, 3]
property_columns = ["altitude:4:real", "callsign:5:string"]

[archive]
compression = "none"

[kml]
color = "ff0000ff"
geometry = "points"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Reader.Delimiter != "|" || !cfg.Reader.IgnoreHeader {
		t.Errorf("Reader = %+v", cfg.Reader)
	}
	if len(cfg.Reader.CoordinateColumns) != 2 || cfg.Reader.CoordinateColumns[1] != 3 {
		t.Errorf("Reader.CoordinateColumns = %v, want [2 3]", cfg.Reader.CoordinateColumns)
	}
	if len(cfg.Reader.PropertyColumns) != 2 {
		t.Errorf("Reader.PropertyColumns = %v", cfg.Reader.PropertyColumns)
	}
	if cfg.Archive.Compression != "none" {
		t.Errorf("Archive.Compression = %s, want none", cfg.Archive.Compression)
	}
	if cfg.KML.Color != "ff0000ff" || cfg.KML.Geometry != "points" || cfg.KML.Width != 3 {
		t.Errorf("KML = %+v", cfg.KML)
	}
	// Untouched sections keep their defaults.
	if cfg.Writer.Delimiter != "," {
		t.Errorf("Writer.Delimiter = %q, want ','", cfg.Writer.Delimiter)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() with a missing explicit file should error")
	}
}

func TestValidate(t *testing.T) {
	inEmptyDir(t)

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"tab delimiter", func(c *Config) { c.Reader.Delimiter = "\t" }, ""},
		{"precision 17", func(c *Config) { c.Writer.CoordinatePrecision = 17 }, ""},
		{"long delimiter", func(c *Config) { c.Reader.Delimiter = "||" }, "reader.delimiter"},
		{"non-ascii quote", func(c *Config) { c.Writer.QuoteChar = "»" }, "writer.quote_char"},
		{"delimiter equals quote", func(c *Config) { c.Writer.QuoteChar = "," }, "must differ"},
		{"precision zero", func(c *Config) { c.Writer.CoordinatePrecision = 0 }, "coordinate_precision"},
		{"precision 18", func(c *Config) { c.Writer.CoordinatePrecision = 18 }, "coordinate_precision"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty timestamp format", func(c *Config) { c.Writer.TimestampFormat = "" }, "writer.timestamp_format"},
		{"bad property column", func(c *Config) { c.Reader.PropertyColumns = []string{"speed:x:real"} }, "property_columns"},
		{"negative separation", func(c *Config) { c.Assembly.SeparationTime = -time.Second }, "separation_time"},
		{"negative distance", func(c *Config) { c.Assembly.SeparationDistance = -1 }, "separation_distance"},
		{"zero minimum points", func(c *Config) { c.Assembly.MinimumPoints = 0 }, "minimum_points"},
		{"bad export compression", func(c *Config) { c.Export.Compression = "lzo" }, "export.compression"},
		{"bad page version", func(c *Config) { c.Export.DataPageVersion = "3.0" }, "data_page_version"},
		{"bad archive compression", func(c *Config) { c.Archive.Compression = "gzip" }, "archive.compression"},
		{"kml color", func(c *Config) { c.KML.Color = "FF00FF00" }, ""},
		{"bad kml color", func(c *Config) { c.KML.Color = "red" }, "kml.color"},
		{"zero kml width", func(c *Config) { c.KML.Width = 0 }, "kml.width"},
		{"bad kml geometry", func(c *Config) { c.KML.Geometry = "polygon" }, "kml.geometry"},
		{"zero workers", func(c *Config) { c.CLI.Workers = 0 }, "cli.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePropertyColumns(t *testing.T) {
	got, err := ParsePropertyColumns([]string{"altitude:4:real", " squawk : 5 : 4 "})
	if err != nil {
		t.Fatalf("ParsePropertyColumns() error = %v", err)
	}
	want := []PropertyColumn{
		{Name: "altitude", Column: 4, Kind: models.KindReal},
		{Name: "squawk", Column: 5, Kind: models.KindInteger},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	for _, bad := range [][]string{
		{"altitude:4"},
		{":4:real"},
		{"altitude:-1:real"},
		{"altitude:4:complex"},
		{"a:1:real", "a:2:real"},
	} {
		if _, err := ParsePropertyColumns(bad); err == nil {
			t.Errorf("ParsePropertyColumns(%q) should error", bad)
		}
	}
}
