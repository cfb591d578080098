// Package kml writes terrestrial trajectories as KML placemarks for
// display in Google Earth and other globe viewers.
package kml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atwilso/tracktable/pkg/delimited"
	"github.com/atwilso/tracktable/pkg/models"
)

const documentHeader = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2" xmlns:kml="http://www.opengis.net/kml/2.2">
<Document>
`

const documentFooter = "\n</Document>\n</kml>\n"

// DefaultWidth is the line width in pixels.
const DefaultWidth = 3.0

var (
	ErrNotTerrestrial = errors.New("kml needs terrestrial points")
	ErrClosed         = errors.New("kml writer is closed")
)

// Geometry selects how a trajectory is drawn.
type Geometry int

const (
	// Line draws the path as one line string.
	Line Geometry = iota
	// Points draws one marker per point.
	Points
	// LineAndPoints draws both.
	LineAndPoints
)

// ParseGeometry accepts line, points and line+points.
func ParseGeometry(s string) (Geometry, error) {
	switch strings.ToLower(s) {
	case "", "line":
		return Line, nil
	case "points":
		return Points, nil
	case "line+points", "linepoints":
		return LineAndPoints, nil
	}
	return 0, fmt.Errorf("unknown kml geometry: %s", s)
}

// Config controls the style of written placemarks.
type Config struct {
	// Color is an aabbggrr hex string. Empty picks a random opaque color
	// per trajectory.
	Color    string
	Width    float64
	Geometry Geometry
	// AltitudeProperty names the real property written as the third
	// coordinate. Points without it are drawn at altitude 0.
	AltitudeProperty string
	Logger           zerolog.Logger
}

// DefaultConfig draws random colored lines with altitude from "altitude".
func DefaultConfig() Config {
	return Config{
		Width:            DefaultWidth,
		Geometry:         Line,
		AltitudeProperty: "altitude",
		Logger:           zerolog.Nop(),
	}
}

// ValidColor reports whether c is an aabbggrr hex color.
func ValidColor(c string) bool {
	if len(c) != 8 {
		return false
	}
	for i := 0; i < len(c); i++ {
		switch ch := c[i]; {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}

func randomColor() string {
	return fmt.Sprintf("FF%02X%02X%02X", rand.IntN(256), rand.IntN(256), rand.IntN(256))
}

type lineStyle struct {
	LabelVisibility int     `xml:"gx:labelVisibility"`
	Width           float64 `xml:"width"`
	Color           string  `xml:"color"`
}

type style struct {
	XMLName   xml.Name  `xml:"Style"`
	ID        string    `xml:"id,attr"`
	LineStyle lineStyle `xml:"LineStyle"`
}

type timeSpan struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

type coordinates struct {
	Coordinates string `xml:"coordinates"`
}

type multiGeometry struct {
	LineString *coordinates  `xml:"LineString,omitempty"`
	Points     []coordinates `xml:"Point"`
}

type placemark struct {
	XMLName       xml.Name       `xml:"Placemark"`
	Name          string         `xml:"name"`
	TimeSpan      *timeSpan      `xml:"TimeSpan,omitempty"`
	StyleURL      string         `xml:"styleUrl"`
	LineString    *coordinates   `xml:"LineString,omitempty"`
	MultiGeometry *multiGeometry `xml:"MultiGeometry,omitempty"`
}

// Writer writes one KML document holding a style and a placemark per
// trajectory. The document is complete only after Close.
type Writer[P models.Point] struct {
	out    *bufio.Writer
	enc    *xml.Encoder
	cfg    Config
	logger zerolog.Logger

	started bool
	closed  bool
	count   int
}

// NewWriter returns a writer on w. Nothing is written until the first
// trajectory or Close.
func NewWriter[P models.Point](w io.Writer, cfg Config) (*Writer[P], error) {
	if cfg.Color != "" && !ValidColor(cfg.Color) {
		return nil, fmt.Errorf("invalid kml color %q (expected aabbggrr hex)", cfg.Color)
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	out := bufio.NewWriter(w)
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	return &Writer[P]{
		out:    out,
		enc:    enc,
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "kml-writer").Logger(),
	}, nil
}

func (w *Writer[P]) start() error {
	if w.started {
		return nil
	}
	w.started = true
	_, err := w.out.WriteString(documentHeader)
	return err
}

// Write appends t as a placemark. Empty trajectories are skipped.
func (w *Writer[P]) Write(t *models.Trajectory[P]) error {
	if w.closed {
		return ErrClosed
	}
	if t.Len() == 0 {
		w.logger.Debug().Str("uuid", t.UUID().String()).Msg("Skipping empty trajectory")
		return nil
	}
	if d := t.At(0).Traits().Domain; d != models.DomainTerrestrial {
		return fmt.Errorf("%w: got %s", ErrNotTerrestrial, d)
	}
	if err := w.start(); err != nil {
		return err
	}

	id := t.ObjectID()
	if id == "" {
		id = t.UUID().String()
	}
	color := w.cfg.Color
	if color == "" {
		color = randomColor()
	}

	st := style{ID: id, LineStyle: lineStyle{LabelVisibility: 1, Width: w.cfg.Width, Color: color}}
	if err := w.enc.Encode(st); err != nil {
		return err
	}

	pm := placemark{Name: id, StyleURL: "#" + id}
	if start, ok := t.StartTime(); ok {
		end, _ := t.EndTime()
		pm.Name = id + "-" + start.UTC().Format("2006-01-02")
		pm.TimeSpan = &timeSpan{Begin: start.UTC().Format(time.RFC3339), End: end.UTC().Format(time.RFC3339)}
	}
	switch w.cfg.Geometry {
	case Points:
		pm.MultiGeometry = &multiGeometry{Points: w.pointCoordinates(t)}
	case LineAndPoints:
		pm.MultiGeometry = &multiGeometry{LineString: w.lineCoordinates(t), Points: w.pointCoordinates(t)}
	default:
		pm.LineString = w.lineCoordinates(t)
	}
	if err := w.enc.Encode(pm); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *Writer[P]) coordinate(p P) string {
	alt := 0.0
	if props := models.PropertiesOf(p); props != nil && w.cfg.AltitudeProperty != "" {
		if v, ok := props.Real(w.cfg.AltitudeProperty); ok {
			alt = v
		}
	}
	return delimited.FormatReal(p.Coordinate(0), -1) + "," +
		delimited.FormatReal(p.Coordinate(1), -1) + "," +
		delimited.FormatReal(alt, -1)
}

func (w *Writer[P]) lineCoordinates(t *models.Trajectory[P]) *coordinates {
	parts := make([]string, t.Len())
	for i, p := range t.Points() {
		parts[i] = w.coordinate(p)
	}
	return &coordinates{Coordinates: strings.Join(parts, " ")}
}

func (w *Writer[P]) pointCoordinates(t *models.Trajectory[P]) []coordinates {
	out := make([]coordinates, t.Len())
	for i, p := range t.Points() {
		out[i] = coordinates{Coordinates: w.coordinate(p)}
	}
	return out
}

// Count is the number of placemarks written.
func (w *Writer[P]) Count() int { return w.count }

// Close finishes the document and flushes it. It does not close the
// underlying writer.
func (w *Writer[P]) Close() error {
	if w.closed {
		return nil
	}
	if err := w.start(); err != nil {
		return err
	}
	w.closed = true
	if _, err := w.out.WriteString(documentFooter); err != nil {
		return err
	}
	w.logger.Debug().Int("placemarks", w.count).Msg("Closed KML document")
	return w.out.Flush()
}
