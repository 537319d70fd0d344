// Package region writes DS9-compatible overlay region files so picked and
// recovered stars can be inspected on top of the image.
package region

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Frame identifiers understood by the visualization tooling.
const (
	FrameImage = "image"
	FrameFK5   = "fk5"
)

// Point is one marker primitive.
type Point struct {
	X, Y   float64
	Shape  string
	Label  string
	Colour string
}

// PointList accumulates point markers and renders them as one region file.
type PointList struct {
	Frame  string
	Size   int
	points []Point
}

// NewPointList creates a list in image coordinates with the conventional
// marker size.
func NewPointList() *PointList {
	return &PointList{Frame: FrameImage, Size: 4}
}

// Add appends a marker. An empty shape defaults to circle.
func (l *PointList) Add(p Point) {
	if p.Shape == "" {
		p.Shape = "circle"
	}
	l.points = append(l.points, p)
}

// AddPositions appends one circle marker per position.
func (l *PointList) AddPositions(positions []domain.Position, colour string) {
	for _, pos := range positions {
		l.Add(Point{X: pos.X, Y: pos.Y, Colour: colour})
	}
}

// Len returns the number of markers.
func (l *PointList) Len() int {
	return len(l.points)
}

// Write renders the list to path, replacing any existing file and creating
// parent directories as needed.
func (l *PointList) Write(path string) error {
	var b strings.Builder
	b.WriteString(l.Frame + "\n")
	for _, p := range l.points {
		fmt.Fprintf(&b, "point(%f,%f) # point=%s %d", p.X, p.Y, p.Shape, l.Size)
		if p.Label != "" {
			fmt.Fprintf(&b, " text = {%s}", p.Label)
		}
		if p.Colour != "" {
			fmt.Fprintf(&b, " color = %s", p.Colour)
		}
		b.WriteString("\n")
	}
	return writeRegionFile(path, b.String())
}

// Box is one rectangle primitive.
type Box struct {
	X, Y          float64
	Width, Height float64
	Label         string
}

// BoxList accumulates box annotations and renders them as one region file.
type BoxList struct {
	Frame string
	boxes []Box
}

// NewBoxList creates a list in image coordinates.
func NewBoxList() *BoxList {
	return &BoxList{Frame: FrameImage}
}

// Add appends a box.
func (l *BoxList) Add(b Box) {
	l.boxes = append(l.boxes, b)
}

// Len returns the number of boxes.
func (l *BoxList) Len() int {
	return len(l.boxes)
}

// Write renders the list to path, replacing any existing file.
func (l *BoxList) Write(path string) error {
	var b strings.Builder
	b.WriteString(l.Frame + "\n")
	for _, box := range l.boxes {
		fmt.Fprintf(&b, "box(%f,%f,%f,%f) # text={%s}\n",
			box.X, box.Y, box.Width, box.Height, box.Label)
	}
	return writeRegionFile(path, b.String())
}

// SkyBox is one box annotation read from a sky-frame overlay, with its
// centre converted to decimal degrees.
type SkyBox struct {
	RA, Dec float64
	Label   string
}

var (
	skyBoxRegex   = regexp.MustCompile(`^box\((\d{2}):(\d{2}):([0-9.]+),([+-]?\d+):(\d+):([0-9.]+)`)
	boxLabelRegex = regexp.MustCompile(`text=\{([0-9a-zA-Z]*)\}`)
)

// ReadSkyBoxes parses the box annotations of a sky-frame overlay whose
// coordinates are sexagesimal (HH:MM:SS.s right ascension, ±DD:MM:SS.s
// declination). Lines that are not box annotations, or whose coordinates do
// not parse, are skipped.
func ReadSkyBoxes(path string) ([]SkyBox, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // overlays are shared artifacts
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read overlay file"), "path", path)
	}

	var boxes []SkyBox
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "box") {
			continue
		}
		m := skyBoxRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ra, okRA := sexagesimal(m[1], m[2], m[3])
		dec, okDec := sexagesimal(m[4], m[5], m[6])
		if !okRA || !okDec {
			continue
		}
		// Right ascension hours to degrees.
		box := SkyBox{RA: ra * 15, Dec: dec}
		if lm := boxLabelRegex.FindStringSubmatch(line); lm != nil {
			box.Label = lm[1]
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// sexagesimal converts D:M:S components to a decimal value. The sign of the
// degrees component applies to the whole value.
func sexagesimal(d, m, s string) (float64, bool) {
	deg, errD := strconv.ParseFloat(d, 64)
	minutes, errM := strconv.ParseFloat(m, 64)
	seconds, errS := strconv.ParseFloat(s, 64)
	if errD != nil || errM != nil || errS != nil {
		return 0, false
	}
	sign := 1.0
	if strings.HasPrefix(d, "-") {
		sign = -1
		deg = -deg
	}
	return sign * (deg + minutes/60 + seconds/3600), true
}

func writeRegionFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create overlay directory"), "path", path)
		}
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to replace overlay file"), "path", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // overlays are shared artifacts
		return zerr.With(zerr.Wrap(err, "failed to write overlay file"), "path", path)
	}
	return nil
}
