package daofile

import (
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// apertureHeaderLines is the header size of an aperture photometry catalog:
// three description lines plus the blank separator.
const apertureHeaderLines = 4

// ApertureCatalog holds the records of an aperture photometry catalog. Each
// star occupies two physical lines in the file, separated from the next star
// by a blank line.
type ApertureCatalog struct {
	Header string
	stars  map[int]domain.ApStar
	order  []int
}

// NewApertureCatalog creates an empty catalog.
func NewApertureCatalog() *ApertureCatalog {
	return &ApertureCatalog{stars: make(map[int]domain.ApStar)}
}

// ReadApertureCatalog loads an aperture catalog from disk.
func ReadApertureCatalog(path string) (*ApertureCatalog, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the path cache
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCatalogReadFailed.Error()), "path", path)
	}

	header, dataLines := splitHeader(string(raw), apertureHeaderLines)
	cat := NewApertureCatalog()
	cat.Header = header

	// Collapse into two-line groups separated by blank lines.
	var group []string
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		if len(group) < 2 {
			return zerr.With(domain.ErrCatalogParseFailed, "record", strings.Join(group, "\n"))
		}
		star, err := parseApStar(group[0], group[1])
		if err != nil {
			return err
		}
		cat.Add(star)
		group = nil
		return nil
	}

	for _, line := range dataLines {
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		group = append(group, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return cat, nil
}

func parseApStar(first, second string) (domain.ApStar, error) {
	var star domain.ApStar

	f1 := strings.Fields(first)
	f2 := strings.Fields(second)
	if len(f1) < 4 || len(f2) < 4 {
		return star, zerr.With(domain.ErrCatalogParseFailed, "record", first)
	}

	var err error
	if star.ID, err = strconv.Atoi(f1[0]); err != nil {
		return star, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
	}
	star.X, _ = strconv.ParseFloat(f1[1], 64)
	star.Y, _ = strconv.ParseFloat(f1[2], 64)
	star.Mag, _ = strconv.ParseFloat(f1[3], 64)
	star.ModalSky, _ = strconv.ParseFloat(f2[0], 64)
	star.SkySigma, _ = strconv.ParseFloat(f2[1], 64)
	star.SkySkew, _ = strconv.ParseFloat(f2[2], 64)
	star.MagErr, _ = strconv.ParseFloat(f2[3], 64)

	return star, nil
}

// Add inserts or replaces a record.
func (c *ApertureCatalog) Add(star domain.ApStar) {
	if _, ok := c.stars[star.ID]; !ok {
		c.order = append(c.order, star.ID)
	}
	c.stars[star.ID] = star
}

// Star returns the record with the given ID.
func (c *ApertureCatalog) Star(id int) (domain.ApStar, bool) {
	s, ok := c.stars[id]
	return s, ok
}

// IDs returns all record IDs in file order.
func (c *ApertureCatalog) IDs() []int {
	out := make([]int, len(c.order))
	copy(out, c.order)
	return out
}

// NStars returns the number of records.
func (c *ApertureCatalog) NStars() int {
	return len(c.order)
}

// MaxID returns the highest serial number in the catalog, or 0 if empty.
func (c *ApertureCatalog) MaxID() int {
	max := 0
	for _, id := range c.order {
		if id > max {
			max = id
		}
	}
	return max
}

// Append adds every record of other to the catalog, shifting the new serial
// numbers past the current maximum so they stay unique.
func (c *ApertureCatalog) Append(other *ApertureCatalog) {
	offset := c.MaxID()
	for _, id := range other.order {
		star := other.stars[id]
		star.ID = id + offset
		c.Add(star)
	}
}

// Positions returns the (x, y) positions of all records in file order.
func (c *ApertureCatalog) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(c.order))
	for _, id := range c.order {
		s := c.stars[id]
		out = append(out, domain.Position{X: s.X, Y: s.Y})
	}
	return out
}

// Write saves the catalog in the two-line-per-star format, replacing any
// existing file.
func (c *ApertureCatalog) Write(path string) error {
	var b strings.Builder
	b.WriteString(c.Header)

	for i, id := range c.order {
		s := c.stars[id]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(rightAlignInt(s.ID, 7) + " " + rightAlignF3(s.X, 4) + " " +
			rightAlignF3(s.Y, 4) + " " + magStr(s.Mag) + "\n")
		b.WriteString(rightAlignF3(s.ModalSky, 10) + " " + rightAlignF2(s.SkySigma, 2) + " " +
			rightAlignF2(s.SkySkew, 2) + " " + magErrStr(s.MagErr) + "\n")
	}

	if err := replaceFile(path, b.String()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCatalogWriteFailed.Error()), "path", path)
	}
	return nil
}
