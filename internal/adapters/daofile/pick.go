package daofile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// pickHeaderLines is the header size of a candidate pick list.
const pickHeaderLines = 3

// defaultPickHeader stands in when a pick list is built from scratch rather
// than read from a program-produced file.
const defaultPickHeader = " NL   NX   NY  LOWBAD HIGHBAD  THRESH     AP1  PH/ADU  RNOISE    FRAD\n" +
	"  3\n" +
	"\n"

// PickCatalog holds the records of a PSF candidate list.
type PickCatalog struct {
	Header string
	stars  map[int]domain.PickStar
	order  []int
}

// NewPickCatalog creates an empty catalog.
func NewPickCatalog() *PickCatalog {
	return &PickCatalog{stars: make(map[int]domain.PickStar)}
}

// ReadPickCatalog loads a candidate list from disk.
func ReadPickCatalog(path string) (*PickCatalog, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the path cache
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCatalogReadFailed.Error()), "path", path)
	}

	header, dataLines := splitHeader(string(raw), pickHeaderLines)
	cat := NewPickCatalog()
	cat.Header = header

	for _, line := range dataLines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			return nil, zerr.With(domain.ErrCatalogParseFailed, "line", line)
		}

		var star domain.PickStar
		if star.ID, err = strconv.Atoi(fields[0]); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		star.X, _ = strconv.ParseFloat(fields[1], 64)
		star.Y, _ = strconv.ParseFloat(fields[2], 64)
		star.Mag, _ = strconv.ParseFloat(fields[3], 64)
		star.MagErr, _ = strconv.ParseFloat(fields[4], 64)
		cat.Add(star)
	}

	return cat, nil
}

// Add inserts or replaces a record.
func (c *PickCatalog) Add(star domain.PickStar) {
	if _, ok := c.stars[star.ID]; !ok {
		c.order = append(c.order, star.ID)
	}
	c.stars[star.ID] = star
}

// Star returns the record with the given ID.
func (c *PickCatalog) Star(id int) (domain.PickStar, bool) {
	s, ok := c.stars[id]
	return s, ok
}

// IDs returns all record IDs in file order.
func (c *PickCatalog) IDs() []int {
	out := make([]int, len(c.order))
	copy(out, c.order)
	return out
}

// Write saves the list, replacing any existing file. Positions and
// magnitudes carry 3 decimals, magnitude errors 4.
func (c *PickCatalog) Write(path string) error {
	var b strings.Builder
	if c.Header == "" {
		b.WriteString(defaultPickHeader)
	} else {
		b.WriteString(c.Header)
	}

	for _, id := range c.order {
		s := c.stars[id]
		fmt.Fprintf(&b, "% 8d %.3f %.3f %.3f %.4f\n", s.ID, s.X, s.Y, s.Mag, s.MagErr)
	}

	if err := replaceFile(path, b.String()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCatalogWriteFailed.Error()), "path", path)
	}
	return nil
}
