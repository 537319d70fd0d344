package daofile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// coordHeaderLines is the header size of a detection coordinate catalog: two
// description lines plus the blank separator.
const coordHeaderLines = 3

// CoordCatalog holds the records of a detection coordinate catalog.
type CoordCatalog struct {
	Header string
	Stars  []domain.CoordStar
	// Full reports whether the records carry the photometric quality fields.
	Full bool
}

// ReadCoordCatalog loads a coordinate catalog from disk.
func ReadCoordCatalog(path string) (*CoordCatalog, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the path cache
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCatalogReadFailed.Error()), "path", path)
	}

	header, dataLines := splitHeader(string(raw), coordHeaderLines)
	cat := &CoordCatalog{Header: header}

	for _, line := range dataLines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, zerr.With(domain.ErrCatalogParseFailed, "line", line)
		}

		var star domain.CoordStar
		star.ID, err = strconv.Atoi(fields[0])
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.X, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.Y, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}

		if len(fields) > 6 {
			star.Mag, _ = strconv.ParseFloat(fields[3], 64)
			star.Sharpness, _ = strconv.ParseFloat(fields[4], 64)
			star.Roundness, _ = strconv.ParseFloat(fields[5], 64)
			star.MarginalRoundness, _ = strconv.ParseFloat(fields[6], 64)
			cat.Full = true
		}

		cat.Stars = append(cat.Stars, star)
	}

	return cat, nil
}

// Positions returns the (x, y) positions of all records.
func (c *CoordCatalog) Positions() []domain.Position {
	out := make([]domain.Position, len(c.Stars))
	for i, s := range c.Stars {
		out[i] = domain.Position{X: s.X, Y: s.Y}
	}
	return out
}

// Write saves the catalog, replacing any existing file.
func (c *CoordCatalog) Write(path string) error {
	var b strings.Builder
	b.WriteString(c.Header)
	for _, s := range c.Stars {
		fmt.Fprintf(&b, "%3d %8.3f %8.3f %.3f %.3f %.3f %.3f\n",
			s.ID, s.X, s.Y, s.Mag, s.Sharpness, s.Roundness, s.MarginalRoundness)
	}

	if err := replaceFile(path, b.String()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCatalogWriteFailed.Error()), "path", path)
	}
	return nil
}

// replaceFile writes content to path after removing any pre-existing file.
func replaceFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644) //nolint:gosec // catalog files are shared artifacts
}
