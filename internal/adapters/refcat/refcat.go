// Package refcat loads external bright-star catalogs used to reject PSF
// candidates contaminated by nearby bright sources.
package refcat

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Catalog holds reference stars with image positions and per-band
// magnitudes.
type Catalog struct {
	stars []domain.RefStar
}

var _ ports.ReferenceCatalog = (*Catalog)(nil)

// Load reads a whitespace-delimited reference catalog. Each record carries
// an identifier, image position, and the J and Ks magnitudes. Comment lines
// start with #.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the run configuration
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCatalogReadFailed.Error()), "path", path)
	}
	defer f.Close()

	cat := &Catalog{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, zerr.With(domain.ErrCatalogParseFailed, "line", line)
		}

		var star domain.RefStar
		if star.ID, err = strconv.Atoi(fields[0]); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.X, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.Y, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.JMag, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if star.KMag, err = strconv.ParseFloat(fields[4], 64); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		cat.stars = append(cat.stars, star)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrCatalogReadFailed.Error())
	}

	return cat, nil
}

// Len returns the number of reference stars.
func (c *Catalog) Len() int { return len(c.stars) }

// StarsBrighterThan returns the positions of all stars with a magnitude in
// the given band below magLimit.
func (c *Catalog) StarsBrighterThan(band string, magLimit float64) ([]domain.Position, error) {
	mag, err := magSelector(band)
	if err != nil {
		return nil, err
	}

	var out []domain.Position
	for _, s := range c.stars {
		if mag(s) < magLimit {
			out = append(out, domain.Position{X: s.X, Y: s.Y})
		}
	}
	return out, nil
}

func magSelector(band string) (func(domain.RefStar) float64, error) {
	switch band {
	case "J":
		return func(s domain.RefStar) float64 { return s.JMag }, nil
	case "Ks", "K":
		return func(s domain.RefStar) float64 { return s.KMag }, nil
	default:
		return nil, zerr.With(domain.ErrUnknownBand, "band", band)
	}
}
