// Package flagmap loads per-pixel data-quality masks used to reject PSF
// candidates sitting on bad pixels.
package flagmap

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Raster is a width-by-height integer mask. A value above zero marks the
// pixel as bad.
type Raster struct {
	width  int
	height int
	cells  []int
}

var _ ports.FlagMap = (*Raster)(nil)

// Load reads a mask from a text raster file. The first line carries the
// width and height; the remaining tokens are the cell values in row-major
// order.
func Load(path string) (*Raster, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the run configuration
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFlagMapParseFailed.Error()), "path", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	if !scanner.Scan() {
		return nil, zerr.With(domain.ErrFlagMapParseFailed, "path", path)
	}
	dims := strings.Fields(scanner.Text())
	if len(dims) < 2 {
		return nil, zerr.With(domain.ErrFlagMapParseFailed, "path", path)
	}

	r := &Raster{}
	if r.width, err = strconv.Atoi(dims[0]); err != nil {
		return nil, zerr.Wrap(err, domain.ErrFlagMapParseFailed.Error())
	}
	if r.height, err = strconv.Atoi(dims[1]); err != nil {
		return nil, zerr.Wrap(err, domain.ErrFlagMapParseFailed.Error())
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, zerr.With(domain.ErrFlagMapParseFailed, "path", path)
	}

	r.cells = make([]int, 0, r.width*r.height)
	for scanner.Scan() {
		for _, tok := range strings.Fields(scanner.Text()) {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrFlagMapParseFailed.Error()), "token", tok)
			}
			r.cells = append(r.cells, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrFlagMapParseFailed.Error())
	}
	if len(r.cells) != r.width*r.height {
		err := zerr.With(domain.ErrFlagMapParseFailed, "path", path)
		return nil, zerr.With(err, "cells", strconv.Itoa(len(r.cells)))
	}

	return r, nil
}

// Width returns the mask width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the mask height in pixels.
func (r *Raster) Height() int { return r.height }

// Flagged reports whether the pixel at the one-based catalog coordinates is
// marked bad. Coordinates outside the raster count as flagged so stars on
// the frame edge are never picked.
func (r *Raster) Flagged(x, y int) bool {
	col := x - 1
	row := y - 1
	if col < 0 || col >= r.width || row < 0 || row >= r.height {
		return true
	}
	return r.cells[row*r.width+col] > 0
}
