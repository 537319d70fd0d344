package daofile

import (
	"os"
	"strconv"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/zerr"
)

// PSFModel is the parsed header of a model file. The first two lines carry
// fixed-position numeric fields; the lookup tables that follow are opaque to
// the pipeline.
type PSFModel struct {
	// Type is the analytic function token (GAUSSIAN, MOFFAT15, ...).
	Type string
	// LUTSize is the lookup-table edge size.
	LUTSize int
	// NShapeParams is the number of analytic shape parameters.
	NShapeParams int
	// NLUT is the number of lookup tables; 0 for a purely analytic model.
	NLUT int
	// InstrMag is the instrumental magnitude of the unit-normalization
	// prototype.
	InstrMag float64
	// CentralHeight is the central height, in ADU, of the first-order
	// analytic approximation.
	CentralHeight float64
	// FrameX0, FrameY0 are the frame origin coordinates.
	FrameX0 float64
	FrameY0 float64
	// HWHMX, HWHMY are the half-widths at half maximum per axis.
	HWHMX float64
	HWHMY float64
}

// ReadPSFModel parses the header of a model file.
func ReadPSFModel(path string) (*PSFModel, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the path cache
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCatalogReadFailed.Error()), "path", path)
	}

	lines := strings.Split(string(raw), "\n")
	if len(lines) < 2 {
		return nil, zerr.With(domain.ErrModelParseFailed, "path", path)
	}

	f1 := strings.Fields(lines[0])
	f2 := strings.Fields(lines[1])
	if len(f1) < 9 || len(f2) < 2 {
		return nil, zerr.With(domain.ErrModelParseFailed, "path", path)
	}

	m := &PSFModel{Type: f1[0]}
	if m.LUTSize, err = strconv.Atoi(f1[1]); err != nil {
		return nil, zerr.Wrap(err, domain.ErrModelParseFailed.Error())
	}
	if m.NShapeParams, err = strconv.Atoi(f1[2]); err != nil {
		return nil, zerr.Wrap(err, domain.ErrModelParseFailed.Error())
	}
	if m.NLUT, err = strconv.Atoi(f1[3]); err != nil {
		return nil, zerr.Wrap(err, domain.ErrModelParseFailed.Error())
	}
	m.InstrMag, _ = strconv.ParseFloat(f1[5], 64)
	m.CentralHeight, _ = strconv.ParseFloat(f1[6], 64)
	m.FrameX0, _ = strconv.ParseFloat(f1[7], 64)
	m.FrameY0, _ = strconv.ParseFloat(f1[8], 64)
	m.HWHMX, _ = strconv.ParseFloat(f2[0], 64)
	m.HWHMY, _ = strconv.ParseFloat(f2[1], 64)

	return m, nil
}

// PrototypeMag returns the magnitude of the prototype star.
func (m *PSFModel) PrototypeMag() float64 {
	return m.InstrMag
}

// Seeing returns the mean full-width at half maximum of the frame in
// arcseconds for the given pixel scale.
func (m *PSFModel) Seeing(pixelScale float64) float64 {
	meanHWHM := (m.HWHMX + m.HWHMY) / 2
	return meanHWHM * 2 * pixelScale
}
