package daofile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/daopilot/internal/adapters/daofile"
	"go.trai.ch/daopilot/internal/core/domain"
)

const coordSample = " NL   NX   NY  LOWBAD HIGHBAD  THRESH     AP1  PH/ADU  RNOISE    FRAD\n" +
	"  1 2048 2048    32.2 32766.5   13.79    3.00    4.30    4.50    5.99\n" +
	"\n" +
	"      1  1295.622     3.256   -0.442    0.593    0.290    0.542\n" +
	"      2   886.829     4.764   -1.467    0.578   -0.188    0.485\n"

const apertureSample = " NL   NX   NY  LOWBAD HIGHBAD  THRESH     AP1  PH/ADU  RNOISE    FRAD\n" +
	"  2 2048 2048    32.2 32766.5   13.79    3.00    4.30    4.50    5.99\n" +
	"\n" +
	"\n" +
	"      1 1295.622    3.256 15.312\n" +
	"    830.512  14.51  -0.74 0.0031\n" +
	"\n" +
	"      2  886.829    4.764 16.801\n" +
	"    829.930  14.02   0.33 0.0094\n"

func TestReadCoordCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky28k.coo")
	require.NoError(t, os.WriteFile(path, []byte(coordSample), 0o644))

	cat, err := daofile.ReadCoordCatalog(path)
	require.NoError(t, err)

	require.Len(t, cat.Stars, 2)
	assert.True(t, cat.Full)
	assert.Equal(t, 1, cat.Stars[0].ID)
	assert.InDelta(t, 1295.622, cat.Stars[0].X, 1e-9)
	assert.InDelta(t, 3.256, cat.Stars[0].Y, 1e-9)
	assert.InDelta(t, -0.442, cat.Stars[0].Mag, 1e-9)
	assert.InDelta(t, 0.485, cat.Stars[1].MarginalRoundness, 1e-9)
}

func TestReadApertureCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky28k.ap")
	require.NoError(t, os.WriteFile(path, []byte(apertureSample), 0o644))

	cat, err := daofile.ReadApertureCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cat.NStars())
	star, ok := cat.Star(1)
	require.True(t, ok)
	assert.InDelta(t, 1295.622, star.X, 1e-9)
	assert.InDelta(t, 15.312, star.Mag, 1e-9)
	assert.InDelta(t, 830.512, star.ModalSky, 1e-9)
	assert.InDelta(t, 0.0031, star.MagErr, 1e-9)
}

func TestApertureCatalog_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sky28k.ap")
	require.NoError(t, os.WriteFile(src, []byte(apertureSample), 0o644))

	cat, err := daofile.ReadApertureCatalog(src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "copy.ap")
	require.NoError(t, cat.Write(dst))

	again, err := daofile.ReadApertureCatalog(dst)
	require.NoError(t, err)

	assert.Equal(t, cat.IDs(), again.IDs())
	for _, id := range cat.IDs() {
		want, _ := cat.Star(id)
		got, _ := again.Star(id)
		assert.InDelta(t, want.X, got.X, 0.001)
		assert.InDelta(t, want.Mag, got.Mag, 0.001)
		assert.InDelta(t, want.MagErr, got.MagErr, 0.0001)
	}
}

func TestApertureCatalog_AppendOffsetsSerials(t *testing.T) {
	base := daofile.NewApertureCatalog()
	base.Add(domain.ApStar{ID: 1, X: 10, Y: 10, Mag: 15})
	base.Add(domain.ApStar{ID: 7, X: 20, Y: 20, Mag: 16})

	extra := daofile.NewApertureCatalog()
	extra.Add(domain.ApStar{ID: 1, X: 30, Y: 30, Mag: 17})
	extra.Add(domain.ApStar{ID: 2, X: 40, Y: 40, Mag: 18})

	base.Append(extra)

	assert.Equal(t, []int{1, 7, 8, 9}, base.IDs())
	star, ok := base.Star(8)
	require.True(t, ok)
	assert.InDelta(t, 30.0, star.X, 1e-9)
}

func TestPickCatalog_RoundTrip(t *testing.T) {
	cat := daofile.NewPickCatalog()
	cat.Add(domain.PickStar{ID: 2051, X: 1295.622, Y: 3.256, Mag: 15.312, MagErr: 0.0031})
	cat.Add(domain.PickStar{ID: 471, X: 886.829, Y: 4.764, Mag: 16.801, MagErr: 0.0094})

	path := filepath.Join(t.TempDir(), "sky28krev.lst")
	require.NoError(t, cat.Write(path))

	again, err := daofile.ReadPickCatalog(path)
	require.NoError(t, err)

	require.Equal(t, cat.IDs(), again.IDs())
	for _, id := range cat.IDs() {
		want, _ := cat.Star(id)
		got, _ := again.Star(id)
		assert.InDelta(t, want.X, got.X, 0.0005)
		assert.InDelta(t, want.Y, got.Y, 0.0005)
		assert.InDelta(t, want.Mag, got.Mag, 0.0005)
		assert.InDelta(t, want.MagErr, got.MagErr, 0.00005)
	}
}

func TestPickCatalog_WriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky28k.lst")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	cat := daofile.NewPickCatalog()
	cat.Add(domain.PickStar{ID: 1, X: 1, Y: 1, Mag: 10, MagErr: 0.01})
	require.NoError(t, cat.Write(path))

	again, err := daofile.ReadPickCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, again.IDs())
}

func TestReadPSFModel(t *testing.T) {
	content := " GAUSSIAN    69     2     0     1    15.922   12845.1  1024.00  1024.00\n" +
		"  2.20731  2.35467\n"
	path := filepath.Join(t.TempDir(), "sky28k.psf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := daofile.ReadPSFModel(path)
	require.NoError(t, err)

	assert.Equal(t, "GAUSSIAN", m.Type)
	assert.Equal(t, 69, m.LUTSize)
	assert.Equal(t, 2, m.NShapeParams)
	assert.Equal(t, 0, m.NLUT)
	assert.InDelta(t, 15.922, m.InstrMag, 1e-9)
	assert.InDelta(t, 12845.1, m.CentralHeight, 1e-9)
	assert.InDelta(t, 1024.0, m.FrameX0, 1e-9)
	assert.InDelta(t, 15.922, m.PrototypeMag(), 1e-9)
	assert.InDelta(t, (2.20731+2.35467)*0.3, m.Seeing(0.3), 1e-9)
}

func TestReadPSFModel_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.psf")
	require.NoError(t, os.WriteFile(path, []byte(" GAUSSIAN 69\n"), 0o644))

	_, err := daofile.ReadPSFModel(path)
	assert.Error(t, err)
}
