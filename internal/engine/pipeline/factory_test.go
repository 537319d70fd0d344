package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/daopilot/internal/adapters/daofile"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/daopilot/internal/core/ports/mocks"
	"go.trai.ch/daopilot/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

const simCooHeader = " NL   NX   NY  LOWBAD HIGHBAD  THRESH     AP1  PH/ADU  RNOISE    FRAD\n" +
	"  1 2048 2048\n" +
	"\n"

const simApHeader = " NL   NX   NY  LOWBAD HIGHBAD  THRESH     AP1  PH/ADU  RNOISE    FRAD\n" +
	"  2 2048 2048\n" +
	" 12.0\n" +
	"\n"

type fitRecord struct {
	Name string
	VA   int
}

// daoSim impersonates the fitting program behind the transport: it answers
// the prompt dialogs, writes real catalog files into the working directory,
// and records every fit attempt with the VA level active at the time.
type daoSim struct {
	t       *testing.T
	workDir string
	buf     string
	pending []func(line string) string

	opts     map[string]string
	stars    []domain.ApStar
	pickIDs  []int
	attempts map[string]int
	// outcome decides the diagnostic text and convergence of each fit.
	outcome func(name string, attempt int) (string, bool)

	fits         []fitRecord
	attached     []string
	subtractions []string
	spawns       int

	allstarImages   []string
	allstarSpawnErr error
}

func newDaoSim(t *testing.T, outcome func(name string, attempt int) (string, bool)) *daoSim {
	t.Helper()
	return &daoSim{
		t: t,
		opts: map[string]string{
			"VA": "0",
		},
		stars: []domain.ApStar{
			{ID: 1, X: 100, Y: 100, Mag: 14.2, MagErr: 0.003},
			{ID: 2, X: 200, Y: 200, Mag: 15.0, MagErr: 0.005},
			{ID: 3, X: 300, Y: 300, Mag: 15.8, MagErr: 0.008},
			{ID: 4, X: 400, Y: 400, Mag: 16.1, MagErr: 0.010},
		},
		pickIDs:  []int{1, 2, 3},
		attempts: make(map[string]int),
		outcome:  outcome,
	}
}

func (s *daoSim) Spawn(_ context.Context, _, command, workDir string) (ports.Transport, error) {
	s.workDir = workDir
	if command == "allstar" {
		if s.allstarSpawnErr != nil {
			return nil, s.allstarSpawnErr
		}
		s.buf = "OPT>"
		s.pending = []func(string) string{
			func(string) string { return "Input image name:" },
			func(img string) string { s.allstarImages = append(s.allstarImages, img); return ":" },
			func(string) string { return ":" },
			func(string) string { return ":" },
			func(path string) string { s.touch(path); return ":" },
			func(path string) string { s.touch(path); return "Good bye." },
		}
		return s, nil
	}
	s.spawns++
	s.buf = "Command:"
	s.pending = nil
	return s, nil
}

func (s *daoSim) Send(line string) error {
	if len(s.pending) > 0 {
		handler := s.pending[0]
		s.pending = s.pending[1:]
		s.buf += handler(line)
		return nil
	}

	fields := strings.Fields(line)
	switch {
	case line == "OPTION":
		s.buf += "File with parameters:"
		s.pending = []func(string) string{
			func(string) string { return "OPT>" },
			func(l string) string { s.setOption(l); return "OPT>" },
			func(string) string { return "Command:" },
		}
	case len(fields) == 2 && fields[0] == "ATTACH":
		s.attached = append(s.attached, fields[1])
		s.buf += "Command:"
	case line == "FIND":
		s.buf += ":"
		s.pending = []func(string) string{
			func(string) string { return ":" },
			func(path string) string { s.writeCoo(path); return "Are you happy with this?" },
			func(string) string { return "Command:" },
		}
	case line == "PHOTOMETRY":
		s.buf += ":"
		s.pending = []func(string) string{
			func(string) string { return "PHO>" },
			func(string) string { return ":" },
			func(string) string { return ":" },
			func(path string) string { s.writeAp(path); return "Command:" },
		}
	case line == "PICK":
		s.buf += ":"
		s.pending = []func(string) string{
			func(string) string { return ":" },
			func(string) string { return ":" },
			func(path string) string { s.writePick(path); return "Command:" },
		}
	case line == "PSF":
		s.buf += ":"
		s.pending = []func(string) string{
			func(string) string { return ":" },
			func(string) string { return ":" },
			s.runFit,
		}
	case line == "SUBSTAR":
		s.buf += ":"
		s.pending = []func(string) string{
			func(string) string { return ":" },
			func(string) string { return "stars to leave in?" },
			func(string) string { return ":" },
			func(string) string { return ":" },
			func(path string) string { s.subtractions = append(s.subtractions, path); return "Command:" },
		}
	case line == "exit":
	default:
		s.t.Fatalf("unexpected command %q", line)
	}
	return nil
}

func (s *daoSim) Expect(_ context.Context, _ time.Duration, patterns ...string) (int, string, error) {
	best := -1
	bestPos := len(s.buf) + 1
	for i, p := range patterns {
		if pos := strings.Index(s.buf, p); pos >= 0 && pos < bestPos {
			best = i
			bestPos = pos
		}
	}
	if best < 0 {
		s.t.Fatalf("no pattern of %v in output %q", patterns, s.buf)
	}
	before := s.buf[:bestPos]
	s.buf = s.buf[bestPos+len(patterns[best]):]
	return best, before, nil
}

func (s *daoSim) Close() error { return nil }

func (s *daoSim) setOption(line string) {
	name, value, ok := strings.Cut(line, "=")
	if !ok {
		s.t.Fatalf("malformed option %q", line)
	}
	s.opts[name] = value
}

func (s *daoSim) runFit(psfPath string) string {
	name := strings.TrimSuffix(psfPath, ".psf")
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	s.attempts[name]++

	va, err := strconv.Atoi(s.opts["VA"])
	require.NoError(s.t, err)
	s.fits = append(s.fits, fitRecord{Name: name, VA: va})

	report, converged := s.outcome(name, s.attempts[name])
	if !converged {
		return report + "\n Failed to converge.\n Command:"
	}
	s.writePSF(psfPath)
	s.pending = append(s.pending, func(string) string { return "Command:" })
	return report + "\n File with PSF stars and neighbors\n"
}

func (s *daoSim) touch(name string) {
	require.NoError(s.t, os.WriteFile(filepath.Join(s.workDir, name), []byte("frame"), 0o644))
}

func (s *daoSim) writePSF(path string) {
	header := " GAUSSIAN    69     2     0     1  13.981  24160.5  1022.5  1022.5\n" +
		"  2.20731  2.35467\n"
	require.NoError(s.t, os.WriteFile(filepath.Join(s.workDir, path), []byte(header), 0o644))
}

func (s *daoSim) writeCoo(path string) {
	cat := &daofile.CoordCatalog{Header: simCooHeader}
	for _, st := range s.stars {
		cat.Stars = append(cat.Stars, domain.CoordStar{ID: st.ID, X: st.X, Y: st.Y, Mag: st.Mag})
	}
	require.NoError(s.t, cat.Write(filepath.Join(s.workDir, path)))
}

func (s *daoSim) writeAp(path string) {
	cat := daofile.NewApertureCatalog()
	cat.Header = simApHeader
	for _, st := range s.stars {
		cat.Add(st)
	}
	require.NoError(s.t, cat.Write(filepath.Join(s.workDir, path)))
}

func (s *daoSim) writePick(path string) {
	cat := daofile.NewPickCatalog()
	for _, id := range s.pickIDs {
		for _, st := range s.stars {
			if st.ID == id {
				cat.Add(domain.PickStar{ID: st.ID, X: st.X, Y: st.Y, Mag: st.Mag, MagErr: st.MagErr})
			}
		}
	}
	require.NoError(s.t, cat.Write(filepath.Join(s.workDir, path)))
}

func cleanFit(string, int) (string, bool) {
	return "   Chi    Parameters\n  0.0234", true
}

func newTestLogger(t *testing.T) ports.Logger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

func newTestPipeline(t *testing.T) (*domain.Pipeline, domain.ImageJob) {
	t.Helper()
	dir := t.TempDir()
	pipe := &domain.Pipeline{
		Shell:      "/bin/tcsh",
		DaophotCmd: "daophot",
		AllstarCmd: "allstar",
		RadiiFile:  filepath.Join(dir, "photo.opt"),
		Timeouts: domain.Timeouts{
			Default: time.Second,
			Detect:  time.Second,
			Fit:     time.Second,
		},
		Picker: domain.PickerSettings{Count: 3, MagLimit: 99},
	}
	job := domain.ImageJob{
		Name:           "sky28k",
		ImagePath:      filepath.Join(dir, "sky28k.fits"),
		Band:           "Ks",
		MaxVariability: 2,
	}
	return pipe, job
}

func fitNames(fits []fitRecord) []string {
	out := make([]string, len(fits))
	for i, f := range fits {
		out[i] = f.Name
	}
	return out
}

func TestFactory_EscalatesThroughEveryLevel(t *testing.T) {
	sim := newDaoSim(t, cleanFit)
	pipe, job := newTestPipeline(t)
	dir := filepath.Dir(job.ImagePath)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	// One initial fit, one fit per complexity level in increasing order,
	// then the definitive fit at the highest level.
	assert.Equal(t, []string{"init", "var0", "var1", "var2", "fin"}, fitNames(sim.fits))
	assert.Equal(t, []fitRecord{
		{Name: "init", VA: -1},
		{Name: "var0", VA: 0},
		{Name: "var1", VA: 1},
		{Name: "var2", VA: 2},
		{Name: "fin", VA: 2},
	}, sim.fits)

	assert.False(t, result.FellBack)
	assert.Equal(t, 2, result.Variability)
	assert.Equal(t, filepath.Join(dir, "sky28k_fin.psf"), result.PSFPath)
	assert.Equal(t, filepath.Join(dir, "sky28krev.lst"), result.PickPath)

	persisted, err := daofile.ReadPickCatalog(result.PickPath)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, persisted.IDs())
}

func TestFactory_WritesOverlays(t *testing.T) {
	sim := newDaoSim(t, cleanFit)
	pipe, job := newTestPipeline(t)
	dir := filepath.Dir(job.ImagePath)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	_, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	for _, name := range []string{"sky28k_find.reg", "sky28k_psf.reg", "sky28k_psfrev.reg"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestFactory_FallsBackOnNonConvergence(t *testing.T) {
	sim := newDaoSim(t, func(name string, _ int) (string, bool) {
		if name == "var1" {
			return "  Clipping profile errors", false
		}
		return cleanFit(name, 0)
	})
	pipe, job := newTestPipeline(t)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	// var2 is never attempted; the definitive fit reverts to the fully
	// analytic profile.
	assert.Equal(t, []fitRecord{
		{Name: "init", VA: -1},
		{Name: "var0", VA: 0},
		{Name: "var1", VA: 1},
		{Name: "fin", VA: -1},
	}, sim.fits)

	assert.True(t, result.FellBack)
	assert.Equal(t, -1, result.Variability)
}

func TestFactory_FallsBackOnInitialNonConvergence(t *testing.T) {
	sim := newDaoSim(t, func(name string, _ int) (string, bool) {
		if name == "init" {
			return "  Clipping profile errors", false
		}
		return cleanFit(name, 0)
	})
	pipe, job := newTestPipeline(t)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	assert.Equal(t, []fitRecord{
		{Name: "init", VA: -1},
		{Name: "fin", VA: -1},
	}, sim.fits)
	assert.True(t, result.FellBack)
}

func TestFactory_CullsAndRefitsUntilStable(t *testing.T) {
	sim := newDaoSim(t, func(name string, attempt int) (string, bool) {
		if name == "var0" && attempt == 1 {
			return "      2 is not a good star.", true
		}
		return cleanFit(name, 0)
	})
	pipe, job := newTestPipeline(t)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	// The flagged star triggers exactly one re-fit at the same level.
	assert.Equal(t, []string{"init", "var0", "var0", "var1", "var2", "fin"}, fitNames(sim.fits))

	persisted, err := daofile.ReadPickCatalog(result.PickPath)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, persisted.IDs())
}

func TestFactory_AllCandidatesCulledFails(t *testing.T) {
	sim := newDaoSim(t, func(name string, _ int) (string, bool) {
		if name == "var0" {
			return "      1 is not a good star.\n      2 is not a good star.\n      3 is not a good star.", true
		}
		return cleanFit(name, 0)
	})
	pipe, job := newTestPipeline(t)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	_, err := factory.Run(context.Background(), pipe, job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoCandidates))
}

func TestFactory_RecoversHiddenStars(t *testing.T) {
	sim := newDaoSim(t, cleanFit)
	pipe, job := newTestPipeline(t)
	job.MaxVariability = 0
	job.RunAllstar = true
	job.FindHidden = true
	dir := filepath.Dir(job.ImagePath)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	// One documentation run after the initial fit and one per refinement
	// round, each producing its photometry and subtracted frame.
	assert.Equal(t, []string{"sky28k.fits", "sky28k.fits", "sky28k.fits"}, sim.allstarImages)
	for _, name := range []string{"sky28k_init.als", "sky28k_var0_als.fits", "sky28k_fin_als.fits"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	// The secondary passes open their own sessions on the subtracted frames.
	assert.Equal(t, 3, sim.spawns)

	// Each pass folds the recovered stars into the original catalog with
	// serials offset past the existing maximum.
	catalog, err := daofile.ReadApertureCatalog(result.AperturePath)
	require.NoError(t, err)
	assert.Equal(t, 12, catalog.NStars())
	assert.Equal(t, 12, catalog.MaxID())

	assert.FileExists(t, filepath.Join(dir, "sky28k_hidden.reg"))
}

func TestFactory_HiddenStarFailureIsNonFatal(t *testing.T) {
	sim := newDaoSim(t, cleanFit)
	sim.allstarSpawnErr = errors.New("program not installed")
	pipe, job := newTestPipeline(t)
	job.FindHidden = true
	dir := filepath.Dir(job.ImagePath)

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).MinTimes(1)

	factory := pipeline.NewFactory(log, sim)
	result, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	// The secondary pass never succeeds, but the main loop runs to the
	// definitive fit regardless.
	assert.Equal(t, []string{"init", "var0", "var1", "var2", "fin"}, fitNames(sim.fits))
	assert.False(t, result.FellBack)
	assert.NoFileExists(t, filepath.Join(dir, "sky28k_hidden.reg"))
}

func TestFactory_SubtractsFromOriginalFrameEachRound(t *testing.T) {
	sim := newDaoSim(t, cleanFit)
	pipe, job := newTestPipeline(t)

	factory := pipeline.NewFactory(newTestLogger(t), sim)
	_, err := factory.Run(context.Background(), pipe, job)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"sky28k_var0_subnei.fits",
		"sky28k_var1_subnei.fits",
		"sky28k_var2_subnei.fits",
		"sky28k_fin_subnei.fits",
	}, sim.subtractions)

	// Every subtraction round re-attaches the original frame first, then the
	// cleaned copy for the fit.
	assert.Equal(t, []string{
		"sky28k.fits",
		"sky28k.fits", "sky28k_var0_subnei.fits",
		"sky28k.fits", "sky28k_var1_subnei.fits",
		"sky28k.fits", "sky28k_var2_subnei.fits",
		"sky28k.fits", "sky28k_fin_subnei.fits",
	}, sim.attached)
}
