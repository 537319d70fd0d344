package daophot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/daopilot/internal/adapters/daophot"
	"go.trai.ch/daopilot/internal/adapters/pathcache"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/daopilot/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// reply scripts one Expect call: the prompt the fake emits and the text
// preceding it.
type reply struct {
	match string
	text  string
}

// scriptedTransport replays a canned prompt sequence and records every line
// sent, so protocol exchanges can be asserted without the real program.
type scriptedTransport struct {
	t       *testing.T
	replies []reply
	sends   []string
	closed  bool
}

func (s *scriptedTransport) Send(line string) error {
	s.sends = append(s.sends, line)
	return nil
}

func (s *scriptedTransport) Expect(_ context.Context, _ time.Duration, patterns ...string) (int, string, error) {
	if len(s.replies) == 0 {
		s.t.Fatalf("unexpected Expect(%v): script exhausted", patterns)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]

	for i, p := range patterns {
		if p == r.match {
			return i, r.text, nil
		}
	}
	s.t.Fatalf("scripted prompt %q not among expected patterns %v", r.match, patterns)
	return -1, "", nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

type scriptedFactory struct {
	transport *scriptedTransport
}

func (f *scriptedFactory) Spawn(context.Context, string, string, string) (ports.Transport, error) {
	return f.transport, nil
}

// startupReplies covers the banner, the WA=-2 option exchange, and the
// initial attach performed by StartSession.
func startupReplies() []reply {
	return []reply{
		{match: "Command:"},
		{match: ":"},
		{match: "OPT>"},
		{match: "OPT>"},
		{match: "Command:"},
		{match: "Command:"},
	}
}

var startupSends = []string{"OPTION", "", "WA=-2", "", "ATTACH sky28k.fits"}

func newLogger(t *testing.T) ports.Logger {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return mockLogger
}

func newSession(t *testing.T, workDir string, extra []reply) (*daophot.Session, *scriptedTransport) {
	t.Helper()
	transport := &scriptedTransport{t: t, replies: append(startupReplies(), extra...)}
	cache := pathcache.New(filepath.Join(workDir, "sky28k.fits"))

	session, err := daophot.StartSession(context.Background(), &scriptedFactory{transport: transport},
		cache, newLogger(t), daophot.Config{
			Shell:   "/bin/tcsh",
			Command: "daophot",
			Timeouts: domain.Timeouts{
				Default: time.Second,
				Detect:  time.Second,
				Fit:     time.Second,
			},
		})
	require.NoError(t, err)
	return session, transport
}

func TestStartSession(t *testing.T) {
	_, transport := newSession(t, t.TempDir(), nil)
	assert.Equal(t, startupSends, transport.sends)
	assert.Empty(t, transport.replies)
}

func TestSession_Find(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: "Are you happy with this?"},
		{match: "Command:"},
	})

	cooPath, err := session.Find(context.Background(), 1, 1, "init", domain.FileRef{})
	require.NoError(t, err)

	assert.Equal(t, "sky28k_init.coo", cooPath)
	assert.Equal(t, append(startupSends, "FIND", "1,1", "sky28k_init.coo", "Y"), transport.sends)
	assert.Equal(t, "sky28k_init.coo", session.Cache().MostRecent(domain.CategoryCoord))
}

func TestSession_Photometry(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: "PHO>"},
		{match: "PHO>"},
		{match: "PHO>"},
		{match: ":"},
		{match: ":"},
		{match: "Command:"},
	})

	session.Cache().SetMostRecent(domain.CategoryCoord, "sky28k.coo")

	apPath, err := session.Photometry(context.Background(), domain.MostRecent(), "photo.opt",
		map[string]string{"IS": "10", "OS": "20"}, "", domain.FileRef{})
	require.NoError(t, err)

	assert.Equal(t, "sky28k.ap", apPath)
	assert.Equal(t, append(startupSends,
		"PHOTOMETRY", "photo.opt", "IS=10", "OS=20", "", "sky28k.coo", "sky28k.ap"), transport.sends)
	assert.Equal(t, "sky28k.ap", session.Cache().MostRecent(domain.CategoryAperture))
}

func TestSession_PickStars(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "Command:"},
	})
	session.Cache().SetMostRecent(domain.CategoryAperture, "sky28k.ap")

	lstPath, err := session.PickStars(context.Background(), 200, domain.MostRecent(), 17,
		"", domain.FileRef{})
	require.NoError(t, err)

	assert.Equal(t, "sky28k.lst", lstPath)
	assert.Equal(t, append(startupSends, "PICK", "sky28k.ap", "200,17", "sky28k.lst"), transport.sends)
}

func TestSession_MakePSF(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "nei", text: "Profile errors:\n   2182 is not a good star.\n"},
		{match: "Command:"},
	})
	session.Cache().SetMostRecent(domain.CategoryAperture, "sky28k.ap")
	session.Cache().SetMostRecent(domain.CategoryPick, "sky28k.lst")

	result, err := session.MakePSF(context.Background(), domain.MostRecent(), domain.MostRecent(),
		"var0", domain.FileRef{})
	require.NoError(t, err)

	assert.Equal(t, "sky28k_var0.psf", result.PSFPath)
	assert.Equal(t, "sky28k_var0.nei", result.NeighbourPath)
	assert.Equal(t, []int{2182}, result.Report.FlaggedIDs())
	assert.Equal(t, append(startupSends,
		"PSF", "sky28k.ap", "sky28k.lst", "sky28k_var0.psf", ""), transport.sends)
	assert.Equal(t, "sky28k_var0.nei", session.Cache().MostRecent(domain.CategoryNeighbour))
}

func TestSession_MakePSF_RemovesStaleNeighbourFile(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "sky28k_var0.nei")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	session, _ := newSession(t, dir, []reply{
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "nei"},
		{match: "Command:"},
	})

	_, err := session.MakePSF(context.Background(), domain.MostRecent(), domain.MostRecent(),
		"var0", domain.FileRef{})
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSession_MakePSF_NotConverged(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "Failed to converge.", text: "Chi    Parameters...\n"},
		{match: "Command:"},
	})

	result, err := session.MakePSF(context.Background(), domain.MostRecent(), domain.MostRecent(),
		"var1", domain.FileRef{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotConverged))
	require.NotNil(t, result)
	assert.Empty(t, result.PSFPath)
	assert.Contains(t, result.Report.Text, "Chi")
	assert.Empty(t, transport.replies)
}

func TestSession_MakePSF_NotConvergedAtCommandPrompt(t *testing.T) {
	session, _ := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "Command:"},
	})

	_, err := session.MakePSF(context.Background(), domain.MostRecent(), domain.MostRecent(),
		"var1", domain.FileRef{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotConverged))
}

func TestSession_SubStar(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: "in?"},
		{match: ":"},
		{match: ":"},
		{match: "Command:"},
	})
	session.Cache().SetMostRecent(domain.CategoryModel, "sky28k_var0.psf")

	out, err := session.SubStar(context.Background(), "sky28k_var0.nei", domain.MostRecent(),
		"sky28k_subnei.fits", "sky28k.lst")
	require.NoError(t, err)

	assert.Equal(t, "sky28k_subnei.fits", out)
	assert.Equal(t, append(startupSends,
		"SUBSTAR", "sky28k_var0.psf", "sky28k_var0.nei", "Y", "sky28k.lst", "sky28k_subnei.fits"),
		transport.sends)
}

func TestSession_SubStar_NoKeepers(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), []reply{
		{match: ":"},
		{match: ":"},
		{match: "in?"},
		{match: ":"},
		{match: "Command:"},
	})
	session.Cache().SetMostRecent(domain.CategoryModel, "sky28k_var0.psf")

	_, err := session.SubStar(context.Background(), "sky28k_var0.nei", domain.MostRecent(),
		"sky28k_sub.fits", "")
	require.NoError(t, err)
	assert.Contains(t, transport.sends, "N")
	assert.NotContains(t, transport.sends, "Y")
}

func TestSession_Shutdown(t *testing.T) {
	session, transport := newSession(t, t.TempDir(), nil)

	require.NoError(t, session.Shutdown())
	assert.Equal(t, "exit", transport.sends[len(transport.sends)-1])
	assert.True(t, transport.closed)
}

func TestRunAllstar(t *testing.T) {
	dir := t.TempDir()
	stalePhot := filepath.Join(dir, "sky28k.als")
	require.NoError(t, os.WriteFile(stalePhot, []byte("stale"), 0o644))

	transport := &scriptedTransport{t: t, replies: []reply{
		{match: "OPT>"},
		{match: "Input image name:"},
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: ":"},
		{match: "Good bye."},
	}}

	err := daophot.RunAllstar(context.Background(), &scriptedFactory{transport: transport}, daophot.AllstarJob{
		Shell:           "/bin/tcsh",
		Command:         "allstar",
		ImagePath:       filepath.Join(dir, "sky28k.fits"),
		PSFPath:         filepath.Join(dir, "sky28k_fin.psf"),
		AperturePath:    filepath.Join(dir, "sky28k.ap"),
		PhotOutputPath:  stalePhot,
		ImageOutputPath: filepath.Join(dir, "sky28k_als.fits"),
		Timeout:         time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "sky28k.fits", "sky28k_fin.psf", "sky28k.ap", "sky28k.als", "sky28k_als.fits"},
		transport.sends)
	assert.True(t, transport.closed)

	_, statErr := os.Stat(stalePhot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAllstarOutputPaths(t *testing.T) {
	phot, sub := daophot.AllstarOutputPaths("/data/sky28k.fits")
	assert.Equal(t, "/data/sky28k.als", phot)
	assert.Equal(t, "/data/sky28k_als.fits", sub)
}
