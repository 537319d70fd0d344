// Package daophot drives the legacy interactive PSF-fitting program through
// its terminal prompts. Every operation is a strict request/response
// exchange: send one line, block until the expected prompt appears.
package daophot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.trai.ch/daopilot/internal/adapters/pathcache"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Prompt substrings of the legacy program. These are the wire contract and
// must match the program's output byte-for-byte.
const (
	promptCommand      = "Command:"
	promptColon        = ":"
	promptOption       = "OPT>"
	promptPhot         = "PHO>"
	promptHappy        = "Are you happy with this?"
	promptLeaveIn      = "in?"
	markerNeighbour    = "nei"
	markerNotConverged = "Failed to converge."
)

// Config selects the program to drive and its prompt timeouts.
type Config struct {
	// Shell wraps the program invocation, e.g. "/bin/tcsh".
	Shell string
	// Command is the program name, normally "daophot".
	Command string
	// Timeouts bounds each prompt exchange.
	Timeouts domain.Timeouts
}

// FitResult is the outcome of one PSF fit operation: the diagnostic text
// plus the model artifact pair it produced.
type FitResult struct {
	Report        domain.FitReport
	PSFPath       string
	NeighbourPath string
}

// Session is one live connection to the program, bound to an image's working
// directory. Operations are strictly sequential; the Session owns the
// subprocess exclusively. Any prompt timeout leaves the Session unusable.
type Session struct {
	transport ports.Transport
	cache     *pathcache.Cache
	logger    ports.Logger
	timeouts  domain.Timeouts
}

// StartSession spawns the program in the cache's working directory, consumes
// the banner, turns off the verbose per-star output, and attaches the input
// image.
func StartSession(
	ctx context.Context,
	factory ports.TransportFactory,
	cache *pathcache.Cache,
	logger ports.Logger,
	cfg Config,
) (*Session, error) {
	transport, err := factory.Spawn(ctx, cfg.Shell, cfg.Command, cache.WorkDir())
	if err != nil {
		return nil, zerr.Wrap(err, "failed to spawn fitting program")
	}

	s := &Session{
		transport: transport,
		cache:     cache,
		logger:    logger,
		timeouts:  cfg.Timeouts,
	}

	if _, _, err := s.expect(ctx, s.timeouts.Default, promptCommand); err != nil {
		_ = transport.Close()
		return nil, err
	}

	// WA=-2 silences the per-star progress chatter that would otherwise
	// interleave with the prompts we synchronize on.
	if err := s.SetOption(ctx, "WA", "-2"); err != nil {
		_ = transport.Close()
		return nil, err
	}
	if err := s.Attach(ctx, domain.Name(domain.InputImageName)); err != nil {
		_ = transport.Close()
		return nil, err
	}

	return s, nil
}

// Cache exposes the session's path cache.
func (s *Session) Cache() *pathcache.Cache {
	return s.cache
}

// SetOption sets one program option through the OPTION submenu.
func (s *Session) SetOption(ctx context.Context, name, value string) error {
	if err := s.exchange(ctx, s.timeouts.Default, "OPTION", promptColon); err != nil {
		return err
	}
	// Accept the defaults file.
	if err := s.exchange(ctx, s.timeouts.Default, "", promptOption); err != nil {
		return err
	}
	if err := s.exchange(ctx, s.timeouts.Default, name+"="+value, promptOption); err != nil {
		return err
	}
	return s.exchange(ctx, s.timeouts.Default, "", promptCommand)
}

// Attach makes the given image the program's current frame and records it as
// the most recent image.
func (s *Session) Attach(ctx context.Context, image domain.FileRef) error {
	path := s.cache.Resolve(domain.CategoryImage, image)
	s.cache.SetMostRecent(domain.CategoryImage, path)
	return s.exchange(ctx, s.timeouts.Default, "ATTACH "+path, promptCommand)
}

// Find runs source detection on the attached image and returns the
// coordinate catalog path, relative to the working directory.
func (s *Session) Find(ctx context.Context, nAvg, nSum int, name string, explicit domain.FileRef) (string, error) {
	cooPath := s.cache.OutputPath(domain.CategoryCoord, explicit, name)
	s.cache.Register(domain.CategoryCoord, name, cooPath)
	s.cache.SetMostRecent(domain.CategoryCoord, cooPath)

	if err := s.exchange(ctx, s.timeouts.Default, "FIND", promptColon); err != nil {
		return "", err
	}
	// Number of frames averaged, summed.
	if err := s.exchange(ctx, s.timeouts.Default, fmt.Sprintf("%d,%d", nAvg, nSum), promptColon); err != nil {
		return "", err
	}
	// File for positions.
	if err := s.exchange(ctx, s.timeouts.Detect, cooPath, promptHappy); err != nil {
		return "", err
	}
	if err := s.exchange(ctx, s.timeouts.Default, "Y", promptCommand); err != nil {
		return "", err
	}
	return cooPath, nil
}

// Photometry runs aperture photometry on a coordinate catalog and returns
// the photometry catalog path. radiiFile overrides the default aperture
// radii options file; options are extra PHO-level settings.
func (s *Session) Photometry(
	ctx context.Context,
	coords domain.FileRef,
	radiiFile string,
	options map[string]string,
	name string,
	explicit domain.FileRef,
) (string, error) {
	if err := s.exchange(ctx, s.timeouts.Default, "PHOTOMETRY", promptColon); err != nil {
		return "", err
	}

	// File with aperture radii; empty accepts the default photo.opt.
	radii := ""
	if radiiFile != "" {
		radii = filepath.Base(radiiFile)
	}
	if err := s.exchange(ctx, s.timeouts.Default, radii, promptPhot); err != nil {
		return "", err
	}
	for _, opt := range sortedKeys(options) {
		if err := s.exchange(ctx, s.timeouts.Default, opt+"="+options[opt], promptPhot); err != nil {
			return "", err
		}
	}
	// Close the options list; the program then asks for the input position
	// file.
	if err := s.exchange(ctx, s.timeouts.Default, "", promptColon); err != nil {
		return "", err
	}

	cooPath := s.cache.Resolve(domain.CategoryCoord, coords)
	// Answer the position file; the program then asks for the output file.
	if err := s.exchange(ctx, s.timeouts.Default, cooPath, promptColon); err != nil {
		return "", err
	}

	apPath := s.cache.OutputPath(domain.CategoryAperture, explicit, name)
	s.cache.Register(domain.CategoryAperture, name, apPath)
	s.cache.SetMostRecent(domain.CategoryAperture, apPath)

	if err := s.exchange(ctx, s.timeouts.Detect, apPath, promptCommand); err != nil {
		return "", err
	}
	return apPath, nil
}

// PickStars asks the program to select count PSF candidates no fainter than
// magLimit from a photometry catalog and returns the candidate list path.
func (s *Session) PickStars(
	ctx context.Context,
	count int,
	aperture domain.FileRef,
	magLimit float64,
	name string,
	explicit domain.FileRef,
) (string, error) {
	apPath := s.cache.Resolve(domain.CategoryAperture, aperture)

	lstPath := s.cache.OutputPath(domain.CategoryPick, explicit, name)
	s.cache.Register(domain.CategoryPick, name, lstPath)
	s.cache.SetMostRecent(domain.CategoryPick, lstPath)

	if err := s.exchange(ctx, s.timeouts.Default, "PICK", promptColon); err != nil {
		return "", err
	}
	if err := s.exchange(ctx, s.timeouts.Default, apPath, promptColon); err != nil {
		return "", err
	}
	// Desired number of stars, faintest magnitude.
	request := fmt.Sprintf("%d,%s", count, trimFloat(magLimit))
	if err := s.exchange(ctx, s.timeouts.Default, request, promptColon); err != nil {
		return "", err
	}
	if err := s.exchange(ctx, s.timeouts.Fit, lstPath, promptCommand); err != nil {
		return "", err
	}
	return lstPath, nil
}

// MakePSF fits a model against the candidate list. On success the result
// carries the diagnostic text and the model/neighbour artifact pair. A fit
// the program reports as unfittable returns domain.ErrNotConverged together
// with a result holding the diagnostic text gathered so far.
func (s *Session) MakePSF(
	ctx context.Context,
	aperture, list domain.FileRef,
	name string,
	explicit domain.FileRef,
) (*FitResult, error) {
	apPath := s.cache.Resolve(domain.CategoryAperture, aperture)
	lstPath := s.cache.Resolve(domain.CategoryPick, list)

	psfPath := s.cache.OutputPath(domain.CategoryModel, explicit, name)
	s.cache.Register(domain.CategoryModel, name, psfPath)
	s.cache.SetMostRecent(domain.CategoryModel, psfPath)

	// The neighbour list always shares the model's file root. Remove a stale
	// copy so the program never raises its overwrite prompt.
	neiPath := strings.TrimSuffix(psfPath, filepath.Ext(psfPath)) + "." + domain.CategoryNeighbour.Ext()
	s.cache.SetMostRecent(domain.CategoryNeighbour, neiPath)
	if full := s.cache.Abs(neiPath); fileExists(full) {
		_ = os.Remove(full)
	}

	if err := s.exchange(ctx, s.timeouts.Default, "PSF", promptColon); err != nil {
		return nil, err
	}
	if err := s.exchange(ctx, s.timeouts.Default, apPath, promptColon); err != nil {
		return nil, err
	}
	if err := s.exchange(ctx, s.timeouts.Default, lstPath, promptColon); err != nil {
		return nil, err
	}
	if err := s.transport.Send(psfPath); err != nil {
		return nil, err
	}

	// Three outcomes: the neighbour-file marker signals success, the
	// explicit phrase signals non-convergence, and a bare return to the
	// command prompt also means no model was produced.
	idx, before, err := s.expect(ctx, s.timeouts.Fit,
		markerNeighbour, markerNotConverged, promptCommand)
	if err != nil {
		return nil, err
	}

	result := &FitResult{Report: domain.FitReport{Text: before}}
	if idx != 0 {
		if idx == 1 {
			// Resynchronize on the command prompt before the next operation.
			if _, _, err := s.expect(ctx, s.timeouts.Default, promptCommand); err != nil {
				return nil, err
			}
		}
		return result, domain.ErrNotConverged
	}

	if err := s.exchange(ctx, s.timeouts.Default, "", promptCommand); err != nil {
		return nil, err
	}

	result.PSFPath = psfPath
	result.NeighbourPath = neiPath
	return result, nil
}

// SubStar subtracts the stars of a photometry list from the attached image
// using a model, optionally keeping the stars listed in keepersPath, and
// returns the subtracted image path.
func (s *Session) SubStar(
	ctx context.Context,
	subtractListPath string,
	model domain.FileRef,
	outputPath string,
	keepersPath string,
) (string, error) {
	psfPath := s.cache.Resolve(domain.CategoryModel, model)
	if full := s.cache.Abs(outputPath); fileExists(full) {
		_ = os.Remove(full)
	}

	if err := s.exchange(ctx, s.timeouts.Default, "SUBSTAR", promptColon); err != nil {
		return "", err
	}
	// File with the PSF.
	if err := s.exchange(ctx, s.timeouts.Default, filepath.Base(psfPath), promptColon); err != nil {
		return "", err
	}
	// File with photometry.
	if err := s.exchange(ctx, s.timeouts.Default, filepath.Base(subtractListPath), promptLeaveIn); err != nil {
		return "", err
	}
	if keepersPath != "" {
		if err := s.exchange(ctx, s.timeouts.Default, "Y", promptColon); err != nil {
			return "", err
		}
		if err := s.exchange(ctx, s.timeouts.Default, filepath.Base(keepersPath), promptColon); err != nil {
			return "", err
		}
	} else {
		if err := s.exchange(ctx, s.timeouts.Default, "N", promptColon); err != nil {
			return "", err
		}
	}
	// Name for the subtracted image.
	if err := s.exchange(ctx, s.timeouts.Fit, filepath.Base(outputPath), promptCommand); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Shutdown exits the program and releases the subprocess.
func (s *Session) Shutdown() error {
	if err := s.transport.Send("exit"); err != nil {
		_ = s.transport.Close()
		return err
	}
	return s.transport.Close()
}

// exchange sends one line and blocks until the expected prompt appears.
func (s *Session) exchange(ctx context.Context, timeout time.Duration, line, prompt string) error {
	if err := s.transport.Send(line); err != nil {
		return err
	}
	_, _, err := s.expect(ctx, timeout, prompt)
	return err
}

func (s *Session) expect(ctx context.Context, timeout time.Duration, patterns ...string) (int, string, error) {
	idx, before, err := s.transport.Expect(ctx, timeout, patterns...)
	if err != nil {
		return idx, before, zerr.With(err, "expected", strings.Join(patterns, " | "))
	}
	return idx, before, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
