package daophot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Allstar prompt substrings; part of the wire contract.
const (
	promptAllstarImage = "Input image name:"
	markerAllstarDone  = "Good bye."
)

// AllstarJob describes one profile-fitting photometry run. All file paths
// must live in the input image's directory; the program is answered with
// their base names.
type AllstarJob struct {
	// Shell and Command invoke the program, normally "allstar".
	Shell   string
	Command string
	// ImagePath is the frame to measure.
	ImagePath string
	// PSFPath is the model to fit with.
	PSFPath string
	// AperturePath is the input photometry catalog.
	AperturePath string
	// PhotOutputPath receives the profile-fitting photometry.
	PhotOutputPath string
	// ImageOutputPath receives the star-subtracted frame.
	ImageOutputPath string
	// Timeout bounds the whole run.
	Timeout time.Duration
}

// RunAllstar performs one batch run of the profile-fitting program. Unlike
// the interactive session it answers every prompt up front and waits for the
// completion phrase.
func RunAllstar(ctx context.Context, factory ports.TransportFactory, job AllstarJob) error {
	// Remove stale outputs so the program never raises its overwrite prompt.
	for _, path := range []string{job.PhotOutputPath, job.ImageOutputPath} {
		if fileExists(path) {
			if err := os.Remove(path); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to remove stale output"), "path", path)
			}
		}
	}

	transport, err := factory.Spawn(ctx, job.Shell, job.Command, filepath.Dir(job.ImagePath))
	if err != nil {
		return zerr.Wrap(err, "failed to spawn profile-fitting program")
	}
	defer func() { _ = transport.Close() }()

	expect := func(pattern string) error {
		if _, _, err := transport.Expect(ctx, job.Timeout, pattern); err != nil {
			return zerr.With(err, "expected", pattern)
		}
		return nil
	}
	answer := func(line, next string) error {
		if err := transport.Send(line); err != nil {
			return err
		}
		return expect(next)
	}

	if err := expect(promptOption); err != nil {
		return err
	}
	// Accept the default options.
	if err := answer("", promptAllstarImage); err != nil {
		return err
	}
	if err := answer(filepath.Base(job.ImagePath), promptColon); err != nil {
		return err
	}
	// File with the PSF.
	if err := answer(filepath.Base(job.PSFPath), promptColon); err != nil {
		return err
	}
	// Input photometry file.
	if err := answer(filepath.Base(job.AperturePath), promptColon); err != nil {
		return err
	}
	// Output photometry file.
	if err := answer(filepath.Base(job.PhotOutputPath), promptColon); err != nil {
		return err
	}
	// Output subtracted image, then wait for the run to finish.
	if err := answer(filepath.Base(job.ImageOutputPath), markerAllstarDone); err != nil {
		return err
	}

	return nil
}

// AllstarOutputPaths derives the conventional output names for a run on the
// given image: the profile-fitting photometry catalog and the subtracted
// frame.
func AllstarOutputPaths(imagePath string) (photPath, subImagePath string) {
	root := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	return root + ".als", root + "_als" + filepath.Ext(imagePath)
}
