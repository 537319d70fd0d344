// Package pipeline orchestrates the PSF model construction for one image:
// detection, candidate picking, and the iterative subtract-fit-cull loop
// with complexity escalation and the analytic fallback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/daopilot/internal/adapters/daofile"
	"go.trai.ch/daopilot/internal/adapters/daophot"
	"go.trai.ch/daopilot/internal/adapters/flagmap"
	"go.trai.ch/daopilot/internal/adapters/pathcache"
	"go.trai.ch/daopilot/internal/adapters/refcat"
	"go.trai.ch/daopilot/internal/adapters/region"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/daopilot/internal/picker"
	"go.trai.ch/zerr"
)

// finalName is the reserved artifact name of the definitive model.
const finalName = "fin"

// analyticVariability is the VA level of the purely analytic model.
const analyticVariability = -1

// Factory builds PSF models, one image at a time.
type Factory struct {
	logger    ports.Logger
	transport ports.TransportFactory
}

// NewFactory creates a PSF factory.
func NewFactory(logger ports.Logger, transport ports.TransportFactory) *Factory {
	return &Factory{logger: logger, transport: transport}
}

// run carries the per-image state of one pipeline execution.
type run struct {
	*Factory
	pipe    *domain.Pipeline
	job     domain.ImageJob
	cache   *pathcache.Cache
	session *daophot.Session
	picker  *picker.Picker
	// apPath is the aperture photometry catalog the fits draw from. The
	// hidden-star pass extends it in place.
	apPath string
	// neiPath is the most recent neighbour list, relative to the work dir.
	neiPath string
}

// Run builds the PSF model for one image, driving the full state machine
// from detection through the definitive fit and the optional cleanup sweep.
func (f *Factory) Run(ctx context.Context, pipe *domain.Pipeline, job domain.ImageJob) (domain.PSFResult, error) {
	result, err := f.runImage(ctx, pipe, job)
	if err != nil {
		return result, zerr.With(zerr.Wrap(err, domain.ErrPipelineFailed.Error()), "image", job.Name)
	}
	return result, nil
}

func (f *Factory) runImage(ctx context.Context, pipe *domain.Pipeline, job domain.ImageJob) (domain.PSFResult, error) {
	var result domain.PSFResult

	cache := pathcache.New(job.ImagePath)
	if err := installRadiiFile(pipe.RadiiFile, cache.WorkDir()); err != nil {
		return result, err
	}

	session, err := daophot.StartSession(ctx, f.transport, cache, f.logger, daophot.Config{
		Shell:    pipe.Shell,
		Command:  pipe.DaophotCmd,
		Timeouts: pipe.Timeouts,
	})
	if err != nil {
		return result, err
	}
	defer func() { _ = session.Shutdown() }()

	r := &run{Factory: f, pipe: pipe, job: job, cache: cache, session: session}

	if err := r.detect(ctx, &result); err != nil {
		return result, err
	}
	if err := r.pick(ctx); err != nil {
		return result, err
	}
	if err := r.refine(ctx, &result); err != nil {
		return result, err
	}

	result.PSFPath = cache.Abs(cache.Resolve(domain.CategoryModel, domain.Name(finalName)))
	result.PickPath = r.picker.ListPath()
	f.logModelSummary(pipe, job, result.PSFPath)

	if job.Clean {
		Sweep(f.logger, job)
	}
	return result, nil
}

// logModelSummary reports the headline figures of the definitive model. A
// model that cannot be parsed is worth a warning but never fails the run.
func (f *Factory) logModelSummary(pipe *domain.Pipeline, job domain.ImageJob, psfPath string) {
	if !fileExists(psfPath) {
		return
	}
	model, err := daofile.ReadPSFModel(psfPath)
	if err != nil {
		f.logger.Warn(fmt.Sprintf("could not parse model for %s: %v", job.Name, err))
		return
	}
	unit := "\""
	if pipe.PixelScale == 1 {
		unit = "px"
	}
	f.logger.Info(fmt.Sprintf("%s: %s model, seeing %.2f%s, prototype mag %.3f",
		job.Name, model.Type, model.Seeing(pipe.PixelScale), unit, model.PrototypeMag()))
}

// detect runs the initial detection and aperture photometry with the fully
// analytic model baseline.
func (r *run) detect(ctx context.Context, result *domain.PSFResult) error {
	if err := r.session.SetOption(ctx, "VA", strconv.Itoa(analyticVariability)); err != nil {
		return err
	}

	cooPath, err := r.session.Find(ctx, 1, 1, "", domain.FileRef{})
	if err != nil {
		return err
	}
	result.CoordPath = r.cache.Abs(cooPath)

	if err := r.writeCoordOverlay(result.CoordPath, r.job.Name+"_find.reg", "yellow"); err != nil {
		return err
	}

	apPath, err := r.session.Photometry(ctx, domain.MostRecent(), r.pipe.RadiiFile, nil, "", domain.FileRef{})
	if err != nil {
		return err
	}
	r.apPath = r.cache.Abs(apPath)
	result.AperturePath = r.apPath
	return nil
}

// pick obtains the automatic candidate list and narrows it with the
// configured filters, persisting the revised list under its own name.
func (r *run) pick(ctx context.Context) error {
	settings := r.pipe.Picker

	lstPath, err := r.session.PickStars(ctx, settings.Count, domain.MostRecent(),
		settings.MagLimit, "", domain.FileRef{})
	if err != nil {
		return err
	}

	apCatalog, err := daofile.ReadApertureCatalog(r.apPath)
	if err != nil {
		return err
	}

	filters, err := r.buildFilters()
	if err != nil {
		return err
	}

	r.picker = picker.New(r.logger, apCatalog, filters...)
	if err := r.picker.UseAutoPicks(r.cache.Abs(lstPath)); err != nil {
		return err
	}
	if err := r.picker.WriteOverlay(filepath.Join(r.cache.WorkDir(), r.job.Name+"_psf.reg")); err != nil {
		return err
	}

	// The revised list lives beside the automatic one so the program's own
	// output stays untouched for inspection.
	revPath := filepath.Join(r.cache.WorkDir(), r.job.Name+"rev.lst")
	r.picker.SetOutputPath(revPath)

	if err := r.picker.Apply(); err != nil {
		return err
	}
	return r.picker.WriteOverlay(filepath.Join(r.cache.WorkDir(), r.job.Name+"_psfrev.reg"))
}

func (r *run) buildFilters() ([]picker.Filter, error) {
	var filters []picker.Filter

	if r.job.FlagPath != "" {
		mask, err := flagmap.Load(r.job.FlagPath)
		if err != nil {
			return nil, err
		}
		filters = append(filters, &picker.FlagMapFilter{Map: mask})
	}

	settings := r.pipe.Picker
	if settings.ReferencePath != "" {
		catalog, err := refcat.Load(settings.ReferencePath)
		if err != nil {
			return nil, err
		}
		bright, err := catalog.StarsBrighterThan(r.job.Band, settings.BrightMagLimit)
		if err != nil {
			return nil, err
		}
		filters = append(filters, &picker.BrightNeighbourFilter{
			Bright: bright,
			Radius: settings.BrightRadius,
		})
	}

	return filters, nil
}

// refine runs the initial fit, the escalation loop, and the final fit,
// falling back to the analytic model when a fit cannot converge.
func (r *run) refine(ctx context.Context, result *domain.PSFResult) error {
	// The initial fit seeds the neighbour list lineage.
	initial, err := r.session.MakePSF(ctx, domain.MostRecent(),
		domain.Path(r.picker.ListPath()), "init", domain.FileRef{})
	if errors.Is(err, domain.ErrNotConverged) {
		return r.fallback(ctx, result)
	}
	if err != nil {
		return err
	}
	r.neiPath = initial.NeighbourPath

	if r.job.RunAllstar {
		if err := r.runAllstar(ctx, "init"); err != nil {
			return err
		}
	}

	lastVar := 0
	for k := 0; k <= r.job.MaxVariability; k++ {
		err := r.iterate(ctx, k, fmt.Sprintf("var%d", k), true)
		if errors.Is(err, domain.ErrNotConverged) {
			return r.fallback(ctx, result)
		}
		if err != nil {
			return err
		}
		lastVar = k
	}

	// The final fit reuses the last complexity level under the reserved
	// name. It runs exactly once; its diagnostics never trigger a re-fit.
	err = r.iterate(ctx, lastVar, finalName, false)
	if errors.Is(err, domain.ErrNotConverged) {
		return r.fallback(ctx, result)
	}
	if err != nil {
		return err
	}

	result.Variability = lastVar
	return nil
}

// iterate performs one subtract-fit round at the given complexity level.
// With culling enabled it repeats until a fit flags no further candidates.
// Neighbours are always subtracted from the original frame; the fit then
// runs against the cleaned copy.
func (r *run) iterate(ctx context.Context, variability int, name string, cull bool) error {
	subImage := r.subImageName(name)

	for {
		if err := r.session.Attach(ctx, domain.Name(domain.InputImageName)); err != nil {
			return err
		}
		if _, err := r.session.SubStar(ctx, r.neiPath, domain.MostRecent(),
			subImage, r.picker.ListPath()); err != nil {
			return err
		}
		if err := r.session.SetOption(ctx, "VA", strconv.Itoa(variability)); err != nil {
			return err
		}
		if err := r.session.Attach(ctx, domain.Path(subImage)); err != nil {
			return err
		}

		fit, err := r.session.MakePSF(ctx, domain.MostRecent(),
			domain.Path(r.picker.ListPath()), name, domain.FileRef{})
		if err != nil {
			return err
		}
		r.neiPath = fit.NeighbourPath

		if !cull {
			break
		}
		removed, err := r.picker.CullWithFitReport(fit.Report)
		if err != nil {
			return err
		}
		if !removed {
			break
		}
		r.logger.Info(fmt.Sprintf("re-fitting %s model after culling flagged stars", name))
	}

	if r.job.RunAllstar {
		if err := r.runAllstar(ctx, name); err != nil {
			return err
		}
	}
	if r.job.FindHidden {
		// Hidden-star recovery documents extra sources but never sinks the
		// main loop.
		if err := r.findHiddenStars(ctx, name); err != nil {
			r.logger.Warn(fmt.Sprintf("hidden star pass failed for %s: %v", r.job.Name, err))
		}
	}
	return nil
}

// fallback abandons escalation and produces the definitive model with the
// fully analytic profile on the original frame. It is attempted once.
func (r *run) fallback(ctx context.Context, result *domain.PSFResult) error {
	r.logger.Warn(fmt.Sprintf("fit did not converge for %s, falling back to the analytic model", r.job.Name))

	if err := r.session.Attach(ctx, domain.Name(domain.InputImageName)); err != nil {
		return err
	}
	if err := r.session.SetOption(ctx, "VA", strconv.Itoa(analyticVariability)); err != nil {
		return err
	}
	if _, err := r.session.MakePSF(ctx, domain.MostRecent(),
		domain.Path(r.picker.ListPath()), finalName, domain.FileRef{}); err != nil {
		return err
	}

	result.Variability = analyticVariability
	result.FellBack = true
	return nil
}

// runAllstar documents one refinement stage with a profile-fitting run
// against the stage's model.
func (r *run) runAllstar(ctx context.Context, name string) error {
	photPath, subImagePath := r.allstarPaths(name)
	return daophot.RunAllstar(ctx, r.transport, daophot.AllstarJob{
		Shell:           r.pipe.Shell,
		Command:         r.pipe.AllstarCmd,
		ImagePath:       r.job.ImagePath,
		PSFPath:         r.cache.Abs(r.cache.MostRecent(domain.CategoryModel)),
		AperturePath:    r.apPath,
		PhotOutputPath:  photPath,
		ImageOutputPath: subImagePath,
		Timeout:         r.pipe.Timeouts.Fit,
	})
}

// findHiddenStars detects sources the crowded first pass missed: it runs
// detection and photometry on the fully star-subtracted frame of the stage
// and folds any recovered stars into the aperture catalog, so later fits
// see them as neighbours.
func (r *run) findHiddenStars(ctx context.Context, name string) error {
	_, subImagePath := r.allstarPaths(name)
	if !fileExists(subImagePath) {
		if err := r.runAllstar(ctx, name); err != nil {
			return err
		}
	}

	cache := pathcache.New(subImagePath)
	session, err := daophot.StartSession(ctx, r.transport, cache, r.logger, daophot.Config{
		Shell:    r.pipe.Shell,
		Command:  r.pipe.DaophotCmd,
		Timeouts: r.pipe.Timeouts,
	})
	if err != nil {
		return err
	}
	defer func() { _ = session.Shutdown() }()

	if _, err := session.Find(ctx, 1, 1, "", domain.FileRef{}); err != nil {
		return err
	}
	apPath, err := session.Photometry(ctx, domain.MostRecent(), r.pipe.RadiiFile, nil, "", domain.FileRef{})
	if err != nil {
		return err
	}

	hidden, err := daofile.ReadApertureCatalog(cache.Abs(apPath))
	if err != nil {
		return err
	}
	if hidden.NStars() == 0 {
		return nil
	}

	catalog, err := daofile.ReadApertureCatalog(r.apPath)
	if err != nil {
		return err
	}
	catalog.Append(hidden)
	if err := catalog.Write(r.apPath); err != nil {
		return err
	}

	r.logger.Info(fmt.Sprintf("recovered %d hidden stars for %s", hidden.NStars(), r.job.Name))
	overlay := region.NewPointList()
	overlay.AddPositions(hidden.Positions(), "red")
	return overlay.Write(filepath.Join(r.cache.WorkDir(), r.job.Name+"_hidden.reg"))
}

// Sweep removes the intermediate artifacts a run leaves in the image's
// directory, keeping the input frame, the flag map, the definitive model,
// the catalogs, and the revised pick list. Failures to remove are logged
// and skipped.
func Sweep(logger ports.Logger, job domain.ImageJob) {
	workDir := filepath.Dir(job.ImagePath)
	base := trimExt(filepath.Base(job.ImagePath))
	keep := map[string]bool{filepath.Base(job.ImagePath): true}
	if job.FlagPath != "" {
		keep[filepath.Base(job.FlagPath)] = true
	}

	patterns := []string{
		base + "_*.fits",
		base + "*.nei",
		base + "_init.*",
		base + "*.als",
		base + "_var*",
		base + ".lst",
		job.Name + "*.reg",
	}

	removed := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(workDir, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if keep[filepath.Base(match)] {
				continue
			}
			if err := os.Remove(match); err != nil {
				logger.Warn(fmt.Sprintf("could not remove %s: %v", match, err))
				continue
			}
			removed++
		}
	}
	logger.Info(fmt.Sprintf("cleaned %d intermediate files for %s", removed, job.Name))
}

// allstarPaths derives the per-stage output names of a profile-fitting run.
func (r *run) allstarPaths(name string) (photPath, subImagePath string) {
	root := trimExt(r.job.ImagePath)
	ext := filepath.Ext(r.job.ImagePath)
	return root + "_" + name + ".als", root + "_" + name + "_als" + ext
}

// subImageName returns the neighbour-subtracted image filename for one
// refinement round.
func (r *run) subImageName(name string) string {
	base := trimExt(filepath.Base(r.job.ImagePath))
	return base + "_" + name + "_subnei.fits"
}

func (r *run) writeCoordOverlay(cooPath, overlayName, colour string) error {
	catalog, err := daofile.ReadCoordCatalog(cooPath)
	if err != nil {
		return err
	}
	points := region.NewPointList()
	points.AddPositions(catalog.Positions(), colour)
	return points.Write(filepath.Join(r.cache.WorkDir(), overlayName))
}

// installRadiiFile copies the aperture radii options file into the working
// directory, where the program expects it.
func installRadiiFile(src, workDir string) error {
	if src == "" {
		return nil
	}
	dst := filepath.Join(workDir, filepath.Base(src))
	if src == dst {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		// The radii file may already live in the working directory under
		// its bare name.
		if fileExists(dst) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "aperture radii file not found"), "path", src)
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path comes from the run configuration
	if err != nil {
		return zerr.Wrap(err, "failed to open radii file")
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // destination is the image work dir
	if err != nil {
		return zerr.Wrap(err, "failed to install radii file")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return zerr.Wrap(err, "failed to install radii file")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}
