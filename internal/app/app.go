// Package app implements the application layer for daopilot.
package app

import (
	"context"
	"fmt"

	"go.trai.ch/daopilot/internal/adapters/manifest"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/daopilot/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultManifestName is the run manifest written next to the configuration.
const DefaultManifestName = "daopilot.manifest.json"

// Runner builds the PSF model for one image.
type Runner interface {
	Run(ctx context.Context, pipe *domain.Pipeline, job domain.ImageJob) (domain.PSFResult, error)
}

// App represents the main application logic.
type App struct {
	logger   ports.Logger
	loader   ports.ConfigLoader
	runner   Runner
	manifest *manifest.Store
}

// New creates a new App instance.
func New(logger ports.Logger, loader ports.ConfigLoader, runner Runner, store *manifest.Store) *App {
	return &App{
		logger:   logger,
		loader:   loader,
		runner:   runner,
		manifest: store,
	}
}

// RunOptions control one pipeline invocation.
type RunOptions struct {
	// Workers bounds how many images are processed concurrently. Values
	// below one mean sequential processing.
	Workers int
	// ManifestPath overrides the default run manifest location.
	ManifestPath string
}

// Run builds PSF models for the named images, or for every configured image
// when no names are given, and records the produced artifacts in the run
// manifest.
func (a *App) Run(ctx context.Context, imageNames []string, opts RunOptions) error {
	pipe, err := a.loader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	jobs, err := selectJobs(pipe, imageNames)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]domain.PSFResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			a.logger.Info(fmt.Sprintf("building psf model for %s", job.Name))
			result, err := a.runner.Run(gctx, pipe, job)
			if err != nil {
				return err
			}
			results[i] = result
			if result.FellBack {
				a.logger.Warn(fmt.Sprintf("%s fell back to the analytic model", job.Name))
			} else {
				a.logger.Info(fmt.Sprintf("%s converged at variability %d", job.Name, result.Variability))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return a.writeManifest(jobs, results, opts.ManifestPath)
}

// Clean sweeps the intermediate artifacts of the named images, or of every
// configured image when no names are given.
func (a *App) Clean(imageNames []string) error {
	pipe, err := a.loader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	jobs, err := selectJobs(pipe, imageNames)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		pipeline.Sweep(a.logger, job)
	}
	return nil
}

// Verify re-checksums every artifact the manifest records and returns the
// paths whose content is missing or has changed.
func (a *App) Verify(manifestPath string) ([]string, error) {
	if manifestPath == "" {
		manifestPath = DefaultManifestName
	}
	m, err := a.manifest.Read(manifestPath)
	if err != nil {
		return nil, err
	}
	return a.manifest.Verify(m)
}

func (a *App) writeManifest(jobs []domain.ImageJob, results []domain.PSFResult, path string) error {
	if path == "" {
		path = DefaultManifestName
	}

	m := a.manifest.New()
	for i, job := range jobs {
		result := results[i]
		paths := []string{result.PSFPath, result.PickPath, result.CoordPath, result.AperturePath}
		if err := a.manifest.RecordImage(m, job.Name, result, paths); err != nil {
			return err
		}
	}
	if err := a.manifest.Write(path, m); err != nil {
		return err
	}

	a.logger.Info(fmt.Sprintf("recorded %d images in %s", len(jobs), path))
	return nil
}

func selectJobs(pipe *domain.Pipeline, names []string) ([]domain.ImageJob, error) {
	if len(names) == 0 {
		return pipe.Images, nil
	}

	jobs := make([]domain.ImageJob, 0, len(names))
	for _, name := range names {
		job, ok := pipe.Image(name)
		if !ok {
			return nil, zerr.With(domain.ErrImageNotFound, "image", name)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
