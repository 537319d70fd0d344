package domain

import "go.trai.ch/zerr"

var (
	// ErrPromptTimeout is returned when an expected prompt does not appear
	// before the operation timeout. The session is unusable afterwards.
	ErrPromptTimeout = zerr.New("expected prompt did not appear before timeout")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session whose subprocess has exited or been shut down.
	ErrSessionClosed = zerr.New("session is closed")

	// ErrNotConverged is returned when the fitting routine reports that it
	// cannot converge on a model. Recoverable via the analytic fallback.
	ErrNotConverged = zerr.New("psf fit failed to converge")

	// ErrNoCandidates is returned when culling or filtering empties the
	// candidate set. Fitting with an empty list is never attempted.
	ErrNoCandidates = zerr.New("no psf candidate stars remain")

	// ErrCandidateUnknown is returned when a candidate ID has no entry in the
	// backing aperture photometry catalog.
	ErrCandidateUnknown = zerr.New("candidate star not present in aperture catalog")

	// ErrCatalogReadFailed is returned when a catalog file cannot be read.
	ErrCatalogReadFailed = zerr.New("failed to read catalog file")

	// ErrCatalogParseFailed is returned when a catalog record cannot be parsed.
	ErrCatalogParseFailed = zerr.New("failed to parse catalog record")

	// ErrCatalogWriteFailed is returned when a catalog file cannot be written.
	ErrCatalogWriteFailed = zerr.New("failed to write catalog file")

	// ErrModelParseFailed is returned when a PSF model header cannot be parsed.
	ErrModelParseFailed = zerr.New("failed to parse psf model header")

	// ErrFlagMapParseFailed is returned when a flag map raster cannot be parsed.
	ErrFlagMapParseFailed = zerr.New("failed to parse flag map")

	// ErrUnknownBand is returned when a photometric band is not recognized.
	ErrUnknownBand = zerr.New("unknown photometric band")

	// ErrConfigReadFailed is returned when the pipeline config cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the pipeline config cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when no pipeline config can be discovered.
	ErrConfigNotFound = zerr.New("could not find daopilot.yaml")

	// ErrNoImages is returned when a run selects no images to process.
	ErrNoImages = zerr.New("no images specified")

	// ErrImageNotFound is returned when a named image is not in the pipeline.
	ErrImageNotFound = zerr.New("image not found in pipeline")

	// ErrPipelineFailed is returned when processing of an image fails.
	ErrPipelineFailed = zerr.New("pipeline execution failed")

	// ErrManifestReadFailed is returned when the run manifest cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read run manifest")

	// ErrManifestWriteFailed is returned when the run manifest cannot be written.
	ErrManifestWriteFailed = zerr.New("failed to write run manifest")
)
