package domain

import "time"

// Timeouts bounds the prompt-synchronized operations. Detection and fitting
// can take tens of minutes on dense fields, so they carry their own budgets.
type Timeouts struct {
	Default time.Duration
	Detect  time.Duration
	Fit     time.Duration
}

// PickerSettings configures candidate selection and filtering.
type PickerSettings struct {
	// Count is the number of stars requested from the automatic pick.
	Count int
	// MagLimit is the faintest instrumental magnitude accepted by the pick.
	MagLimit float64
	// BrightRadius is the exclusion radius, in pixels, around bright
	// reference stars.
	BrightRadius float64
	// BrightMagLimit marks reference stars brighter than this as
	// contaminating.
	BrightMagLimit float64
	// ReferencePath is the bright-star reference catalog file. Empty disables
	// the proximity filter.
	ReferencePath string
}

// ImageJob describes one image to build a PSF model for.
type ImageJob struct {
	// Name labels the job and prefixes its overlay files.
	Name string
	// ImagePath is the input frame. Its directory is the working directory.
	ImagePath string
	// FlagPath is the data-quality companion. Empty disables the flag filter.
	FlagPath string
	// Band is the photometric band of the frame ("J" or "Ks").
	Band string
	// MaxVariability is the highest PSF complexity level to escalate to.
	MaxVariability int
	// RunAllstar documents each refinement step with an allstar run.
	RunAllstar bool
	// FindHidden enables the secondary hidden-star detection pass.
	FindHidden bool
	// Clean sweeps intermediate artifacts after the model is final.
	Clean bool
}

// Pipeline is the full validated run configuration.
type Pipeline struct {
	// Shell wraps the legacy programs, e.g. "/bin/tcsh".
	Shell string
	// DaophotCmd and AllstarCmd are the program names to invoke.
	DaophotCmd string
	AllstarCmd string
	// RadiiFile is the aperture radii options file installed in every
	// working directory (photo.opt).
	RadiiFile string
	// PixelScale converts model widths to arcseconds; 1 reports pixels.
	PixelScale float64
	Timeouts   Timeouts
	Picker     PickerSettings
	Images     []ImageJob
}

// Image returns the job with the given name.
func (p *Pipeline) Image(name string) (ImageJob, bool) {
	for _, job := range p.Images {
		if job.Name == name {
			return job, true
		}
	}
	return ImageJob{}, false
}

// PSFResult is the outcome of one image's pipeline run.
type PSFResult struct {
	// PSFPath is the definitive model (final fit or analytic fallback).
	PSFPath string
	// PickPath is the last persisted candidate list.
	PickPath string
	// CoordPath is the initial detection catalog.
	CoordPath string
	// AperturePath is the aperture photometry catalog.
	AperturePath string
	// Variability is the complexity level of the definitive model; -1 for
	// the analytic fallback.
	Variability int
	// FellBack reports whether the analytic fallback produced the model.
	FellBack bool
}
