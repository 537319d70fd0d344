// Package domain holds the core types of the PSF pipeline: file categories
// and references, star records, candidate sets, and fit diagnostics.
package domain

// FileCategory identifies the kind of artifact a path refers to. The values
// double as the filename extensions the legacy photometry suite uses.
type FileCategory string

const (
	// CategoryImage is a FITS frame (the input image or a star-subtracted copy).
	CategoryImage FileCategory = "fits"
	// CategoryCoord is a detection coordinate catalog produced by FIND.
	CategoryCoord FileCategory = "coo"
	// CategoryAperture is an aperture photometry catalog produced by PHOTOMETRY.
	CategoryAperture FileCategory = "ap"
	// CategoryPick is a PSF candidate list produced by PICK or the picker.
	CategoryPick FileCategory = "lst"
	// CategoryModel is a PSF model file produced by the PSF command.
	CategoryModel FileCategory = "psf"
	// CategoryNeighbour is the neighbour-subtraction list companion of a model.
	CategoryNeighbour FileCategory = "nei"
)

// MostRecentName is the reserved symbolic name under which every category
// tracks its most recently produced artifact.
const MostRecentName = "last"

// InputImageName is the reserved symbolic name of the original input image.
const InputImageName = "input_image"

// Ext returns the filename extension for the category, without the dot.
func (c FileCategory) Ext() string {
	return string(c)
}

// Categories lists all known file categories.
func Categories() []FileCategory {
	return []FileCategory{
		CategoryImage,
		CategoryCoord,
		CategoryAperture,
		CategoryPick,
		CategoryModel,
		CategoryNeighbour,
	}
}
