package picker

import (
	"math"

	"go.trai.ch/daopilot/internal/adapters/daofile"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
)

// FlagMapFilter rejects candidates sitting on a flagged data-quality pixel.
type FlagMapFilter struct {
	Map ports.FlagMap
}

var _ Filter = (*FlagMapFilter)(nil)

// Name implements Filter.
func (f *FlagMapFilter) Name() string { return "flag-map" }

// Apply implements Filter. Candidate positions are rounded to the nearest
// pixel before the mask lookup.
func (f *FlagMapFilter) Apply(set *domain.CandidateSet, stars *daofile.ApertureCatalog) error {
	set.Keep(func(id int) bool {
		star, ok := stars.Star(id)
		if !ok {
			return false
		}
		x := int(math.Round(star.X))
		y := int(math.Round(star.Y))
		return !f.Map.Flagged(x, y)
	})
	return nil
}

// BrightNeighbourFilter rejects candidates within Radius pixels of any
// contaminating bright star.
type BrightNeighbourFilter struct {
	Bright []domain.Position
	Radius float64
}

var _ Filter = (*BrightNeighbourFilter)(nil)

// Name implements Filter.
func (f *BrightNeighbourFilter) Name() string { return "bright-neighbour" }

// Apply implements Filter.
func (f *BrightNeighbourFilter) Apply(set *domain.CandidateSet, stars *daofile.ApertureCatalog) error {
	r2 := f.Radius * f.Radius
	set.Keep(func(id int) bool {
		star, ok := stars.Star(id)
		if !ok {
			return false
		}
		for _, b := range f.Bright {
			dx := star.X - b.X
			dy := star.Y - b.Y
			if dx*dx+dy*dy < r2 {
				return false
			}
		}
		return true
	})
	return nil
}
