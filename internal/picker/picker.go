// Package picker narrows the automatic PSF candidate pick by composable
// filters and culls candidates flagged by fit diagnostics.
package picker

import (
	"fmt"

	"go.trai.ch/daopilot/internal/adapters/daofile"
	"go.trai.ch/daopilot/internal/adapters/region"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Filter rejects candidates from the set. Implementations must only remove,
// never add.
type Filter interface {
	// Name labels the filter in logs.
	Name() string
	// Apply removes rejected candidates from the set.
	Apply(set *domain.CandidateSet, stars *daofile.ApertureCatalog) error
}

// Picker holds one image's candidate set, tied to its aperture photometry
// catalog, and keeps the persisted candidate list in sync with the set.
type Picker struct {
	logger  ports.Logger
	catalog *daofile.ApertureCatalog
	filters []Filter

	set      *domain.CandidateSet
	listPath string
	header   string
}

// New creates a picker over the given photometry catalog.
func New(logger ports.Logger, catalog *daofile.ApertureCatalog, filters ...Filter) *Picker {
	return &Picker{
		logger:  logger,
		catalog: catalog,
		filters: filters,
		set:     domain.NewCandidateSet(nil),
	}
}

// UseAutoPicks seeds the candidate set from the program's automatic pick
// list at listPath. The path is remembered as the set's persistence target.
// Every picked ID must exist in the photometry catalog.
func (p *Picker) UseAutoPicks(listPath string) error {
	cat, err := daofile.ReadPickCatalog(listPath)
	if err != nil {
		return err
	}

	ids := cat.IDs()
	for _, id := range ids {
		if _, ok := p.catalog.Star(id); !ok {
			return zerr.With(domain.ErrCandidateUnknown, "id", id)
		}
	}

	p.set.Reset(ids)
	p.listPath = listPath
	p.header = cat.Header
	return nil
}

// Candidates exposes the current set.
func (p *Picker) Candidates() *domain.CandidateSet {
	return p.set
}

// ListPath returns the candidate list's persistence target.
func (p *Picker) ListPath() string {
	return p.listPath
}

// SetOutputPath redirects persistence to a new path, leaving the program's
// own pick list untouched.
func (p *Picker) SetOutputPath(path string) {
	p.listPath = path
}

// Apply runs every filter in order and persists the narrowed list. An empty
// result is a hard error; fitting with no candidates is never attempted.
func (p *Picker) Apply() error {
	for _, f := range p.filters {
		before := p.set.Len()
		if err := f.Apply(p.set, p.catalog); err != nil {
			return zerr.Wrap(err, "filter "+f.Name()+" failed")
		}
		if removed := before - p.set.Len(); removed > 0 {
			p.logger.Info(fmt.Sprintf("filter %s rejected %d candidates, %d remain",
				f.Name(), removed, p.set.Len()))
		}
	}
	if p.set.Len() == 0 {
		return domain.ErrNoCandidates
	}
	return p.WriteList()
}

// CullWithFitReport removes every candidate the report flags, persists the
// narrowed list, and reports whether anything was removed. This is the fixed
// point signal for the refinement loop: false means the list is stable.
func (p *Picker) CullWithFitReport(report domain.FitReport) (bool, error) {
	flagged := report.FlaggedIDs()
	if len(flagged) == 0 {
		return false, nil
	}

	removed := p.set.RemoveAll(flagged)
	if !removed {
		return false, nil
	}
	if p.set.Len() == 0 {
		return true, domain.ErrNoCandidates
	}

	p.logger.Info(fmt.Sprintf("culled %d flagged stars, %d candidates remain",
		len(flagged), p.set.Len()))
	return true, p.WriteList()
}

// WriteList persists the current candidate set to the recorded list path.
func (p *Picker) WriteList() error {
	if p.listPath == "" {
		return zerr.New("picker has no candidate list to persist")
	}

	out := daofile.NewPickCatalog()
	out.Header = p.header
	for _, id := range p.set.IDs() {
		star, ok := p.catalog.Star(id)
		if !ok {
			return zerr.With(domain.ErrCandidateUnknown, "id", id)
		}
		out.Add(domain.PickStar{ID: star.ID, X: star.X, Y: star.Y, Mag: star.Mag, MagErr: star.MagErr})
	}
	return out.Write(p.listPath)
}

// WriteOverlay writes a region overlay marking the current candidates.
func (p *Picker) WriteOverlay(path string) error {
	list := region.NewPointList()
	for _, id := range p.set.IDs() {
		star, ok := p.catalog.Star(id)
		if !ok {
			continue
		}
		list.Add(region.Point{X: star.X, Y: star.Y, Label: fmt.Sprintf("%d", id), Colour: "green"})
	}
	return list.Write(path)
}
