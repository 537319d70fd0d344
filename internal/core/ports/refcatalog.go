package ports

import "go.trai.ch/daopilot/internal/core/domain"

// ReferenceCatalog exposes an external bright-star catalog in the pixel frame
// of the image under work.
//
//go:generate mockgen -source=refcatalog.go -destination=mocks/mock_refcatalog.go -package=mocks
type ReferenceCatalog interface {
	// StarsBrighterThan returns the positions of catalog stars brighter than
	// the magnitude limit in the given photometric band.
	StarsBrighterThan(band string, magLimit float64) ([]domain.Position, error)
}
