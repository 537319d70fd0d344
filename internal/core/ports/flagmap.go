package ports

// FlagMap answers whether a pixel carries a data-quality flag.
//
//go:generate mockgen -source=flagmap.go -destination=mocks/mock_flagmap.go -package=mocks
type FlagMap interface {
	// Flagged reports whether the pixel at (x, y) is flagged bad. Positions
	// outside the raster count as flagged.
	Flagged(x, y int) bool
}
