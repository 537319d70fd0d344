package domain

// Position is a pixel position on the image frame.
type Position struct {
	X float64
	Y float64
}

// CoordStar is one record of a detection coordinate catalog. The photometric
// quality fields are only present in full catalogs.
type CoordStar struct {
	ID                int
	X                 float64
	Y                 float64
	Mag               float64
	Sharpness         float64
	Roundness         float64
	MarginalRoundness float64
}

// ApStar is one record of an aperture photometry catalog. Each star occupies
// two physical lines in the file: position and magnitude, then sky statistics.
type ApStar struct {
	ID       int
	X        float64
	Y        float64
	Mag      float64
	ModalSky float64
	SkySigma float64
	SkySkew  float64
	MagErr   float64
}

// PickStar is one record of a PSF candidate list.
type PickStar struct {
	ID     int
	X      float64
	Y      float64
	Mag    float64
	MagErr float64
}

// RefStar is one record of the bright-star reference catalog, pre-projected
// to the image pixel frame.
type RefStar struct {
	ID   int
	X    float64
	Y    float64
	JMag float64
	KMag float64
}
