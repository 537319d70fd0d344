package config

// Pipefile represents the structure of the daopilot.yaml configuration file.
type Pipefile struct {
	Shell      string      `yaml:"shell"`
	Daophot    string      `yaml:"daophot"`
	Allstar    string      `yaml:"allstar"`
	RadiiFile  string      `yaml:"radiiFile"`
	PixelScale float64     `yaml:"pixelScale"`
	Timeouts   TimeoutsDTO `yaml:"timeouts"`
	Picker     PickerDTO   `yaml:"picker"`
	Images     []ImageDTO  `yaml:"images"`
}

// TimeoutsDTO carries the prompt timeout settings as duration strings.
type TimeoutsDTO struct {
	Default string `yaml:"default"`
	Detect  string `yaml:"detect"`
	Fit     string `yaml:"fit"`
}

// PickerDTO carries the candidate selection settings.
type PickerDTO struct {
	Count          int     `yaml:"count"`
	MagLimit       float64 `yaml:"magLimit"`
	BrightRadius   float64 `yaml:"brightRadius"`
	BrightMagLimit float64 `yaml:"brightMagLimit"`
	Reference      string  `yaml:"reference"`
}

// ImageDTO represents one image job in the configuration.
type ImageDTO struct {
	Name           string `yaml:"name"`
	Path           string `yaml:"path"`
	Flag           string `yaml:"flag"`
	Band           string `yaml:"band"`
	MaxVariability int    `yaml:"maxVariability"`
	Allstar        bool   `yaml:"allstar"`
	FindHidden     bool   `yaml:"findHidden"`
	Clean          bool   `yaml:"clean"`
}
