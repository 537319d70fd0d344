// Package config provides the configuration loader for daopilot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file the loader searches for.
const FileName = "daopilot.yaml"

// Defaults applied when the file leaves a setting unset.
const (
	defaultShell          = "/bin/tcsh"
	defaultDaophotCmd     = "daophot"
	defaultAllstarCmd     = "allstar"
	defaultRadiiFile      = "photo.opt"
	defaultTimeout        = time.Minute
	defaultDetectTimeout  = 20 * time.Minute
	defaultFitTimeout     = 10 * time.Minute
	defaultPickCount      = 100
	defaultPickMagLimit   = 99
	defaultMaxVariability = 2
	// defaultPixelScale treats seeing figures as pixel units until the
	// instrument's plate scale is configured.
	defaultPixelScale = 1.0
)

var validImageNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load walks upward from cwd until it finds a daopilot.yaml, then parses and
// validates it into the pipeline configuration.
func (l *Loader) Load(cwd string) (*domain.Pipeline, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}
	return l.loadFile(configPath)
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		path := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func (l *Loader) loadFile(configPath string) (*domain.Pipeline, error) {
	// #nosec G304 -- configPath is discovered relative to the user's cwd
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	var file Pipefile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}

	configDir := filepath.Dir(configPath)
	return l.build(&file, configDir)
}

func (l *Loader) build(file *Pipefile, configDir string) (*domain.Pipeline, error) {
	p := &domain.Pipeline{
		Shell:      fallback(file.Shell, defaultShell),
		DaophotCmd: fallback(file.Daophot, defaultDaophotCmd),
		AllstarCmd: fallback(file.Allstar, defaultAllstarCmd),
		RadiiFile:  resolvePath(configDir, fallback(file.RadiiFile, defaultRadiiFile)),
		PixelScale: file.PixelScale,
	}
	if p.PixelScale <= 0 {
		p.PixelScale = defaultPixelScale
	}

	var err error
	if p.Timeouts.Default, err = parseTimeout(file.Timeouts.Default, defaultTimeout); err != nil {
		return nil, err
	}
	if p.Timeouts.Detect, err = parseTimeout(file.Timeouts.Detect, defaultDetectTimeout); err != nil {
		return nil, err
	}
	if p.Timeouts.Fit, err = parseTimeout(file.Timeouts.Fit, defaultFitTimeout); err != nil {
		return nil, err
	}

	p.Picker = domain.PickerSettings{
		Count:          file.Picker.Count,
		MagLimit:       file.Picker.MagLimit,
		BrightRadius:   file.Picker.BrightRadius,
		BrightMagLimit: file.Picker.BrightMagLimit,
		ReferencePath:  resolvePath(configDir, file.Picker.Reference),
	}
	if p.Picker.Count == 0 {
		p.Picker.Count = defaultPickCount
	}
	if p.Picker.MagLimit == 0 {
		p.Picker.MagLimit = defaultPickMagLimit
	}

	if len(file.Images) == 0 {
		return nil, domain.ErrNoImages
	}

	seen := make(map[string]bool)
	for i := range file.Images {
		job, err := l.buildImage(&file.Images[i], configDir)
		if err != nil {
			return nil, err
		}
		if seen[job.Name] {
			return nil, zerr.With(zerr.New("duplicate image name"), "image", job.Name)
		}
		seen[job.Name] = true
		p.Images = append(p.Images, job)
	}

	return p, nil
}

func (l *Loader) buildImage(dto *ImageDTO, configDir string) (domain.ImageJob, error) {
	if dto.Path == "" {
		return domain.ImageJob{}, zerr.With(zerr.New("image entry is missing its path"), "image", dto.Name)
	}

	name := dto.Name
	if name == "" {
		base := filepath.Base(dto.Path)
		name = base[:len(base)-len(filepath.Ext(base))]
	}
	if !validImageNameRegex.MatchString(name) {
		return domain.ImageJob{}, zerr.With(zerr.New("invalid image name"), "image", name)
	}

	maxVar := dto.MaxVariability
	if maxVar == 0 {
		maxVar = defaultMaxVariability
		l.Logger.Info(fmt.Sprintf("image %s: using default maxVariability %d", name, maxVar))
	}

	return domain.ImageJob{
		Name:           name,
		ImagePath:      resolvePath(configDir, dto.Path),
		FlagPath:       resolvePath(configDir, dto.Flag),
		Band:           dto.Band,
		MaxVariability: maxVar,
		RunAllstar:     dto.Allstar,
		FindHidden:     dto.FindHidden,
		Clean:          dto.Clean,
	}, nil
}

func parseTimeout(value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "timeout", value)
	}
	return d, nil
}

func resolvePath(configDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(configDir, path))
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
