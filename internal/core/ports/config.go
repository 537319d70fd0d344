package ports

import "go.trai.ch/daopilot/internal/core/domain"

// ConfigLoader loads and validates the pipeline run configuration.
//
//go:generate mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks
type ConfigLoader interface {
	// Load locates the configuration file starting from cwd and returns the
	// validated pipeline.
	Load(cwd string) (*domain.Pipeline, error)
}
