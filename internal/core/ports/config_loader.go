package ports

import "go.trai.ch/stitch/internal/core/domain"

// ConfigLoader defines the interface for loading the runtime configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers stitch.yaml from cwd upwards and returns the resolved configuration.
	// Defaults apply when no file is found.
	Load(cwd string) (*domain.Config, error)
}
