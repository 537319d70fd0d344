// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/daopilot/internal/adapters/config"
	_ "go.trai.ch/daopilot/internal/adapters/expect"
	_ "go.trai.ch/daopilot/internal/adapters/logger"
	_ "go.trai.ch/daopilot/internal/adapters/manifest"
	// Register app and engine nodes.
	_ "go.trai.ch/daopilot/internal/app"
	_ "go.trai.ch/daopilot/internal/engine/pipeline"
)
