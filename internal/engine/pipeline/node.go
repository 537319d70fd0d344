package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/daopilot/internal/adapters/expect" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/daopilot/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/daopilot/internal/core/ports"
)

// NodeID is the unique identifier for the PSF factory Graft node.
const NodeID graft.ID = "engine.psf_factory"

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			expect.NodeID,
		},
		Run: func(ctx context.Context) (*Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			transport, err := graft.Dep[ports.TransportFactory](ctx)
			if err != nil {
				return nil, err
			}

			return NewFactory(log, transport), nil
		},
	})
}
