package expect

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/jonboulle/clockwork"
	"go.trai.ch/daopilot/internal/adapters/logger"
	"go.trai.ch/daopilot/internal/core/ports"
)

const NodeID graft.ID = "adapter.transport"

func init() {
	graft.Register(graft.Node[ports.TransportFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.TransportFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(log, clockwork.NewRealClock()), nil
		},
	})
}
