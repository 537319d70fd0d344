package manifest

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/jonboulle/clockwork"
)

// NodeID is the unique identifier for the manifest store Graft node.
const NodeID graft.ID = "adapter.manifest"

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Store, error) {
			return NewStore(clockwork.NewRealClock()), nil
		},
	})
}
