package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/daopilot/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"go.trai.ch/daopilot/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/daopilot/internal/adapters/manifest" //nolint:depguard // Wired in app layer
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/daopilot/internal/engine/pipeline"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			config.NodeID,
			pipeline.NodeID,
			manifest.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			factory, err := graft.Dep[*pipeline.Factory](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[*manifest.Store](ctx)
			if err != nil {
				return nil, err
			}

			return New(log, loader, factory, store), nil
		},
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:          application,
		Logger:       log,
		ConfigLoader: loader,
	}, nil
}
