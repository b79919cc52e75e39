//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/cory-johannsen/rpcombat/internal/config"
	"github.com/cory-johannsen/rpcombat/internal/gameserver"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, func(), error) {
	wire.Build(
		provideCatalog,
		provideDiceSource,
		provideScripts,
		provideActivator,
		providePool,
		provideCharacterStore,
		provideRelations,
		provideLocker,
		provideTracer,
		gameserver.NewService,
		provideCombatServer,
		health.NewServer,
		provideGRPCServer,
		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
