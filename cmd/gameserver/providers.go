package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/rpcombat/internal/config"
	"github.com/cory-johannsen/rpcombat/internal/game/ability"
	"github.com/cory-johannsen/rpcombat/internal/game/catalog"
	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/gameserver"
	"github.com/cory-johannsen/rpcombat/internal/observability"
	"github.com/cory-johannsen/rpcombat/internal/scripting"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
	"github.com/cory-johannsen/rpcombat/internal/storage/redis"
)

// app is the assembled game server.
type app struct {
	Server *grpc.Server
	Health *health.Server
	Pool   *postgres.Pool
}

func provideTracer(ctx context.Context, cfg config.Config) (trace.Tracer, func(), error) {
	tracer, shutdown, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up tracing: %w", err)
	}
	return tracer, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}, nil
}

func provideCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (*catalog.Catalog, error) {
	return catalog.Load(ctx, catalog.Options{
		EffectsDir:   cfg.Rules.EffectsDir(),
		AbilitiesDir: cfg.Rules.AbilitiesDir(),
		Neutral:      cfg.Rules.Neutral,
	}, logger)
}

func provideScripts(cfg config.Config, logger *zap.Logger) *scripting.FormulaEvaluator {
	return scripting.NewFormulaEvaluator(cfg.Rules.ScriptInstructionLimit, logger)
}

func provideDiceSource(logger *zap.Logger) dice.Source {
	return dice.NewLoggingSource(dice.NewCryptoSource(), logger)
}

func provideActivator(cat *catalog.Catalog, cfg config.Config, src dice.Source, scripts *scripting.FormulaEvaluator) *ability.Activator {
	return ability.NewActivator(cat.Abilities, cat.Effects, cfg.Rules.TierTable(), src, scripts)
}

func providePool(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Pool, func(), error) {
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pool, pool.Close, nil
}

func provideCharacterStore(pool *postgres.Pool) gameserver.CharacterStore {
	return postgres.NewCharacterRepository(pool.DB())
}

func provideRelations(pool *postgres.Pool) gameserver.RelationshipSource {
	return postgres.NewRelationshipRepository(pool.DB())
}

// provideLocker returns the Redis lock in distributed mode and the
// in-process keyed mutex otherwise.
func provideLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (gameserver.Locker, func(), error) {
	if cfg.Server.Mode != "distributed" {
		logger.Info("using in-process character locks")
		return gameserver.NewKeyedMutex(), func() {}, nil
	}
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis character locks", zap.String("addr", cfg.Redis.Addr))
	return redis.NewLocker(client, cfg.Redis, logger), func() { _ = client.Close() }, nil
}

func provideCombatServer(svc *gameserver.Service) gameserver.CombatServiceServer {
	return gameserver.NewCombatServer(svc)
}

func provideGRPCServer(srv gameserver.CombatServiceServer, hs *health.Server, cfg config.Config, tracer trace.Tracer, logger *zap.Logger) *grpc.Server {
	s := gameserver.NewGRPCServer(srv, cfg.GameServer.APIKeyHash, cfg.GameServer.RequestTimeout, tracer, logger)
	healthpb.RegisterHealthServer(s, hs)
	return s
}
