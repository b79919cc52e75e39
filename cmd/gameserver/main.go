// Package main runs the combat engine behind the rpcombat.v1.CombatService
// gRPC API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/rpcombat/internal/config"
	"github.com/cory-johannsen/rpcombat/internal/gameserver"
	"github.com/cory-johannsen/rpcombat/internal/observability"
	"github.com/cory-johannsen/rpcombat/internal/server"
)

const healthInterval = 10 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and RPC_ environment variables")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing game server", zap.Error(err))
	}
	defer cleanup()

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return a.Server.Serve(lis)
		},
		StopFn: func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				a.Server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				a.Server.Stop()
				return ctx.Err()
			}
		},
	})

	healthCtx, stopHealth := context.WithCancel(ctx)
	lifecycle.Add("health", &server.FuncService{
		StartFn: func() error {
			watchHealth(healthCtx, a, logger)
			return nil
		},
		StopFn: func(context.Context) error {
			stopHealth()
			a.Health.Shutdown()
			return nil
		},
	})

	logger.Info("game server initialized",
		zap.String("mode", cfg.Server.Mode),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.Bool("auth", cfg.GameServer.APIKeyHash != ""),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("game server exited", zap.Error(err))
		cleanup()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// watchHealth reports the combat service as serving while the database
// answers pings.
func watchHealth(ctx context.Context, a *app, logger *zap.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		next := healthpb.HealthCheckResponse_SERVING
		if err := a.Pool.Health(ctx, healthInterval/2); err != nil {
			if ctx.Err() != nil {
				return
			}
			next = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("database health check failed", zap.Error(err))
		}
		if next != last {
			a.Health.SetServingStatus(gameserver.ServiceName, next)
			a.Health.SetServingStatus("", next)
			last = next
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
