// Command ik-server starts the item-keeper gRPC server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/item-keeper/internal/config"
	"github.com/and161185/item-keeper/internal/migrate"
	"github.com/and161185/item-keeper/internal/repository"
	"github.com/and161185/item-keeper/internal/repository/dynamo"
	"github.com/and161185/item-keeper/internal/repository/postgres"
	grpcserver "github.com/and161185/item-keeper/internal/server/grpc"
	"github.com/and161185/item-keeper/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const tableWait = 2 * time.Minute

// backend is one Entity Store with its repositories.
type backend struct {
	store repository.Store
	items repository.ItemRepository
	users repository.UserRepository
	close func()
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	addr := flag.String("addr", "", "listen address (overrides config)")
	store := flag.String("backend", "", "postgres|dynamodb (overrides config)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config)")
	certFile := flag.String("tls-cert", "", "TLS certificate (PEM)")
	keyFile := flag.String("tls-key", "", "TLS private key (PEM)")
	dev := flag.Bool("dev", false, "enable server reflection (dev only)")
	flag.Parse()

	cfg, used, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	override(cfg, *addr, *store, *dsn, *certFile, *keyFile, *dev)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend),
		zap.String("config", used),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func override(cfg *config.Config, addr, backend, dsn, cert, key string, dev bool) {
	if addr != "" {
		cfg.Addr = addr
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if cert != "" {
		cfg.TLS.Cert = cert
	}
	if key != "" {
		cfg.TLS.Key = key
	}
	if dev {
		cfg.Dev = true
	}
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		if cfg.Postgres.Migrate {
			ver, err := migrate.Up(ctx, cfg.Postgres.DSN, log)
			if err != nil {
				return nil, fmt.Errorf("migrate up: %w", err)
			}
			log.Info("schema ready", zap.Int64("version", ver))
		}
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: db,
			items: postgres.NewItemRepo(db),
			users: postgres.NewUserRepo(db),
			close: db.Close,
		}, nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, err
		}
		db := dynamo.New(client, dynamo.Tables{Items: cfg.DynamoDB.ItemsTable, Users: cfg.DynamoDB.UsersTable})
		if cfg.DynamoDB.CreateTables {
			created, err := db.EnsureTables(ctx, tableWait)
			if err != nil {
				return nil, fmt.Errorf("ensure tables: %w", err)
			}
			log.Info("tables ready", zap.Strings("created", created))
		}
		return &backend{
			store: db,
			items: dynamo.NewItemRepo(db),
			users: dynamo.NewUserRepo(db),
			close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	itemSvc := service.NewItemService(be.store, be.items, be.users, logger.Named("items"))
	userSvc := service.NewUserService(be.users, logger.Named("users"))

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
		),
	}
	if cfg.TLS.Enabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.Cert, cfg.TLS.Key)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)

	grpcserver.Register(s, grpcserver.New(itemSvc, userSvc, logger.Named("grpc")))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLS.Enabled()))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("graceful stop timed out", zap.Duration("timeout", cfg.ShutdownTimeout))
			s.Stop()
		}
		return nil
	case err := <-errCh:
		return err
	}
}
