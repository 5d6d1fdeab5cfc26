// Package server wires the provisioning engine to its storage, router,
// locking and audit backends and runs the HTTP and gRPC servers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device/routeros"
	"github.com/dmitrijs2005/hotspotkeeper/internal/locker"
	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/config"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/httpapi"

	gs "github.com/dmitrijs2005/hotspotkeeper/internal/server/grpc"
)

const lockPrefix = "hotspotkeeper:lock"

type App struct {
	config  *config.Config
	logger  logging.Logger
	engine  *provision.Engine
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(slog.LevelInfo))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	a := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	repo, closeRepo, err := pending.Open(ctx, c.PendingBackend, c.PendingDir, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("pending store init error: %w", err)
	}
	a.closers = append(a.closers, closeRepo)

	lk, err := a.buildLocker(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := a.buildSink(ctx)
	if err != nil {
		return nil, err
	}

	gw := routeros.NewGateway(routeros.Config{
		Address:     c.RouterAddress,
		User:        c.RouterUser,
		Password:    c.RouterPassword,
		CallTimeout: c.RouterCallTimeout,
	}, logger)

	enc := c.Encoding()
	a.engine = provision.NewEngine(repo, gw, provision.Options{
		Location: loc,
		Encoding: &enc,
		Locker:   lk,
		Sink:     sink,
		Logger:   logger,
	})

	return a, nil
}

// buildLocker uses Redis when configured so several instances can share a
// router, and an in-process locker otherwise.
func (app *App) buildLocker(ctx context.Context) (locker.Locker, error) {
	if app.config.RedisAddr == "" {
		return locker.NewMemoryLocker(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	app.closers = append(app.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return locker.NewRedisLocker(client, lockPrefix, app.config.LockTTL).WithLogger(app.logger), nil
}

func (app *App) buildSink(ctx context.Context) (audit.Sink, error) {
	sinks := audit.MultiSink{audit.NewLogSink(app.logger)}
	if app.config.S3Bucket == "" {
		return sinks, nil
	}

	s3, err := audit.NewS3Sink(ctx, audit.S3Config{
		Bucket:       app.config.S3Bucket,
		Region:       app.config.S3Region,
		BaseEndpoint: app.config.S3BaseEndpoint,
		User:         app.config.S3User,
		Password:     app.config.S3Password,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	return append(sinks, s3), nil
}

// Close releases storage and lock connections.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"router", app.config.RouterAddress,
		"pending_backend", app.config.PendingBackend,
		"redis_locking", app.config.RedisAddr != "",
		"s3_archive", app.config.S3Bucket != "")

	app.initSignalHandler(cancelFunc)

	httpSrv := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.engine, app.config.SecretKey)
	grpcSrv := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.engine, app.config.HealthCheckInterval)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", httpSrv.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", grpcSrv.Run)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
