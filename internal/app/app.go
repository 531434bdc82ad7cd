// Package app wires the store, domain services and workflow engine from the
// loaded configuration. The server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/lock"
	"github.com/Gustavoab019/startia/internal/report"
	"github.com/Gustavoab019/startia/internal/service"
	"github.com/Gustavoab019/startia/internal/store"
	"github.com/Gustavoab019/startia/internal/store/memstore"
	"github.com/Gustavoab019/startia/internal/workflow"
	"github.com/Gustavoab019/startia/internal/zapi"
)

type App struct {
	Store    *store.Gateway
	Services *service.Services
	Engine   *workflow.Engine
	Reports  *report.Service
	// Sender is nil when Z-API is not configured or not requested.
	Sender *zapi.Client

	mongo  *store.MongoDB
	redis  *goredis.Client
	logger *zap.Logger
}

type Options struct {
	// Deliver sends engine replies through Z-API when it is configured.
	Deliver bool
}

func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{logger: logger}

	switch cfg.Store.Driver {
	case "memory":
		a.Store = memstore.New()
		logger.Warn("using the in-memory store, data is lost on exit")
	default:
		db, err := store.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, logger)
		if err != nil {
			return nil, err
		}
		a.mongo = db
		gw, err := store.NewGateway(ctx, db)
		if err != nil {
			a.Close(context.Background())
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.Store = gw
	}

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
		a.redis = rdb
		locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, logger)
	}

	loc := cfg.Location()
	a.Services = service.New(a.Store, service.Options{
		Location:      loc,
		MaxBatchSpan:  cfg.Workflow.MaxBatchSpan,
		UnitsPerFloor: cfg.Workflow.UnitsPerFloor,
		CountryCode:   cfg.Workflow.CountryCode,
		BreakFrom:     cfg.Workflow.DefaultBreakFrom,
		BreakTo:       cfg.Workflow.DefaultBreakTo,
	}, logger)

	deps := workflow.Deps{
		Store:    a.Store,
		Services: a.Services,
		Locker:   locker,
		Logger:   logger,
	}
	if opts.Deliver {
		if cfg.ZAPIEnabled() {
			a.Sender = zapi.NewClient(cfg.ZAPI, logger)
			deps.Sender = a.Sender
		} else {
			logger.Warn("z-api is not configured, replies will only be logged")
			deps.Sender = logSender{logger: logger}
		}
	}
	a.Engine = workflow.NewEngine(deps)
	a.Reports = report.NewService(a.Store, loc)
	return a, nil
}

// Ready pings the backing services.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	if a.mongo != nil {
		if err := a.mongo.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Warn("close mongodb", zap.Error(err))
		}
	}
}
