package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"Web3-Scaffold/deploys"
	"Web3-Scaffold/internal/config"
	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/storage/mysql"
	redisstore "Web3-Scaffold/internal/storage/redis"
	"Web3-Scaffold/pkg/logger"
)

// DeploymentAdmin maintains deployment records without binding any
// contract: it copies deploy artifacts into the MySQL registry and lists
// what is stored.
type DeploymentAdmin struct {
	// Files holds the deploy artifacts: deployments.dir when set, the
	// embedded deploys otherwise.
	Files deployments.Lister
	// Store is the MySQL registry, nil without deployments.mysql.dsn.
	Store deployments.Store
	// Cache is the Redis cache in front of the configured source, nil
	// without deployments.cache.redis.address.
	Cache deployments.Invalidator

	closers []func() error
}

// OpenDeploymentAdmin connects to the stores configured in cfg.Deployments.
func OpenDeploymentAdmin(ctx context.Context, cfg *config.Config) (*DeploymentAdmin, error) {
	if cfg == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "配置不能为空")
	}
	d := &DeploymentAdmin{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	files := deployments.NewFileSource(artifactFS(cfg.Deployments))
	d.Files = files

	var source deployments.Source = files
	if strings.TrimSpace(cfg.Deployments.MySQL.DSN) != "" {
		store, err := openStore(ctx, cfg.Deployments.MySQL)
		if err != nil {
			return nil, err
		}
		d.AddCloser(store.Close)
		d.Store = store
		source = store
	}

	if strings.TrimSpace(cfg.Deployments.Cache.Redis.Address) != "" {
		cached, closeFn, err := openCache(ctx, cfg.Deployments.Cache, source)
		if err != nil {
			return nil, err
		}
		d.AddCloser(closeFn)
		d.Cache = cached
	}

	ok = true
	return d, nil
}

// List returns the records in the MySQL registry, or the deploy artifacts
// when no registry is configured or fromFiles is set.
func (d *DeploymentAdmin) List(ctx context.Context, fromFiles bool) ([]deployments.Record, error) {
	if d.Store != nil && !fromFiles {
		return d.Store.List(ctx)
	}
	return d.Files.List(ctx)
}

// Sync saves every deploy artifact into the registry and drops the cached
// copy of each record so the next lookup reads the new value.
func (d *DeploymentAdmin) Sync(ctx context.Context) ([]deployments.Record, error) {
	if d.Store == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "同步部署记录需要配置 deployments.mysql.dsn")
	}
	records, err := d.Files.List(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Named("deployments")
	for _, rec := range records {
		if err := d.Store.Save(ctx, rec); err != nil {
			return nil, err
		}
		if d.Cache != nil {
			if err := d.Cache.Invalidate(ctx, rec.Network, rec.Contract); err != nil {
				return nil, err
			}
		}
		log.Info("部署记录已同步", "network", rec.Network, "contract", rec.Contract, "address", rec.DeployedTo)
	}
	return records, nil
}

// AddCloser registers fn to run on Close.
func (d *DeploymentAdmin) AddCloser(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases the store and cache connections.
func (d *DeploymentAdmin) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

func artifactFS(cfg config.DeploymentsConfig) fs.FS {
	if cfg.Dir != "" {
		return os.DirFS(cfg.Dir)
	}
	return deploys.Files
}

func openStore(ctx context.Context, cfg config.MySQLConfig) (*mysql.DeploymentStore, error) {
	return mysql.NewDeploymentStore(ctx, mysql.Config{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
	})
}

func openCache(ctx context.Context, cfg config.DeploymentsCache, next deployments.Source) (*redisstore.CachedSource, func() error, error) {
	client, err := redisstore.NewClient(ctx, redisstore.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	return redisstore.NewCachedSource(client, next, cfg.Redis.Key, cfg.Redis.TTL()), client.Close, nil
}
