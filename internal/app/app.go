// Package app wires configuration, chain connections, deployment records and
// contract bindings into one owned application value shared by the daemon
// and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"Web3-Scaffold/deploys"
	"Web3-Scaffold/internal/config"
	"Web3-Scaffold/internal/contracts"
	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/events"
	redisstore "Web3-Scaffold/internal/storage/redis"
	"Web3-Scaffold/internal/web3/provider"
	"Web3-Scaffold/internal/web3/signer"
	"Web3-Scaffold/pkg/logger"
)

// App owns every long-lived component. Close releases them in reverse
// construction order.
type App struct {
	Config    *config.Config
	Registry  *provider.Registry
	Contracts *contracts.Contracts
	Publisher events.Publisher

	closers []func() error
}

// Bootstrap builds the application from cfg. The ExampleNFT handle is bound
// to the provider resolved for cfg.Web3.TargetChainID; when a signer key is
// configured the handle is rebound to the signer before Bootstrap returns.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "配置不能为空")
	}
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	registry, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化链客户端注册表失败")
	}
	a.Registry = registry
	a.AddCloser(func() error { registry.Close(); return nil })

	source, err := a.deploymentSource(ctx)
	if err != nil {
		return nil, err
	}

	a.Contracts, err = contracts.New(ctx, contracts.Options{
		TargetChainID: cfg.Web3.TargetChainID,
		Resolver:      registry,
		Deployments:   source,
	})
	if err != nil {
		return nil, err
	}

	if err := a.connectSigner(ctx); err != nil {
		return nil, err
	}

	if cfg.Events.Enabled {
		publisher, err := newPublisher(ctx, cfg.Events)
		if err != nil {
			return nil, err
		}
		a.Publisher = publisher
		a.AddCloser(publisher.Close)
	}

	ok = true
	return a, nil
}

// Relay returns the Transfer relay, or nil when events are disabled.
func (a *App) Relay() *events.Relay {
	if a.Publisher == nil {
		return nil
	}
	return events.NewRelay(a.Contracts, a.Publisher, events.WithBuffer(a.Config.Events.Buffer))
}

// AddCloser registers fn to run on Close, before the components registered
// earlier.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases every component.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) deploymentSource(ctx context.Context) (deployments.Source, error) {
	cfg := a.Config.Deployments

	var source deployments.Source
	switch cfg.Source {
	case "", "embedded":
		source = deployments.NewFileSource(deploys.Files)
	case "dir":
		source = deployments.NewFileSource(os.DirFS(cfg.Dir))
	case "mysql":
		store, err := openStore(ctx, cfg.MySQL)
		if err != nil {
			return nil, err
		}
		a.AddCloser(store.Close)
		source = store
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("未知的部署记录来源: %s", cfg.Source))
	}

	if strings.TrimSpace(cfg.Cache.Redis.Address) != "" {
		cached, closeFn, err := openCache(ctx, cfg.Cache, source)
		if err != nil {
			return nil, err
		}
		a.AddCloser(closeFn)
		source = cached
	}
	return source, nil
}

func (a *App) connectSigner(ctx context.Context) error {
	envName := strings.TrimSpace(a.Config.Web3.Signer.PrivateKeyEnv)
	if envName == "" {
		return nil
	}
	log := logger.Named("app")
	if strings.TrimSpace(os.Getenv(envName)) == "" {
		log.Warn("未提供签名私钥，ExampleNFT 以只读模式运行", "env", envName)
		return nil
	}

	conn, err := a.Registry.Transactor(ctx, a.Config.Web3.TargetChainID)
	if err != nil {
		return err
	}
	wallet, err := signer.FromEnv(conn, envName)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "加载签名私钥失败")
	}
	if err := a.Contracts.ExampleNFT.ConnectSigner(wallet); err != nil {
		return err
	}
	log.Info("ExampleNFT 已绑定签名连接", "account", wallet.Account().Hex(), "chain", wallet.Name())
	return nil
}

func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case "", "memory":
		return events.NewMemoryPublisher(cfg.Buffer), nil
	case "redis":
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return events.NewRedisPublisher(client, cfg.Redis.Key, 0), nil
	case "rabbitmq":
		publisher, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:     cfg.RabbitMQ.URL,
			Queue:   cfg.RabbitMQ.Queue,
			Durable: cfg.RabbitMQ.Durable,
		})
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("未知的事件驱动: %s", cfg.Driver))
	}
}
