package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"Web3-Scaffold/internal/api"
	"Web3-Scaffold/internal/app"
	"Web3-Scaffold/internal/auth"
	"Web3-Scaffold/internal/config"
	"Web3-Scaffold/internal/events"
	"Web3-Scaffold/internal/observability/metrics"
	"Web3-Scaffold/pkg/logger"
)

// main 是 scaffoldd 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("scaffoldd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("SCAFFOLD_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "scaffold.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Outputs: cfg.Log.Outputs,
		File: logger.FileConfig{
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()
	lg := logger.Named("scaffoldd")

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			lg.Warn("释放资源失败", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if relay := application.Relay(); relay != nil {
		go func() {
			if err := relay.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("事件转发异常退出", "error", err)
			}
		}()
		if mem, ok := application.Publisher.(*events.MemoryPublisher); ok {
			go drain(runCtx, mem)
		}
	}

	if addr := cfg.Server.MetricsAddress; addr != "" {
		go func() {
			if err := metrics.StartServer(runCtx, addr); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("指标服务异常退出", "error", err)
			}
		}()
	}

	tokens := make([]auth.Token, 0, len(cfg.Server.Auth.Tokens))
	for _, t := range cfg.Server.Auth.Tokens {
		tokens = append(tokens, auth.Token{Name: t.Name, SHA256: t.SHA256})
	}
	guard, err := auth.NewGuard(tokens)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server.Address, application.Contracts,
		api.WithGuard(guard),
		api.WithTimeout(time.Duration(cfg.Server.RequestTimeoutSeconds)*time.Second))
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// drain logs relayed events when no external queue is configured.
func drain(ctx context.Context, p *events.MemoryPublisher) {
	lg := logger.Named("events")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.Messages():
			if !ok {
				return
			}
			lg.Info("Transfer",
				"token_id", msg.TokenID,
				"from", msg.From,
				"to", msg.To,
				"block", msg.BlockNumber,
				"tx", msg.TxHash)
		}
	}
}
