// Command nftctl inspects and drives the ExampleNFT contract bound for the
// configured target chain, and maintains the deployment record registry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"Web3-Scaffold/internal/app"
	"Web3-Scaffold/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configOpener{}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if path := os.Getenv("SCAFFOLD_CONFIG"); path != "" {
		return path
	}
	return filepath.Join("configs", "scaffold.json")
}

// configOpener builds components from scaffold.json. The event relay is
// never started from the CLI.
type configOpener struct{}

func (configOpener) OpenApp(ctx context.Context, path string, chainID int64) (*app.App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if chainID > 0 {
		cfg.Web3.TargetChainID = chainID
	}
	cfg.Events.Enabled = false
	return app.Bootstrap(ctx, cfg)
}

func (configOpener) OpenDeployments(ctx context.Context, path string) (*app.DeploymentAdmin, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return app.OpenDeploymentAdmin(ctx, cfg)
}
