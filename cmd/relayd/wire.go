package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/a2alab/relay/internal/adapter/agentclient"
	"github.com/a2alab/relay/internal/config"
	"github.com/a2alab/relay/internal/domain"
	"github.com/a2alab/relay/internal/policy"
	"github.com/a2alab/relay/internal/relay"
	store "github.com/a2alab/relay/internal/repository"
	"github.com/a2alab/relay/internal/service"
)

// buildService wires the configured dependency graph. The returned closer
// releases the archive connection when one is configured.
func buildService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	if len(cfg.Endpoints) < 2 {
		return nil, nil, fmt.Errorf("at least two endpoints must be configured, got %d", len(cfg.Endpoints))
	}
	endpoints := make(map[string]domain.AgentEndpoint, len(cfg.Endpoints))
	for _, ec := range cfg.Endpoints {
		if ec.Label == "" || ec.BaseURL == "" {
			return nil, nil, fmt.Errorf("endpoint needs both a label and a base_url")
		}
		endpoints[ec.Label] = domain.AgentEndpoint{
			Label:    ec.Label,
			BaseURL:  ec.BaseURL,
			Username: ec.Username,
			Password: ec.Password,
			Headers:  ec.Headers,
		}
	}

	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		data, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		policyContent = string(data)
	}
	engine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build policy engine: %w", err)
	}

	var archive *store.SQLiteStore
	closer := func() {}
	if cfg.DatabaseURL != "" {
		archive, err = store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive: %w", err)
		}
		closer = func() {
			if err := archive.Close(); err != nil {
				slog.Error("failed to close archive", "error", err)
			}
		}
	}

	client := agentclient.NewClient(cfg.HopTimeout())
	driver := relay.NewDriver(client, engine, slog.Default())
	svc := service.New(cfg, endpoints, client, driver, archive, slog.Default())
	return svc, closer, nil
}
