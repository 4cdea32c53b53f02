package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jllopis/adminqa/pkg/audit"
	"github.com/jllopis/adminqa/pkg/config"
	"github.com/jllopis/adminqa/pkg/core"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/query"
	"github.com/jllopis/adminqa/pkg/telemetry"
)

// app wires the loaded dataset to the query service and its side stores.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *query.Service
	store   audit.Store
	health  *core.Health
	closers []func() error
}

// newApp loads the dataset once. Any load error is fatal for the caller.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	data, err := dataset.LoadCSV(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", "path", cfg.Data.Path, "records", data.Len())

	providers, err := newProviderFactory(cfg.LLM)
	if err != nil {
		return nil, NewConfigError(err, "")
	}
	return newAppWith(cfg, logger, data, newAgentFactory(cfg.LLM, providers))
}

func newAppWith(cfg *config.Config, logger *slog.Logger, data *dataset.Dataset, agents query.AgentFactory) (*app, error) {
	a := &app{cfg: cfg, logger: logger, health: core.NewHealth()}
	opts := []query.Option{query.WithLogger(logger)}

	metrics, err := telemetry.NewQueryMetrics()
	if err != nil {
		logger.Warn("query metrics disabled", "error", err)
	} else {
		opts = append(opts, query.WithMetrics(metrics))
	}

	if cfg.Audit.Enabled {
		store, err := audit.OpenSQLite(cfg.Audit.Path)
		if err != nil {
			return nil, NewConfigError(err, "")
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
		opts = append(opts, query.WithAudit(store))
		a.health.Register("audit", core.HealthCheckerFunc(func(ctx context.Context) core.HealthResult {
			if _, err := store.List(ctx, audit.Filter{Limit: 1}); err != nil {
				return core.HealthResult{Status: core.HealthUnhealthy, Message: err.Error()}
			}
			return core.HealthResult{Status: core.HealthHealthy}
		}))
	}

	svc, err := query.New(data, agents, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = svc

	a.health.Register("dataset", core.HealthCheckerFunc(func(context.Context) core.HealthResult {
		if data.Empty() {
			return core.HealthResult{Status: core.HealthDegraded, Message: "no records loaded"}
		}
		return core.HealthResult{Status: core.HealthHealthy, Message: fmt.Sprintf("%d records", data.Len())}
	}))
	return a, nil
}

// Close releases the audit store, if any.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
