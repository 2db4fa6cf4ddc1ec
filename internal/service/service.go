// Package service assembles the analytics engine from configuration for the binaries.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"beebi/backend/internal/analytics"
	"beebi/backend/internal/config"
	"beebi/backend/internal/store"
)

// NewEngine opens the configured source and returns an engine over it plus a close func.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (*analytics.Engine, func(), error) {
	policy, err := analytics.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone: %w", err)
	}

	source, closeSource, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s source: %w", cfg.DataSource, err)
	}
	loader := store.NewLoader(source, store.LoaderConfigFrom(cfg))

	engine := analytics.NewEngine(loader,
		analytics.WithPolicy(policy),
		analytics.WithLocation(loc),
		analytics.WithLogger(logger),
		analytics.WithLoadTimeout(cfg.StoreTimeout),
	)
	logger.Info("analytics engine ready",
		"source", source.Name(),
		"default_subject_id", cfg.DefaultSubjectID,
		"lookback_days", cfg.DefaultLookbackDays,
		"timezone", loc.String(),
	)
	return engine, closeSource, nil
}
