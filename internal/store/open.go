package store

import (
	"context"
	"fmt"

	"beebi/backend/internal/config"
	"beebi/backend/internal/db"
)

// Open builds the Source selected by DATA_SOURCE. The returned close func is never nil.
func Open(ctx context.Context, cfg config.Config) (Source, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, func() {}, fmt.Errorf("load timezone: %w", err)
	}

	switch cfg.DataSource {
	case config.SourcePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		source := NewPostgresSource(pool)
		if err := source.ValidateSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, fmt.Errorf("database schema mismatch: %w", err)
		}
		return source, pool.Close, nil
	case config.SourceSQLite:
		source, err := OpenSQLite(cfg.SQLitePath, loc)
		if err != nil {
			return nil, func() {}, err
		}
		return source, func() { _ = source.Close() }, nil
	case config.SourceCSV:
		return NewCSVSource(cfg.CSVPath, loc), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported data source %q", cfg.DataSource)
	}
}

// LoaderConfigFrom maps the loader defaults out of cfg.
func LoaderConfigFrom(cfg config.Config) LoaderConfig {
	return LoaderConfig{
		DefaultSubjectID:    cfg.DefaultSubjectID,
		DefaultLookbackDays: cfg.DefaultLookbackDays,
	}
}
