package main

import (
	"context"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/phcore/validator/internal/config"
	"github.com/phcore/validator/pkg/logger"
	"github.com/phcore/validator/pkg/metrics"
	"github.com/phcore/validator/pkg/registry"
	"github.com/phcore/validator/pkg/store"
	"github.com/phcore/validator/pkg/validator"
)

// engine bundles what every command needs.
type engine struct {
	store     *store.Store
	index     *registry.Index
	validator *validator.Validator
	metrics   *metrics.Metrics
}

// exitError carries a process exit code without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

func exitCode(err error) (int, bool) {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if len(resourceDir) > 0 {
		cfg.Resources.Dirs = resourceDir
	}
	if len(packages) > 0 {
		cfg.Resources.Packages = packages
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}

	if err := setupLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) error {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	format := logger.FormatConsole
	if cfg.Format == string(logger.FormatJSON) {
		format = logger.FormatJSON
	}
	logger.SetDefault(logger.NewWithFormat(os.Stderr, level, format))
	return nil
}

// loadEngine loads every configured resource source and builds the index.
func loadEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	s := store.New()

	if _, err := s.LoadDirs(cfg.Resources.Dirs...); err != nil {
		return nil, errors.Wrap(err, "load resource directories")
	}

	for _, pkg := range cfg.Resources.Packages {
		if _, err := s.LoadPackageSpec(pkg, cfg.Resources.PackageCache); err != nil {
			return nil, errors.Wrapf(err, "load package %s", pkg)
		}
	}

	if cfg.Database.URL != "" {
		pool, err := store.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		if _, err := s.LoadPostgres(ctx, pool); err != nil {
			return nil, err
		}
	}

	logger.Info("Loaded %d resources", s.Count())
	s.LogSummary()

	idx := registry.New(s)
	m := metrics.New()
	return &engine{
		store:     s,
		index:     idx,
		validator: validator.New(idx, validator.WithMetrics(m)),
		metrics:   m,
	}, nil
}
