package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Hussein-Mazeh/PassForge/internal/config"
	"github.com/Hussein-Mazeh/PassForge/internal/db"
	"github.com/Hussein-Mazeh/PassForge/internal/engine"
	"github.com/Hussein-Mazeh/PassForge/internal/generator"
	"github.com/Hussein-Mazeh/PassForge/internal/logging"
	"github.com/Hussein-Mazeh/PassForge/internal/service"
	"github.com/Hussein-Mazeh/PassForge/store"
)

// app is everything a vault command needs, built from configuration.
type app struct {
	cfg *config.Config
	log *slog.Logger
	eng *engine.Engine
	svc *service.Service
}

// loadConfig reads the config file, environment and the persistent flags
// the user actually set.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, *slog.Logger, error) {
	bound := map[string]*pflag.Flag{}
	for key, name := range map[string]string{
		"store.backend": "backend",
		"log.level":     "log-level",
	} {
		if f := cmd.Flag(name); f != nil && f.Changed {
			bound[key] = f
		}
	}

	cfg, err := config.Load(flags.configPath, bound)
	if err != nil {
		return nil, nil, userError{msg: err.Error()}
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, userError{msg: err.Error()}
	}
	log, err := logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return nil, nil, userError{msg: err.Error()}
	}
	return cfg, log, nil
}

// openStore returns the backend selected by store.backend.
func openStore(cfg *config.Config) (store.Store, error) {
	sc := cfg.Store
	switch sc.Backend {
	case "sqlite":
		d, err := db.Open(sc.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "file":
		return store.NewFileStore(sc.File.Dir)
	case "http":
		deleteBy := store.ByID
		if sc.HTTP.DeleteBy == "name" {
			deleteBy = store.ByName
		}
		return store.NewHTTPStore(store.HTTPConfig{
			URL:      sc.HTTP.URL,
			DeleteBy: deleteBy,
			Timeout:  sc.HTTP.Timeout,
		})
	case "s3":
		return store.NewObjectStore(store.ObjectConfig{
			Endpoint:        sc.S3.Endpoint,
			AccessKeyID:     sc.S3.AccessKeyID,
			SecretAccessKey: sc.S3.SecretAccessKey,
			Bucket:          sc.S3.Bucket,
			UseSSL:          sc.S3.UseSSL,
			Prefix:          sc.S3.Prefix,
		})
	}
	return nil, usageErrorf("unknown store backend %q", sc.Backend)
}

// openApp wires config, logger, store, engine and service. The engine starts
// loading immediately so its self-test overlaps with the passphrase prompt.
func openApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, log, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	eng := engine.New(engine.Argon2id,
		engine.WithInitTimeout(cfg.Engine.InitTimeout),
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithLogger(log),
	)
	eng.Start(context.Background())

	gen := generator.New(eng, cfg.Engine.Argon2())
	svc := service.New(st, gen, service.Options{
		Iterations: cfg.Vault.PBKDF2Iterations,
		MaxSuffix:  cfg.Vault.MaxSuffix,
		Log:        log,
	})
	return &app{cfg: cfg, log: log, eng: eng, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		a.log.Warn("close store", "err", err)
	}
	_ = a.eng.Close()
}
