// Package app composes the pipeline services from the resolved
// configuration. It is the only package that knows every adapter.
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/config/file"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/artifacts"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/memory"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/snapshot"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driven/storage/sqlite"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driving/cli"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/connectors/fetch"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/services"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/blocked"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/normalisers/sumodb"
)

// Config resolves the configuration for opts from the config file, the
// process environment and the command line flags, in rising precedence.
func Config(opts cli.Options) (domain.Config, error) {
	store, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return domain.Config{}, fmt.Errorf("reading config: %w", err)
	}
	flags := memory.NewConfigStore("flags", map[string]any{
		file.KeyIngestMode: string(opts.IngestMode),
	})
	return file.Resolve(store, os.Getenv, flags), nil
}

// Wire implements cli.Wiring.
func Wire(opts cli.Options) (*cli.Services, error) {
	cfg, err := Config(opts)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts.VerifyDBPath)
}

// New builds every service for cfg. verifyDB, when set, is the database the
// verify command loads into.
func New(cfg domain.Config, verifyDB string) (*cli.Services, error) {
	logger.Debug("data dir %s, database %s, build mode %s, ingest mode %s",
		cfg.DataDir, cfg.DatabasePath(), cfg.Build.Mode, cfg.Ingest.Mode)

	db, err := sqlite.NewStore(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	closers := []func() error{db.Close}

	builds := artifacts.NewStore(cfg.BuildsDir())
	snapshots := snapshot.NewStore(cfg.SnapshotsDir())
	registry := normalisers.DefaultRegistry()

	builder := services.NewBuildService(cfg.Build, builds, snapshots, registry)
	differ := services.NewDiffService(builds, db.PipelineStore())
	loader := services.NewLoadService(builds, db.PipelineStore(), differ, services.FailAt(cfg.Load.FailStep))

	matches := sumodb.New()
	ingestor := services.NewIngestService(
		fetch.FromConfig(cfg.Ingest, snapshots),
		artifacts.NewStore(cfg.Ingest.OutputDir),
		services.IngestParsers{
			Registry: registry,
			Bouts:    matches,
			Roster:   matches,
			Blocked:  blocked.New(cfg.Ingest.Blocked),
		},
		db.IngestionStore(),
	)

	verifier := services.NewVerifyService(cfg.Build.FixturesDir, builder, builds, snapshots)
	if verifyDB != "" {
		vdb, err := sqlite.NewStore(verifyDB)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("opening verify database: %w", err)
		}
		closers = append(closers, vdb.Close)
		vdiff := services.NewDiffService(builds, vdb.PipelineStore())
		verifier.WithLoadCheck(services.NewLoadService(builds, vdb.PipelineStore(), vdiff, nil), vdb)
	}

	return &cli.Services{
		Builder:  builder,
		Differ:   differ,
		Loader:   loader,
		Ingestor: ingestor,
		Verifier: verifier,
		Close: func() error {
			var errs []error
			for _, c := range closers {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}
