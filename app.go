package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/minios-linux/potstats/config"
	"github.com/minios-linux/potstats/i18n"
	"github.com/minios-linux/potstats/langmeta"
	"github.com/minios-linux/potstats/lockfile"
	"github.com/minios-linux/potstats/manager"
	"github.com/minios-linux/potstats/merge"
	"github.com/minios-linux/potstats/pathconv"
	"github.com/minios-linux/potstats/store"
)

// app is everything a command needs, built from the project config.
type app struct {
	cfg       *config.File
	log       zerolog.Logger
	repo      store.Repository
	resources []resourceManager
	closers   []func() error
}

type resourceManager struct {
	config.Resource
	root string
	mgr  *manager.Manager
}

func openApp(ctx context.Context) (*app, error) {
	log, err := newLogger(os.Stderr, logLevel)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(rootDir)
	if err != nil {
		return nil, err
	}
	if resourceName != "" {
		if _, ok := cfg.Resource(resourceName); !ok {
			return nil, fmt.Errorf(i18n.T("unknown resource %q"), resourceName)
		}
	}
	log.Debug().Str("root", cfg.ProjectRoot()).Int("resources", len(cfg.Resources)).Msg("configuration loaded")
	a := &app{cfg: cfg, log: log}

	if err := a.openRepository(ctx); err != nil {
		a.Close()
		return nil, err
	}

	engine := merge.NewEngine(merge.Config{
		StagingRoot: cfg.StagingRoot,
		Timeout:     cfg.Merge.Timeout,
	}, mergeTool(cfg.Merge), log)

	for _, res := range cfg.Resources {
		if resourceName != "" && res.Name != resourceName {
			continue
		}
		files, err := cfg.Files(res)
		if err != nil {
			a.Close()
			return nil, err
		}
		set := pathconv.NewFileSet(files, cfg.Convention)
		a.resources = append(a.resources, resourceManager{
			Resource: res,
			root:     cfg.AbsRoot(res),
			mgr: manager.New(set, manager.Options{
				Root:       cfg.AbsRoot(res),
				Resource:   res.Name,
				SourceLang: res.SourceLang,
				Merger:     engine,
				Registry:   langmeta.Default,
				Repository: a.repo,
				Logger:     log,
			}),
		})
	}
	return a, nil
}

func mergeTool(m config.Merge) merge.Tool {
	if m.Tool == config.MergeToolBuiltin {
		return merge.Builtin{}
	}
	return merge.Msgmerge{Path: m.Path, NoFuzzy: m.NoFuzzy}
}

func (a *app) openRepository(ctx context.Context) error {
	db := a.cfg.Database
	switch db.Driver {
	case config.DriverMemory:
		a.repo = store.NewMemory()
	default:
		sqlRepo, err := store.Open(ctx, db.Driver, db.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlRepo.Close)
		a.repo = sqlRepo
	}

	if a.cfg.Redis.URL == "" {
		return nil
	}
	client, err := store.OpenRedis(ctx, a.cfg.Redis.URL)
	if err != nil {
		logWarning(i18n.T("Listing cache disabled: %v"), err)
		return nil
	}
	a.closers = append(a.closers, client.Close)
	a.repo = store.NewCached(a.repo, client, a.cfg.Redis.TTL, a.log)
	return nil
}

// loadLock reads the incremental-run lock file from the staging root.
func (a *app) loadLock() (*lockfile.LockFile, error) {
	a.log.Debug().Str("path", a.cfg.LockPath()).Msg("loading lock file")
	return lockfile.Load(a.cfg.StagingRoot)
}

// Close releases the store connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
