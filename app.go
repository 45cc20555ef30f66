package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/cloud"
	"github.com/lotas/readlater/internal/config"
	"github.com/lotas/readlater/internal/metadata"
	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/storage"
	"github.com/lotas/readlater/internal/syncer"
	"github.com/lotas/readlater/internal/tagging"
	"github.com/spf13/cobra"
)

// flushTimeout bounds the outbox flush a one-shot command does before exit.
const flushTimeout = 10 * time.Second

// app holds everything a command needs. Cloud fields are nil when sync is
// not configured.
type app struct {
	cfg     *config.Config
	cfgPath string
	db      *sql.DB
	store   *pages.Store
	tags    *tagging.Generator
	svc     *pages.Service

	repo    cloud.Repository
	outbox  *syncer.Outbox
	session *syncer.Session
	vault   *syncer.Vault
}

// loadConfig reads the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return cfg, path, nil
}

// openApp loads config, starts logging and opens the local store. With
// withCloud, the cloud repository is connected as well.
func openApp(ctx context.Context, cmd *cobra.Command, withCloud bool) (*app, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	if err := applog.Init(applog.Options{Dir: cfg.DataDir, Level: cfg.LogLevel, Pretty: cfg.PrettyLog || verbose}); err != nil {
		return nil, fmt.Errorf("init log: %w", err)
	}

	db, err := storage.OpenDB(cfg.DBPath())
	if err != nil {
		applog.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{cfg: cfg, cfgPath: path, db: db, store: pages.NewStore(db)}
	if err := a.store.Load(); err != nil {
		a.close()
		return nil, fmt.Errorf("load pages: %w", err)
	}

	a.tags = tagging.NewGenerator(tagging.Options{
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, a.geminiKey)
	a.svc = pages.NewService(a.store, a.tags)
	if cfg.Metadata.Enabled {
		a.svc.Meta = metadata.NewFetcher(cfg.Metadata.Timeout)
	}

	if withCloud {
		repo, err := cloud.Open(ctx, cfg.Cloud)
		if err != nil {
			// sync is optional; local commands keep working
			applog.Error("cloud.open", err, "provider", cfg.Cloud.Provider)
			fmt.Fprintf(cmd.ErrOrStderr(), "cloud unavailable: %v\n", err)
		} else if repo != nil {
			a.repo = repo
			a.outbox = syncer.NewOutbox(db, repo, cfg.Cloud.Timeout)
			a.session = syncer.NewSession(repo, a.store, a.outbox, cfg.Cloud.Timeout)
			a.svc.Remote = a.session
		}
	}
	a.vault = syncer.NewVault(db, cfg.Cloud.ProjectRef)
	return a, nil
}

// geminiKey is the key saved in local settings, read on every call.
func (a *app) geminiKey() string {
	key, _, err := storage.GetValue(a.db, storage.GeminiKeyKey)
	if err != nil {
		applog.Error("settings.gemini_key", err)
		return ""
	}
	return key
}

// restore signs in with the stored session. Failures are logged; the
// command continues with the local list.
func (a *app) restore(ctx context.Context) {
	if a.session == nil {
		return
	}
	if err := a.session.Restore(ctx, a.vault); err != nil {
		applog.Warn("sync.restore_failed", "err", err.Error())
	}
}

// close flushes pending cloud mutations and releases resources.
func (a *app) close() {
	if a.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if _, err := a.session.Flush(ctx); err != nil {
			applog.Warn("sync.flush_on_exit", "err", err.Error())
		}
		cancel()
		a.session.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	applog.Close()
}
