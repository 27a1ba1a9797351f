// Command portal is a terminal client for the scholarship portal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/scholarship-portal/internal/activity"
	"github.com/nhle/scholarship-portal/internal/app"
	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/logger"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/portal"
	"github.com/nhle/scholarship-portal/internal/session"
	"github.com/nhle/scholarship-portal/internal/store"
	appsync "github.com/nhle/scholarship-portal/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	flag.Parse()

	if err := ensureConfig(*configPath); err != nil {
		return err
	}

	events := app.NewEvents()
	cfg, err := model.WatchConfig(*configPath, events.ConfigChanged, events.ConfigError)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.WithModule("main")

	cache, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer cache.Close()

	creds := credential.DefaultKeyring()
	token, err := credential.Token(creds)
	if err != nil {
		log.Warn("reading stored token", zap.Error(err))
	}

	client := portal.NewClient(cfg.API.BaseURL, token,
		portal.WithTimeout(cfg.API.Timeout),
		portal.WithLogger(logger.WithModule("portal")),
	)

	engine := appsync.New(client,
		appsync.WithInterval(cfg.Notifications.PollInterval),
		appsync.WithCache(cache),
		appsync.WithLogger(logger.WithModule("sync")),
	)
	provider := session.NewProvider(engine, logger.WithModule("session"))
	defer provider.Close()

	monitor := activity.NewMonitor(activity.Options{
		Timeout:     cfg.Session.IdleTimeout,
		WarningTime: cfg.Session.WarningTime,
		OnTimeout:   events.Timeout,
		OnWarning:   events.Warning,
		Logger:      logger.WithModule("activity"),
	})
	defer monitor.Stop()

	validate := func(ctx context.Context, baseURL, token string) (*model.User, error) {
		probe := portal.NewClient(baseURL, token,
			portal.WithTimeout(cfg.API.Timeout),
			portal.WithMaxRetries(0),
			portal.WithLogger(logger.WithModule("portal")),
		)
		return probe.CurrentUser(ctx)
	}

	m := app.New(app.Deps{
		Config:      cfg,
		ConfigPath:  *configPath,
		Validate:    validate,
		Portal:      client,
		Provider:    provider,
		Bridge:      appsync.NewBridge(client, provider, logger.WithModule("bridge")),
		Monitor:     monitor,
		Credentials: creds,
		Events:      events,
		Logger:      logger.WithModule("app"),
	})

	log.Info("starting", zap.String("base_url", client.BaseURL()), zap.String("config", *configPath))

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	}
	return nil
}

// ensureConfig writes the defaults to path when no config file exists yet,
// so the watcher has a file to follow.
func ensureConfig(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return nil
	}
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}
	return model.SaveConfig(path, cfg)
}
