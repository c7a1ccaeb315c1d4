package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"worksync/config"
	"worksync/internal/logging"
	"worksync/jira"
	"worksync/notify"
	"worksync/odoo"
	"worksync/storage"
	"worksync/syncer"
	"worksync/tempo"
)

// app holds everything one command invocation needs, built from config.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	notifier *notify.Notifier
	store    *storage.SQLiteStore
	service  *syncer.Service
}

func loadApp() (*app, error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Dir:        cfg.Logging.Dir,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	mailCfg := notify.Config{
		Enabled:       cfg.Email.Enabled,
		Host:          cfg.Email.SMTPServer,
		Port:          cfg.Email.SMTPPort,
		From:          cfg.Email.From,
		Password:      cfg.Email.Password,
		To:            cfg.Email.To,
		SubjectPrefix: cfg.Email.SubjectPrefix,
	}
	notifier := notify.New(mailCfg, notify.NewSMTPSender(mailCfg), log)

	jiraClient := jira.NewClient(jira.Config{
		BaseURL:       cfg.Jira.BaseURL,
		User:          cfg.Jira.User,
		APIToken:      cfg.Jira.APIToken,
		LinkField:     cfg.Jira.LinkField,
		ParentField:   cfg.Jira.ParentField,
		EpicLinkField: cfg.Jira.EpicLinkField,
		Timeout:       cfg.Sync.RequestTimeout,
	})
	tempoClient := tempo.NewClient(tempo.Config{
		BaseURL:   cfg.Tempo.BaseURL,
		APIToken:  cfg.Tempo.APIToken,
		PageLimit: cfg.Tempo.PageLimit,
		Timeout:   cfg.Sync.RequestTimeout,
	}, jiraClient, notifier, log)
	odooClient := odoo.NewClient(odoo.Config{
		URL:                cfg.Odoo.URL,
		DB:                 cfg.Odoo.DB,
		Username:           cfg.Odoo.Username,
		Password:           cfg.Odoo.Password,
		EmployeeField:      cfg.Odoo.EmployeeField,
		FallbackEmployeeID: cfg.Odoo.FallbackEmployeeID,
		WorklogIDField:     cfg.Odoo.WorklogIDField,
		Timeout:            cfg.Sync.RequestTimeout,
	}, notifier, log)

	a := &app{cfg: cfg, log: log, notifier: notifier}

	deps := syncer.Deps{
		Source:   tempoClient,
		Resolver: jira.NewResolver(jiraClient, notifier, log),
		Target:   odooClient,
		Notifier: notifier,
		Identity: jiraClient,
		Logger:   log,
	}
	if path := strings.TrimSpace(cfg.Sync.DBPath); path != "" {
		store, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.store = store
		deps.Ledger = store
	}

	a.service = syncer.New(deps, syncer.Options{
		LookbackHours: cfg.Sync.LookbackHours,
		LogDir:        cfg.Logging.Dir,
	})
	return a, nil
}

// requireStore is for commands that only read the ledger.
func (a *app) requireStore() (*storage.SQLiteStore, error) {
	if a.store == nil {
		return nil, fmt.Errorf("sync.db_path is empty, the run ledger is disabled")
	}
	return a.store, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("close ledger")
		}
	}
}
