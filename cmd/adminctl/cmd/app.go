package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/internal/client"
	"github.com/rawlogin/adminctl/internal/config"
	"github.com/rawlogin/adminctl/internal/console"
	"github.com/rawlogin/adminctl/internal/session"
	"github.com/rawlogin/adminctl/pkg/events"
	"github.com/rawlogin/adminctl/pkg/logger"
)

// app holds everything a command needs. It is built once per invocation by
// the root command's pre-run hook.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   session.Store
	bus     events.EventBus
	console *console.Console
}

var current *app

// skipApp marks commands that run without a configured API client.
const skipApp = "skip-app"

func newLoader() *config.Loader {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	overrides := map[string]struct {
		flag  string
		value any
	}{
		"api_url":          {"api-url", apiURL},
		"auth_mode":        {"auth-mode", authMode},
		"timeout":          {"timeout", timeoutSeconds},
		"credential_store": {"credential-store", credentialStore},
		"credential_path":  {"credential-path", credentialPath},
		"log_level":        {"log-level", logLevel},
		"log_format":       {"log-format", logFormat},
	}
	for key, o := range overrides {
		if rootCmd.PersistentFlags().Changed(o.flag) {
			loader.Override(key, o.value)
		}
	}
	return loader
}

func setupApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipApp] == "true" {
		return nil
	}

	cfg, err := newLoader().Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.LogLevel)
	logCfg.Format = logger.OutputFormat(cfg.LogFormat)
	logCfg.Version = Version
	logCfg.Output = cmd.ErrOrStderr()
	log := logger.New(logCfg)

	store, err := session.New(session.Options{
		Backend: cfg.CredentialStore,
		Path:    cfg.CredentialPath,
		Profile: cfg.APIURL,
	}, log)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, log: log, store: store, bus: events.NewEventBus(log)}
	if err := a.wire(cmd); err != nil {
		a.close()
		return err
	}

	current = a
	log.Debug("configuration loaded", "api_url", cfg.APIURL, "auth_mode", cfg.AuthMode, "credential_store", cfg.CredentialStore)
	return nil
}

// wire builds the API client and console on top of the store and bus.
func (a *app) wire(cmd *cobra.Command) error {
	cfg := a.cfg
	c, err := client.New(client.Config{
		BaseURL:       cfg.APIURL,
		AuthMode:      cfg.AuthMode,
		SessionCookie: cfg.SessionCookie,
		Timeout:       cfg.TimeoutDuration(),
	}, a.store, a.bus, a.log)
	if err != nil {
		return err
	}

	a.console, err = console.New(c, a.bus, a.log)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if _, err := events.OnSessionExpired(a.bus, func(ctx context.Context, e *events.SessionEvent) {
		fmt.Fprintln(stderr, "Session expired, log in again with: adminctl login")
	}); err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	return nil
}

func closeApp() {
	if current == nil {
		return
	}
	a := current
	current = nil
	a.close()
}

func (a *app) close() {
	if a.console != nil {
		if err := a.console.Close(); err != nil {
			a.log.Debug("failed to close console", "error", err)
		}
	}
	if h := a.bus.Health(); h.Status != "healthy" {
		a.log.Debug("event bus finished with handler errors", "status", h.Status, "last_error", h.LastError)
	}
	if err := a.bus.Close(); err != nil {
		a.log.Debug("failed to close event bus", "error", err)
	}
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.Debug("failed to close credential store", "error", err)
		}
	}
}
