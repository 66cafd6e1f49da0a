package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/five82/nudge/internal/capability"
	"github.com/five82/nudge/internal/config"
	"github.com/five82/nudge/internal/logging"
	"github.com/five82/nudge/internal/metrics"
	"github.com/five82/nudge/internal/prefs"
	"github.com/five82/nudge/internal/reminders"
	"github.com/five82/nudge/internal/remote"
	"github.com/five82/nudge/internal/server"
	"github.com/five82/nudge/internal/syncer"
	"github.com/five82/nudge/internal/ui"
)

const preflightTimeout = 3 * time.Second

// Options configure the nudge application. Zero values keep the config file
// settings.
type Options struct {
	ConfigPath  string
	APIBind     string
	QuietPeriod time.Duration
	LogLevel    string
	ThemeName   string
	// GrantAll answers every capability prompt with yes.
	GrantAll bool
	// MetricsAddr serves the editor's Prometheus metrics when set.
	MetricsAddr string
}

// LoadConfig reads the config file and applies option overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIBind); v != "" {
		cfg.APIBind = v
	}
	if opts.QuietPeriod > 0 {
		cfg.QuietPeriod = opts.QuietPeriod
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Run boots the settings editor until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) (err error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.LogFormat == "json",
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { err = multierr.Append(err, closeLog()) }()
	log := logrus.NewEntry(logger).WithField("api", cfg.APIBind)

	client, err := remote.NewClient(cfg.APIBind, remote.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init settings client: %w", err)
	}
	if err := ensureAvailable(ctx, client, cfg.APIBind); err != nil {
		return err
	}

	prompter := ui.NewPrompter()
	defer prompter.Close()
	var answer capability.Prompter = prompter
	if opts.GrantAll {
		answer = capability.Static(true)
	}
	gate := capability.NewAuthorizer(capability.LoadLedger(cfg.GrantsPath), answer, log)

	registry := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(registry))

	coordinator, err := syncer.New(ctx, syncer.Options[reminders.Settings]{
		Load:            client.Load,
		Save:            saveWithAttemptID(client),
		Gate:            gate,
		QuietPeriod:     cfg.QuietPeriod,
		AbortSuperseded: cfg.AbortSuperseded,
		Logger:          log,
		Observer:        collector,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, coordinator.Close()) }()

	if addr := strings.TrimSpace(opts.MetricsAddr); addr != "" {
		stop, merr := serveMetrics(addr, registry, log)
		if merr != nil {
			return merr
		}
		defer func() { err = multierr.Append(err, stop()) }()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Load(cfg.PrefsPath).Theme
	}

	log.Info("editor started")
	return ui.Run(ui.Options{
		Context:    ctx,
		Editor:     coordinator,
		Prompter:   prompter,
		ThemeName:  themeName,
		MinuteStep: cfg.Server.MinuteStep,
		Endpoint:   cfg.APIBind,
		PrefsPath:  cfg.PrefsPath,
	})
}

// saveWithAttemptID tags each request with the coordinator's attempt id so
// client and server logs line up.
func saveWithAttemptID(store remote.SettingsStore) syncer.SaveFunc[reminders.Settings] {
	return func(ctx context.Context, s reminders.Settings) (reminders.Settings, error) {
		return store.Save(remote.WithRequestID(ctx, syncer.AttemptID(ctx)), s)
	}
}

// ensureAvailable fails fast when the settings API is not running.
func ensureAvailable(ctx context.Context, client *remote.Client, bind string) error {
	pingCtx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return fmt.Errorf("settings API at %s not reachable (start it with \"nudge serve\"): %w", bind, err)
	}
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, log *logrus.Entry) (func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

// Serve runs the local settings API until ctx is cancelled. Logs go to
// stderr.
func Serve(ctx context.Context, opts Options) (err error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogFormat == "json",
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { err = multierr.Append(err, closeLog()) }()

	listen := cfg.Server.Listen
	if v := strings.TrimSpace(opts.APIBind); v != "" {
		listen = v
	}
	fallback := reminders.Normalize(reminders.Defaults(), cfg.Server.MinuteStep, cfg.Server.TimeZone)
	store := server.NewFileStore(cfg.Server.StorePath, fallback)
	srv, err := server.New(server.Options{
		Store:      store,
		TimeZone:   cfg.Server.TimeZone,
		MinuteStep: cfg.Server.MinuteStep,
		Latency:    cfg.Server.Latency,
		FailEvery:  cfg.Server.FailEvery,
		Logger: logrus.NewEntry(logger).WithFields(logrus.Fields{
			"store": store.Path(),
		}),
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, listen)
}

// Logs returns the last n lines of the editor log.
func Logs(opts Options, n int) ([]string, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	return logging.Tail(cfg.LogFile, n)
}

// Grants lists the remembered capability answers.
func Grants(opts Options) ([]capability.Entry, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	return capability.LoadLedger(cfg.GrantsPath).Entries(), nil
}

// ResetGrants forgets the answer for kind, or every answer when kind is
// blank, so the next enable asks again.
func ResetGrants(opts Options, kind string) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	ledger := capability.LoadLedger(cfg.GrantsPath)
	if kind = strings.TrimSpace(kind); kind == "" {
		err = ledger.Reset()
	} else {
		err = ledger.Record(kind, capability.StatusUnknown)
	}
	if err != nil {
		return fmt.Errorf("reset grants: %w", err)
	}
	return nil
}
