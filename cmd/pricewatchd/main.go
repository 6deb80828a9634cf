package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"pricewatch/internal/catalog"
	"pricewatch/internal/config"
	"pricewatch/internal/notifier"
	"pricewatch/internal/server"
	"pricewatch/internal/storage"
	"pricewatch/internal/tracker"
	logx "pricewatch/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./pricewatch.json", "path to config file (json or yaml)")
	flag.Parse()

	// Optional .env for BESTBUY_API_KEY / DISCORD_WEBHOOK_URL seeding.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	cfgm.SetLogger(log)

	// Live-reload logging settings on config file edits.
	sub := cfgm.Subscribe(1)
	defer cfgm.Unsubscribe(sub)
	go func() {
		for c := range sub {
			logSvc.Apply(logx.Config{
				Level:   c.Logging.Level,
				Console: c.Logging.Console,
				File: logx.FileConfig{
					Enabled: c.Logging.File.Enabled,
					Path:    c.Logging.File.Path,
				},
			})
		}
	}()
	go func() { _ = cfgm.Watch(ctx) }()

	busyTO, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	store, err := storage.Open(storage.Options{
		Driver:      cfg.Storage.Driver,
		Dir:         cfg.DataDir,
		BusyTimeout: busyTO,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	seedFromEnv(ctx, store, log)

	cat := catalog.New(catalog.Options{}, log.With(logx.String("component", "catalog")))
	hook := notifier.New(func() string {
		return store.LoadConfig(context.Background()).WebhookURL
	}, log.With(logx.String("component", "notifier")))

	tr := tracker.New(store, cat, hook, log.With(logx.String("component", "tracker")))

	srv := server.New(tr, log.With(logx.String("component", "server")))
	if err := srv.Start(cfg.Server); err != nil {
		return fmt.Errorf("start control api: %w", err)
	}

	// Polling resumes across restarts when a key is already configured.
	if store.LoadConfig(ctx).APIKey != "" {
		tr.Start(ctx)
	} else {
		log.Warn("catalog API key not configured; tracker idle until set via the API")
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("pricewatch started", logx.String("config", cfgPath))

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")

	srv.Stop(context.Background())
	tr.Stop()
	return nil
}

// seedFromEnv fills credentials from the environment on first run only;
// values already persisted (or set through the API) win.
func seedFromEnv(ctx context.Context, store storage.Store, log logx.Logger) {
	cfg := store.LoadConfig(ctx)
	changed := false
	if cfg.APIKey == "" {
		if v := os.Getenv("BESTBUY_API_KEY"); v != "" {
			cfg.APIKey = v
			changed = true
		}
	}
	if cfg.WebhookURL == "" {
		if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
			cfg.WebhookURL = v
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := store.SaveConfig(ctx, cfg); err != nil {
		log.Warn("persisting env-seeded credentials failed", logx.Err(err))
		return
	}
	log.Info("credentials seeded from environment")
}
