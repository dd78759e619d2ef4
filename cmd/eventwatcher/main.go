package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"eventwatcher/internal/area"
	"eventwatcher/internal/config"
	"eventwatcher/internal/feed"
	"eventwatcher/internal/localevents"
	appLog "eventwatcher/internal/log"
	"eventwatcher/internal/schedule"
	"eventwatcher/internal/store"
	"eventwatcher/internal/watcher"
	"eventwatcher/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	// .env is optional; environment overrides are for container setups.
	_ = godotenv.Load()

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("eventwatcher starting", "config_path", flags.configPath)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if url := os.Getenv("EVENTWATCHER_FEED_URL"); url != "" {
		conf.FeedURL = url
	}
	if path := os.Getenv("EVENTWATCHER_DATABASE_PATH"); path != "" {
		conf.DatabasePath = path
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"feed_url", conf.FeedURL,
		"database_path", conf.DatabasePath,
		"poll_interval_s", conf.PollIntervalSeconds,
		"check_interval_s", conf.CheckIntervalSeconds,
		"quest_resets", conf.QuestResets.Enable,
		"pool_reset", conf.PoolReset.Enable,
		"once", flags.once,
	)

	db, err := store.Open(conf.DatabasePath)
	if err != nil {
		appLog.Error("failed to open database", err, "path", conf.DatabasePath)
		os.Exit(1)
	}
	defer db.Close()

	templates := map[string]string{}
	if conf.AreasFile != "" {
		templates, err = area.LoadTemplates(conf.AreasFile)
		if err != nil {
			appLog.Error("failed to load area templates", err, "path", conf.AreasFile)
			os.Exit(1)
		}
	}
	areaIDs := make([]string, 0, len(templates))
	for id := range templates {
		areaIDs = append(areaIDs, id)
	}
	provider, err := area.NewFileProvider(conf.AreaStateFile, areaIDs)
	if err != nil {
		appLog.Error("failed to load area state", err, "path", conf.AreaStateFile)
		os.Exit(1)
	}

	local, err := localevents.Load(conf.LocalEventsFile)
	if err != nil {
		appLog.Error("failed to load local events", err, "path", conf.LocalEventsFile)
		os.Exit(1)
	}

	w, err := watcher.New(conf, watcher.Deps{
		Fetcher: feed.NewFetcher(conf.FeedURL, conf.CacheDir),
		Store:   db,
		Areas: schedule.Synchronizer{
			Templates: templates,
			Areas:     provider,
			Notifier:  watcher.NewRemapNotifier(conf.NotifyURL),
			Default:   conf.QuestResets.DefaultTime,
		},
		LocalEvents:   local,
		TZOffsetHours: feed.LocalUTCOffsetHours(time.Now()),
	})
	if err != nil {
		appLog.Error("failed to initialize watcher", err)
		os.Exit(1)
	}

	if flags.once {
		w.Tick()
		appLog.Info("single cycle completed, exiting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	go func() {
		srv := web.NewServer(conf, w)
		if err := srv.Start(); err != nil {
			appLog.Error("HTTP server stopped", err)
			cancel()
		}
	}()

	if err := w.Start(ctx); err != nil {
		appLog.Error("watcher stopped", err)
		os.Exit(1)
	}
	appLog.Info("eventwatcher exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./eventwatcher.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one reconciliation cycle and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
