package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"schoolcal/internal/config"
	"schoolcal/internal/data"
	"schoolcal/internal/ics"
	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
	"schoolcal/internal/schedule"
	"schoolcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	out        string
	once       bool
}

func main() {
	appLog.Info("schoolcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.out != "" {
		conf.OutputPath = flags.out
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"data_dir", conf.DataDir,
		"output_path", conf.OutputPath,
		"uid_domain", conf.UIDDomain,
		"once", flags.once,
	)

	if flags.once {
		if _, _, err := generate(conf); err != nil {
			appLog.Error("feed generation failed", err)
			os.Exit(1)
		}
		appLog.Info("feed generated", "output_path", conf.OutputPath)
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := serve(ctx, conf); err != nil {
		appLog.Error("server exited with error", err)
		os.Exit(1)
	}
	appLog.Info("schoolcal exiting")
}

// generate runs one full resolution pass: load data, resolve with today
// set to the current date in the configured zone, write the feed.
func generate(conf *config.Config) (string, []model.EventInstance, error) {
	loc, err := conf.Location()
	if err != nil {
		return "", nil, err
	}
	termStart, termEnd, err := conf.TermDates(loc)
	if err != nil {
		return "", nil, err
	}

	snap, err := data.LoadSnapshot(
		data.DefaultPaths(conf.DataDir),
		data.TermDefaults{Start: termStart, End: termEnd},
		loc,
	)
	if err != nil {
		return "", nil, err
	}

	engine := schedule.NewEngine(snap, conf.UIDDomain)
	events, err := engine.Resolve(time.Now().In(loc))
	if err != nil {
		return "", nil, err
	}

	payload := ics.Serialize(events)
	if err := ics.WritePayload(conf.OutputPath, payload); err != nil {
		return "", nil, err
	}

	appLog.Info("resolution completed", "event_count", len(events))
	return payload, events, nil
}

// serve generates the feed immediately, then keeps regenerating on the
// configured cron schedule while serving it over HTTP until ctx ends.
func serve(ctx context.Context, conf *config.Config) error {
	server := web.NewServer(conf)

	refresh := func() {
		payload, events, err := generate(conf)
		if err != nil {
			// Keep serving the previous feed; a broken edit to the data
			// files should not take the published calendar down.
			appLog.Error("feed regeneration failed, keeping previous feed", err)
			return
		}
		server.SetFeed(payload, events)
	}
	refresh()

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/schoolcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.out, "out", "", "Output ICS path (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Generate the feed once and exit")

	flag.Parse()

	return cfg
}
