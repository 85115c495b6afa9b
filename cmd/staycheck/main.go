package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"staycheck/internal/browser/playwright"
	"staycheck/internal/config"
	"staycheck/internal/events"
	"staycheck/internal/metrics"
	"staycheck/internal/notify"
	"staycheck/internal/report"
	"staycheck/internal/suite"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $STAYCHECK_CONFIG or "+config.DefaultPath+")")
	only := flag.String("scenarios", "", "comma-separated scenario names to run")
	install := flag.Bool("install", false, "download the playwright driver and browser before running")
	list := flag.Bool("list", false, "print scenario names and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address while the run is in progress")
	flag.Parse()

	// .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	stay, hasStay, _ := cfg.Stay()
	loc, _ := cfg.Location()
	catalog := suite.Catalog{Stay: stay, HasStay: hasStay, Location: loc}

	if *list {
		for _, name := range slices.Sorted(maps.Keys(catalog.Scenarios())) {
			fmt.Println(name)
		}
		return
	}

	names := cfg.Suite.Scenarios
	if *only != "" {
		names = splitNames(*only)
	}
	scenarios, err := catalog.Select(names)
	if err != nil {
		logger.Fatal().Err(err).Msg("select scenarios")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := cfg.SuiteTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bus := events.NewBus()
	m := metrics.New("staycheck")
	m.Attach(bus)
	bus.Subscribe(events.BackendFailure, func(e events.Event) {
		logger.Warn().Str("scenario", e.Scenario).Msg("booking API returned 500")
	})

	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr, m, &logger)
	}

	browserOpts := cfg.BrowserOptions()
	browserOpts.Install = *install
	launcher, err := playwright.Launch(browserOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("launch browser")
	}

	runner := suite.NewRunner(launcher, suite.Config{
		Parallel:        cfg.Suite.Parallel,
		StartsPerSecond: cfg.Suite.StartsPerSecond,
		Page:            cfg.PageOptions(),
	}, suite.WithEvents(bus), suite.WithLogger(&logger))

	run := runner.Run(ctx, scenarios)
	if err := launcher.Close(); err != nil {
		logger.Warn().Err(err).Msg("close browser")
	}

	// Reporting uses its own deadline so an interrupted run is still recorded.
	reportCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	publish(reportCtx, cfg, run, m, &logger)

	printResults(os.Stdout, run)
	if run.Failed() {
		stop()
		os.Exit(1)
	}
}

func publish(ctx context.Context, cfg *config.Config, run suite.Run, m *metrics.Metrics, logger *zerolog.Logger) {
	path, err := report.WriteRun(cfg.Report.Dir, run)
	if err != nil {
		logger.Error().Err(err).Msg("write report")
		path = ""
	} else {
		logger.Info().Str("path", path).Msg("report written")
	}

	if cfg.Metrics.PushgatewayURL != "" {
		if err := m.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, run.ID); err != nil {
			logger.Error().Err(err).Msg("push metrics")
		}
	}

	if cfg.Telegram.BotToken != "" {
		n, err := notify.NewBot(cfg.Telegram.BotToken, notify.Config{
			ChatID:        cfg.Telegram.ChatID,
			OnlyOnFailure: cfg.Telegram.OnlyOnFailure,
		}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram bot")
			return
		}
		if err := n.NotifyRun(ctx, run, path); err != nil {
			logger.Error().Err(err).Msg("notify run")
		}
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func printResults(w io.Writer, run suite.Run) {
	for _, res := range run.Results {
		line := fmt.Sprintf("%-10s %s (%.1fs)", strings.ToUpper(string(res.Outcome)), res.Name, res.Duration.Seconds())
		if res.Err != nil {
			line += ": " + res.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "run %s: %d passed, %d recovered, %d failed\n",
		run.ID, run.Count(suite.Passed), run.Count(suite.Recovered), run.Count(suite.Failed))
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func bootLogger() *zerolog.Logger {
	l := newLogger(os.Stderr, "info", "")
	return &l
}

// newLogger writes console output to terminals and JSON elsewhere, unless
// format forces one.
func newLogger(out *os.File, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = out
	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		if isatty.IsTerminal(out.Fd()) {
			w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
