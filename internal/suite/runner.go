// Package suite runs named scenarios against the booking site, one browser
// session per scenario.
package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"staycheck/internal/browser"
	"staycheck/internal/events"
	"staycheck/internal/pages"
)

// Outcome is a scenario's result.
type Outcome string

const (
	Passed    Outcome = "passed"
	Recovered Outcome = "recovered"
	Failed    Outcome = "failed"
)

// Result is one finished scenario.
type Result struct {
	Name     string
	Outcome  Outcome
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Run is one execution of the suite.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

// Count returns how many results ended with o.
func (r Run) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed reports whether any scenario failed.
func (r Run) Failed() bool {
	return r.Count(Failed) > 0
}

// Config bounds how the runner schedules scenarios.
type Config struct {
	Parallel        int
	StartsPerSecond float64
	Page            pages.Options
}

// Runner executes scenarios.
type Runner struct {
	launcher browser.Launcher
	cfg      Config
	limiter  *rate.Limiter
	events   events.Publisher
	logger   *zerolog.Logger
	now      func() time.Time
	newID    func() string
	pageOpts []pages.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithEvents(p events.Publisher) RunnerOption {
	return func(r *Runner) { r.events = p }
}

func WithLogger(l *zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithClock sets the clock for result timing.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithPageOptions adds options to every HomePage the runner builds.
func WithPageOptions(opts ...pages.Option) RunnerOption {
	return func(r *Runner) { r.pageOpts = append(r.pageOpts, opts...) }
}

// NewRunner creates a runner that opens sessions from launcher.
func NewRunner(launcher browser.Launcher, cfg Config, opts ...RunnerOption) *Runner {
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	limit := rate.Inf
	if cfg.StartsPerSecond > 0 {
		limit = rate.Limit(cfg.StartsPerSecond)
	}

	nop := zerolog.Nop()
	r := &Runner{
		launcher: launcher,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		events:   events.Discard,
		logger:   &nop,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes scenarios with bounded parallelism and returns their results
// in input order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Run {
	run := Run{ID: r.newID(), Started: r.now()}
	results := make([]Result, len(scenarios))

	r.logger.Info().Str("run_id", run.ID).Int("scenarios", len(scenarios)).Int("parallel", r.cfg.Parallel).Msg("run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = r.runOne(gctx, run.ID, sc)
			return nil
		})
	}
	_ = g.Wait()

	run.Results = results
	run.Finished = r.now()

	r.logger.Info().
		Str("run_id", run.ID).
		Int("passed", run.Count(Passed)).
		Int("recovered", run.Count(Recovered)).
		Int("failed", run.Count(Failed)).
		Dur("duration", run.Finished.Sub(run.Started)).
		Msg("run finished")
	return run
}

func (r *Runner) runOne(ctx context.Context, runID string, sc Scenario) Result {
	logger := r.logger.With().Str("run_id", runID).Str("scenario", sc.Name).Logger()
	pub := events.Scoped(r.events, runID, sc.Name)

	res := Result{Name: sc.Name, Started: r.now()}
	pub.Publish(events.Event{Type: events.ScenarioStarted})
	logger.Info().Msg("scenario started")

	res.Outcome, res.Err = r.execute(ctx, sc, pub, &logger)
	if res.Err != nil {
		res.Outcome = Failed
	}
	res.Duration = r.now().Sub(res.Started)

	pub.Publish(events.Event{
		Type:     events.ScenarioFinished,
		Outcome:  string(res.Outcome),
		Duration: res.Duration,
		Err:      res.Err,
	})
	if res.Err != nil {
		logger.Error().Err(res.Err).Dur("duration", res.Duration).Msg("scenario failed")
	} else {
		logger.Info().Str("outcome", string(res.Outcome)).Dur("duration", res.Duration).Msg("scenario finished")
	}
	return res
}

func (r *Runner) execute(ctx context.Context, sc Scenario, pub events.Publisher, logger *zerolog.Logger) (Outcome, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Failed, fmt.Errorf("wait for session slot: %w", err)
	}

	sess, err := r.launcher.NewSession(ctx)
	if err != nil {
		return Failed, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session")
		}
	}()

	opts := append([]pages.Option{pages.WithLogger(logger), pages.WithEvents(pub)}, r.pageOpts...)
	home := pages.NewHomePage(sess.Page(), r.cfg.Page, opts...)
	return sc.Run(ctx, home)
}
