// Package playwright implements the browser port on top of playwright-go.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	pw "github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"staycheck/internal/browser"
)

// Options configures the engine and each session's browser context.
type Options struct {
	Engine            string // chromium, firefox or webkit
	Headless          bool
	SlowMo            time.Duration
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	TimezoneID        string
	Locale            string
	// Install downloads the driver and browser before launching.
	Install bool
}

// Launcher owns the playwright driver and one browser process.
type Launcher struct {
	pw      *pw.Playwright
	browser pw.Browser
	opts    Options
	logger  *zerolog.Logger
}

// Launch starts playwright and the configured browser.
func Launch(opts Options, logger *zerolog.Logger) (*Launcher, error) {
	if opts.Engine == "" {
		opts.Engine = "chromium"
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 5 * time.Second
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}

	if opts.Install {
		logger.Info().Str("engine", opts.Engine).Msg("installing playwright browser")
		if err := pw.Install(&pw.RunOptions{Browsers: []string{opts.Engine}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	driver, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var bt pw.BrowserType
	switch opts.Engine {
	case "chromium":
		bt = driver.Chromium
	case "firefox":
		bt = driver.Firefox
	case "webkit":
		bt = driver.WebKit
	default:
		_ = driver.Stop()
		return nil, fmt.Errorf("unknown browser engine %q", opts.Engine)
	}

	b, err := bt.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
		SlowMo:   pw.Float(millis(opts.SlowMo)),
	})
	if err != nil {
		_ = driver.Stop()
		return nil, fmt.Errorf("launch %s: %w", opts.Engine, err)
	}

	logger.Debug().Str("engine", opts.Engine).Bool("headless", opts.Headless).Msg("browser launched")
	return &Launcher{pw: driver, browser: b, opts: opts, logger: logger}, nil
}

// NewSession opens an isolated browser context with a single page.
func (l *Launcher) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctxOpts := pw.BrowserNewContextOptions{}
	if l.opts.TimezoneID != "" {
		ctxOpts.TimezoneId = pw.String(l.opts.TimezoneID)
	}
	if l.opts.Locale != "" {
		ctxOpts.Locale = pw.String(l.opts.Locale)
	}

	bctx, err := l.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	bctx.SetDefaultTimeout(millis(l.opts.ActionTimeout))
	bctx.SetDefaultNavigationTimeout(millis(l.opts.NavigationTimeout))

	p, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	hub := browser.NewHub()
	p.OnResponse(func(r pw.Response) {
		hub.Offer(browser.Response{
			URL:    r.URL(),
			Method: r.Request().Method(),
			Status: r.Status(),
		})
	})

	return &session{
		bctx: bctx,
		page: &page{p: p, hub: hub, actionTimeout: l.opts.ActionTimeout, navTimeout: l.opts.NavigationTimeout},
	}, nil
}

// Close shuts the browser and the driver down.
func (l *Launcher) Close() error {
	return errors.Join(l.browser.Close(), l.pw.Stop())
}

type session struct {
	bctx pw.BrowserContext
	page *page
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	return errors.Join(s.page.p.Close(), s.bctx.Close())
}

type page struct {
	p             pw.Page
	hub           *browser.Hub
	actionTimeout time.Duration
	navTimeout    time.Duration
}

func (p *page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.p.Goto(url, pw.PageGotoOptions{
		Timeout: pw.Float(millis(browser.Timeout(ctx, p.navTimeout))),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, mapErr(err))
	}
	return nil
}

func (p *page) Locate(by browser.By) browser.Locator {
	return &locator{l: fromPage(p.p, by), desc: by.String(), timeout: p.actionTimeout}
}

func (p *page) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch shares the page's single response listener.
func (p *page) Watch(filter browser.ResponseFilter) browser.ResponseWatch {
	return p.hub.Watch(filter)
}

type locator struct {
	l       pw.Locator
	desc    string
	timeout time.Duration
}

func (l *locator) Locate(by browser.By) browser.Locator {
	return &locator{l: fromLocator(l.l, by), desc: l.desc + " >> " + by.String(), timeout: l.timeout}
}

func (l *locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.l.Click(pw.LocatorClickOptions{Timeout: pw.Float(millis(browser.Timeout(ctx, l.timeout)))}); err != nil {
		return fmt.Errorf("click %s: %w", l.desc, mapErr(err))
	}
	return nil
}

func (l *locator) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.l.Fill(value, pw.LocatorFillOptions{Timeout: pw.Float(millis(browser.Timeout(ctx, l.timeout)))}); err != nil {
		return fmt.Errorf("fill %s: %w", l.desc, mapErr(err))
	}
	return nil
}

func (l *locator) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := l.l.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(millis(browser.Timeout(ctx, timeout))),
	})
	if err != nil {
		return fmt.Errorf("wait visible %s: %w", l.desc, mapErr(err))
	}
	return nil
}

func (l *locator) WaitText(ctx context.Context, text string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := pw.NewPlaywrightAssertions().Locator(l.l).ToContainText(text, pw.LocatorAssertionsToContainTextOptions{
		Timeout: pw.Float(millis(browser.Timeout(ctx, timeout))),
	})
	if err != nil {
		return fmt.Errorf("%w: %s to contain %q: %v", browser.ErrTimeout, l.desc, text, err)
	}
	return nil
}

func (l *locator) String() string { return l.desc }

func fromPage(p pw.Page, by browser.By) pw.Locator {
	switch by.Kind {
	case browser.KindRole:
		return p.GetByRole(pw.AriaRole(by.Role), pw.PageGetByRoleOptions{Name: by.Name, Exact: pw.Bool(by.Exact)})
	case browser.KindTestID:
		return p.GetByTestId(by.Name)
	case browser.KindText:
		return p.GetByText(by.Name, pw.PageGetByTextOptions{Exact: pw.Bool(by.Exact)})
	case browser.KindLabelledField:
		return p.Locator("div").
			Filter(pw.LocatorFilterOptions{HasText: exactText(by.Name)}).
			GetByRole(pw.AriaRole(browser.RoleTextbox))
	default:
		return p.Locator(by.Name)
	}
}

func fromLocator(l pw.Locator, by browser.By) pw.Locator {
	switch by.Kind {
	case browser.KindRole:
		return l.GetByRole(pw.AriaRole(by.Role), pw.LocatorGetByRoleOptions{Name: by.Name, Exact: pw.Bool(by.Exact)})
	case browser.KindTestID:
		return l.GetByTestId(by.Name)
	case browser.KindText:
		return l.GetByText(by.Name, pw.LocatorGetByTextOptions{Exact: pw.Bool(by.Exact)})
	case browser.KindLabelledField:
		return l.Locator("div").
			Filter(pw.LocatorFilterOptions{HasText: exactText(by.Name)}).
			GetByRole(pw.AriaRole(browser.RoleTextbox))
	default:
		return l.Locator(by.Name)
	}
}

func exactText(s string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(s) + "$")
}

func mapErr(err error) error {
	if errors.Is(err, pw.ErrTimeout) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
