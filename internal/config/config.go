package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"staycheck/internal/browser/playwright"
	"staycheck/internal/datepick"
	"staycheck/internal/pages"
)

// DefaultPath is used when neither the -config flag nor STAYCHECK_CONFIG is set.
const DefaultPath = "configs/staycheck.yaml"

// PathEnv names the environment variable that overrides DefaultPath.
const PathEnv = "STAYCHECK_CONFIG"

type Config struct {
	Target struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"target"`

	Browser struct {
		Engine              string `yaml:"engine"`
		Headless            bool   `yaml:"headless"`
		SlowMoMs            int    `yaml:"slow_mo_ms"`
		ActionTimeoutMs     int    `yaml:"action_timeout_ms"`
		NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
		Timezone            string `yaml:"timezone"`
		Locale              string `yaml:"locale"`
	} `yaml:"browser"`

	Suite struct {
		Scenarios       []string `yaml:"scenarios"`
		Parallel        int      `yaml:"parallel"`
		StartsPerSecond float64  `yaml:"starts_per_second"`
		TimeoutSeconds  int      `yaml:"timeout_seconds"`
	} `yaml:"suite"`

	Reservation struct {
		Checkin          string `yaml:"checkin"`
		Checkout         string `yaml:"checkout"`
		RoomName         string `yaml:"room_name"`
		RoomLink         string `yaml:"room_link"`
		MaxMonthAdvances int    `yaml:"max_month_advances"`
		PageSettleMs     int    `yaml:"page_settle_ms"`
		PickerSettleMs   int    `yaml:"picker_settle_ms"`
		ConfirmTimeoutMs int    `yaml:"confirm_timeout_ms"`
		FailureProbeMs   int    `yaml:"failure_probe_ms"`
	} `yaml:"reservation"`

	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`

	Contact struct {
		Name    string `yaml:"name"`
		Email   string `yaml:"email"`
		Phone   string `yaml:"phone"`
		Subject string `yaml:"subject"`
		Message string `yaml:"message"`
	} `yaml:"contact"`

	Guest struct {
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
	} `yaml:"guest"`

	Performance struct {
		MaxLoadMs int `yaml:"max_load_ms"`
		VisibleMs int `yaml:"visible_ms"`
	} `yaml:"performance"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`

	Telegram struct {
		BotToken      string `yaml:"bot_token"`
		ChatID        int64  `yaml:"chat_id"`
		OnlyOnFailure bool   `yaml:"only_on_failure"`
	} `yaml:"telegram"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// ResolvePath picks the config file: flag value, then STAYCHECK_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML with ${ENV_VAR} placeholders and applies defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Target.BaseURL == "" {
		c.Target.BaseURL = "https://automationintesting.online"
	}
	c.Target.BaseURL = strings.TrimRight(c.Target.BaseURL, "/")

	if c.Browser.Engine == "" {
		c.Browser.Engine = "chromium"
	}
	if c.Browser.Timezone == "" {
		c.Browser.Timezone = "UTC"
	}
	if c.Browser.Locale == "" {
		c.Browser.Locale = "en-GB"
	}

	if c.Admin.Username == "" {
		c.Admin.Username = "adminsuperuser1@email.com"
	}
	if c.Admin.Password == "" {
		c.Admin.Password = "Password123"
	}

	if c.Suite.Parallel == 0 {
		c.Suite.Parallel = 1
	}
	if c.Suite.StartsPerSecond == 0 {
		c.Suite.StartsPerSecond = 1
	}

	if c.Reservation.RoomName == "" {
		c.Reservation.RoomName = pages.DefaultRoomName
	}
	if c.Reservation.RoomLink == "" {
		c.Reservation.RoomLink = pages.DefaultRoomLink
	}
	if c.Reservation.MaxMonthAdvances == 0 {
		c.Reservation.MaxMonthAdvances = 12
	}

	if c.Guest.FirstName == "" {
		c.Guest.FirstName = "First"
	}
	if c.Guest.LastName == "" {
		c.Guest.LastName = "Last"
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = "staycheck"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects settings the suite cannot run with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("target.base_url %q is not an http(s) URL", c.Target.BaseURL))
	}

	if _, ok, err := c.Stay(); err != nil {
		errs = append(errs, fmt.Errorf("reservation: %w", err))
	} else if !ok && (c.Reservation.Checkin != "" || c.Reservation.Checkout != "") {
		errs = append(errs, errors.New("reservation: checkin and checkout must be set together"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("browser.timezone: %w", err))
	}

	if c.Reservation.MaxMonthAdvances < 0 {
		errs = append(errs, errors.New("reservation.max_month_advances must be positive"))
	}
	if c.Suite.Parallel < 0 {
		errs = append(errs, errors.New("suite.parallel must be positive"))
	}
	if c.Suite.StartsPerSecond < 0 {
		errs = append(errs, errors.New("suite.starts_per_second must be positive"))
	}
	for name, v := range map[string]int{
		"browser.slow_mo_ms":             c.Browser.SlowMoMs,
		"browser.action_timeout_ms":      c.Browser.ActionTimeoutMs,
		"browser.navigation_timeout_ms":  c.Browser.NavigationTimeoutMs,
		"suite.timeout_seconds":          c.Suite.TimeoutSeconds,
		"reservation.page_settle_ms":     c.Reservation.PageSettleMs,
		"reservation.picker_settle_ms":   c.Reservation.PickerSettleMs,
		"reservation.confirm_timeout_ms": c.Reservation.ConfirmTimeoutMs,
		"reservation.failure_probe_ms":   c.Reservation.FailureProbeMs,
		"performance.max_load_ms":        c.Performance.MaxLoadMs,
		"performance.visible_ms":         c.Performance.VisibleMs,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required with a bot token"))
	}

	return errors.Join(errs...)
}

// Stay returns the configured reservation range. ok is false when no range
// is configured and a random one should be used.
func (c *Config) Stay() (stay datepick.StayRange, ok bool, err error) {
	if c.Reservation.Checkin == "" || c.Reservation.Checkout == "" {
		return datepick.StayRange{}, false, nil
	}
	in, err := datepick.ParseISODate(c.Reservation.Checkin)
	if err != nil {
		return datepick.StayRange{}, false, err
	}
	out, err := datepick.ParseISODate(c.Reservation.Checkout)
	if err != nil {
		return datepick.StayRange{}, false, err
	}
	stay, err = datepick.NewStayRange(in, out)
	if err != nil {
		return datepick.StayRange{}, false, err
	}
	return stay, true, nil
}

func (c *Config) PageSettle() time.Duration     { return ms(c.Reservation.PageSettleMs) }
func (c *Config) PickerSettle() time.Duration   { return ms(c.Reservation.PickerSettleMs) }
func (c *Config) ConfirmTimeout() time.Duration { return ms(c.Reservation.ConfirmTimeoutMs) }
func (c *Config) FailureProbe() time.Duration   { return ms(c.Reservation.FailureProbeMs) }
func (c *Config) MaxLoad() time.Duration        { return ms(c.Performance.MaxLoadMs) }
func (c *Config) Visible() time.Duration        { return ms(c.Performance.VisibleMs) }

// Location loads the browser timezone. Dates are computed in it so they
// match what the widget shows.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Browser.Timezone)
}

// SuiteTimeout bounds a whole run. Zero means no limit.
func (c *Config) SuiteTimeout() time.Duration {
	return time.Duration(c.Suite.TimeoutSeconds) * time.Second
}

// PageOptions maps the config onto the page object. Zero timings are left
// for the page object's own defaults.
func (c *Config) PageOptions() pages.Options {
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	return pages.Options{
		BaseURL:  c.Target.BaseURL,
		Location: loc,
		Room: pages.Room{
			Name:         c.Reservation.RoomName,
			LinkSelector: c.Reservation.RoomLink,
		},
		Admin: pages.Credentials{
			Username: c.Admin.Username,
			Password: c.Admin.Password,
		},
		Contact: pages.ContactMessage{
			Name:    c.Contact.Name,
			Email:   c.Contact.Email,
			Phone:   c.Contact.Phone,
			Subject: c.Contact.Subject,
			Message: c.Contact.Message,
		},
		Guest: pages.Guest{
			FirstName: c.Guest.FirstName,
			LastName:  c.Guest.LastName,
		},
		Timing: pages.Timing{
			PageSettle:     c.PageSettle(),
			PickerSettle:   c.PickerSettle(),
			Visible:        c.Visible(),
			ConfirmTimeout: c.ConfirmTimeout(),
			FailureProbe:   c.FailureProbe(),
			MaxLoad:        c.MaxLoad(),
		},
		MaxMonthAdvances: c.Reservation.MaxMonthAdvances,
	}
}

// BrowserOptions maps the browser section onto the playwright adapter.
func (c *Config) BrowserOptions() playwright.Options {
	return playwright.Options{
		Engine:            c.Browser.Engine,
		Headless:          c.Browser.Headless,
		SlowMo:            ms(c.Browser.SlowMoMs),
		ActionTimeout:     ms(c.Browser.ActionTimeoutMs),
		NavigationTimeout: ms(c.Browser.NavigationTimeoutMs),
		TimezoneID:        c.Browser.Timezone,
		Locale:            c.Browser.Locale,
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
