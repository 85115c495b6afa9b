// Package browsertest provides an in-memory stand-in for the booking site,
// implementing the browser port the way net/http/httptest stands in for a
// server. It models the parts of the site the suite touches: the home page
// with its two-field date picker, room list and contact form, the room page
// with the guest form, and the admin login.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"staycheck/internal/browser"
	"staycheck/internal/datepick"
)

// Texts rendered by the real site.
const (
	WelcomeHeading   = "Welcome to Shady Meadows B&B"
	ConfirmedHeading = "Booking Confirmed"
	ConfirmedText    = "Your booking has been confirmed for the following dates:"
	QueryReceived    = "Thanks for getting in touch"
	InvalidLogin     = "Invalid credentials"
	ErrorBanner      = "Application error: a client-side exception has occurred while loading automationintesting.online (see the browser console for more information)."
)

// Site is the simulated target. Exported fields may be changed before the
// first session is opened.
type Site struct {
	BaseURL string
	// Today is the date the widget opens on.
	Today time.Time
	// LoadTime is added to the virtual clock by every navigation.
	LoadTime time.Duration

	RoomName string
	RoomLink string

	// BookingStatus is the status of POST /api/booking. 201 confirms, 500
	// crashes the client, anything else leaves the form in place.
	BookingStatus int
	// HideErrorBanner keeps the crash banner hidden after a 500.
	HideErrorBanner bool
	LoginStatus     int
	// Label renders a day option's accessible name.
	Label func(time.Time) string
	// FailSessions makes NewSession fail.
	FailSessions bool

	mu     sync.Mutex
	start  time.Time
	spent  time.Duration
	opened int
	closed int
	pages  []*Page
}

// NewSite returns a site on baseURL whose calendar opens on today.
func NewSite(baseURL string, today time.Time) *Site {
	return &Site{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Today:         datepick.DateOf(today),
		LoadTime:      300 * time.Millisecond,
		RoomName:      "Double Room",
		RoomLink:      "#rooms .card-footer a",
		BookingStatus: 201,
		LoginStatus:   401,
		Label:         widgetLabel,
		start:         today,
	}
}

func widgetLabel(d time.Time) string {
	return fmt.Sprintf("Choose %s, %d %s %d", d.Weekday(), d.Day(), d.Month(), d.Year())
}

// Now is the virtual clock. It only moves on navigation.
func (s *Site) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start.Add(s.spent)
}

// NewSession opens a fresh page.
func (s *Site) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSessions {
		return nil, fmt.Errorf("browser context refused")
	}
	p := &Page{site: s, fields: map[string]string{}, hub: browser.NewHub()}
	s.pages = append(s.pages, p)
	s.opened++
	return &session{site: s, page: p}, nil
}

// Close is a no-op; it satisfies browser.Launcher.
func (s *Site) Close() error { return nil }

// Sessions reports how many sessions were opened and closed.
func (s *Site) Sessions() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

// Pages returns every page opened so far.
func (s *Site) Pages() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Page(nil), s.pages...)
}

func (s *Site) advance(d time.Duration) {
	s.mu.Lock()
	s.spent += d
	s.mu.Unlock()
}

type session struct {
	site *Site
	page *Page
	once sync.Once
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	s.once.Do(func() {
		s.site.mu.Lock()
		s.site.closed++
		s.site.mu.Unlock()
	})
	return nil
}
