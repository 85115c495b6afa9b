// Package pages holds the page object for the booking site's home page and
// the flows the suite runs through it.
package pages

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"staycheck/internal/browser"
	"staycheck/internal/events"
	"staycheck/internal/identity"
)

// Credentials for the admin login form.
type Credentials struct {
	Username string
	Password string
}

// ContactMessage fills the "Send us a message" form.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// Guest is the fixed part of the reservation form. Email and phone are generated.
type Guest struct {
	FirstName string
	LastName  string
}

// Room identifies the room card to book.
type Room struct {
	Name         string
	LinkSelector string
}

// Timing bounds the waits each flow performs.
type Timing struct {
	PageSettle     time.Duration
	PickerSettle   time.Duration
	Visible        time.Duration
	ConfirmTimeout time.Duration
	FailureProbe   time.Duration
	MaxLoad        time.Duration
}

// Options configure a HomePage.
type Options struct {
	BaseURL          string
	Room             Room
	Admin            Credentials
	Contact          ContactMessage
	Guest            Guest
	Timing           Timing
	MaxMonthAdvances int
	// Location is the browser's timezone. Today's month is read in it so the
	// flow and the widget agree on where the calendar opens. Nil means UTC.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Room.Name == "" {
		o.Room.Name = DefaultRoomName
	}
	if o.Room.LinkSelector == "" {
		o.Room.LinkSelector = DefaultRoomLink
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxMonthAdvances <= 0 {
		o.MaxMonthAdvances = 12
	}
	t := &o.Timing
	if t.PageSettle <= 0 {
		t.PageSettle = 500 * time.Millisecond
	}
	if t.PickerSettle <= 0 {
		t.PickerSettle = 300 * time.Millisecond
	}
	if t.Visible <= 0 {
		t.Visible = 5 * time.Second
	}
	if t.ConfirmTimeout <= 0 {
		t.ConfirmTimeout = 5 * time.Second
	}
	if t.FailureProbe <= 0 {
		t.FailureProbe = 2 * time.Second
	}
	if t.MaxLoad <= 0 {
		t.MaxLoad = 2 * time.Second
	}
	return o
}

// Buttons on the home, room and admin views.
type Buttons struct {
	Admin      browser.Locator
	Contact    browser.Locator
	Login      browser.Locator
	ReserveNow browser.Locator
	Submit     browser.Locator
	RoomLink   browser.Locator
}

// Headings the flows assert on.
type Headings struct {
	BookingConfirmed browser.Locator
	RoomPage         browser.Locator
	QueryReceived    browser.Locator
	Welcome          browser.Locator
	Title            browser.Locator
}

// Messages are free-text notices.
type Messages struct {
	InvalidCredentials browser.Locator
	BookingError       browser.Locator
}

// Textboxes are the inputs the flows fill.
type Textboxes struct {
	CheckinDate    browser.Locator
	CheckoutDate   browser.Locator
	ContactEmail   browser.Locator
	ContactMessage browser.Locator
	ContactName    browser.Locator
	ContactPhone   browser.Locator
	ContactSubject browser.Locator
	Email          browser.Locator
	FirstName      browser.Locator
	LastName       browser.Locator
	Password       browser.Locator
	PhoneNumber    browser.Locator
	Username       browser.Locator
}

// HomePage is the page object for the site's landing page.
type HomePage struct {
	Buttons   Buttons
	Headings  Headings
	Messages  Messages
	Textboxes Textboxes

	page   browser.Page
	opts   Options
	picker *DatePicker
	ids    *identity.Generator
	now    func() time.Time
	logger *zerolog.Logger
	events events.Publisher
}

// Option configures optional HomePage collaborators.
type Option func(*HomePage)

// WithClock overrides the clock used for today's month and load timing.
func WithClock(now func() time.Time) Option {
	return func(h *HomePage) { h.now = now }
}

// WithIdentity sets the generator for guest email and phone.
func WithIdentity(g *identity.Generator) Option {
	return func(h *HomePage) { h.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(h *HomePage) { h.logger = l }
}

// WithEvents sets where flow events are published.
func WithEvents(p events.Publisher) Option {
	return func(h *HomePage) { h.events = p }
}

// NewHomePage binds the page object to page.
func NewHomePage(page browser.Page, opts Options, options ...Option) *HomePage {
	nop := zerolog.Nop()
	h := &HomePage{
		page:   page,
		opts:   opts.withDefaults(),
		now:    time.Now,
		logger: &nop,
		events: events.Discard,
	}
	for _, opt := range options {
		opt(h)
	}
	if h.ids == nil {
		h.ids = identity.New(nil)
	}

	role := func(r browser.Role, name string) browser.Locator { return page.Locate(browser.ByRole(r, name)) }
	card := page.Locate(browser.ByCSS(ConfirmationCard))

	h.Buttons = Buttons{
		Admin:      page.Locate(browser.ByRoleExact(browser.RoleLink, "Admin")),
		Contact:    page.Locate(browser.ByCSS(NavBar)).Locate(browser.ByRole(browser.RoleLink, "Contact")),
		Login:      role(browser.RoleButton, "Login"),
		ReserveNow: role(browser.RoleButton, "Reserve Now"),
		Submit:     role(browser.RoleButton, "Submit"),
		RoomLink:   page.Locate(browser.ByCSS(h.opts.Room.LinkSelector)),
	}
	h.Headings = Headings{
		BookingConfirmed: card.Locate(browser.ByRole(browser.RoleHeading, ConfirmedHeading)),
		RoomPage:         role(browser.RoleHeading, h.opts.Room.Name),
		QueryReceived:    role(browser.RoleHeading, QueryReceivedHeading),
		Welcome:          role(browser.RoleHeading, WelcomeHeading),
		Title:            page.Locate(browser.ByCSS("h1")),
	}
	h.Messages = Messages{
		InvalidCredentials: page.Locate(browser.ByText(InvalidCredentials)),
		BookingError:       page.Locate(browser.ByText(ClientErrorBanner)),
	}
	h.Textboxes = Textboxes{
		CheckinDate:    page.Locate(browser.ByLabelledField(CheckinLabel)),
		CheckoutDate:   page.Locate(browser.ByLabelledField(CheckoutLabel)),
		ContactEmail:   page.Locate(browser.ByTestID("ContactEmail")),
		ContactMessage: page.Locate(browser.ByTestID("ContactDescription")),
		ContactName:    page.Locate(browser.ByTestID("ContactName")),
		ContactPhone:   page.Locate(browser.ByTestID("ContactPhone")),
		ContactSubject: page.Locate(browser.ByTestID("ContactSubject")),
		Email:          role(browser.RoleTextbox, "Email"),
		FirstName:      role(browser.RoleTextbox, "Firstname"),
		LastName:       role(browser.RoleTextbox, "Lastname"),
		Password:       role(browser.RoleTextbox, "Password"),
		PhoneNumber:    role(browser.RoleTextbox, "Phone"),
		Username:       role(browser.RoleTextbox, "Username"),
	}
	h.picker = NewDatePicker(page, h.opts.MaxMonthAdvances, h.opts.Timing.PickerSettle, h.logger, h.events)
	return h
}

// Open navigates to the site and waits for the welcome heading.
func (h *HomePage) Open(ctx context.Context) error {
	if err := h.page.Goto(ctx, h.opts.BaseURL); err != nil {
		return err
	}
	return expect("welcome heading", h.Headings.Welcome.WaitVisible(ctx, h.opts.Timing.Visible))
}

// AttemptAdminLogin signs in with an unknown account and expects a 401 and
// the invalid credentials notice.
func (h *HomePage) AttemptAdminLogin(ctx context.Context) error {
	if err := h.Open(ctx); err != nil {
		return err
	}
	if err := h.Buttons.Admin.Click(ctx); err != nil {
		return err
	}
	if err := fill(ctx,
		field{h.Textboxes.Username, h.opts.Admin.Username},
		field{h.Textboxes.Password, h.opts.Admin.Password},
	); err != nil {
		return err
	}

	login := h.page.Watch(browser.ResponseFilter{URL: h.opts.BaseURL + LoginPath, Method: http.MethodPost})
	defer login.Stop()

	if err := h.Buttons.Login.Click(ctx); err != nil {
		return err
	}
	resp, err := login.Wait(ctx, h.opts.Timing.Visible)
	if err != nil {
		return expect("login response", err)
	}
	if resp.Status != http.StatusUnauthorized {
		return expect("login status 401", fmt.Errorf("got %d", resp.Status))
	}
	return expect("invalid credentials message", h.Messages.InvalidCredentials.WaitVisible(ctx, h.opts.Timing.Visible))
}

// FillContactForm fills and submits the contact form.
func (h *HomePage) FillContactForm(ctx context.Context) error {
	c := h.opts.Contact
	if err := fill(ctx,
		field{h.Textboxes.ContactName, c.Name},
		field{h.Textboxes.ContactEmail, c.Email},
		field{h.Textboxes.ContactPhone, c.Phone},
		field{h.Textboxes.ContactSubject, c.Subject},
		field{h.Textboxes.ContactMessage, c.Message},
	); err != nil {
		return err
	}
	return h.Buttons.Submit.Click(ctx)
}

// SendMessage submits the contact form and expects the thank-you heading.
func (h *HomePage) SendMessage(ctx context.Context) error {
	if err := h.Open(ctx); err != nil {
		return err
	}
	if err := h.Buttons.Contact.Click(ctx); err != nil {
		return err
	}
	if err := h.FillContactForm(ctx); err != nil {
		return err
	}
	return expect("message received heading", h.Headings.QueryReceived.WaitVisible(ctx, h.opts.Timing.Visible))
}

// FillCustomerDetails fills the guest form with generated contact details
// and submits the reservation.
func (h *HomePage) FillCustomerDetails(ctx context.Context) error {
	if err := fill(ctx,
		field{h.Textboxes.FirstName, h.opts.Guest.FirstName},
		field{h.Textboxes.LastName, h.opts.Guest.LastName},
		field{h.Textboxes.Email, h.ids.Email()},
		field{h.Textboxes.PhoneNumber, h.ids.Phone()},
	); err != nil {
		return err
	}
	return h.Buttons.ReserveNow.Click(ctx)
}

// CheckHomepageLoad times a cold navigation and expects the title to render.
func (h *HomePage) CheckHomepageLoad(ctx context.Context) (time.Duration, error) {
	start := h.now()
	if err := h.page.Goto(ctx, h.opts.BaseURL); err != nil {
		return 0, err
	}
	took := h.now().Sub(start)

	h.logger.Info().Dur("load_time", took).Msg("page loaded")
	h.events.Publish(events.Event{Type: events.PageLoaded, Duration: took})

	if took >= h.opts.Timing.MaxLoad {
		return took, expect(fmt.Sprintf("load under %s", h.opts.Timing.MaxLoad), fmt.Errorf("took %s", took))
	}
	return took, expect("title containing Welcome", h.Headings.Title.WaitText(ctx, "Welcome", h.opts.Timing.Visible))
}

type field struct {
	input browser.Locator
	value string
}

func fill(ctx context.Context, fields ...field) error {
	for _, f := range fields {
		if err := f.input.Fill(ctx, f.value); err != nil {
			return err
		}
	}
	return nil
}
