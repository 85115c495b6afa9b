package browsertest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"staycheck/internal/browser"
	"staycheck/internal/datepick"
)

type view int

const (
	viewBlank view = iota
	viewHome
	viewAdmin
	viewRoom
)

type bookingResult int

const (
	bookingNone bookingResult = iota
	bookingConfirmed
	bookingCrashed
	bookingRejected
)

const (
	fieldCheckin  = "Check In"
	fieldCheckout = "Check Out"
)

// Page is one simulated tab.
type Page struct {
	site *Site

	mu          sync.Mutex
	view        view
	picker      string
	shown       datepick.MonthAnchor
	checkin     time.Time
	checkout    time.Time
	guestForm   bool
	result      bookingResult
	contactSent bool
	loginFailed bool
	fields      map[string]string
	actions     []string
	responses   []browser.Response
	hub         *browser.Hub
}

// Actions lists the clicks and fills performed, in order.
func (p *Page) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// Responses lists every response the page produced.
func (p *Page) Responses() []browser.Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Response(nil), p.responses...)
}

// Field returns the value filled into the element with the given id.
func (p *Page) Field(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fields[id]
}

// Selected returns the chosen check-in and check-out dates.
func (p *Page) Selected() (checkin, checkout time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkin, p.checkout
}

// ActiveWatches returns how many response watches are still running.
func (p *Page) ActiveWatches() int {
	return p.hub.Active()
}

// Count returns how many recorded actions equal action.
func (p *Page) Count(action string) int {
	n := 0
	for _, a := range p.Actions() {
		if a == action {
			n++
		}
	}
	return n
}

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, p.site.BaseURL) {
		return fmt.Errorf("goto %s: net::ERR_NAME_NOT_RESOLVED", url)
	}
	p.site.advance(p.site.LoadTime)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "goto "+url)
	p.view = viewHome
	p.picker = ""
	p.guestForm = false
	p.result = bookingNone
	p.contactSent = false
	p.loginFailed = false
	return nil
}

func (p *Page) Locate(by browser.By) browser.Locator {
	return &locator{page: p, chain: []browser.By{by}}
}

func (p *Page) Settle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *Page) Watch(filter browser.ResponseFilter) browser.ResponseWatch {
	return p.hub.Watch(filter)
}

// respond must be called with p.mu held.
func (p *Page) respond(method, path string, status int) {
	resp := browser.Response{URL: p.site.BaseURL + path, Method: method, Status: status}
	p.responses = append(p.responses, resp)
	p.hub.Offer(resp)
}

type element struct {
	id   string
	text string
}

// find resolves chain against the current state. It must be called with p.mu held.
func (p *Page) find(chain []browser.By) []element {
	last := chain[len(chain)-1]
	var parent *browser.By
	if len(chain) > 1 {
		parent = &chain[len(chain)-2]
	}
	if parent != nil && len(p.find(chain[:len(chain)-1])) == 0 {
		return nil
	}
	inNav := parent != nil && parent.Kind == browser.KindCSS && parent.Name == "#navbarNav"
	confirmed := p.view == viewRoom && p.result == bookingConfirmed

	var out []element
	add := func(ok bool, id, text string) {
		if ok {
			out = append(out, element{id: id, text: text})
		}
	}

	switch last.Kind {
	case browser.KindRole:
		switch last.Role {
		case browser.RoleLink:
			add(p.view == viewHome && named(last, "Admin"), "link:admin", "Admin")
			add(p.view == viewHome && inNav && named(last, "Contact"), "link:contact", "Contact")
		case browser.RoleButton:
			add(p.view == viewAdmin && named(last, "Login"), "button:login", "Login")
			add(p.view == viewRoom && named(last, "Reserve Now"), "button:reserve", "Reserve Now")
			add(p.view == viewHome && named(last, "Submit"), "button:submit", "Submit")
			add(p.picker != "" && named(last, "Next Month"), "button:next", "Next Month")
		case browser.RoleHeading:
			add(p.view == viewHome && named(last, WelcomeHeading), "heading:welcome", WelcomeHeading)
			add(p.view == viewRoom && named(last, p.site.RoomName), "heading:room", p.site.RoomName)
			add(p.view == viewHome && p.contactSent && named(last, QueryReceived), "heading:query", QueryReceived+" Guest!")
			add(confirmed && named(last, ConfirmedHeading), "heading:confirmed", ConfirmedHeading)
		case browser.RoleTextbox:
			guest := p.view == viewRoom && p.guestForm
			for _, name := range []string{"Firstname", "Lastname", "Email", "Phone"} {
				add(guest && named(last, name), "guest:"+name, "")
			}
			for _, name := range []string{"Username", "Password"} {
				add(p.view == viewAdmin && named(last, name), "admin:"+name, "")
			}
		case browser.RoleOption:
			if p.picker != "" {
				for _, d := range p.shown.Days() {
					label := p.site.Label(d)
					add(named(last, label), "day:"+datepick.ISODate(d), label)
				}
			}
		}
	case browser.KindTestID:
		for _, id := range []string{"ContactName", "ContactEmail", "ContactPhone", "ContactSubject", "ContactDescription"} {
			add(p.view == viewHome && last.Name == id, "contact:"+id, "")
		}
	case browser.KindText:
		add(p.view == viewAdmin && p.loginFailed && contains(InvalidLogin, last.Name), "text:invalid", InvalidLogin)
		add(p.view == viewRoom && p.result == bookingCrashed && !p.site.HideErrorBanner && contains(ErrorBanner, last.Name), "text:banner", ErrorBanner)
		add(confirmed && contains(ConfirmedText, last.Name), "text:confirmed", ConfirmedText)
		add(confirmed && contains(p.confirmedRange(), last.Name), "text:range", p.confirmedRange())
	case browser.KindCSS:
		add(p.view == viewHome && last.Name == "h1", "css:h1", WelcomeHeading)
		add(p.view == viewHome && last.Name == "#navbarNav", "css:nav", "")
		add(p.view == viewHome && last.Name == p.site.RoomLink, "css:room", "Book now")
		add(confirmed && last.Name == ".card-body", "css:card", ConfirmedHeading+" "+ConfirmedText+" "+p.confirmedRange())
	case browser.KindLabelledField:
		add(p.view == viewHome && last.Name == fieldCheckin, "field:checkin", "")
		add(p.view == viewHome && last.Name == fieldCheckout, "field:checkout", "")
	}

	return out
}

func (p *Page) confirmedRange() string {
	return datepick.ISODate(p.checkin) + " - " + datepick.ISODate(p.checkout)
}

func named(by browser.By, name string) bool {
	if by.Exact {
		return by.Name == name
	}
	return contains(name, by.Name)
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// one resolves chain to exactly one element. It must be called with p.mu held.
func (p *Page) one(chain []browser.By) (element, error) {
	found := p.find(chain)
	switch len(found) {
	case 0:
		return element{}, fmt.Errorf("%w: %s", browser.ErrNotFound, describe(chain))
	case 1:
		return found[0], nil
	default:
		return element{}, fmt.Errorf("strict mode violation: %s resolved to %d elements", describe(chain), len(found))
	}
}

func (p *Page) click(el element) error {
	p.actions = append(p.actions, "click "+el.id)

	switch {
	case el.id == "link:admin":
		p.view = viewAdmin
	case el.id == "link:contact":
	case el.id == "button:login":
		status := p.site.LoginStatus
		p.respond(http.MethodPost, "/api/auth/login", status)
		p.loginFailed = status == http.StatusUnauthorized
	case el.id == "button:submit":
		for _, id := range []string{"ContactName", "ContactEmail", "ContactPhone", "ContactSubject", "ContactDescription"} {
			if p.fields["contact:"+id] == "" {
				p.respond(http.MethodPost, "/api/message", http.StatusBadRequest)
				return nil
			}
		}
		p.respond(http.MethodPost, "/api/message", http.StatusOK)
		p.contactSent = true
	case el.id == "button:next":
		p.shown = p.shown.Next()
	case el.id == "field:checkin":
		p.picker = fieldCheckin
		p.shown = datepick.AnchorOf(p.site.Today)
	case el.id == "field:checkout":
		p.picker = fieldCheckout
		p.shown = datepick.AnchorOf(p.site.Today)
		if !p.checkin.IsZero() {
			p.shown = datepick.AnchorOf(p.checkin)
		}
	case strings.HasPrefix(el.id, "day:"):
		d, err := datepick.ParseISODate(strings.TrimPrefix(el.id, "day:"))
		if err != nil {
			return err
		}
		if p.picker == fieldCheckin {
			p.checkin = d
		} else {
			p.checkout = d
		}
		p.picker = ""
	case el.id == "css:room":
		p.view = viewRoom
		p.guestForm = false
		p.result = bookingNone
	case el.id == "button:reserve":
		if !p.guestForm {
			p.guestForm = true
			return nil
		}
		p.submitBooking()
	}
	return nil
}

func (p *Page) submitBooking() {
	for _, name := range []string{"Firstname", "Lastname", "Email", "Phone"} {
		if p.fields["guest:"+name] == "" {
			p.respond(http.MethodPost, "/api/booking", http.StatusBadRequest)
			p.result = bookingRejected
			return
		}
	}
	if p.checkin.IsZero() || p.checkout.IsZero() || !p.checkout.After(p.checkin) {
		p.respond(http.MethodPost, "/api/booking", http.StatusBadRequest)
		p.result = bookingRejected
		return
	}

	status := p.site.BookingStatus
	p.respond(http.MethodPost, "/api/booking", status)
	switch status {
	case http.StatusCreated, http.StatusOK:
		p.result = bookingConfirmed
	case http.StatusInternalServerError:
		p.result = bookingCrashed
	default:
		p.result = bookingRejected
	}
}

type locator struct {
	page  *Page
	chain []browser.By
}

func (l *locator) Locate(by browser.By) browser.Locator {
	chain := append(append([]browser.By(nil), l.chain...), by)
	return &locator{page: l.page, chain: chain}
}

func (l *locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.page.one(l.chain)
	if err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return l.page.click(el)
}

func (l *locator) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	el, err := l.page.one(l.chain)
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	if !strings.HasPrefix(el.id, "guest:") && !strings.HasPrefix(el.id, "admin:") && !strings.HasPrefix(el.id, "contact:") {
		return fmt.Errorf("fill: %s is not editable", el.id)
	}
	l.page.actions = append(l.page.actions, "fill "+el.id)
	l.page.fields[el.id] = value
	return nil
}

func (l *locator) WaitVisible(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	if len(l.page.find(l.chain)) == 0 {
		return fmt.Errorf("%w: %s not visible", browser.ErrTimeout, describe(l.chain))
	}
	return nil
}

func (l *locator) WaitText(ctx context.Context, text string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	for _, el := range l.page.find(l.chain) {
		if strings.Contains(el.text, text) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s does not contain %q", browser.ErrTimeout, describe(l.chain), text)
}

func (l *locator) String() string { return describe(l.chain) }

func describe(chain []browser.By) string {
	parts := make([]string, 0, len(chain))
	for _, by := range chain {
		parts = append(parts, by.String())
	}
	return strings.Join(parts, " >> ")
}
