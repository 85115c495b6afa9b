// Package browser defines the automation surface the page objects drive.
//
// Implementations wrap a real engine (see the playwright subpackage) or
// simulate a site in memory (see browsertest). Every call that waits on the
// browser takes a context; bounded waits end with ErrTimeout instead of
// blocking forever.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout means the awaited state or response did not appear in time.
	ErrTimeout = errors.New("timed out")
	// ErrNotFound means no element matched a locator.
	ErrNotFound = errors.New("element not found")
)

// Role is an ARIA role used to find elements by accessible name.
type Role string

const (
	RoleButton  Role = "button"
	RoleHeading Role = "heading"
	RoleLink    Role = "link"
	RoleOption  Role = "option"
	RoleTextbox Role = "textbox"
)

// Kind tells which selector strategy a By uses.
type Kind int

const (
	KindRole Kind = iota
	KindTestID
	KindText
	KindCSS
	KindLabelledField
)

// By selects elements. Build it with ByRole, ByTestID, ByText, ByCSS or
// ByLabelledField.
type By struct {
	Kind  Kind
	Role  Role
	Name  string
	Exact bool
}

// ByRole matches elements with role whose accessible name contains name.
func ByRole(role Role, name string) By {
	return By{Kind: KindRole, Role: role, Name: name}
}

// ByRoleExact matches elements with role whose accessible name equals name.
func ByRoleExact(role Role, name string) By {
	return By{Kind: KindRole, Role: role, Name: name, Exact: true}
}

// ByTestID matches the data-testid attribute.
func ByTestID(id string) By {
	return By{Kind: KindTestID, Name: id}
}

// ByText matches elements containing text.
func ByText(text string) By {
	return By{Kind: KindText, Name: text}
}

// ByCSS matches a CSS selector.
func ByCSS(selector string) By {
	return By{Kind: KindCSS, Name: selector}
}

// ByLabelledField matches the textbox inside the div whose whole text is label.
func ByLabelledField(label string) By {
	return By{Kind: KindLabelledField, Name: label, Exact: true}
}

func (b By) String() string {
	switch b.Kind {
	case KindRole:
		if b.Exact {
			return fmt.Sprintf("role=%s[name=%q exact]", b.Role, b.Name)
		}
		return fmt.Sprintf("role=%s[name=%q]", b.Role, b.Name)
	case KindTestID:
		return fmt.Sprintf("testid=%s", b.Name)
	case KindText:
		return fmt.Sprintf("text=%q", b.Name)
	case KindCSS:
		return fmt.Sprintf("css=%s", b.Name)
	case KindLabelledField:
		return fmt.Sprintf("field=%q", b.Name)
	default:
		return "unknown"
	}
}

// Locator is a lazy reference to elements; it is resolved on each action.
type Locator interface {
	// Locate narrows the search to descendants matching by.
	Locate(by By) Locator
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	// WaitVisible waits until the element is visible.
	WaitVisible(ctx context.Context, timeout time.Duration) error
	// WaitText waits until the element's text contains text.
	WaitText(ctx context.Context, text string, timeout time.Duration) error
	String() string
}

// Response is an observed network response.
type Response struct {
	URL    string
	Method string
	Status int
}

// ResponseFilter selects responses. Zero-valued fields match anything.
type ResponseFilter struct {
	URL         string
	URLContains string
	Method      string
	Status      int
}

// Match reports whether r passes the filter.
func (f ResponseFilter) Match(r Response) bool {
	if f.URL != "" && r.URL != f.URL {
		return false
	}
	if f.URLContains != "" && !strings.Contains(r.URL, f.URLContains) {
		return false
	}
	if f.Method != "" && !strings.EqualFold(r.Method, f.Method) {
		return false
	}
	if f.Status != 0 && r.Status != f.Status {
		return false
	}
	return true
}

// ResponseWatch collects responses matching a filter from the moment it is
// created, so a response that arrives before Wait is still reported.
type ResponseWatch interface {
	// Wait returns the first matching response, or ErrTimeout.
	Wait(ctx context.Context, timeout time.Duration) (Response, error)
	Stop()
}

// Page is one browser tab.
type Page interface {
	Goto(ctx context.Context, url string) error
	Locate(by By) Locator
	// Settle pauses to let animations and re-renders finish.
	Settle(ctx context.Context, d time.Duration) error
	Watch(filter ResponseFilter) ResponseWatch
}

// Session owns a browser context and its page for one scenario.
type Session interface {
	Page() Page
	Close() error
}

// Launcher hands out isolated sessions.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Timeout returns d capped by the time left on ctx.
func Timeout(ctx context.Context, d time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return d
	}
	if left := time.Until(deadline); left < d {
		if left < 0 {
			return 0
		}
		return left
	}
	return d
}
