package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"staycheck/internal/browser"
	"staycheck/internal/datepick"
	"staycheck/internal/events"
)

// PickerState is where a date field's calendar popup is in its lifecycle.
type PickerState string

const (
	PickerClosed      PickerState = "closed"
	PickerOpen        PickerState = "open"
	PickerDaySelected PickerState = "day_selected"
)

// PickerFSM lists the allowed picker transitions. Open to open is a page turn.
type PickerFSM struct {
	transitions map[PickerState][]PickerState
}

// NewPickerFSM creates the transition table.
func NewPickerFSM() *PickerFSM {
	return &PickerFSM{
		transitions: map[PickerState][]PickerState{
			PickerClosed:      {PickerOpen},
			PickerOpen:        {PickerOpen, PickerDaySelected},
			PickerDaySelected: {PickerClosed},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *PickerFSM) CanTransition(from, to PickerState) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Selection is a day picked in the calendar.
type Selection struct {
	Date     time.Time
	Label    string
	Advances int
}

// DatePicker drives the site's calendar popup. One DatePicker serves both
// date fields in turn.
type DatePicker struct {
	page        browser.Page
	next        browser.Locator
	fsm         *PickerFSM
	state       PickerState
	shown       datepick.MonthAnchor
	maxAdvances int
	settle      time.Duration
	logger      *zerolog.Logger
	events      events.Publisher
}

// NewDatePicker builds a picker that pages forward with the Next Month
// button at most maxAdvances times per selection.
func NewDatePicker(page browser.Page, maxAdvances int, settle time.Duration, logger *zerolog.Logger, pub events.Publisher) *DatePicker {
	return &DatePicker{
		page:        page,
		next:        page.Locate(browser.ByRole(browser.RoleButton, NextMonthButton)),
		fsm:         NewPickerFSM(),
		state:       PickerClosed,
		maxAdvances: maxAdvances,
		settle:      settle,
		logger:      logger,
		events:      pub,
	}
}

// State returns the current picker state.
func (d *DatePicker) State() PickerState { return d.state }

// Shown returns the month the open picker displays.
func (d *DatePicker) Shown() datepick.MonthAnchor { return d.shown }

func (d *DatePicker) transition(to PickerState) error {
	if !d.fsm.CanTransition(d.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.state, to)
	}
	d.state = to
	return nil
}

// Pick opens field, pages from reference to the target's month and clicks
// the day whose accessible name is the target's label.
func (d *DatePicker) Pick(ctx context.Context, fieldName string, field browser.Locator, target time.Time, reference datepick.MonthAnchor) (Selection, error) {
	label := datepick.AriaLabel(target)
	want := datepick.AnchorOf(target)

	if d.state == PickerDaySelected {
		if err := d.transition(PickerClosed); err != nil {
			return Selection{}, err
		}
	}

	steps := reference.MonthsUntil(want)
	if steps < 0 || steps > d.maxAdvances {
		return Selection{}, &SelectionError{
			Field: fieldName,
			Label: label,
			Shown: reference,
			Err:   fmt.Errorf("%w: %s is %d pages from %s (limit %d)", ErrMonthUnreachable, want, steps, reference, d.maxAdvances),
		}
	}

	if err := d.transition(PickerOpen); err != nil {
		return Selection{}, err
	}
	if err := field.Click(ctx); err != nil {
		d.state = PickerClosed
		return Selection{}, fmt.Errorf("open %s picker: %w", fieldName, err)
	}
	if err := d.page.Settle(ctx, d.settle); err != nil {
		return Selection{}, err
	}
	d.shown = reference

	advances := 0
	for d.shown != want {
		if err := d.next.Click(ctx); err != nil {
			return Selection{}, &SelectionError{Field: fieldName, Label: label, Shown: d.shown, Err: err}
		}
		if err := d.page.Settle(ctx, d.settle); err != nil {
			return Selection{}, err
		}
		if err := d.transition(PickerOpen); err != nil {
			return Selection{}, err
		}
		d.shown = d.shown.Next()
		advances++
	}

	d.logger.Debug().
		Str("field", fieldName).
		Str("label", label).
		Str("month", d.shown.String()).
		Int("advances", advances).
		Msg("selecting day")

	option := d.page.Locate(browser.ByRoleExact(browser.RoleOption, label))
	if err := option.Click(ctx); err != nil {
		return Selection{}, &SelectionError{Field: fieldName, Label: label, Shown: d.shown, Err: err}
	}
	if err := d.transition(PickerDaySelected); err != nil {
		return Selection{}, err
	}

	if advances > 0 {
		d.events.Publish(events.Event{Type: events.CalendarAdvanced, Count: advances})
	}
	return Selection{Date: datepick.DateOf(target), Label: label, Advances: advances}, nil
}
