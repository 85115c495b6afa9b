// Package datepick computes stay dates and the strings the booking widget
// renders for them.
//
// All dates are calendar dates anchored at UTC midnight. DateOf converts any
// timestamp to that form using the date it shows in its own location, so a
// value built in local time and one built in UTC for the same day compare
// equal and format identically.
package datepick

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// MinCheckinOffset and MaxCheckinOffset bound the random check-in, in days from today.
	MinCheckinOffset = 7
	MaxCheckinOffset = 20

	// MinStayNights and MaxStayNights bound the random stay length.
	MinStayNights = 1
	MaxStayNights = 5

	isoLayout   = "2006-01-02"
	labelLayout = "Monday, 2 January 2006"
	labelPrefix = "Choose "
)

// ErrEmptyStay is returned when checkout is not after checkin.
var ErrEmptyStay = errors.New("checkout must be after checkin")

// StayRange is a check-in/check-out pair. Both values are calendar dates.
type StayRange struct {
	Checkin  time.Time
	Checkout time.Time
}

// NewStayRange normalises both ends with DateOf and validates the result.
func NewStayRange(checkin, checkout time.Time) (StayRange, error) {
	r := StayRange{Checkin: DateOf(checkin), Checkout: DateOf(checkout)}
	if err := r.Validate(); err != nil {
		return StayRange{}, err
	}
	return r, nil
}

// Nights returns the number of nights between checkin and checkout.
func (r StayRange) Nights() int {
	return int(DateOf(r.Checkout).Sub(DateOf(r.Checkin)).Hours() / 24)
}

// Validate reports whether checkout falls strictly after checkin.
func (r StayRange) Validate() error {
	if r.Nights() < 1 {
		return fmt.Errorf("%w: %s - %s", ErrEmptyStay, ISODate(r.Checkin), ISODate(r.Checkout))
	}
	return nil
}

func (r StayRange) String() string {
	return ConfirmationRange(r)
}

// DateOf returns the calendar date of t, at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RandomStayRange picks a check-in 7 to 20 days after now and a stay of 1 to 5 nights.
func RandomStayRange(now time.Time, rng *rand.Rand) StayRange {
	today := DateOf(now)
	offset := MinCheckinOffset + rng.IntN(MaxCheckinOffset-MinCheckinOffset+1)
	nights := MinStayNights + rng.IntN(MaxStayNights-MinStayNights+1)

	checkin := today.AddDate(0, 0, offset)
	return StayRange{
		Checkin:  checkin,
		Checkout: checkin.AddDate(0, 0, nights),
	}
}

// AriaLabel returns the accessible name the calendar gives the day option for
// date, e.g. "Choose Tuesday, 22 July 2025".
func AriaLabel(date time.Time) string {
	return labelPrefix + DateOf(date).Format(labelLayout)
}

// ISODate formats the calendar date as YYYY-MM-DD.
func ISODate(date time.Time) string {
	return DateOf(date).Format(isoLayout)
}

// ParseISODate parses YYYY-MM-DD into a calendar date.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(isoLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ConfirmationRange is the text a confirmed booking shows for r.
func ConfirmationRange(r StayRange) string {
	return ISODate(r.Checkin) + " - " + ISODate(r.Checkout)
}
