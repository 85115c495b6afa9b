package pages

import (
	"context"
	"errors"
	"net/http"
	"time"

	"staycheck/internal/browser"
	"staycheck/internal/datepick"
	"staycheck/internal/events"
)

// Outcome is how a reservation ended.
type Outcome string

const (
	// OutcomeConfirmed means the confirmation card showed the booked range.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeRecovered means the booking API returned 500 and the site showed
	// its client error banner.
	OutcomeRecovered Outcome = "recovered"
)

// ReservationOutcome describes a finished reservation.
type ReservationOutcome struct {
	Stay         datepick.StayRange
	Checkin      Selection
	Checkout     Selection
	Confirmation string
	Outcome      Outcome
}

// ReserveRoom books the configured room for stay and verifies the result.
//
// Check-in is picked starting from today's month; check-out starts from the
// check-in month, which is where the widget opens once check-in is set.
func (h *HomePage) ReserveRoom(ctx context.Context, stay datepick.StayRange) (ReservationOutcome, error) {
	out := ReservationOutcome{Stay: stay, Confirmation: datepick.ConfirmationRange(stay)}
	if err := stay.Validate(); err != nil {
		return out, err
	}

	h.logger.Info().
		Str("checkin", datepick.AriaLabel(stay.Checkin)).
		Str("checkout", datepick.AriaLabel(stay.Checkout)).
		Msg("reserving room")

	if err := h.Open(ctx); err != nil {
		return out, err
	}
	if err := h.page.Settle(ctx, h.opts.Timing.PageSettle); err != nil {
		return out, err
	}

	today := datepick.AnchorOf(h.Today())
	checkin, err := h.picker.Pick(ctx, CheckinLabel, h.Textboxes.CheckinDate, stay.Checkin, today)
	if err != nil {
		return out, err
	}
	out.Checkin = checkin

	checkout, err := h.picker.Pick(ctx, CheckoutLabel, h.Textboxes.CheckoutDate, stay.Checkout, datepick.AnchorOf(checkin.Date))
	if err != nil {
		return out, err
	}
	out.Checkout = checkout

	if err := h.Buttons.RoomLink.Click(ctx); err != nil {
		return out, err
	}
	if err := expect(h.opts.Room.Name+" heading", h.Headings.RoomPage.WaitVisible(ctx, h.opts.Timing.Visible)); err != nil {
		return out, err
	}
	if err := h.Buttons.ReserveNow.Click(ctx); err != nil {
		return out, err
	}

	backend := h.page.Watch(browser.ResponseFilter{URLContains: BookingPath, Status: http.StatusInternalServerError})
	defer backend.Stop()

	if err := h.FillCustomerDetails(ctx); err != nil {
		return out, err
	}

	outcome, err := h.verifyBooking(ctx, out.Confirmation, backend)
	out.Outcome = outcome
	return out, err
}

// Today is the current calendar date in the browser's timezone.
func (h *HomePage) Today() time.Time {
	return datepick.DateOf(h.now().In(h.opts.Location))
}

// verifyBooking expects the confirmation card. When it does not appear, a
// 500 from the booking API within the probe window together with the
// client error banner is accepted instead; any other failure is returned.
func (h *HomePage) verifyBooking(ctx context.Context, want string, backend browser.ResponseWatch) (Outcome, error) {
	confirmErr := h.verifyConfirmation(ctx, want)
	if confirmErr == nil {
		return OutcomeConfirmed, nil
	}
	if ctx.Err() != nil {
		return "", confirmErr
	}

	resp, err := backend.Wait(ctx, h.opts.Timing.FailureProbe)
	if err != nil {
		if !errors.Is(err, browser.ErrTimeout) {
			return "", err
		}
		return "", &OutcomeError{Expected: want, Err: confirmErr}
	}

	h.logger.Warn().Str("url", resp.URL).Int("status", resp.Status).Msg("booking API failed, checking error banner")
	h.events.Publish(events.Event{Type: events.BackendFailure, Err: confirmErr})

	if err := h.Messages.BookingError.WaitVisible(ctx, h.opts.Timing.Visible); err != nil {
		return "", &OutcomeError{Expected: want, Err: confirmErr, Backend: &resp, BannerErr: err}
	}
	return OutcomeRecovered, nil
}

func (h *HomePage) verifyConfirmation(ctx context.Context, want string) error {
	card := h.page.Locate(browser.ByCSS(ConfirmationCard))
	wait := h.opts.Timing.ConfirmTimeout

	if err := h.Headings.BookingConfirmed.WaitVisible(ctx, wait); err != nil {
		return expect("booking confirmed heading", err)
	}
	if err := card.Locate(browser.ByText(ConfirmedText)).WaitVisible(ctx, wait); err != nil {
		return expect("confirmation text", err)
	}
	return expect("confirmed dates "+want, card.Locate(browser.ByText(want)).WaitVisible(ctx, wait))
}
