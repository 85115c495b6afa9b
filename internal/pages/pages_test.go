package pages

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycheck/internal/browser"
	"staycheck/internal/browser/browsertest"
	"staycheck/internal/datepick"
	"staycheck/internal/events"
	"staycheck/internal/identity"
)

const baseURL = "https://automationintesting.online"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stay(t *testing.T, in, out time.Time) datepick.StayRange {
	t.Helper()
	r, err := datepick.NewStayRange(in, out)
	require.NoError(t, err)
	return r
}

func testOptions(site *browsertest.Site) Options {
	return Options{
		BaseURL: site.BaseURL,
		Room:    Room{Name: site.RoomName, LinkSelector: site.RoomLink},
		Admin:   Credentials{Username: "adminsuperuser1@email.com", Password: "Password123"},
		Contact: ContactMessage{
			Name:    "First and Last Name",
			Email:   "email@hotmail.com",
			Phone:   "07865765465",
			Subject: "Family Room Availability",
			Message: "Hi, I would like to check for the availability of Family Rooms at your B&B",
		},
		Guest:  Guest{FirstName: "First", LastName: "Last"},
		Timing: Timing{FailureProbe: 20 * time.Millisecond},
	}
}

func newHome(t *testing.T, site *browsertest.Site, opts Options, extra ...Option) (*HomePage, *browsertest.Page) {
	t.Helper()
	sess, err := site.NewSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	options := append([]Option{
		WithClock(site.Now),
		WithIdentity(identity.New(rand.New(rand.NewPCG(1, 2)))),
	}, extra...)
	return NewHomePage(sess.Page(), opts, options...), sess.Page().(*browsertest.Page)
}

func TestPickerFSMTransitions(t *testing.T) {
	fsm := NewPickerFSM()

	tests := []struct {
		name        string
		from        PickerState
		to          PickerState
		shouldAllow bool
	}{
		{"closed to open", PickerClosed, PickerOpen, true},
		{"page turn", PickerOpen, PickerOpen, true},
		{"open to selected", PickerOpen, PickerDaySelected, true},
		{"selected to closed", PickerDaySelected, PickerClosed, true},
		{"closed to selected", PickerClosed, PickerDaySelected, false},
		{"selected to open", PickerDaySelected, PickerOpen, false},
		{"open to closed", PickerOpen, PickerClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, fsm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestReserveRoomNavigation(t *testing.T) {
	tests := []struct {
		name             string
		today            time.Time
		checkin          time.Time
		checkout         time.Time
		checkinAdvances  int
		checkoutAdvances int
	}{
		{"same month", day(2025, 7, 10), day(2025, 7, 22), day(2025, 7, 24), 0, 0},
		{"checkin next month", day(2025, 6, 15), day(2025, 7, 22), day(2025, 7, 24), 1, 0},
		{"checkout crosses month", day(2025, 7, 10), day(2025, 7, 30), day(2025, 8, 2), 0, 1},
		{"year boundary", day(2025, 12, 20), day(2026, 1, 3), day(2026, 1, 5), 1, 0},
		{"leap day", day(2028, 2, 10), day(2028, 2, 28), day(2028, 3, 1), 0, 1},
		{"several months ahead", day(2025, 3, 1), day(2025, 7, 22), day(2025, 7, 24), 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := browsertest.NewSite(baseURL, tt.today)
			home, page := newHome(t, site, testOptions(site))

			out, err := home.ReserveRoom(context.Background(), stay(t, tt.checkin, tt.checkout))
			require.NoError(t, err)

			assert.Equal(t, OutcomeConfirmed, out.Outcome)
			assert.Equal(t, tt.checkinAdvances, out.Checkin.Advances)
			assert.Equal(t, tt.checkoutAdvances, out.Checkout.Advances)
			assert.Equal(t, tt.checkinAdvances+tt.checkoutAdvances, page.Count("click button:next"))
			assert.Equal(t, datepick.AriaLabel(tt.checkin), out.Checkin.Label)

			in, outDay := page.Selected()
			assert.Equal(t, tt.checkin, in)
			assert.Equal(t, tt.checkout, outDay)
			assert.Equal(t, datepick.ISODate(tt.checkin)+" - "+datepick.ISODate(tt.checkout), out.Confirmation)
		})
	}
}

func TestReserveRoomReadsTodayInBrowserTimezone(t *testing.T) {
	// 22:30 UTC on 31 July is already 1 August on a UTC+2 host.
	site := browsertest.NewSite(baseURL, time.Date(2025, 7, 31, 22, 30, 0, 0, time.UTC))
	hostClock := WithClock(func() time.Time { return site.Now().In(time.FixedZone("UTC+2", 2*60*60)) })

	t.Run("widget in UTC opens on July", func(t *testing.T) {
		home, page := newHome(t, site, testOptions(site), hostClock)
		assert.Equal(t, day(2025, 7, 31), home.Today())

		out, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 8, 5), day(2025, 8, 7)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, out.Outcome)
		assert.Equal(t, 1, out.Checkin.Advances)
		assert.Equal(t, 0, out.Checkout.Advances)
		assert.Equal(t, 1, page.Count("click button:next"))
		assert.Zero(t, page.ActiveWatches())
	})

	t.Run("explicit location", func(t *testing.T) {
		opts := testOptions(site)
		opts.Location = time.FixedZone("UTC+2", 2*60*60)
		home, _ := newHome(t, site, opts, hostClock)
		assert.Equal(t, day(2025, 8, 1), home.Today())
	})
}

func TestReserveRoomFillsGeneratedGuest(t *testing.T) {
	site := browsertest.NewSite(baseURL, day(2025, 7, 10))
	home, page := newHome(t, site, testOptions(site))

	_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
	require.NoError(t, err)

	assert.Equal(t, "First", page.Field("guest:Firstname"))
	assert.Equal(t, "Last", page.Field("guest:Lastname"))
	assert.Regexp(t, `^email[0-9a-z]{8}@hotmail\.com$`, page.Field("guest:Email"))
	assert.Regexp(t, `^07[0-9]{9}$`, page.Field("guest:Phone"))
}

func TestReserveRoomUnreachableMonth(t *testing.T) {
	t.Run("beyond page limit", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 4, 1))
		opts := testOptions(site)
		opts.MaxMonthAdvances = 1
		home, page := newHome(t, site, opts)

		_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMonthUnreachable)

		selErr := IsSelectionError(err)
		require.NotNil(t, selErr)
		assert.Equal(t, CheckinLabel, selErr.Field)
		assert.Equal(t, "Choose Tuesday, 22 July 2025", selErr.Label)
		assert.Zero(t, page.Count("click field:checkin"))
		assert.Zero(t, page.Count("click button:next"))
	})

	t.Run("month already past", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2026, 10, 17))
		home, page := newHome(t, site, testOptions(site))

		_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
		assert.ErrorIs(t, err, ErrMonthUnreachable)
		assert.Zero(t, page.Count("click field:checkin"))
	})
}

func TestReserveRoomLabelDrift(t *testing.T) {
	site := browsertest.NewSite(baseURL, day(2025, 7, 1))
	site.Label = func(d time.Time) string {
		return fmt.Sprintf("Choose %s, %02d %s %d", d.Weekday(), d.Day(), d.Month(), d.Year())
	}
	home, _ := newHome(t, site, testOptions(site))

	_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 8), day(2025, 7, 10)))
	require.Error(t, err)

	selErr := IsSelectionError(err)
	require.NotNil(t, selErr)
	assert.Equal(t, "Choose Tuesday, 8 July 2025", selErr.Label)
	assert.Equal(t, datepick.MonthAnchor{Year: 2025, Month: time.July}, selErr.Shown)
	assert.ErrorIs(t, err, browser.ErrNotFound)
}

func TestReserveRoomBackendFailure(t *testing.T) {
	t.Run("500 with banner recovers", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		site.BookingStatus = http.StatusInternalServerError

		bus := events.NewBus()
		var failures []events.Event
		bus.Subscribe(events.BackendFailure, func(e events.Event) { failures = append(failures, e) })

		home, _ := newHome(t, site, testOptions(site), WithEvents(bus))

		out, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeRecovered, out.Outcome)
		assert.Len(t, failures, 1)
	})

	t.Run("500 without banner fails", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		site.BookingStatus = http.StatusInternalServerError
		site.HideErrorBanner = true
		home, _ := newHome(t, site, testOptions(site))

		_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
		outErr := IsOutcomeError(err)
		require.NotNil(t, outErr)
		require.NotNil(t, outErr.Backend)
		assert.Equal(t, http.StatusInternalServerError, outErr.Backend.Status)
		assert.ErrorIs(t, outErr.BannerErr, browser.ErrTimeout)
	})

	t.Run("unrelated failure is not masked", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		site.BookingStatus = http.StatusConflict
		home, _ := newHome(t, site, testOptions(site))

		_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 22), day(2025, 7, 24)))
		outErr := IsOutcomeError(err)
		require.NotNil(t, outErr)
		assert.Nil(t, outErr.Backend)

		expErr := IsExpectationError(err)
		require.NotNil(t, expErr)
		assert.Equal(t, "booking confirmed heading", expErr.What)
	})
}

func TestReserveRoomPublishesAdvances(t *testing.T) {
	site := browsertest.NewSite(baseURL, day(2025, 5, 20))
	bus := events.NewBus()
	total := 0
	bus.Subscribe(events.CalendarAdvanced, func(e events.Event) { total += e.Count })

	home, _ := newHome(t, site, testOptions(site), WithEvents(bus))

	_, err := home.ReserveRoom(context.Background(), stay(t, day(2025, 7, 30), day(2025, 8, 1)))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestReserveRoomRejectsEmptyStay(t *testing.T) {
	site := browsertest.NewSite(baseURL, day(2025, 7, 10))
	home, page := newHome(t, site, testOptions(site))

	_, err := home.ReserveRoom(context.Background(), datepick.StayRange{Checkin: day(2025, 7, 22), Checkout: day(2025, 7, 22)})
	assert.ErrorIs(t, err, datepick.ErrEmptyStay)
	assert.Empty(t, page.Actions())
}

func TestAttemptAdminLogin(t *testing.T) {
	t.Run("unknown account is rejected", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		home, page := newHome(t, site, testOptions(site))

		require.NoError(t, home.AttemptAdminLogin(context.Background()))
		assert.Equal(t, "adminsuperuser1@email.com", page.Field("admin:Username"))
		assert.Equal(t, "Password123", page.Field("admin:Password"))
		assert.Zero(t, page.ActiveWatches())
	})

	t.Run("unexpected success fails", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		site.LoginStatus = http.StatusOK
		home, _ := newHome(t, site, testOptions(site))

		err := home.AttemptAdminLogin(context.Background())
		expErr := IsExpectationError(err)
		require.NotNil(t, expErr)
		assert.Equal(t, "login status 401", expErr.What)
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("complete form", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		home, page := newHome(t, site, testOptions(site))

		require.NoError(t, home.SendMessage(context.Background()))
		assert.Equal(t, "Family Room Availability", page.Field("contact:ContactSubject"))
	})

	t.Run("missing subject", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		opts := testOptions(site)
		opts.Contact.Subject = ""
		home, _ := newHome(t, site, opts)

		err := home.SendMessage(context.Background())
		assert.NotNil(t, IsExpectationError(err))
		assert.ErrorIs(t, err, browser.ErrTimeout)
	})
}

func TestCheckHomepageLoad(t *testing.T) {
	t.Run("fast load", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		home, _ := newHome(t, site, testOptions(site))

		took, err := home.CheckHomepageLoad(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 300*time.Millisecond, took)
	})

	t.Run("slow load", func(t *testing.T) {
		site := browsertest.NewSite(baseURL, day(2025, 7, 10))
		site.LoadTime = 2500 * time.Millisecond
		home, _ := newHome(t, site, testOptions(site))

		took, err := home.CheckHomepageLoad(context.Background())
		assert.Equal(t, 2500*time.Millisecond, took)
		expErr := IsExpectationError(err)
		require.NotNil(t, expErr)
		assert.Equal(t, "load under 2s", expErr.What)
	})
}

func TestOpenWrongHost(t *testing.T) {
	site := browsertest.NewSite(baseURL, day(2025, 7, 10))
	opts := testOptions(site)
	opts.BaseURL = "https://example.invalid"
	home, _ := newHome(t, site, opts)

	err := home.Open(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, browser.ErrTimeout))
}
