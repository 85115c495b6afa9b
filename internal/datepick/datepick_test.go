package datepick

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAriaLabel(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"fixed checkin", time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC), "Choose Tuesday, 22 July 2025"},
		{"fixed checkout", time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC), "Choose Thursday, 24 July 2025"},
		{"single digit day", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), "Choose Friday, 1 August 2025"},
		{"new year's eve", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), "Choose Wednesday, 31 December 2025"},
		{"new year's day", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "Choose Thursday, 1 January 2026"},
		{"leap day", time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), "Choose Tuesday, 29 February 2028"},
		{"late evening ignores clock", time.Date(2025, 7, 22, 23, 59, 0, 0, time.UTC), "Choose Tuesday, 22 July 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AriaLabel(tt.date))
		})
	}
}

func TestISODate(t *testing.T) {
	assert.Equal(t, "2025-07-24", ISODate(time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-05", ISODate(time.Date(2026, 1, 5, 12, 30, 0, 0, time.UTC)))
	assert.Equal(t, "0999-03-09", ISODate(time.Date(999, 3, 9, 0, 0, 0, 0, time.UTC)))
}

func TestDateOfUsesTimesOwnZone(t *testing.T) {
	// 00:30 on 23 July in UTC+2 is 22 July in UTC. Callers convert to the
	// browser's zone before asking for the date.
	plus2 := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2025, 7, 23, 0, 30, 0, 0, plus2)

	assert.Equal(t, "2025-07-23", ISODate(local))
	assert.Equal(t, "Choose Wednesday, 23 July 2025", AriaLabel(local))
	assert.Equal(t, time.UTC, DateOf(local).Location())
	assert.Equal(t, "2025-07-22", ISODate(local.In(time.UTC)))
}

func TestConfirmationRange(t *testing.T) {
	r, err := NewStayRange(
		time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	assert.Equal(t, "2025-07-22 - 2025-07-24", ConfirmationRange(r))
	assert.Equal(t, 2, r.Nights())
}

func TestNewStayRangeRejectsEmptyStay(t *testing.T) {
	day := time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)

	_, err := NewStayRange(day, day)
	assert.ErrorIs(t, err, ErrEmptyStay)

	_, err = NewStayRange(day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrEmptyStay)
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2025-07-22")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseISODate("22/07/2025")
	assert.Error(t, err)
}

func TestMonthAnchor(t *testing.T) {
	dec := MonthAnchor{Year: 2025, Month: time.December}

	assert.Equal(t, MonthAnchor{Year: 2026, Month: time.January}, dec.Next())
	assert.True(t, dec.Before(dec.Next()))
	assert.False(t, dec.Next().Before(dec))
	assert.Equal(t, 0, dec.MonthsUntil(dec))
	assert.Equal(t, 3, dec.MonthsUntil(MonthAnchor{Year: 2026, Month: time.March}))
	assert.Equal(t, -1, dec.MonthsUntil(MonthAnchor{Year: 2025, Month: time.November}))
	assert.Equal(t, "December 2025", dec.String())

	assert.Len(t, MonthAnchor{Year: 2028, Month: time.February}.Days(), 29)
	assert.Len(t, MonthAnchor{Year: 2100, Month: time.February}.Days(), 28)
	assert.Len(t, MonthAnchor{Year: 2025, Month: time.April}.Days(), 30)
	assert.True(t, dec.Contains(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}

var labelPattern = regexp.MustCompile(`^Choose (Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday), ([1-9]|[12][0-9]|3[01]) (January|February|March|April|May|June|July|August|September|October|November|December) ([0-9]{4})$`)

func genDate() gopter.Gen {
	base := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	return gen.IntRange(0, 365*200).Map(func(n int) time.Time {
		return base.AddDate(0, 0, n)
	})
}

func TestDateFormattingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000

	properties := gopter.NewProperties(parameters)

	properties.Property("aria label spells out weekday, day, month and year in order", prop.ForAll(
		func(d time.Time) bool {
			label := AriaLabel(d)
			m := labelPattern.FindStringSubmatch(label)
			if m == nil {
				t.Logf("label %q does not match the widget format", label)
				return false
			}
			return m[1] == d.Weekday().String() &&
				m[2] == fmt.Sprint(d.Day()) &&
				m[3] == d.Month().String() &&
				m[4] == fmt.Sprint(d.Year())
		},
		genDate(),
	))

	properties.Property("iso date is zero padded and round trips", prop.ForAll(
		func(d time.Time) bool {
			s := ISODate(d)
			if len(s) != 10 || s != fmt.Sprintf("%04d-%02d-%02d", d.Year(), int(d.Month()), d.Day()) {
				return false
			}
			back, err := ParseISODate(s)
			return err == nil && back.Equal(d)
		},
		genDate(),
	))

	properties.Property("next anchor is exactly one page ahead", prop.ForAll(
		func(d time.Time) bool {
			a := AnchorOf(d)
			return a.MonthsUntil(a.Next()) == 1 && a.Next().FirstDay().Equal(a.FirstDay().AddDate(0, 1, 0))
		},
		genDate(),
	))

	properties.TestingRun(t)
}

func TestRandomStayRangeBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000

	properties := gopter.NewProperties(parameters)

	properties.Property("checkin 7-20 days out, stay 1-5 nights", prop.ForAll(
		func(seed uint64, now time.Time) bool {
			r := RandomStayRange(now, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
			today := DateOf(now)
			ahead := int(r.Checkin.Sub(today).Hours() / 24)
			nights := r.Nights()
			return r.Checkout.After(r.Checkin) &&
				ahead >= MinCheckinOffset && ahead <= MaxCheckinOffset &&
				nights >= MinStayNights && nights <= MaxStayNights
		},
		gen.UInt64(),
		genDate().Map(func(d time.Time) time.Time { return d.Add(17*time.Hour + 42*time.Minute) }),
	))

	properties.TestingRun(t)
}

func TestRandomStayRangeCoversBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := time.Date(2025, 12, 28, 9, 0, 0, 0, time.UTC)

	offsets := map[int]bool{}
	nights := map[int]bool{}
	for i := 0; i < 5000; i++ {
		r := RandomStayRange(now, rng)
		offsets[int(r.Checkin.Sub(DateOf(now)).Hours()/24)] = true
		nights[r.Nights()] = true
	}

	assert.Len(t, offsets, MaxCheckinOffset-MinCheckinOffset+1)
	assert.Len(t, nights, MaxStayNights-MinStayNights+1)
}

func ExampleAriaLabel() {
	fmt.Println(AriaLabel(time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)))
	// Output: Choose Tuesday, 22 July 2025
}
