package suite

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"staycheck/internal/datepick"
	"staycheck/internal/pages"
)

// Scenario names as reported.
const (
	ReserveConfigured = "Reserve Double Room for 2 Nights"
	SendMessage       = "Use Send us a Message form"
	AdminLogin        = "Attempt to login as Admin User"
	HomepageLoad      = "Homepage should load within 2 seconds and render key content"
	ReserveRandom     = "Reserve Double Room for random dates"
)

// DefaultNames are run when no scenarios are selected.
var DefaultNames = []string{ReserveConfigured, SendMessage, AdminLogin, HomepageLoad}

// Scenario is one named check against a fresh page.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, home *pages.HomePage) (Outcome, error)
}

// Catalog builds the known scenarios.
type Catalog struct {
	// Stay is the configured reservation. When HasStay is false a random range is used.
	Stay    datepick.StayRange
	HasStay bool
	// Now is the clock random ranges are measured from.
	Now func() time.Time
	// Location is the browser's timezone. Nil means UTC.
	Location *time.Location
}

// Scenarios returns every known scenario keyed by name.
func (c Catalog) Scenarios() map[string]Scenario {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	random := func() datepick.StayRange {
		t := now()
		seed := uint64(t.UnixNano())
		return datepick.RandomStayRange(t.In(loc), rand.New(rand.NewPCG(seed, seed>>1)))
	}

	configured := func() datepick.StayRange {
		if c.HasStay {
			return c.Stay
		}
		return random()
	}

	all := []Scenario{
		{Name: ReserveConfigured, Run: reserve(configured)},
		{Name: SendMessage, Run: func(ctx context.Context, home *pages.HomePage) (Outcome, error) {
			return Passed, home.SendMessage(ctx)
		}},
		{Name: AdminLogin, Run: func(ctx context.Context, home *pages.HomePage) (Outcome, error) {
			return Passed, home.AttemptAdminLogin(ctx)
		}},
		{Name: HomepageLoad, Run: func(ctx context.Context, home *pages.HomePage) (Outcome, error) {
			_, err := home.CheckHomepageLoad(ctx)
			return Passed, err
		}},
		{Name: ReserveRandom, Run: reserve(random)},
	}

	out := make(map[string]Scenario, len(all))
	for _, s := range all {
		out[s.Name] = s
	}
	return out
}

// Select returns the named scenarios in the given order, or the defaults
// when names is empty.
func (c Catalog) Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	known := c.Scenarios()

	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func reserve(stay func() datepick.StayRange) func(context.Context, *pages.HomePage) (Outcome, error) {
	return func(ctx context.Context, home *pages.HomePage) (Outcome, error) {
		out, err := home.ReserveRoom(ctx, stay())
		if err != nil {
			return Failed, err
		}
		if out.Outcome == pages.OutcomeRecovered {
			return Recovered, nil
		}
		return Passed, nil
	}
}
