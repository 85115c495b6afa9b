package playwright

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"staycheck/internal/browser"
)

func TestExactText(t *testing.T) {
	re := exactText("Check In")

	assert.True(t, re.MatchString("Check In"))
	assert.False(t, re.MatchString("Check In Check Out"))
	assert.False(t, exactText("a.b").MatchString("axb"))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 2000.0, millis(2*time.Second))
	assert.Equal(t, 0.5, millis(500*time.Microsecond))
}

func TestMapErrPassesOtherErrors(t *testing.T) {
	other := errors.New("strict mode violation")

	assert.Same(t, other, mapErr(other))
	assert.False(t, errors.Is(mapErr(other), browser.ErrTimeout))
}
