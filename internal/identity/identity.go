// Package identity produces throwaway guest details for form fills.
package identity

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	emailChars  = 8
	phoneDigits = 9
)

// Generator creates synthetic emails and UK mobile numbers.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator drawing from rng. A nil rng gets a time-seeded source.
func New(rng *rand.Rand) *Generator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Generator{rng: rng}
}

// Email returns email{8 lowercase alphanumerics}@hotmail.com.
func (g *Generator) Email() string {
	var b strings.Builder
	b.WriteString("email")
	g.mu.Lock()
	for i := 0; i < emailChars; i++ {
		b.WriteByte(alphabet[g.rng.IntN(len(alphabet))])
	}
	g.mu.Unlock()
	b.WriteString("@hotmail.com")
	return b.String()
}

// Phone returns 07 followed by nine random digits.
func (g *Generator) Phone() string {
	var b strings.Builder
	b.WriteString("07")
	g.mu.Lock()
	for i := 0; i < phoneDigits; i++ {
		b.WriteByte(alphabet[g.rng.IntN(10)])
	}
	g.mu.Unlock()
	return b.String()
}
