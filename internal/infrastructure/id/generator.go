package id

import (
	"strconv"
	"sync"
	"time"
)

const tokenPrefix = "ORDER"

// TokenGenerator issues correlation tokens of the form ORDER<unix-millis>.
// The numeric suffix keeps tokens extractable from free-form webhook text
// with a simple digit match. Two calls inside the same millisecond bump the
// suffix so the registry's uniqueness invariant holds without retries.
type TokenGenerator struct {
	mu   sync.Mutex
	last int64
}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

func (g *TokenGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= g.last {
		now = g.last + 1
	}
	g.last = now

	return tokenPrefix + strconv.FormatInt(now, 10)
}
