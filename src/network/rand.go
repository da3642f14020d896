package network

import (
	"math/rand"
	"time"
)

// NewRand returns a random source for HandleEvent, seeded from the clock.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
