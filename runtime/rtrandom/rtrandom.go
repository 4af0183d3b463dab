// Package rtrandom backs the random module in generated programs.
package rtrandom

import (
	"math/rand"
	"sync"
)

var (
	mu  sync.Mutex
	rng = rand.New(rand.NewSource(1))
)

// Seed reseeds the generator.
func Seed(n int64) {
	mu.Lock()
	defer mu.Unlock()
	rng = rand.New(rand.NewSource(n))
}

// Random returns a float in [0, 1).
func Random() float64 {
	mu.Lock()
	defer mu.Unlock()
	return rng.Float64()
}

// Randint returns an integer in [a, b], both bounds inclusive.
func Randint(a, b int64) int64 {
	mu.Lock()
	defer mu.Unlock()
	return a + rng.Int63n(b-a+1)
}

// Uniform returns a float in [a, b).
func Uniform(a, b float64) float64 {
	mu.Lock()
	defer mu.Unlock()
	return a + rng.Float64()*(b-a)
}
