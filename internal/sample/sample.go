// ABOUTME: Uniform random selection of a bounded subset without replacement
// ABOUTME: Takes an explicit random source so runs can be reproduced from a seed
package sample

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrInvalidSampleSize is returned when more items are requested than exist
var ErrInvalidSampleSize = errors.New("invalid sample size")

// NewSource returns a random source seeded with seed. A zero seed means
// "seed from the clock".
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Select returns count items drawn uniformly at random without replacement.
// Every item has the same probability of being chosen. The input is not
// modified and the result order is random.
func Select[T any](items []T, count int, rng *rand.Rand) ([]T, error) {
	if count < 0 || count > len(items) {
		return nil, fmt.Errorf("%w: requested %d of %d items", ErrInvalidSampleSize, count, len(items))
	}
	if rng == nil {
		rng = NewSource(0)
	}

	shuffled := make([]T, len(items))
	copy(shuffled, items)

	// Partial Fisher-Yates: only the first count positions need settling
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:count:count], nil
}
