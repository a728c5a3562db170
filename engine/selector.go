package engine

import "math/rand/v2"

// Pick returns a uniformly random element of pool, or false when the pool
// is empty. Consecutive picks may repeat.
func Pick[T any](pool []T) (T, bool) {
	var zero T
	if len(pool) == 0 {
		return zero, false
	}
	return pool[rand.IntN(len(pool))], true
}
