package identity

import (
	"math/rand"
	"sync"
)

// rng is a non-cryptographically-secure random picker. It is safe for
// concurrent use by multiple goroutines.
type rng struct {
	sync.Mutex
	gen *rand.Rand
}

func newRNG(src rand.Source) *rng {
	g := new(rng)
	g.gen = rand.New(src)
	return g
}

// intn returns a uniformly random int in [0, n).
func (r *rng) intn(n int) int {
	defer r.Unlock()
	r.Lock()
	return r.gen.Intn(n)
}
