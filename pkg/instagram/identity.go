package instagram

import (
	"math/rand"
	"sync"
)

// UserAgents is the fixed identity pool. It spans Windows, macOS and Linux
// and the Blink, Gecko and WebKit engines.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// Rotator picks a user agent uniformly at random on every call. It keeps
// no memory of earlier picks.
type Rotator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool []string
}

// NewRotator creates a Rotator over UserAgents. A nil rng draws through
// RandomUserAgent.
func NewRotator(rng *rand.Rand) *Rotator {
	return &Rotator{rng: rng, pool: UserAgents}
}

// UserAgent returns one member of the pool
func (r *Rotator) UserAgent() string {
	if r.rng == nil {
		return RandomUserAgent()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.rng.Intn(len(r.pool))]
}

// RandomUserAgent returns a uniformly random member of UserAgents using
// the shared math/rand source, which is safe for concurrent use.
func RandomUserAgent() string {
	return UserAgents[rand.Intn(len(UserAgents))]
}
