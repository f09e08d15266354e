package sources

import (
	"math/rand"
	"sync"
)

// defaultUserAgents is a small set of desktop browser user agents rotated
// across requests.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// UserAgentPool hands out random user agents from a fixed pool.
type UserAgentPool struct {
	agents []string
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewUserAgentPool creates a pool. An empty agents list uses the defaults.
func NewUserAgentPool(agents []string, seed int64) *UserAgentPool {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &UserAgentPool{
		agents: agents,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Random returns one user agent from the pool.
func (p *UserAgentPool) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rng.Intn(len(p.agents))]
}
