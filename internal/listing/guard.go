package listing

import "sync"

// FetchGuard drops overlapping duplicate fetches: a request issued while one
// is in flight is discarded, not queued. The enricher keeps one guard per
// foreign-key binding.
type FetchGuard struct {
	mu       sync.Mutex
	inFlight bool
}

// Begin reports whether the caller may start a fetch. It returns false while
// another fetch is in flight.
func (g *FetchGuard) Begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return false
	}
	g.inFlight = true
	return true
}

// End marks the in-flight fetch finished.
func (g *FetchGuard) End() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}
