package refresh

import (
	"sync"

	"github.com/rentdesk/sessiongate/session"
)

// flightGroup deduplicates concurrent refreshes of the same token: callers
// arriving while a refresh for that token is in flight wait for and share
// its result instead of issuing their own exchange.
type flightGroup struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	wg    sync.WaitGroup
	sess  session.Session
	state State
}

func (g *flightGroup) do(key string, fn func() (session.Session, State)) (session.Session, State) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		f.wg.Wait()
		return f.sess, f.state
	}

	f := &flight{}
	f.wg.Add(1)
	g.flights[key] = f
	g.mu.Unlock()

	f.sess, f.state = fn()
	f.wg.Done()

	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()

	return f.sess, f.state
}
