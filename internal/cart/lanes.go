package cart

import "sync"

// lanes hands out one mutex per product id. Entries are dropped once no caller holds or waits on them.
type lanes struct {
	mu sync.Mutex
	m  map[string]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func newLanes() *lanes {
	return &lanes{m: make(map[string]*lane)}
}

// lock blocks until the lane for key is free and returns its unlock func.
func (l *lanes) lock(key string) func() {
	l.mu.Lock()
	ln, ok := l.m[key]
	if !ok {
		ln = &lane{}
		l.m[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	ln.mu.Lock()
	return func() {
		ln.mu.Unlock()
		l.mu.Lock()
		ln.refs--
		if ln.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}

func (l *lanes) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
