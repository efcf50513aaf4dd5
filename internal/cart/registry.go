package cart

import (
	"context"
	"sync"
)

// Registry keeps one Reconciler per browser session.
type Registry struct {
	facade Facade
	opts   []Option

	mu    sync.Mutex
	carts map[string]*Reconciler
}

func NewRegistry(facade Facade, opts ...Option) *Registry {
	return &Registry{
		facade: facade,
		opts:   opts,
		carts:  make(map[string]*Reconciler),
	}
}

// Get returns the session's cart, creating an empty guest cart on first use.
func (r *Registry) Get(sessionID string) *Reconciler {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.carts[sessionID]
	if !ok {
		rec = New(r.facade, "", r.opts...)
		r.carts[sessionID] = rec
	}
	return rec
}

// Bind attaches the session's cart to userID and replaces its lines with the user's persisted cart.
func (r *Registry) Bind(ctx context.Context, sessionID, userID string) *Reconciler {
	rec := r.Get(sessionID)
	rec.bind(ctx, userID)
	return rec
}

// Drop forgets the session's cart, typically on sign-out.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
