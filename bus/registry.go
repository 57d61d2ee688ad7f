package bus

import (
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one subscriber on one key. Events arrive on Events()
// until Unsubscribe is called or the subscriber falls too far behind, in
// which case the channel is closed and the observer must resubscribe and
// refetch a snapshot.
type Handle struct {
	ID  string
	Key string

	ch     chan Event
	closed sync.Once
}

// Events is the subscriber's receive channel. It is closed on unsubscribe
// and on buffer overflow.
func (h *Handle) Events() <-chan Event { return h.ch }

func (h *Handle) close() {
	h.closed.Do(func() { close(h.ch) })
}

// Registry tracks which handles are listening on which keys. Locking is
// per key so that unrelated orders' subscribe and publish traffic do not
// serialize each other. Subscriptions are process-lifetime only; after a
// restart observers resubscribe and resync via a snapshot read.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]*keyGroup
}

type keyGroup struct {
	mu   sync.Mutex
	subs map[string]*Handle
	// set when the group is pruned from the registry; a Register that
	// raced the prune must fetch a fresh group
	dead bool
}

func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*keyGroup)}
}

func (r *Registry) group(key string, create bool) *keyGroup {
	r.mu.RLock()
	g := r.keys[key]
	r.mu.RUnlock()
	if g != nil || !create {
		return g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g = r.keys[key]; g == nil {
		g = &keyGroup{subs: make(map[string]*Handle)}
		r.keys[key] = g
	}
	return g
}

// Register adds a subscriber with the given buffer size and returns its
// handle. The handle is live before Register returns: any Publish on the
// key after this point reaches it.
func (r *Registry) Register(key string, buffer int) *Handle {
	h := &Handle{ID: uuid.NewString(), Key: key, ch: make(chan Event, buffer)}
	for {
		g := r.group(key, true)
		g.mu.Lock()
		if g.dead {
			g.mu.Unlock()
			continue
		}
		g.subs[h.ID] = h
		g.mu.Unlock()
		return h
	}
}

// Deregister removes the handle and closes its channel. Safe to call more
// than once and safe for handles already dropped on overflow.
func (r *Registry) Deregister(h *Handle) {
	if h == nil {
		return
	}
	if g := r.group(h.Key, false); g != nil {
		g.mu.Lock()
		delete(g.subs, h.ID)
		empty := len(g.subs) == 0
		g.mu.Unlock()
		if empty {
			r.prune(h.Key, g)
		}
	}
	h.close()
}

// prune drops a drained group from the registry so the key map does not
// grow with every order ever watched. Rechecked under both locks; a
// subscriber added in between keeps the group alive.
func (r *Registry) prune(key string, g *keyGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.subs) == 0 && r.keys[key] == g {
		g.dead = true
		delete(r.keys, key)
	}
}

// Count reports the number of active subscribers on a key.
func (r *Registry) Count(key string) int {
	g := r.group(key, false)
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// each calls fn for every subscriber on key while holding the key lock,
// so per-key delivery order matches publish order. fn returns false to
// drop the subscriber.
func (r *Registry) each(key string, fn func(*Handle) bool) {
	g := r.group(key, false)
	if g == nil {
		return
	}
	g.mu.Lock()
	for id, h := range g.subs {
		if !fn(h) {
			delete(g.subs, id)
			h.close()
		}
	}
	empty := len(g.subs) == 0
	g.mu.Unlock()
	if empty {
		r.prune(key, g)
	}
}
