package main

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Handle is a live connection the dispatcher can write to. Implementations
// must be comparable; the registry keeps a reverse index keyed on the handle.
type Handle interface {
	Send(payload []byte) error
	Close()
}

const onlineSetKey = "online:users"

// Registry is the authoritative userId -> handle map: at most one handle per
// user, re-register replaces. The Redis set is a best-effort mirror for
// external readers and is never consulted for dispatch.
type Registry struct {
	mu      sync.RWMutex
	users   map[string]Handle
	handles map[Handle]string
	rdb     *redis.Client // optional
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		users:   make(map[string]Handle),
		handles: make(map[Handle]string),
		rdb:     rdb,
	}
}

// Put registers h for userID and returns the handle it displaced, if any.
func (r *Registry) Put(userID string, h Handle) (Handle, bool) {
	r.mu.Lock()
	prior, had := r.users[userID]
	if had {
		delete(r.handles, prior)
	}
	r.users[userID] = h
	r.handles[h] = userID
	r.mu.Unlock()

	if r.rdb != nil {
		if err := r.rdb.SAdd(context.Background(), onlineSetKey, userID).Err(); err != nil {
			log.Printf("presence: failed to mirror online %s: %v", userID, err)
		}
	}
	return prior, had
}

func (r *Registry) Get(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.users[userID]
	return h, ok
}

// RemoveByHandle drops the entry owning h and returns its user id.
// Disconnects are signalled by handle, not by user id, hence the reverse
// index. A handle already displaced by a re-register is not found here, so a
// late disconnect of the old connection cannot evict the new one.
func (r *Registry) RemoveByHandle(h Handle) (string, bool) {
	r.mu.Lock()
	userID, ok := r.handles[h]
	if ok {
		delete(r.handles, h)
		if cur, live := r.users[userID]; live && cur == h {
			delete(r.users, userID)
		}
	}
	r.mu.Unlock()

	if ok && r.rdb != nil {
		if err := r.rdb.SRem(context.Background(), onlineSetKey, userID).Err(); err != nil {
			log.Printf("presence: failed to mirror offline %s: %v", userID, err)
		}
	}
	return userID, ok
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// CloseAll closes every live handle. Used on shutdown, after the acceptor has
// stopped.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.handles))
	for h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		h.Close()
	}
}
