package photoshare

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

type registryEntry struct {
	store *Store
	refs  int
}

// Registry hands out one Store per device, hydrating it from storage on first
// use. A device never has two live Stores: a store evicted from the cache
// while it is still leased stays reachable until its last lease is released.
type Registry struct {
	mu      sync.Mutex
	storage Storage
	stores  *LRU[string, *registryEntry]
	leased  map[string]*registryEntry
	loads   singleflight.Group
	opts    []Option
	logger  *slog.Logger
}

func NewRegistry(storage Storage, capacity int, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		storage: storage,
		stores:  NewLRU[string, *registryEntry](capacity),
		leased:  make(map[string]*registryEntry),
		opts:    append([]Option{WithLogger(logger)}, opts...),
		logger:  logger,
	}
	r.stores.OnEvict = func(device string, e *registryEntry) {
		if e.refs > 0 {
			r.leased[device] = e
			return
		}
		r.logger.Debug("store evicted", slog.String("device", device))
	}
	return r
}

// lookup must be called with r.mu held.
func (r *Registry) lookup(device string) (*registryEntry, bool) {
	if e, ok := r.stores.Get(device); ok {
		return e, true
	}
	if e, ok := r.leased[device]; ok {
		delete(r.leased, device)
		r.stores.Add(device, e)
		return e, true
	}
	return nil, false
}

// Acquire leases the Store for device. The returned release func must be
// called once the caller is done with the Store.
func (r *Registry) Acquire(ctx context.Context, device string) (*Store, func()) {
	for {
		r.mu.Lock()
		if e, ok := r.lookup(device); ok {
			e.refs++
			r.mu.Unlock()
			return e.store, r.releaser(device, e)
		}
		r.mu.Unlock()

		// Open runs outside r.mu so a slow backend only holds up callers for
		// the same device.
		_, _, _ = r.loads.Do(device, func() (any, error) {
			r.mu.Lock()
			_, loaded := r.lookup(device)
			r.mu.Unlock()
			if loaded {
				return nil, nil
			}
			store := Open(context.WithoutCancel(ctx), r.storage, device, r.opts...)
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.lookup(device); !ok {
				r.stores.Add(device, &registryEntry{store: store})
			}
			return nil, nil
		})
	}
}

func (r *Registry) releaser(device string, e *registryEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.refs--
			if e.refs == 0 && r.leased[device] == e {
				delete(r.leased, device)
				r.logger.Debug("store evicted", slog.String("device", device))
			}
		})
	}
}

func (r *Registry) IsReady(ctx context.Context) bool {
	return r.storage.IsReady(ctx)
}
