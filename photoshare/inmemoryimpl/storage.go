package inmemoryimpl

import (
	"context"
	"insta-pics/photoshare"
	"sync"
)

type InMemoryStorage struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		entries: make(map[string][]byte),
	}
}

func (storage *InMemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	value, ok := storage.entries[key]
	if !ok {
		return nil, photoshare.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (storage *InMemoryStorage) Save(_ context.Context, key string, value []byte) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	storage.entries[key] = append([]byte(nil), value...)
	return nil
}

func (storage *InMemoryStorage) IsReady(_ context.Context) bool {
	return true
}
