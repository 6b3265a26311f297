package repository

import (
	"context"
	"sync"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/repository"
)

// MemoryKeyValueRepository keeps values in process memory
type MemoryKeyValueRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKeyValueRepository creates an empty in-memory key-value repository
func NewMemoryKeyValueRepository() *MemoryKeyValueRepository {
	return &MemoryKeyValueRepository{
		values: make(map[string][]byte),
	}
}

// Get reads the value stored under key
func (r *MemoryKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

// Set stores a copy of value under key
func (r *MemoryKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = append([]byte(nil), value...)
	return nil
}

// MemoryRemoteRepository is a shared trip store living in process memory.
// Subscribers are notified synchronously after every write.
type MemoryRemoteRepository struct {
	mu          sync.RWMutex
	docs        map[string][]byte
	subscribers map[string]map[int]func([]byte)
	nextID      int
}

// NewMemoryRemoteRepository creates an empty in-memory trip store
func NewMemoryRemoteRepository() *MemoryRemoteRepository {
	return &MemoryRemoteRepository{
		docs:        make(map[string][]byte),
		subscribers: make(map[string]map[int]func([]byte)),
	}
}

// Read returns the document stored at path
func (r *MemoryRemoteRepository) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[path]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

// ReadMeta returns the meta block of the document stored at path
func (r *MemoryRemoteRepository) ReadMeta(ctx context.Context, path string) (entity.RemoteMeta, error) {
	doc, err := r.Read(ctx, path)
	if err != nil {
		return entity.RemoteMeta{}, err
	}
	v, err := normalize.Decode(doc)
	if err != nil {
		return entity.RemoteMeta{}, nil
	}
	return normalize.RemoteMeta(v), nil
}

// Write replaces the document at path and notifies its subscribers
func (r *MemoryRemoteRepository) Write(ctx context.Context, path string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := append([]byte(nil), doc...)

	r.mu.Lock()
	r.docs[path] = stored
	callbacks := make([]func([]byte), 0, len(r.subscribers[path]))
	for _, cb := range r.subscribers[path] {
		callbacks = append(callbacks, cb)
	}
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(append([]byte(nil), stored...))
	}
	return nil
}

// Subscribe registers onChange for writes to path
func (r *MemoryRemoteRepository) Subscribe(ctx context.Context, path string, onChange func([]byte)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	if r.subscribers[path] == nil {
		r.subscribers[path] = make(map[int]func([]byte))
	}
	r.subscribers[path][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subscribers[path], id)
		})
	}, nil
}

// Subscribers reports how many subscriptions are open on path
func (r *MemoryRemoteRepository) Subscribers(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[path])
}
