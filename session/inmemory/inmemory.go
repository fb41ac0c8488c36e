package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiresight-ai/hiresight/session"
)

// Store keeps sessions in a process-wide map. Expired sessions are dropped
// lazily on access.
type Store struct {
	sessions map[string]*session.Session
	mu       sync.RWMutex
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session.Session)}
}

func (store *Store) Create(ctx context.Context, ttl time.Duration) (*session.Session, error) {
	sess := session.New(uuid.NewString(), ttl)
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[sess.ID()] = sess
	return sess, nil
}

func (store *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	store.mu.RLock()
	sess, ok := store.sessions[id]
	store.mu.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}
	if sess.Expired() {
		store.mu.Lock()
		delete(store.sessions, id)
		store.mu.Unlock()
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (store *Store) Delete(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(store.sessions, id)
	return nil
}
