package sessionrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-gopay-client/session"
)

var _ session.Store = (*FakeSessionStore)(nil)

type FakeSessionStore struct {
	blobs map[string][]byte
	saves int
	lock  sync.RWMutex
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{
		blobs: make(map[string][]byte),
	}
}

func (s *FakeSessionStore) Save(_ context.Context, key string, blob []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.blobs[key] = append([]byte(nil), blob...)
	s.saves++
	return nil
}

func (s *FakeSessionStore) Load(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *FakeSessionStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.blobs, key)
	return nil
}

// Saves counts successful Save calls.
func (s *FakeSessionStore) Saves() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.saves
}
