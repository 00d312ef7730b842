// Package redisstore keeps session snapshots in Redis so several processes
// can share one authenticated session.
package redisstore

import (
	"context"
	"time"

	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ session.Store = (*Store)(nil)

const DefaultPrefix = "gopay:session:"

type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires stored snapshots. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(ctx context.Context, key string, blob []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, blob, s.ttl).Err(); err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, &session.StoreError{Op: "load", Key: key, Cause: err}
	}
	return blob, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return &session.StoreError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}
