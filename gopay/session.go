package gopay

import (
	"context"

	"github.com/jrsteele09/go-gopay-client/credentials"
	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/pkg/errors"
)

// SaveSession stores the client's snapshot under key.
func (c *Client) SaveSession(ctx context.Context, store session.Store, key string) error {
	blob, err := c.Snapshot()
	if err != nil {
		return errors.Wrap(err, "Client.SaveSession Snapshot")
	}
	return store.Save(ctx, key, blob)
}

// LoadSession restores the client stored under key. session.ErrNotFound is
// returned when nothing is stored.
func LoadSession(ctx context.Context, store session.Store, key string, opts ...Option) (*Client, error) {
	blob, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Restore(blob, opts...)
}

// LoadOrNew restores the session stored under key when it belongs to the same
// client identity and gateway as creds; otherwise it returns a fresh client.
// An unreadable stored session is discarded rather than treated as fatal.
func LoadOrNew(ctx context.Context, store session.Store, key string, creds credentials.Credentials, opts ...Option) (*Client, error) {
	c, err := LoadSession(ctx, store, key, opts...)
	switch {
	case err == nil:
		if sameIdentity(c.Credentials(), creds) {
			return c, nil
		}
		c.logger.Info().Str("key", key).Msg("stored session belongs to other credentials, starting fresh")
	case errors.Is(err, session.ErrNotFound):
	default:
		var storeErr *session.StoreError
		if errors.As(err, &storeErr) {
			return nil, err
		}
		configure(opts).logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable session")
	}
	return New(creds, opts...)
}

func sameIdentity(a, b credentials.Credentials) bool {
	return a.ClientID() == b.ClientID() &&
		a.ClientSecret() == b.ClientSecret() &&
		a.Scope() == b.Scope() &&
		a.BaseURL() == b.BaseURL() &&
		a.GoID() == b.GoID()
}
