// Package store persists API responses so repeated queries do not spend the
// INSEE rate limit twice.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/medlin-app/medlin/internal/config"
)

// Stats summarizes the cache contents.
type Stats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}

// Store defines the response cache persistence interface.
type Store interface {
	// GetCachedResponse returns the body stored under key, or nil when the
	// key is unknown or expired.
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)
	Purge(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the backend selected by cfg and migrates it. The "none"
// driver returns a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// ResponseCache exposes a Store with a fixed TTL as a fetcher cache.
type ResponseCache struct {
	store Store
	ttl   time.Duration
}

// NewResponseCache wraps s. A non-positive ttl defaults to 24 hours.
func NewResponseCache(s Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResponseCache{store: s, ttl: ttl}
}

// Get returns a live cached body.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.store.GetCachedResponse(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return body, body != nil, nil
}

// Set stores body for the cache TTL.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) error {
	return c.store.SetCachedResponse(ctx, key, body, c.ttl)
}
