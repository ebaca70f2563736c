// Package redis provides Redis-backed adapters: a handoff queue for escalation
// tickets and a cache in front of the knowledge retriever.
package redis

import (
	"time"

	backend "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "switchboard:"

type settings struct {
	prefix string
	ttl    time.Duration
	maxLen int64
}

// Option configures the Redis adapters.
type Option func(*settings)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithTTL sets the expiration of cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

// WithMaxLen caps the handoff queue; older tickets are trimmed. Zero keeps everything.
func WithMaxLen(n int64) Option {
	return func(s *settings) {
		s.maxLen = n
	}
}

func newSettings(opts []Option) settings {
	s := settings{prefix: DefaultPrefix, ttl: 10 * time.Minute}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewClient creates a client for address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}
