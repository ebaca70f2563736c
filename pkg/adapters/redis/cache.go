package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// CachedRetriever serves repeated queries from Redis. Entries are keyed on the
// exact query text and k.
// Cache failures are logged and fall through to the wrapped retriever.
type CachedRetriever struct {
	inner  ports.Retriever
	client *backend.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Retriever = (*CachedRetriever)(nil)

// NewCachedRetriever wraps inner.
func NewCachedRetriever(inner ports.Retriever, client *backend.Client, logger *slog.Logger, opts ...Option) *CachedRetriever {
	s := newSettings(opts)
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &CachedRetriever{
		inner:  inner,
		client: client,
		prefix: s.prefix + "retrieval:",
		ttl:    s.ttl,
		logger: logger,
	}
}

func (c *CachedRetriever) key(query string, k int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s%d:%s", c.prefix, k, hex.EncodeToString(sum[:]))
}

// Search returns cached snippets when present, otherwise asks the wrapped retriever.
// Failed searches are not cached.
func (c *CachedRetriever) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	key := c.key(query, k)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached []domain.Snippet
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, backend.Nil):
		c.logger.Warn("retrieval cache unavailable", "error", err)
	}

	snippets, err := c.inner.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snippets)
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("failed to cache retrieval", "error", err)
		}
	}
	return snippets, nil
}
