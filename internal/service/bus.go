package service

import (
	"context"
	"time"
)

// Requester issues a request over the broker and decodes the correlated
// reply into out.
type Requester interface {
	Request(ctx context.Context, pattern string, payload, out interface{}) error
}

// Publisher enqueues a fire-and-forget message.
type Publisher interface {
	Publish(ctx context.Context, pattern string, payload interface{}) error
}

// Bus is the full transport contract services consume.
type Bus interface {
	Requester
	Publisher
}

// Cache is the slice of the redis client services use for read-through
// lookups. Cache failures degrade to store reads, never to errors.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}
