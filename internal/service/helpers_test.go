package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"flow-platform/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// newMockStore wraps a sqlmock connection in a Store. The caller owns the
// expectations and must check ExpectationsWereMet.
func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

// fakeBus scripts request replies per pattern and records every publish.
type fakeBus struct {
	replies    map[string]interface{}
	requestErr map[string]error
	requests   []busCall
	published  []busCall
	publishErr error
}

type busCall struct {
	pattern string
	payload interface{}
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		replies:    make(map[string]interface{}),
		requestErr: make(map[string]error),
	}
}

func (b *fakeBus) Request(ctx context.Context, pattern string, payload, out interface{}) error {
	b.requests = append(b.requests, busCall{pattern: pattern, payload: payload})
	if err, ok := b.requestErr[pattern]; ok {
		return err
	}
	reply, ok := b.replies[pattern]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (b *fakeBus) Publish(ctx context.Context, pattern string, payload interface{}) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, busCall{pattern: pattern, payload: payload})
	return nil
}

func (b *fakeBus) publishedPatterns() []string {
	out := make([]string, 0, len(b.published))
	for _, c := range b.published {
		out = append(out, c.pattern)
	}
	return out
}

// fakeCache is an in-memory Cache with optional forced failure.
type fakeCache struct {
	entries     map[string][]byte
	invalidated []string
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.err != nil {
		return c.err
	}
	for _, key := range keys {
		delete(c.entries, key)
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}
