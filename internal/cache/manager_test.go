package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"aks/internal/config"
	"aks/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	closed bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Purge(_ context.Context, prefix string) (int, error) {
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Close() error {
	m.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKeyIsStableAndSensitive(t *testing.T) {
	base := Key("xai", "grok", "sys", "prompt")

	assert.Equal(t, base, Key("xai", "grok", "sys", "prompt"))
	assert.True(t, strings.HasPrefix(base, keyPrefix))

	assert.NotEqual(t, base, Key("openai", "grok", "sys", "prompt"))
	assert.NotEqual(t, base, Key("xai", "grok-2", "sys", "prompt"))
	assert.NotEqual(t, base, Key("xai", "grok", "other", "prompt"))
	assert.NotEqual(t, base, Key("xai", "grok", "sys", "prompt!"))
	// field boundaries matter
	assert.NotEqual(t, Key("ab", "c", "", ""), Key("a", "bc", "", ""))
}

func TestSaveThenLookup(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, 6*time.Hour, quietLogger())
	ctx := context.Background()
	key := Key("xai", "grok", "sys", "prompt")

	_, ok := m.Lookup(ctx, key)
	assert.False(t, ok)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.Save(ctx, key, Entry{Provider: "xai", Model: "grok", Response: "answer", CreatedAt: created})

	e, ok := m.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "answer", e.Response)
	assert.Equal(t, "grok", e.Model)
	assert.True(t, created.Equal(e.CreatedAt))
	assert.Equal(t, 6*time.Hour, store.ttls[key])
}

func TestSaveSkipsEmptyResponse(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, quietLogger())

	m.Save(context.Background(), "k", Entry{})
	assert.Empty(t, store.data)
}

func TestLookupStoreErrorIsMiss(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection reset")
	m := NewManager(store, time.Hour, quietLogger())

	_, ok := m.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

func TestLookupCorruptEntryIsMiss(t *testing.T) {
	store := newMemoryStore()
	store.data["k"] = []byte("{not json")
	m := NewManager(store, time.Hour, quietLogger())

	_, ok := m.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

func TestClearOnlyTouchesResponses(t *testing.T) {
	store := newMemoryStore()
	store.data["other:key"] = []byte("x")
	m := NewManager(store, time.Hour, quietLogger())
	ctx := context.Background()

	m.Save(ctx, Key("a", "b", "c", "d"), Entry{Response: "r1"})
	m.Save(ctx, Key("a", "b", "c", "e"), Entry{Response: "r2"})

	n, err := m.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, store.data, "other:key")
}

func TestNilManagerIsDisabled(t *testing.T) {
	var m *Manager
	ctx := context.Background()

	_, ok := m.Lookup(ctx, "k")
	assert.False(t, ok)
	m.Save(ctx, "k", Entry{Response: "x"})
	n, err := m.Clear(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, m.Close())
}

func TestOpenDisabled(t *testing.T) {
	m := Open(context.Background(), config.RedisConfig{Enabled: false}, quietLogger())
	assert.Nil(t, m)
}

func TestOpenUnreachableDegradesToNil(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, URL: "not-a-redis-url", TTLHours: 1}
	m := Open(context.Background(), cfg, quietLogger())
	assert.Nil(t, m)
}
