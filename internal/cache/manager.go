package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"aks/internal/config"
	"aks/internal/storage"
)

const keyPrefix = "aks:response:"

// Store is the backing key/value store. *storage.Redis satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Purge(ctx context.Context, prefix string) (int, error)
	Close() error
}

type Entry struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager caches model responses by request content. A nil *Manager is a
// valid, disabled cache.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewManager(store Store, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, ttl: ttl, logger: logger}
}

// Key identifies a request. Any change to provider, model, system
// instruction or prompt yields a different key.
func Key(provider, model, system, prompt string) string {
	h := sha256.New()
	for _, part := range []string{provider, model, system, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached entry for key. Store failures are logged and
// reported as a miss.
func (m *Manager) Lookup(ctx context.Context, key string) (*Entry, bool) {
	if m == nil {
		return nil, false
	}

	data, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		m.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	return &e, true
}

// Save stores e under key. Failures are logged, never returned.
func (m *Manager) Save(ctx context.Context, key string, e Entry) {
	if m == nil || e.Response == "" {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		m.logger.Warn("failed to encode cache entry", "error", err)
		return
	}
	if err := m.store.Set(ctx, key, data, m.ttl); err != nil {
		m.logger.Warn("cache store failed", "error", err)
	}
}

// Clear removes every cached response.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	if m == nil {
		return 0, nil
	}
	return m.store.Purge(ctx, keyPrefix)
}

func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.store.Close()
}

// Open connects the Redis-backed cache when it is enabled. Any connection
// problem disables caching for the run.
func Open(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *Manager {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	r, err := storage.NewRedis(ctx, cfg.URL)
	if err != nil {
		logger.Warn("response cache disabled", "error", err)
		return nil
	}

	ttl := time.Duration(cfg.TTLHours) * time.Hour
	return NewManager(r, ttl, logger)
}
