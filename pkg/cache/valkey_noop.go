package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// noopValkey provides an in-memory, process-local fallback that satisfies
// Valkey when the external cache is unavailable. It is best-effort and
// intended for development and degraded operation; data is not shared across
// replicas and is lost on restart.
type noopValkey struct {
	m      map[string]noopEntry
	mu     sync.Mutex
	logger logger.Logger
}

type noopEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewNoopValkey(log logger.Logger) Valkey {
	if log == nil {
		log = logger.NewNop()
	}
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return &noopValkey{m: make(map[string]noopEntry), logger: log}
}

func (n *noopValkey) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.m[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		delete(n.m, key)
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return e.data, nil
}

func (n *noopValkey) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = noopEntry{data: b, expiresAt: exp}
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) CacheStatsSnapshot(ctx context.Context, name string, snapshot interface{}, ttl time.Duration) error {
	return n.Set(ctx, "stats_cache:"+name, snapshot, ttl)
}

func (n *noopValkey) GetStatsSnapshot(ctx context.Context, name string) ([]byte, error) {
	return n.Get(ctx, "stats_cache:"+name)
}

func (n *noopValkey) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := "lock:" + key
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.m[lockKey]
	if ok && (e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)) {
		return false, nil
	}
	n.m[lockKey] = noopEntry{data: []byte("locked"), expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (n *noopValkey) ReleaseLock(ctx context.Context, key string) error {
	return n.Delete(ctx, "lock:"+key)
}

func (n *noopValkey) HealthCheck(ctx context.Context) error {
	return nil
}
