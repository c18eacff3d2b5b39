package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/itinmap/internal/model"
)

// Cache stores opaque values with a TTL. Implementations are safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key namespaces an identifier of the given kind, e.g. Key("place", placeID).
// Identifiers are hashed as given; callers normalize them first.
func Key(kind, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "itinmap:v1:" + kind + ":" + hex.EncodeToString(hash[:16])
}

// GetJSON decodes a cached JSON value into v
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v as JSON and stores it
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}

// New builds a cache for the configured scope. Shared scope with a directory gets a
// disk layer behind memory; everything else is memory only.
func New(cfg model.CacheConfig) Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cfg.Scope == ScopeShared && cfg.Dir != "" {
		return NewLayeredCache(NewMemoryCache(ttl, 10*time.Minute), NewDiskCache(cfg.Dir, ttl))
	}
	return NewMemoryCache(ttl, 10*time.Minute)
}

// Cache scopes
const (
	ScopeRequest = "request"
	ScopeShared  = "shared"
)
