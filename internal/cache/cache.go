package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort byte cache. Callers must tolerate misses and
// errors; a nil cache disables caching entirely.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SnapshotKey namespaces a resource URI inside the cache.
func SnapshotKey(uri string) string {
	return "snapshot:" + uri
}
