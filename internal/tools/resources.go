package tools

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/caselens/caselens/internal/cache"
	"github.com/pkg/errors"
)

// Fetch produces a resource snapshot value. The registry serializes it.
type Fetch func(ctx context.Context) (any, error)

type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mime_type"`

	fetch Fetch
}

// RegisterResource adds a read-only snapshot addressed by URI.
func (r *Registry) RegisterResource(uri, name, description string, fetch Fetch) {
	r.resources[uri] = &Resource{
		URI:         uri,
		Name:        name,
		Description: description,
		MimeType:    "application/json",
		fetch:       fetch,
	}
	r.resURIs = append(r.resURIs, uri)
	sort.Strings(r.resURIs)
}

// Resources returns the catalog in URI order.
func (r *Registry) Resources() []*Resource {
	out := make([]*Resource, 0, len(r.resURIs))
	for _, uri := range r.resURIs {
		out = append(out, r.resources[uri])
	}
	return out
}

// Snapshots is an optional read-through cache over ReadResource. A nil
// *Snapshots (or nil cache inside) reads straight from the store.
type Snapshots struct {
	cache cache.BytesCache
	ttl   time.Duration
	log   *slog.Logger
}

func NewSnapshots(c cache.BytesCache, ttl time.Duration, log *slog.Logger) *Snapshots {
	if log == nil {
		log = slog.Default()
	}
	return &Snapshots{cache: c, ttl: ttl, log: log}
}

// ReadResource serializes the named snapshot, consulting the cache first
// when one is configured. Cache failures degrade to a direct read.
func (r *Registry) ReadResource(ctx context.Context, uri string, snaps *Snapshots) (string, error) {
	res, ok := r.resources[uri]
	if !ok {
		return "", errors.Wrap(ErrResourceNotFound, uri)
	}

	if snaps != nil && snaps.cache != nil {
		key := cache.SnapshotKey(uri)
		if b, ok, err := snaps.cache.Get(ctx, key); err != nil {
			snaps.log.Warn("snapshot cache get failed", "uri", uri, "err", err)
		} else if ok {
			return string(b), nil
		}
	}

	v, err := res.fetch(ctx)
	if err != nil {
		return "", err
	}
	body, err := marshalResult(v)
	if err != nil {
		return "", err
	}

	if snaps != nil && snaps.cache != nil {
		key := cache.SnapshotKey(uri)
		if err := snaps.cache.Set(ctx, key, []byte(body), snaps.ttl); err != nil {
			snaps.log.Warn("snapshot cache set failed", "uri", uri, "err", err)
		}
	}
	return body, nil
}
