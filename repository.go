package parse

import (
	"context"
	"time"

	"github.com/commandpostsoft/parse-stack-sub004/internal/snapshot"
	"github.com/commandpostsoft/parse-stack-sub004/internal/ttlcache"
	"github.com/pkg/errors"
)

// Repository is the transport-side collaborator the core fetches from
// and persists to. Implementations own batching, retries and timeouts;
// the core only issues synchronous calls.
type Repository interface {
	FetchFull(ctx context.Context, className, id string) (*Record, error)
	Persist(ctx context.Context, r *Record) (*Record, error)
}

// Deleter is the optional deletion capability a repository may offer.
type Deleter interface {
	Delete(ctx context.Context, className, id string) error
}

// Save validates the record against its schema (when one is known),
// persists the minimal patch through the repository and, on success,
// merges the server-assigned identity and clears journal entries for
// exactly the fields that were part of the patch. On a validation
// failure the journal is untouched and the record stays dirty with the
// attempted values.
func Save(ctx context.Context, repo Repository, r *Record) error {
	if repo == nil {
		repo = CurrentConfig().Repository
	}
	if repo == nil {
		return errors.Wrapf(ErrNoRepository, "cannot save %s", r.className)
	}

	s := r.schema
	if s == nil {
		s, _ = LookupClass(r.className)
	}
	if s != nil {
		if err := s.Validate(r); err != nil {
			return err
		}
	}

	patch := r.AttributeUpdates()
	server, err := repo.Persist(ctx, r)
	if err != nil {
		return errors.Wrapf(err, "could not persist %s", r.className)
	}

	r.applyPersisted(server, patch)
	return nil
}

// CachingRepository decorates a Repository: fetches read through a TTL
// cache and fall back to an on-disk snapshot store when the base fetch
// fails, so previously seen records stay readable while disconnected.
// Writes pass through and refresh both layers.
//
// The cache stores encoded snapshots, so every hit decodes into a fresh
// Record and callers never share mutable state through the cache.
type CachingRepository struct {
	base  Repository
	cache *ttlcache.Cache
	store *snapshot.Store
	ttl   time.Duration
}

type CachingOption func(*CachingRepository)

// WithSnapshotStore attaches the offline snapshot store.
func WithSnapshotStore(store *snapshot.Store) CachingOption {
	return func(c *CachingRepository) {
		c.store = store
	}
}

// WithTTL overrides the configured cache TTL.
func WithTTL(ttl time.Duration) CachingOption {
	return func(c *CachingRepository) {
		c.ttl = ttl
	}
}

func NewCachingRepository(base Repository, opts ...CachingOption) (*CachingRepository, error) {
	cache, err := ttlcache.New(0)
	if err != nil {
		return nil, err
	}

	c := &CachingRepository{
		base:  base,
		cache: cache,
		ttl:   CurrentConfig().CacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func cacheKey(className, id string) string {
	return className + "$" + id
}

func (c *CachingRepository) FetchFull(ctx context.Context, className, id string) (*Record, error) {
	blob, err := c.cache.GetOrCompute(cacheKey(className, id), c.ttl, func() (interface{}, error) {
		return c.fetchBlob(ctx, className, id)
	})
	if err != nil {
		return nil, err
	}

	return DecodeSnapshot(blob.([]byte))
}

func (c *CachingRepository) fetchBlob(ctx context.Context, className, id string) (interface{}, error) {
	log := CurrentConfig().Logger

	rec, err := c.base.FetchFull(ctx, className, id)
	if err != nil {
		if c.store == nil {
			return nil, err
		}

		blob, serr := c.store.Get(className, id)
		if serr != nil {
			return nil, err
		}

		log.Warn("serving stale snapshot after fetch failure", "class", className, "id", id, "err", err)
		return blob, nil
	}

	blob, err := EncodeSnapshot(rec)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Put(className, id, blob); err != nil {
			log.Error("could not refresh snapshot store", "class", className, "id", id, "err", err)
		}
	}

	return blob, nil
}

func (c *CachingRepository) Persist(ctx context.Context, r *Record) (*Record, error) {
	server, err := c.base.Persist(ctx, r)
	if err != nil {
		return nil, err
	}

	key := cacheKey(server.ClassName(), server.ID())
	c.cache.Invalidate(key)

	if c.store != nil {
		if blob, err := EncodeSnapshot(server); err == nil {
			if perr := c.store.Put(server.ClassName(), server.ID(), blob); perr != nil {
				CurrentConfig().Logger.Error("could not refresh snapshot store", "class", server.ClassName(), "id", server.ID(), "err", perr)
			}
		}
	}

	return server, nil
}

func (c *CachingRepository) Delete(ctx context.Context, className, id string) error {
	d, ok := c.base.(Deleter)
	if !ok {
		return errors.Wrapf(ErrUnsupportedOperation, "delete %s %s", className, id)
	}

	if err := d.Delete(ctx, className, id); err != nil {
		return err
	}

	c.cache.Invalidate(cacheKey(className, id))
	if c.store != nil {
		if err := c.store.Delete(className, id); err != nil {
			CurrentConfig().Logger.Error("could not delete snapshot", "class", className, "id", id, "err", err)
		}
	}

	return nil
}

// Invalidate drops one record from the cache layer.
func (c *CachingRepository) Invalidate(className, id string) {
	c.cache.Invalidate(cacheKey(className, id))
}

// CacheStats exposes cache counters, mainly for tests.
func (c *CachingRepository) CacheStats() ttlcache.Stats {
	return c.cache.Stats()
}
