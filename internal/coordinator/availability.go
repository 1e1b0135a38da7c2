package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

// defaultListTTL bounds how long the installed-model list is trusted. The
// list mirrors an external process's state, unlike the per-model flags
// which this process controls, so it expires.
const defaultListTTL = 15 * time.Second

// ModelProber checks whether a model's weights are present locally.
type ModelProber interface {
	CheckModelDownloaded(ctx context.Context, id types.ModelID) (bool, error)
}

// ModelLister enumerates models installed in the local llm runtime.
type ModelLister interface {
	ListModels(ctx context.Context) ([]types.ModelID, error)
}

// AvailabilityCache caches per-model "weights present" booleans. Entries
// never expire on their own; they are overwritten by forced re-checks and
// by successful downloads, or removed by Invalidate.
type AvailabilityCache struct {
	mu      sync.RWMutex
	entries map[types.ModelID]bool

	primary  ModelProber
	fallback ModelProber // may be nil
	lister   ModelLister // may be nil

	listTTL time.Duration
	listAt  time.Time
	list    []types.ModelID

	checks atomic.Int64 // I/O round trips performed
	now    func() time.Time
	log    zerolog.Logger
}

// NewAvailabilityCache builds a cache over a primary probe path and an
// optional fallback consulted only when the primary is unreachable.
func NewAvailabilityCache(primary ModelProber, fallback ModelProber, lister ModelLister, log zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{
		entries:  make(map[types.ModelID]bool),
		primary:  primary,
		fallback: fallback,
		lister:   lister,
		listTTL:  defaultListTTL,
		now:      time.Now,
		log:      log,
	}
}

// IsAvailable reports whether the model's weights are present. When force
// is false a cached entry is returned with no I/O. Otherwise the primary
// probe runs, falling back to the secondary path only on bridge
// unreachability; the boolean result overwrites any prior entry. If both
// paths fail the cache stores a pessimistic false and returns the error,
// so a forced re-check never leaves a stale true behind.
func (c *AvailabilityCache) IsAvailable(ctx context.Context, id types.ModelID, force bool) (bool, error) {
	if id.IsNone() {
		return false, nil
	}
	if !force {
		c.mu.RLock()
		v, ok := c.entries[id]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
	}

	present, err := c.probe(ctx, id)
	if err != nil {
		c.store(id, false)
		return false, err
	}
	c.store(id, present)
	return present, nil
}

// Invalidate removes the cached entry so the next IsAvailable re-checks
// regardless of the force flag.
func (c *AvailabilityCache) Invalidate(id types.ModelID) {
	if id.IsNone() {
		return
	}
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// MarkAvailable records the model as present without a round trip, used
// right after a successful download.
func (c *AvailabilityCache) MarkAvailable(id types.ModelID) {
	if id.IsNone() {
		return
	}
	c.store(id, true)
}

// InstalledModels returns the llm runtime's model list, cached for the
// list TTL. Returns nil with no error when no lister is configured.
func (c *AvailabilityCache) InstalledModels(ctx context.Context) ([]types.ModelID, error) {
	if c.lister == nil {
		return nil, nil
	}
	c.mu.RLock()
	if c.list != nil && c.now().Sub(c.listAt) < c.listTTL {
		out := make([]types.ModelID, len(c.list))
		copy(out, c.list)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.checks.Add(1)
	list, err := c.lister.ListModels(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("model list refresh failed")
		return nil, err
	}
	c.mu.Lock()
	c.list = list
	c.listAt = c.now()
	c.mu.Unlock()
	out := make([]types.ModelID, len(list))
	copy(out, list)
	return out, nil
}

// Checks returns the number of I/O round trips performed so far.
func (c *AvailabilityCache) Checks() int64 { return c.checks.Load() }

func (c *AvailabilityCache) store(id types.ModelID, v bool) {
	c.mu.Lock()
	c.entries[id] = v
	c.mu.Unlock()
}

// probe runs the primary check, switching to the fallback path only when
// the bridge itself is unreachable. A definite answer from the primary is
// authoritative and never raced against the fallback.
func (c *AvailabilityCache) probe(ctx context.Context, id types.ModelID) (bool, error) {
	c.checks.Add(1)
	present, err := c.primary.CheckModelDownloaded(ctx, id)
	if err == nil {
		return present, nil
	}
	if c.fallback == nil || !IsBridgeUnavailable(err) {
		return false, err
	}
	c.log.Debug().Err(err).Str("model", string(id)).Msg("bridge unreachable, trying fallback probe")
	c.checks.Add(1)
	present, ferr := c.fallback.CheckModelDownloaded(ctx, id)
	if ferr != nil {
		return false, ferr
	}
	return present, nil
}
