package coordinator

import (
	"sort"
	"sync"

	"assistantd/pkg/types"
)

// opKey identifies one single-flight slot. The registry is keyed by
// (class, id), so a download and a warmup of the same model may proceed
// independently.
type opKey struct {
	class types.OpClass
	id    types.ModelID
}

// Registry is a single-flight guard over per-model operations. For a given
// (class, id) at most one attempt is active at a time; a second Begin is
// rejected, not queued.
type Registry struct {
	mu     sync.Mutex
	active map[opKey]struct{}
	obs    map[types.OpClass]*Observable[[]types.ModelID]
}

// NewRegistry creates an empty registry with observables for both classes
// seeded with empty sets, so subscribers always get a replay.
func NewRegistry() *Registry {
	r := &Registry{
		active: make(map[opKey]struct{}),
		obs:    make(map[types.OpClass]*Observable[[]types.ModelID]),
	}
	for _, class := range []types.OpClass{types.OpDownload, types.OpWarmup} {
		o := NewObservable[[]types.ModelID]()
		o.Set([]types.ModelID{})
		r.obs[class] = o
	}
	return r
}

// Guard releases one registry slot. Release is idempotent and must run in
// a deferred/guaranteed path so a panicking operation still frees the slot.
type Guard struct {
	r    *Registry
	k    opKey
	once sync.Once
}

// Release frees the slot and broadcasts the shrunken active set.
func (g *Guard) Release() {
	if g == nil || g.r == nil {
		return
	}
	g.once.Do(func() {
		g.r.mu.Lock()
		delete(g.r.active, g.k)
		g.r.mu.Unlock()
		g.r.broadcast(g.k.class)
	})
}

// Begin claims the slot for (class, id). It fails with ErrAlreadyInProgress
// when the slot is taken. The id must be non-empty; callers no-op on the
// empty sentinel before reaching the registry.
func (r *Registry) Begin(class types.OpClass, id types.ModelID) (*Guard, error) {
	k := opKey{class: class, id: id}
	r.mu.Lock()
	if _, busy := r.active[k]; busy {
		r.mu.Unlock()
		return nil, ErrAlreadyInProgress(class, id)
	}
	r.active[k] = struct{}{}
	r.mu.Unlock()
	r.broadcast(class)
	return &Guard{r: r, k: k}, nil
}

// Active returns the sorted set of ids with an operation of class in flight.
func (r *Registry) Active(class types.OpClass) []types.ModelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked(class)
}

// Subscribe registers fn against the active set of class, with
// replay-then-notify semantics.
func (r *Registry) Subscribe(class types.OpClass, fn func([]types.ModelID)) (unsubscribe func()) {
	return r.obs[class].Subscribe(fn)
}

func (r *Registry) activeLocked(class types.OpClass) []types.ModelID {
	out := make([]types.ModelID, 0, len(r.active))
	for k := range r.active {
		if k.class == class {
			out = append(out, k.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) broadcast(class types.OpClass) {
	r.mu.Lock()
	set := r.activeLocked(class)
	r.mu.Unlock()
	r.obs[class].Set(set)
}
