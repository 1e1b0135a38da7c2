// Package coordinator tracks the lifecycle of the local inference server
// and of locally installed models: server install/start/stop state, per-
// model download availability, serialized warmups, and debounced health
// polling, exposed to observers as replayed-then-pushed snapshots.
package coordinator

import (
	"context"

	"github.com/rs/zerolog"

	"assistantd/internal/identity"
	"assistantd/pkg/types"
)

// Deps are the constructor-injected collaborators. There is no package
// level state; one Coordinator is built per process and handed to every
// consumer, which also gives tests isolated instances.
type Deps struct {
	Server ServerOps
	// Prober is the fast-path model presence check over the bridge.
	Prober ModelProber
	// FallbackProber is consulted only when the bridge is unreachable.
	FallbackProber ModelProber
	// Lister enumerates llm runtime models (15s TTL cache). Optional.
	Lister ModelLister
	// Models performs pull/warmup against the llm runtime.
	Models ModelOps
	// FallbackModels mirrors Models over the HTTP fallback. Optional.
	FallbackModels ModelOps
	// Events is the authoritative push channel of status snapshots.
	Events <-chan types.ServerStatus
}

// Options tunes timing for the composed parts.
type Options struct {
	Poller       PollerOptions
	Orchestrator OrchestratorOptions
}

// Coordinator composes the cache, registry, controller, poller and
// orchestrator behind one facade consumed by the HTTP layer.
type Coordinator struct {
	Cache        *AvailabilityCache
	Registry     *Registry
	Controller   *Controller
	Poller       *Poller
	Orchestrator *Orchestrator

	wake    chan struct{}
	unsub   func()
	log     zerolog.Logger
	started bool
}

// New wires the lifecycle components together.
func New(deps Deps, opts Options, log zerolog.Logger) *Coordinator {
	cache := NewAvailabilityCache(deps.Prober, deps.FallbackProber, deps.Lister, log)
	registry := NewRegistry()
	ctrl := NewController(deps.Server, log)
	orch := NewOrchestrator(cache, registry, ctrl, deps.Models, deps.FallbackModels, opts.Orchestrator, log)

	wake := make(chan struct{}, 1)
	poller := NewPoller(ctrl, deps.Events, wake, opts.Poller, log)

	c := &Coordinator{
		Cache:        cache,
		Registry:     registry,
		Controller:   ctrl,
		Poller:       poller,
		Orchestrator: orch,
		wake:         wake,
		log:          log,
	}
	c.unsub = ctrl.Subscribe(orch.OnServerStatus)
	return c
}

// Start begins polling; the first refresh fires eagerly.
func (c *Coordinator) Start() {
	if c.started {
		return
	}
	c.started = true
	c.Poller.Start()
}

// Close releases the status subscription and stops the poller. Pending
// refreshes are invalidated; late results are discarded, never applied.
func (c *Coordinator) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.Poller.Close()
}

// Normalize resolves a raw user-facing model name to its canonical id.
func (c *Coordinator) Normalize(raw string) types.ModelID {
	return identity.Normalize(raw)
}

// Models returns the selectable model presets.
func (c *Coordinator) Models() []types.ModelInfo {
	return identity.Catalog()
}

// Status assembles the full snapshot served by GET /status.
func (c *Coordinator) Status() types.StatusResponse {
	return types.StatusResponse{
		Server:      c.Controller.Status(),
		Selected:    c.Orchestrator.Selected(),
		ModelReady:  c.Orchestrator.ModelReady(),
		LastError:   c.Orchestrator.LastError(),
		Downloading: c.Registry.Active(types.OpDownload),
		WarmingUp:   c.Registry.Active(types.OpWarmup),
	}
}

// Ready reports whether the managed server can serve model operations.
func (c *Coordinator) Ready() bool { return c.Controller.Status().Ready() }

// ServerAction runs one lifecycle action on the managed server.
func (c *Coordinator) ServerAction(ctx context.Context, action types.ServerAction) (types.ServerStatus, error) {
	return c.Controller.Do(ctx, action)
}

// IsAvailable checks whether a model's weights are present locally.
func (c *Coordinator) IsAvailable(ctx context.Context, raw string, force bool) (types.ModelID, bool, error) {
	id := identity.Normalize(raw)
	ok, err := c.Cache.IsAvailable(ctx, id, force)
	return id, ok, err
}

// Download pulls a model and then attempts its one-shot warmup.
func (c *Coordinator) Download(ctx context.Context, raw string) (types.DownloadResult, error) {
	return c.Orchestrator.Download(ctx, identity.Normalize(raw))
}

// Warmup runs a caller-requested warmup for a model.
func (c *Coordinator) Warmup(ctx context.Context, raw string) error {
	return c.Orchestrator.Warmup(ctx, identity.Normalize(raw))
}

// Select records a new model selection and evaluates it in the background.
func (c *Coordinator) Select(raw string) (types.ModelID, string) {
	return c.Orchestrator.Select(identity.Normalize(raw))
}

// Wake injects an external focus/visibility signal into the poller.
// Non-blocking: a wake while one is pending is coalesced.
func (c *Coordinator) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SubscribeStatus registers fn for server snapshots, replay first.
func (c *Coordinator) SubscribeStatus(fn func(types.ServerStatus)) (unsubscribe func()) {
	return c.Controller.Subscribe(fn)
}

// SubscribeOps registers fn for the in-flight set of class, replay first.
func (c *Coordinator) SubscribeOps(class types.OpClass, fn func([]types.ModelID)) (unsubscribe func()) {
	return c.Registry.Subscribe(class, fn)
}
