package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

const (
	defaultWarmupTimeout   = 2 * time.Minute
	defaultDownloadTimeout = 30 * time.Minute
)

// ModelOps covers the per-model operations against the local llm runtime.
type ModelOps interface {
	PullModel(ctx context.Context, id types.ModelID) error
	WarmupModel(ctx context.Context, id types.ModelID) error
}

// Orchestrator decides, on each relevant state change, whether the
// selected model needs an availability check and/or a warmup, without
// doing either redundantly. The "already warmed" memory is explicit state
// owned here; it resets when a warmup fails so a later trigger may retry.
type Orchestrator struct {
	cache    *AvailabilityCache
	registry *Registry
	ctrl     *Controller
	ops      ModelOps
	fallback ModelOps // may be nil; used only when the bridge is unreachable
	log      zerolog.Logger

	warmupTimeout   time.Duration
	downloadTimeout time.Duration

	mu         sync.Mutex
	selected   types.ModelID
	lastWarmed types.ModelID
	lastErr    string

	ready *Observable[bool]
}

// OrchestratorOptions tunes operation timeouts; zero values take defaults.
type OrchestratorOptions struct {
	WarmupTimeout   time.Duration
	DownloadTimeout time.Duration
}

// NewOrchestrator composes the lifecycle pieces. fallback may be nil.
func NewOrchestrator(cache *AvailabilityCache, registry *Registry, ctrl *Controller, ops ModelOps, fallback ModelOps, opts OrchestratorOptions, log zerolog.Logger) *Orchestrator {
	if opts.WarmupTimeout <= 0 {
		opts.WarmupTimeout = defaultWarmupTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = defaultDownloadTimeout
	}
	o := &Orchestrator{
		cache:           cache,
		registry:        registry,
		ctrl:            ctrl,
		ops:             ops,
		fallback:        fallback,
		log:             log,
		warmupTimeout:   opts.WarmupTimeout,
		downloadTimeout: opts.DownloadTimeout,
		ready:           NewObservable[bool](),
	}
	o.ready.Set(false)
	return o
}

// Select records a new model selection and kicks off a background
// evaluation with a detached context; the returned op id lets callers
// correlate logs. Empty input clears the selection.
func (o *Orchestrator) Select(raw types.ModelID) (types.ModelID, string) {
	o.mu.Lock()
	o.selected = raw
	o.mu.Unlock()

	op := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.warmupTimeout)
		defer cancel()
		if err := o.Evaluate(ctx, false); err != nil {
			o.log.Warn().Err(err).Str("op", op).Str("model", string(raw)).Msg("selection evaluation failed")
		}
	}()
	return raw, op
}

// Selected returns the current selection.
func (o *Orchestrator) Selected() types.ModelID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// OnServerStatus is subscribed to the controller; a server that just
// became ready re-evaluates the selection, a server that went away clears
// the ready indicator.
func (o *Orchestrator) OnServerStatus(st types.ServerStatus) {
	if !st.Ready() {
		o.ready.Set(false)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.warmupTimeout)
		defer cancel()
		if err := o.Evaluate(ctx, false); err != nil {
			o.log.Warn().Err(err).Msg("status-change evaluation failed")
		}
	}()
}

// Evaluate runs the decision algorithm for the current selection:
// verify availability (cached unless force), then warm up once per
// selection. Only available models are warmed. Single-flight rejections
// mean another trigger already started the same work and are swallowed.
func (o *Orchestrator) Evaluate(ctx context.Context, force bool) error {
	o.mu.Lock()
	id := o.selected
	o.mu.Unlock()
	if id.IsNone() {
		return nil
	}

	if !o.ctrl.Status().Ready() {
		o.ready.Set(false)
		return nil
	}

	available, err := o.cache.IsAvailable(ctx, id, force)
	if err != nil {
		o.setErr(err.Error())
		o.ready.Set(false)
		return err
	}
	if !available {
		o.ready.Set(false)
		return nil
	}
	return o.maybeWarm(ctx, id)
}

// Download pulls the model via the single-flight registry, marks it
// available on success, and then attempts the one-shot warmup. A warmup
// failure after a successful pull is reported as a partial success: the
// model is usable, just not pre-warmed.
func (o *Orchestrator) Download(ctx context.Context, id types.ModelID) (types.DownloadResult, error) {
	if id.IsNone() {
		return types.DownloadResult{}, nil
	}
	guard, err := o.registry.Begin(types.OpDownload, id)
	if err != nil {
		return types.DownloadResult{ID: id}, err
	}
	defer guard.Release()

	dctx, cancel := context.WithTimeout(ctx, o.downloadTimeout)
	defer cancel()
	o.log.Info().Str("model", string(id)).Msg("download start")
	if err := o.pull(dctx, id); err != nil {
		o.setErr(err.Error())
		downloadsTotal.WithLabelValues("error").Inc()
		return types.DownloadResult{ID: id}, ErrRemoteFailure(err.Error())
	}
	o.cache.MarkAvailable(id)
	downloadsTotal.WithLabelValues("ok").Inc()
	o.log.Info().Str("model", string(id)).Msg("download done")

	if err := o.maybeWarm(ctx, id); err != nil {
		return types.DownloadResult{ID: id, Downloaded: true, Detail: err.Error()},
			ErrPartialSuccess(id, err.Error())
	}
	return types.DownloadResult{ID: id, Downloaded: true, Warmed: true}, nil
}

// Warmup runs a caller-requested warmup. Unlike the orchestrated path, a
// single-flight rejection is surfaced to the direct caller.
func (o *Orchestrator) Warmup(ctx context.Context, id types.ModelID) error {
	if id.IsNone() {
		return nil
	}
	guard, err := o.registry.Begin(types.OpWarmup, id)
	if err != nil {
		singleflightRejections.WithLabelValues(string(types.OpWarmup)).Inc()
		return err
	}
	defer guard.Release()
	return o.warm(ctx, id)
}

// LastError returns the most recent orchestration failure message.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// ModelReady reports whether the selected model is available and warmed.
func (o *Orchestrator) ModelReady() bool {
	v, _ := o.ready.Get()
	return v
}

// SubscribeReady registers fn for the ready indicator, replay first.
func (o *Orchestrator) SubscribeReady(fn func(bool)) (unsubscribe func()) {
	return o.ready.Subscribe(fn)
}

// maybeWarm warms id unless this exact id was already warmed for the
// current selection epoch. Registry rejections are swallowed: another
// trigger already started the same work and subscribers will learn the
// outcome from the shared warmup set.
func (o *Orchestrator) maybeWarm(ctx context.Context, id types.ModelID) error {
	o.mu.Lock()
	if o.lastWarmed == id {
		o.mu.Unlock()
		o.ready.Set(true)
		return nil
	}
	o.mu.Unlock()

	guard, err := o.registry.Begin(types.OpWarmup, id)
	if err != nil {
		if IsAlreadyInProgress(err) {
			singleflightRejections.WithLabelValues(string(types.OpWarmup)).Inc()
			o.log.Debug().Str("model", string(id)).Msg("warmup already in flight, skipping")
			return nil
		}
		return err
	}
	defer guard.Release()
	return o.warm(ctx, id)
}

// warm performs the warmup call and maintains the one-shot memory.
func (o *Orchestrator) warm(ctx context.Context, id types.ModelID) error {
	wctx, cancel := context.WithTimeout(ctx, o.warmupTimeout)
	defer cancel()
	o.log.Info().Str("model", string(id)).Msg("warmup start")
	if err := o.warmCall(wctx, id); err != nil {
		o.mu.Lock()
		o.lastErr = err.Error()
		if o.lastWarmed == id {
			o.lastWarmed = types.None
		}
		o.mu.Unlock()
		o.ready.Set(false)
		warmupsTotal.WithLabelValues("error").Inc()
		o.log.Error().Err(err).Str("model", string(id)).Msg("warmup failed")
		return ErrRemoteFailure(err.Error())
	}
	o.mu.Lock()
	o.lastWarmed = id
	o.lastErr = ""
	o.mu.Unlock()
	o.ready.Set(true)
	warmupsTotal.WithLabelValues("ok").Inc()
	o.log.Info().Str("model", string(id)).Msg("warmup done")
	return nil
}

func (o *Orchestrator) setErr(msg string) {
	o.mu.Lock()
	o.lastErr = msg
	o.mu.Unlock()
}

// pull tries the llm runtime first, switching to the HTTP fallback only
// when the bridge is unreachable; definite answers are never raced.
func (o *Orchestrator) pull(ctx context.Context, id types.ModelID) error {
	err := o.ops.PullModel(ctx, id)
	if err == nil || o.fallback == nil || !IsBridgeUnavailable(err) {
		return err
	}
	o.log.Debug().Str("model", string(id)).Msg("bridge unreachable, pulling via fallback")
	return o.fallback.PullModel(ctx, id)
}

func (o *Orchestrator) warmCall(ctx context.Context, id types.ModelID) error {
	err := o.ops.WarmupModel(ctx, id)
	if err == nil || o.fallback == nil || !IsBridgeUnavailable(err) {
		return err
	}
	o.log.Debug().Str("model", string(id)).Msg("bridge unreachable, warming via fallback")
	return o.fallback.WarmupModel(ctx, id)
}
