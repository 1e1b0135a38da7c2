package coordinator

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

// ServerOps is the bridge surface driving the managed server process.
// Each call is a suspension point and may fail.
type ServerOps interface {
	GetStatus(ctx context.Context) (types.ServerStatus, error)
	CheckHealth(ctx context.Context) (types.ServerStatus, error)
	Install(ctx context.Context) (types.ServerStatus, error)
	Start(ctx context.Context) (types.ServerStatus, error)
	Stop(ctx context.Context) (types.ServerStatus, error)
	Restart(ctx context.Context) (types.ServerStatus, error)
	Reinstall(ctx context.Context) (types.ServerStatus, error)
}

// opClassServer labels the controller's single action slot in conflict
// errors. The server is a singleton resource, so the slot is not per-model.
const opClassServer types.OpClass = "server"

// Controller owns the managed server's latest status snapshot and a single
// action slot. Overlapping lifecycle actions are rejected; the snapshot is
// replaced wholesale and broadcast on every change.
type Controller struct {
	ops ServerOps
	obs *Observable[types.ServerStatus]
	log zerolog.Logger

	slot chan struct{} // capacity 1: occupied while an action runs
	gen  atomic.Uint64 // bumped on every applied snapshot
}

// NewController creates a controller with an empty idle snapshot so
// subscribers always receive a replay.
func NewController(ops ServerOps, log zerolog.Logger) *Controller {
	c := &Controller{
		ops:  ops,
		obs:  NewObservable[types.ServerStatus](),
		log:  log,
		slot: make(chan struct{}, 1),
	}
	c.obs.Set(types.ServerStatus{Phase: types.PhaseIdle})
	return c
}

// Status returns the most recent snapshot.
func (c *Controller) Status() types.ServerStatus {
	st, _ := c.obs.Get()
	return st
}

// Subscribe registers fn for status snapshots, replay first.
func (c *Controller) Subscribe(fn func(types.ServerStatus)) (unsubscribe func()) {
	return c.obs.Subscribe(fn)
}

// Do runs one lifecycle action. It rejects immediately when another action
// is in flight; on failure the previous snapshot is kept and re-broadcast
// so observers settle on known state. No automatic retry.
func (c *Controller) Do(ctx context.Context, action types.ServerAction) (types.ServerStatus, error) {
	select {
	case c.slot <- struct{}{}:
	default:
		return c.Status(), ErrAlreadyInProgress(opClassServer, types.ModelID(action))
	}
	defer func() { <-c.slot }()

	c.log.Info().Str("action", string(action)).Msg("server action start")
	st, err := c.invoke(ctx, action)
	if err != nil {
		c.log.Error().Err(err).Str("action", string(action)).Msg("server action failed")
		prev := c.Status()
		c.obs.Set(prev)
		return prev, ErrRemoteFailure(err.Error())
	}
	c.apply(st)
	c.log.Info().Str("action", string(action)).Str("phase", string(st.Phase)).Msg("server action done")
	return st, nil
}

// Install and friends are thin wrappers over Do.
func (c *Controller) Install(ctx context.Context) (types.ServerStatus, error) {
	return c.Do(ctx, types.ActionInstall)
}

func (c *Controller) Start(ctx context.Context) (types.ServerStatus, error) {
	return c.Do(ctx, types.ActionStart)
}

func (c *Controller) Stop(ctx context.Context) (types.ServerStatus, error) {
	return c.Do(ctx, types.ActionStop)
}

func (c *Controller) Restart(ctx context.Context) (types.ServerStatus, error) {
	return c.Do(ctx, types.ActionRestart)
}

func (c *Controller) Reinstall(ctx context.Context) (types.ServerStatus, error) {
	return c.Do(ctx, types.ActionReinstall)
}

// Refresh queries health and replaces the snapshot. A transient failure
// keeps the previous snapshot (unknown, not false) and is logged. A result
// arriving after ctx cancellation, or after a push superseded it, is
// discarded rather than applied.
func (c *Controller) Refresh(ctx context.Context) error {
	before := c.gen.Load()
	st, err := c.ops.CheckHealth(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("health refresh failed, keeping last snapshot")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.gen.Load() != before {
		c.log.Debug().Msg("health refresh superseded by push event, discarding")
		return nil
	}
	c.apply(st)
	return nil
}

// ApplyPush applies an authoritative status event from the push channel,
// replacing the snapshot without re-querying.
func (c *Controller) ApplyPush(st types.ServerStatus) {
	c.apply(st)
}

// NextAction derives the sanctioned next lifecycle action from a snapshot.
// This is presentation guidance, not an enforced transition table.
func NextAction(st types.ServerStatus) types.ServerAction {
	switch {
	case !st.Installed:
		return types.ActionInstall
	case !st.Running:
		return types.ActionStart
	default:
		return types.ActionRestart
	}
}

func (c *Controller) apply(st types.ServerStatus) {
	c.gen.Add(1)
	c.obs.Set(st)
}

func (c *Controller) invoke(ctx context.Context, action types.ServerAction) (types.ServerStatus, error) {
	switch action {
	case types.ActionInstall:
		return c.ops.Install(ctx)
	case types.ActionStart:
		return c.ops.Start(ctx)
	case types.ActionStop:
		return c.ops.Stop(ctx)
	case types.ActionRestart:
		return c.ops.Restart(ctx)
	case types.ActionReinstall:
		return c.ops.Reinstall(ctx)
	default:
		return types.ServerStatus{}, ErrRemoteFailure("unknown server action: " + string(action))
	}
}
