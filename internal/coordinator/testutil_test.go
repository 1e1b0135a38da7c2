package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// fakeProber is a scripted ModelProber with a call counter.
type fakeProber struct {
	mu      sync.Mutex
	calls   int
	present map[types.ModelID]bool
	err     error
}

func (p *fakeProber) CheckModelDownloaded(_ context.Context, id types.ModelID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return false, p.err
	}
	return p.present[id], nil
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeLister is a scripted ModelLister with a call counter.
type fakeLister struct {
	mu     sync.Mutex
	calls  int
	models []types.ModelID
	err    error
}

func (l *fakeLister) ListModels(context.Context) ([]types.ModelID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.models, l.err
}

// fakeServerOps scripts the bridge's server surface. Health and action
// results are whole ServerStatus values; an op can be made to block on a
// gate channel to exercise the single action slot.
type fakeServerOps struct {
	mu      sync.Mutex
	status  types.ServerStatus
	health  types.ServerStatus
	healthN atomic.Int32
	err     error
	gate    chan struct{} // when non-nil, ops block until the gate closes
	entered chan struct{} // when non-nil, receives one signal as an op begins waiting

	// per-action overrides
	startErr error
}

func (f *fakeServerOps) set(st types.ServerStatus) {
	f.mu.Lock()
	f.status = st
	f.health = st
	f.mu.Unlock()
}

func (f *fakeServerOps) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	entered := f.entered
	f.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeServerOps) result(ctx context.Context) (types.ServerStatus, error) {
	if err := f.wait(ctx); err != nil {
		return types.ServerStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.ServerStatus{}, f.err
	}
	return f.status, nil
}

func (f *fakeServerOps) GetStatus(ctx context.Context) (types.ServerStatus, error) {
	return f.result(ctx)
}

func (f *fakeServerOps) CheckHealth(ctx context.Context) (types.ServerStatus, error) {
	f.healthN.Add(1)
	if err := f.wait(ctx); err != nil {
		return types.ServerStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.ServerStatus{}, f.err
	}
	return f.health, nil
}

func (f *fakeServerOps) Install(ctx context.Context) (types.ServerStatus, error) {
	if err := f.wait(ctx); err != nil {
		return types.ServerStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.ServerStatus{}, f.err
	}
	f.status = types.ServerStatus{Phase: types.PhaseIdle, Installed: true}
	f.health = f.status
	return f.status, nil
}

func (f *fakeServerOps) Start(ctx context.Context) (types.ServerStatus, error) {
	if err := f.wait(ctx); err != nil {
		return types.ServerStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return types.ServerStatus{}, f.startErr
	}
	if f.err != nil {
		return types.ServerStatus{}, f.err
	}
	f.status = types.ServerStatus{Phase: types.PhaseRunning, Installed: true, Running: true}
	f.health = f.status
	return f.status, nil
}

func (f *fakeServerOps) Stop(ctx context.Context) (types.ServerStatus, error) {
	if err := f.wait(ctx); err != nil {
		return types.ServerStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.ServerStatus{}, f.err
	}
	f.status = types.ServerStatus{Phase: types.PhaseStopped, Installed: true}
	f.health = f.status
	return f.status, nil
}

func (f *fakeServerOps) Restart(ctx context.Context) (types.ServerStatus, error) {
	return f.Start(ctx)
}

func (f *fakeServerOps) Reinstall(ctx context.Context) (types.ServerStatus, error) {
	return f.Install(ctx)
}

// fakeModelOps scripts pull/warmup with counters and settable errors.
type fakeModelOps struct {
	mu        sync.Mutex
	pulls     int
	warms     int
	pullErr   error
	warmErr   error
	warmDelay time.Duration
}

func (f *fakeModelOps) PullModel(_ context.Context, _ types.ModelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	return f.pullErr
}

func (f *fakeModelOps) WarmupModel(ctx context.Context, _ types.ModelID) error {
	f.mu.Lock()
	f.warms++
	err := f.warmErr
	delay := f.warmDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeModelOps) warmCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warms
}

func (f *fakeModelOps) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

func (f *fakeModelOps) setWarmErr(err error) {
	f.mu.Lock()
	f.warmErr = err
	f.mu.Unlock()
}

// waitUntil polls cond for up to two seconds.
func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
