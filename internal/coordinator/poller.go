package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

const (
	defaultWakeDebounce  = 250 * time.Millisecond
	defaultHealthTimeout = 10 * time.Second
)

// Poller triggers status refreshes: once eagerly on Start, once per push
// event (applied directly, no re-query), and once per wake signal (window
// focus/visibility), debounced. A refresh already in flight suppresses a
// newly triggered one rather than queuing it. Close tears the poller down;
// refresh results arriving after teardown are discarded.
type Poller struct {
	ctrl   *Controller
	events <-chan types.ServerStatus
	wake   <-chan struct{}
	log    zerolog.Logger

	debounceWait  time.Duration
	healthTimeout time.Duration

	mu         sync.Mutex
	refreshing bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// PollerOptions tunes timing; zero values take defaults.
type PollerOptions struct {
	DebounceWait  time.Duration
	HealthTimeout time.Duration
}

// NewPoller wires a poller to the controller, an authoritative push event
// channel, and an abstract wake signal source. Either channel may be nil.
func NewPoller(ctrl *Controller, events <-chan types.ServerStatus, wake <-chan struct{}, opts PollerOptions, log zerolog.Logger) *Poller {
	if opts.DebounceWait <= 0 {
		opts.DebounceWait = defaultWakeDebounce
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		ctrl:          ctrl,
		events:        events,
		wake:          wake,
		log:           log,
		debounceWait:  opts.DebounceWait,
		healthTimeout: opts.HealthTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the event loop and kicks off the eager initial refresh.
func (p *Poller) Start() {
	go p.loop()
	p.trigger()
}

// Close invalidates pending refreshes and stops the loop.
func (p *Poller) Close() {
	p.closeOnce.Do(p.cancel)
}

func (p *Poller) loop() {
	deb := debounce.New(p.debounceWait)
	for {
		select {
		case <-p.ctx.Done():
			return
		case st, ok := <-p.events:
			if !ok {
				p.events = nil
				continue
			}
			p.ctrl.ApplyPush(st)
		case _, ok := <-p.wake:
			if !ok {
				p.wake = nil
				continue
			}
			deb(p.trigger)
		}
	}
}

// trigger starts a refresh unless one is already pending.
func (p *Poller) trigger() {
	if p.ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	if p.refreshing {
		p.mu.Unlock()
		p.log.Debug().Msg("refresh already pending, skipping trigger")
		return
	}
	p.refreshing = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.refreshing = false
			p.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(p.ctx, p.healthTimeout)
		defer cancel()
		if err := p.ctrl.Refresh(ctx); err != nil && p.ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("triggered refresh failed")
		}
	}()
}
