package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// StatusListener subscribes to the supervisor's push channel over a
// websocket and delivers status snapshots on Events. The connection is
// re-dialed with backoff; events are dropped, not queued, when the
// consumer lags, since only the latest snapshot matters.
type StatusListener struct {
	url    string
	log    zerolog.Logger
	events chan types.ServerStatus

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// NewStatusListener dials wsURL in the background and starts delivering
// events immediately.
func NewStatusListener(wsURL string, log zerolog.Logger) *StatusListener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &StatusListener{
		url:    wsURL,
		log:    log,
		events: make(chan types.ServerStatus, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

// Events is the authoritative push channel consumed by the poller.
// It is closed when the listener shuts down.
func (l *StatusListener) Events() <-chan types.ServerStatus { return l.events }

// Close stops the listener and closes the event channel.
func (l *StatusListener) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		<-l.done
	})
}

func (l *StatusListener) run(ctx context.Context) {
	defer close(l.done)
	defer close(l.events)
	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		if l.readLoop(ctx) {
			backoff = reconnectMin // connection worked; reset
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// readLoop dials once and reads until the connection drops. It reports
// whether at least one event was delivered.
func (l *StatusListener) readLoop(ctx context.Context) bool {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		l.log.Debug().Err(err).Str("url", l.url).Msg("status channel dial failed")
		return false
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	l.log.Info().Str("url", l.url).Msg("status channel connected")

	delivered := false
	for {
		var st types.ServerStatus
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() == nil {
				l.log.Warn().Err(err).Msg("status channel dropped")
			}
			return delivered
		}
		// coalesce: replace a pending snapshot rather than blocking
		select {
		case l.events <- st:
		default:
			select {
			case <-l.events:
			default:
			}
			select {
			case l.events <- st:
			default:
			}
		}
		delivered = true
	}
}
