package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// Observable holds a current value and fans it out to subscribers.
// Subscribe replays the current value immediately, then delivers every
// subsequent Set. Notification runs outside the lock so a subscriber may
// subscribe/unsubscribe from within its own callback path.
type Observable[T any] struct {
	mu      sync.Mutex
	current T
	set     bool
	subs    map[string]func(T)
}

// NewObservable creates an observable with no current value.
func NewObservable[T any]() *Observable[T] {
	return &Observable[T]{subs: make(map[string]func(T))}
}

// Set stores v as the current value and notifies all subscribers.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.current = v
	o.set = true
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Get returns the current value and whether one has been set.
func (o *Observable[T]) Get() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.set
}

// Subscribe registers fn and returns its unsubscribe capability. The
// caller must release it when done observing. If a current value exists
// it is replayed synchronously before Subscribe returns.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	token := uuid.NewString()
	o.mu.Lock()
	o.subs[token] = fn
	v, replay := o.current, o.set
	o.mu.Unlock()
	if replay {
		fn(v)
	}
	return func() {
		o.mu.Lock()
		delete(o.subs, token)
		o.mu.Unlock()
	}
}
