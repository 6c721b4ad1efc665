// Package signal implements reactive primitives: plain signals, lazy
// computed values, synchronous effects and batched notification.
//
// Each signal keeps a subscriber map keyed by an opaque id and notifies
// subscribers outside the value lock. Dependency tracking uses a
// goroutine-scoped tracking guard keyed by goroutine id so independent
// goroutines never cross-track each other's reads.
package signal

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

var nextSubscriberID atomic.Uint64

// SubscriberID identifies a registered subscriber so it can be removed later.
type SubscriberID uint64

func newSubscriberID() SubscriberID {
	return SubscriberID(nextSubscriberID.Add(1))
}

// tracker is the dependency-tracking frame active on one goroutine.
type tracker struct {
	onDependency func(subscribe func(onChange func()) (cancel func()))
}

var trackers sync.Map // goid -> *tracker

// Track runs fn with collect registered as the current goroutine's active
// tracker: any Signal or Computed read during fn (on this goroutine) calls
// collect with a subscribe function, letting the tracker both depend on it
// and later cancel that dependency.
func Track(collect func(subscribe func(onChange func()) (cancel func())), fn func()) {
	gid := goid.Get()
	prev, _ := trackers.Load(gid)
	trackers.Store(gid, &tracker{onDependency: collect})
	defer func() {
		if prev != nil {
			trackers.Store(gid, prev)
		} else {
			trackers.Delete(gid)
		}
	}()
	fn()
}

// Untrack runs fn with dependency tracking suspended on the current
// goroutine, restoring the previous tracker (if any) afterward.
func Untrack(fn func()) {
	gid := goid.Get()
	prev, had := trackers.Load(gid)
	trackers.Delete(gid)
	defer func() {
		if had {
			trackers.Store(gid, prev)
		}
	}()
	fn()
}

func currentTracker() *tracker {
	gid := goid.Get()
	v, ok := trackers.Load(gid)
	if !ok {
		return nil
	}
	return v.(*tracker)
}

func reportDependency(subscribe func(onChange func()) (cancel func())) {
	if t := currentTracker(); t != nil && t.onDependency != nil {
		t.onDependency(subscribe)
	}
}

// Signal is a reactive cell with equality-gated writes.
type Signal[T any] struct {
	mu    sync.RWMutex
	value T
	eq    func(a, b T) bool

	subsMu sync.Mutex
	subs   map[SubscriberID]func()

	disposed atomic.Bool
}

// New creates a signal seeded with initial. eq decides whether a Set/Update
// result is a no-op; pass nil to always notify.
func New[T any](initial T, eq func(a, b T) bool) *Signal[T] {
	return &Signal[T]{
		value: initial,
		eq:    eq,
		subs:  make(map[SubscriberID]func()),
	}
}

// Get reads the current value and, inside a Track block on this goroutine,
// registers that block as a dependent.
func (s *Signal[T]) Get() T {
	reportDependency(func(onChange func()) (cancel func()) {
		id := s.Subscribe(onChange)
		return func() { s.Unsubscribe(id) }
	})
	return s.Peek()
}

// Peek reads the current value without registering a dependency.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value. Setting an equal value is a no-op and returns
// false. Writing a disposed signal still updates the stored value (so a
// later un-disposed Peek is consistent) but never notifies.
func (s *Signal[T]) Set(v T) (changed bool) {
	s.mu.Lock()
	if s.eq != nil && s.eq(s.value, v) {
		s.mu.Unlock()
		return false
	}
	s.value = v
	s.mu.Unlock()

	if s.Disposed() {
		return true
	}
	s.notifyAll()
	return true
}

// Update reads, transforms and writes the value, notifying subscribers
// exactly as Set would for the resulting value.
func (s *Signal[T]) Update(fn func(T) T) (changed bool) {
	s.mu.Lock()
	next := fn(s.value)
	if s.eq != nil && s.eq(s.value, next) {
		s.mu.Unlock()
		return false
	}
	s.value = next
	s.mu.Unlock()

	if s.Disposed() {
		return true
	}
	s.notifyAll()
	return true
}

// Subscribe registers cb to run whenever the signal's value changes.
func (s *Signal[T]) Subscribe(cb func()) SubscriberID {
	id := newSubscriberID()
	s.subsMu.Lock()
	s.subs[id] = cb
	s.subsMu.Unlock()
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (s *Signal[T]) Unsubscribe(id SubscriberID) {
	s.subsMu.Lock()
	delete(s.subs, id)
	s.subsMu.Unlock()
}

// Dispose marks the signal disposed; Peek/Get still return the last value
// but writes stop notifying subscribers.
func (s *Signal[T]) Dispose() {
	s.disposed.Store(true)
}

// Disposed reports whether Dispose has been called.
func (s *Signal[T]) Disposed() bool {
	return s.disposed.Load()
}

func (s *Signal[T]) notifyAll() {
	s.subsMu.Lock()
	cbs := make([]func(), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.subsMu.Unlock()

	b := currentBatch()
	for _, cb := range cbs {
		if b != nil {
			b.add(cb)
		} else {
			cb()
		}
	}
}

// batch coalesces notifications raised while active, flushing each queued
// callback once when the outermost Batch block on this goroutine exits.
type batch struct {
	pending []func()
}

func (b *batch) add(cb func()) {
	b.pending = append(b.pending, cb)
}

var batches sync.Map // goid -> *batchFrame

type batchFrame struct {
	depth int
	b     *batch
}

func currentBatch() *batch {
	gid := goid.Get()
	v, ok := batches.Load(gid)
	if !ok {
		return nil
	}
	return v.(*batchFrame).b
}

// Batch coalesces notifications from Set/Update calls made inside fn on
// this goroutine, flushing queued subscriber callbacks once the outermost
// Batch block exits. Nested Batch calls on the same goroutine share one
// flush at the outermost exit.
func Batch(fn func()) {
	gid := goid.Get()
	v, ok := batches.Load(gid)
	var frame *batchFrame
	if ok {
		frame = v.(*batchFrame)
		frame.depth++
	} else {
		frame = &batchFrame{depth: 1, b: &batch{}}
		batches.Store(gid, frame)
	}

	defer func() {
		frame.depth--
		if frame.depth == 0 {
			batches.Delete(gid)
			pending := frame.b.pending
			frame.b.pending = nil
			for _, cb := range pending {
				cb()
			}
		}
	}()
	fn()
}

// IsBatching reports whether a Batch block is active on this goroutine.
func IsBatching() bool {
	return currentBatch() != nil
}

// WriteToDisposedError documents (for dev-mode loggers, not returned as an
// error) that a write targeted a disposed signal.
type WriteToDisposedError struct {
	Label string
}

func (e *WriteToDisposedError) Error() string {
	if e.Label == "" {
		return "signal: write to disposed signal ignored"
	}
	return fmt.Sprintf("signal: write to disposed signal %q ignored", e.Label)
}
