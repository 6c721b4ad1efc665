package signal

import (
	"fmt"
	"sync"
)

// CycleError is raised when a Computed reads itself, directly or
// transitively, during its own recomputation.
type CycleError struct {
	Label string
}

func (e *CycleError) Error() string {
	if e.Label == "" {
		return "signal: cycle detected in computed recomputation"
	}
	return fmt.Sprintf("signal: cycle detected in computed %q", e.Label)
}

// Computed is a lazily recomputed, memoized derivation of other signals.
// It becomes dirty when any dependency read during its last recomputation
// notifies, and is recomputed on the next Get, then forwards dirtiness to
// its own subscribers exactly like a Signal.
type Computed[T any] struct {
	mu        sync.Mutex
	compute   func() T
	label     string
	valid     bool
	computing bool
	value     T
	cancels   []func()

	out *Signal[T]
}

// NewComputed creates a computed value. compute may call Get on any Signal
// or Computed; those reads are tracked automatically via this goroutine's
// current Track frame, the same mechanism an Effect uses.
func NewComputed[T any](label string, compute func() T) *Computed[T] {
	return &Computed[T]{
		compute: compute,
		label:   label,
		out:     New[T](*new(T), nil),
	}
}

// Get returns the memoized value, recomputing first if dirty.
func (c *Computed[T]) Get() T {
	reportDependency(func(onChange func()) (cancel func()) {
		id := c.out.Subscribe(onChange)
		return func() { c.out.Unsubscribe(id) }
	})
	return c.peek()
}

func (c *Computed[T]) peek() T {
	c.mu.Lock()
	if c.computing {
		c.mu.Unlock()
		panic(&CycleError{Label: c.label})
	}
	if c.valid {
		v := c.value
		c.mu.Unlock()
		return v
	}
	c.computing = true
	oldCancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	// Recomputation happens outside the lock: compute may re-enter this
	// Computed's Get (a cycle, caught by the computing guard above) or read
	// unrelated signals, none of which should have to wait on c.mu.
	for _, cancel := range oldCancels {
		cancel()
	}

	var value T
	var newCancels []func()
	Track(func(subscribe func(onChange func()) (cancel func())) {
		cancel := subscribe(func() { c.Invalidate() })
		newCancels = append(newCancels, cancel)
	}, func() {
		value = c.compute()
	})

	c.mu.Lock()
	c.value = value
	c.cancels = newCancels
	c.valid = true
	c.computing = false
	c.mu.Unlock()
	return value
}

// Invalidate marks the computed dirty and forwards dirtiness to its own
// subscribers without eagerly recomputing.
func (c *Computed[T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
	c.out.notifyAll()
}

// Subscribe registers cb to run when this computed is invalidated.
func (c *Computed[T]) Subscribe(cb func()) SubscriberID {
	return c.out.Subscribe(cb)
}

// Unsubscribe removes a previously registered subscriber.
func (c *Computed[T]) Unsubscribe(id SubscriberID) {
	c.out.Unsubscribe(id)
}
