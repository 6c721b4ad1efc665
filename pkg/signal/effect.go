package signal

import "sync"

// Effect runs synchronously on creation, tracks the signals its body reads,
// and reruns whenever any of those signals notify. The previous cleanup (if
// any) runs before each rerun and at Dispose. Errors raised by body or
// cleanup are reported through onError rather than propagated, so one
// effect's failure never prevents others from running.
type Effect struct {
	mu       sync.Mutex
	body     func() (cleanup func(), err error)
	onError  func(err error)
	cleanup  func()
	cancels  []func()
	disposed bool
}

// NewEffect creates and immediately runs an effect. body returns an
// optional cleanup function, run before the next rerun and at Dispose.
func NewEffect(body func() (cleanup func(), err error), onError func(err error)) *Effect {
	e := &Effect{body: body, onError: onError}
	e.run()
	return e
}

func (e *Effect) run() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	prevCleanup := e.cleanup
	prevCancels := e.cancels
	e.mu.Unlock()

	if prevCleanup != nil {
		e.safeCall(func() error {
			prevCleanup()
			return nil
		})
	}
	for _, cancel := range prevCancels {
		cancel()
	}

	var cleanup func()
	var cancels []func()
	runErr := e.safeCall(func() error {
		var bodyErr error
		Track(func(subscribe func(onChange func()) (cancel func())) {
			cancel := subscribe(func() { e.run() })
			cancels = append(cancels, cancel)
		}, func() {
			cleanup, bodyErr = e.body()
		})
		return bodyErr
	})
	if runErr != nil {
		for _, cancel := range cancels {
			cancel()
		}
		cancels = nil
		cleanup = nil
	}

	e.mu.Lock()
	e.cleanup = cleanup
	e.cancels = cancels
	e.mu.Unlock()
}

func (e *Effect) safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CycleError); ok {
				err = ce
			} else {
				panic(r)
			}
		}
		if err != nil && e.onError != nil {
			e.onError(err)
		}
	}()
	return fn()
}

// Dispose runs the current cleanup (if any), cancels all dependency
// subscriptions, and marks the effect inert.
func (e *Effect) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	cleanup := e.cleanup
	cancels := e.cancels
	e.cleanup = nil
	e.cancels = nil
	e.mu.Unlock()

	if cleanup != nil {
		e.safeCall(func() error {
			cleanup()
			return nil
		})
	}
	for _, cancel := range cancels {
		cancel()
	}
}
