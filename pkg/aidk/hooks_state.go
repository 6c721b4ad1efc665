package aidk

import "github.com/rlindgren/aidk/pkg/signal"

// stateQueueEntry is either a plain replacement value or an updater function
// `func(prev T) T`, mirroring useState's `setX(v)` / `setX(fn)` duality.
type stateQueueEntry struct {
	action any // either the next value, or func(any) any
}

// UseState allocates (on mount) or resumes (on update) a state cell,
// returning its current value and a setter. Calling the setter outside a
// batched render eagerly computes the next value and bails out of
// scheduling work when it is identity-unchanged.
func UseState[T any](rc *RenderContext, initial T) (T, func(next T)) {
	cell := rc.nextCell(HookState)
	if cell.MemoizedState == nil && !cell.initialized() {
		cell.MemoizedState = initial
		cell.markInitialized()
	}
	drainStateQueue[T](cell)
	current, _ := cell.MemoizedState.(T)
	setter := func(next T) {
		prev := cell.MemoizedState
		cell.Queue = append(cell.Queue, stateQueueEntry{action: next})
		drainStateQueue[T](cell)
		changed := func() (changed bool) {
			// Values of non-comparable dynamic types count as changed.
			defer func() {
				if recover() != nil {
					changed = true
				}
			}()
			return prev != cell.MemoizedState
		}()
		if changed {
			requestRecompileIfAllowed(rc, "state update")
		}
	}
	return current, setter
}

// UseReducer is UseState generalized over an explicit reducer function.
// Dispatched actions are queued rather than applied in place; the queue is
// drained in order at the top of the next render, unlike UseState's setter,
// which applies its value immediately.
func UseReducer[S, A any](rc *RenderContext, reducer func(S, A) S, initial S) (S, func(A)) {
	cell := rc.nextCell(HookReducer)
	if !cell.initialized() {
		cell.MemoizedState = initial
		cell.markInitialized()
	}
	for _, e := range cell.Queue {
		entry := e.(stateQueueEntry)
		action := entry.action.(A)
		cur, _ := cell.MemoizedState.(S)
		cell.MemoizedState = reducer(cur, action)
	}
	cell.Queue = nil
	current, _ := cell.MemoizedState.(S)
	dispatch := func(action A) {
		cell.Queue = append(cell.Queue, stateQueueEntry{action: action})
		requestRecompileIfAllowed(rc, "reducer dispatch")
	}
	return current, dispatch
}

func drainStateQueue[T any](cell *HookCell) {
	for _, e := range cell.Queue {
		entry := e.(stateQueueEntry)
		switch fn := entry.action.(type) {
		case func(T) T:
			cur, _ := cell.MemoizedState.(T)
			cell.MemoizedState = fn(cur)
		default:
			cell.MemoizedState = entry.action
		}
	}
	cell.Queue = nil
}

// hookInitMarker distinguishes "never set" from "set to the zero value" for
// generic state cells, since MemoizedState is stored as `any`.
type hookInitMarker struct{}

func (c *HookCell) initialized() bool {
	return c.BaseState != nil
}

func (c *HookCell) markInitialized() {
	c.BaseState = hookInitMarker{}
}

// UseSignal wraps a pkg/signal.Signal so writes additionally request a
// recompile, subject to the active-compiler phase gate").
func UseSignal[T any](rc *RenderContext, initial T, eq func(a, b T) bool) *Signal[T] {
	cell := rc.nextCell(HookSignal)
	if !cell.initialized() {
		cell.MemoizedState = signal.New(initial, eq)
		cell.markInitialized()
	}
	sig := cell.MemoizedState.(*signal.Signal[T])
	return &Signal[T]{inner: sig, rc: rc}
}

// Signal is the function-component-hook-returned wrapper around
// pkg/signal.Signal that additionally requests a recompile on writes: a
// plain reactive signal, recompile-aware because it was read during
// render.
type Signal[T any] struct {
	inner *signal.Signal[T]
	rc    *RenderContext
}

func (s *Signal[T]) Get() T    { return s.inner.Get() }
func (s *Signal[T]) Peek() T   { return s.inner.Peek() }
func (s *Signal[T]) Disposed() bool { return s.inner.Disposed() }

// peekAny lets UseEffect's dependency comparison unwrap a signal dep to its
// current value without needing a generic interface per T.
func (s *Signal[T]) peekAny() any { return s.inner.Peek() }

func (s *Signal[T]) Set(v T) {
	if s.inner.Set(v) {
		requestRecompileIfAllowed(s.rc, "signal write")
	}
}

func (s *Signal[T]) Update(fn func(T) T) {
	if s.inner.Update(fn) {
		requestRecompileIfAllowed(s.rc, "signal write")
	}
}

// UseComputed returns a reactive computed signal, disposing and recreating
// it when deps change").
func UseComputed[T any](rc *RenderContext, label string, deps []any, compute func() T) *signal.Computed[T] {
	cell := rc.nextCell(HookComputed)
	type computedState struct {
		deps []any
		c    *signal.Computed[T]
	}
	state, _ := cell.MemoizedState.(*computedState)
	if state == nil || depsChanged(state.deps, deps) {
		state = &computedState{deps: deps, c: signal.NewComputed(label, compute)}
		cell.MemoizedState = state
	}
	return state.c
}

// UseMemo caches compute's result until deps change.
func UseMemo[T any](rc *RenderContext, deps []any, compute func() T) T {
	cell := rc.nextCell(HookMemo)
	type memoState struct {
		deps []any
		val  T
	}
	state, _ := cell.MemoizedState.(*memoState)
	if state == nil || depsChanged(state.deps, deps) {
		state = &memoState{deps: deps, val: compute()}
		cell.MemoizedState = state
	}
	return state.val
}

// UseCallback caches fn's identity until deps change.
func UseCallback[F any](rc *RenderContext, deps []any, fn F) F {
	return UseMemo(rc, deps, func() F { return fn })
}

// Ref is a mutable handle cell allocated once on mount.
type Ref[T any] struct {
	Current T
}

// UseRef allocates (on mount) a Ref cell that is stable across renders.
func UseRef[T any](rc *RenderContext, initial T) *Ref[T] {
	cell := rc.nextCell(HookRef)
	if !cell.initialized() {
		cell.MemoizedState = &Ref[T]{Current: initial}
		cell.markInitialized()
	}
	return cell.MemoizedState.(*Ref[T])
}
