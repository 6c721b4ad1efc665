package aidk

import (
	"fmt"

	"github.com/rlindgren/aidk/pkg/com"
)

// UseEffect registers a commit-phase effect. If deps changed since the last
// render (element-wise identity, signals unwrapped by reading their current
// value), it is marked pending so commitWork runs it after the previous
// destroy.
func UseEffect(rc *RenderContext, deps []any, create func() (cleanup func(), err error)) {
	cell := rc.nextCell(HookEffect)
	prev := cell.Effect
	pending := prev == nil || depsChanged(unwrapDeps(prev.Deps), unwrapDeps(deps))
	desc := &EffectDescriptor{Phase: EffectPhaseCommit, Create: create, Deps: deps, Pending: pending, DebugLabel: rc.Fiber.DebugName}
	if prev != nil {
		desc.Destroy = prev.Destroy
	}
	cell.Effect = desc
	if pending {
		rc.effects = append(rc.effects, desc)
	}
}

// UseOnMount registers a Mount-phase effect with empty deps: it fires
// exactly once, before any Commit effect on the same fiber.
func UseOnMount(rc *RenderContext, create func() (cleanup func(), err error)) {
	cell := rc.nextCell(HookOnMount)
	if cell.Effect == nil {
		desc := &EffectDescriptor{Phase: EffectPhaseMount, Create: create, Pending: true, DebugLabel: rc.Fiber.DebugName}
		cell.Effect = desc
		rc.effects = append(rc.effects, desc)
	} else {
		cell.Effect.Pending = false
	}
}

// unwrapDeps reads the current value of any *Signal dep so dependency
// comparison sees the signal's value rather than its pointer identity.
func unwrapDeps(deps []any) []any {
	if deps == nil {
		return nil
	}
	out := make([]any, len(deps))
	for i, d := range deps {
		out[i] = unwrapOneDep(d)
	}
	return out
}

// unwrapOneDep replaces a Signal[T] wrapper passed as a dep (anything with
// a peekAny method, which every Signal[T] instantiation has) by its current
// peeked value, so passing the wrapper or s.Peek() compares the same; any
// other dep is returned unchanged.
func unwrapOneDep(d any) any {
	type peeker interface{ peekAny() any }
	if p, ok := d.(peeker); ok {
		return p.peekAny()
	}
	return d
}

// UseTickStart / UseTickEnd / UseAfterCompile register phase-bound
// lifecycle effects that are always re-marked pending every render; the
// compiler's notify methods drain them directly rather than at commit.
func UseTickStart(rc *RenderContext, fn func(tick any) error) {
	registerAlwaysPendingHook(rc, HookTickStart, EffectPhaseTickStart, fn)
}

func UseTickEnd(rc *RenderContext, fn func(tick any) error) {
	registerAlwaysPendingHook(rc, HookTickEnd, EffectPhaseTickEnd, fn)
}

func UseAfterCompile(rc *RenderContext, fn func(compiled *CompiledStructure, ctx IterationContext) error) {
	cell := rc.nextCell(HookAfterCompile)
	desc := &EffectDescriptor{Phase: EffectPhaseAfterCompile, Pending: true, DebugLabel: rc.Fiber.DebugName}
	cell.Effect = desc
	cell.MemoizedState = fn
}

// UseOnMessage registers an OnMessage hook invoked by notifyOnMessage with
// (com, msg, tick) for every render.
func UseOnMessage(rc *RenderContext, fn func(com com.COM, msg any, tick any) error) {
	cell := rc.nextCell(HookOnMessage)
	desc := &EffectDescriptor{Phase: EffectPhaseOnMessage, Pending: true, DebugLabel: rc.Fiber.DebugName}
	cell.Effect = desc
	cell.MemoizedState = fn
}

func registerAlwaysPendingHook(rc *RenderContext, tag HookTag, phase EffectPhase, fn func(tick any) error) {
	cell := rc.nextCell(tag)
	desc := &EffectDescriptor{Phase: phase, Pending: true, DebugLabel: rc.Fiber.DebugName}
	cell.Effect = desc
	cell.MemoizedState = fn
}

// IterationContext is passed to AfterCompile hooks.
type IterationContext struct {
	Iteration    int
	MaxIterations int
}

// UseOnUnmount registers an unmount-phase hook invoked exactly once, during
// the fiber's depth-first unmount walk.
func UseOnUnmount(rc *RenderContext, fn func()) {
	cell := rc.nextCell(HookUnmount)
	desc := &EffectDescriptor{Phase: EffectPhaseUnmount, Pending: true, DebugLabel: rc.Fiber.DebugName}
	cell.Effect = desc
	cell.MemoizedState = fn
}

// UseInit caches a once-per-lifetime synchronous "await" result: the
// initializer runs exactly once, at first mount, and its result (or
// error) is replayed on every subsequent render.
// If the fiber was previously unmounted and has now been recreated at the
// same tree position, the result is served from initcache instead of
// re-running init.
func UseInit[T any](rc *RenderContext, init func() (T, error)) (T, error) {
	cell := rc.nextCell(HookInit)
	cacheKey := fmt.Sprintf("%s#%d", rc.Fiber.path(), rc.initCallIndex)
	rc.initCallIndex++

	type initState struct {
		done  bool
		value T
		err   error
	}
	state, _ := cell.MemoizedState.(*initState)
	if state == nil {
		state = &initState{}
		cell.MemoizedState = state
		if rc.initCache != nil {
			if cached, cachedErr, ok := rc.initCache.Get(cacheKey); ok {
				if v, ok := cached.(T); ok {
					state.value, state.err, state.done = v, cachedErr, true
				}
			}
		}
	}
	if !state.done {
		state.value, state.err = init()
		state.done = true
		if rc.initCache != nil {
			rc.initCache.Put(cacheKey, state.value, state.err)
		}
	}
	return state.value, state.err
}
