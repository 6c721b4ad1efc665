package aidk

import (
	"sync"

	"github.com/petermattis/goid"
)

// Phase is the active compiler's current lifecycle phase.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCompile
	PhaseRender
	PhaseMountPhase
	PhaseTickStart
	PhaseTickEnd
	PhaseComplete
	PhaseUnmount
)

// activeState is one goroutine's installed "current compiler" handle,
// kept in a sync.Map keyed by goroutine id so independent concurrent
// compiles never see each other's phase.
type activeState struct {
	compiler *Compiler
	phase    Phase
	// rendering is set for the whole duration of a beginWork render call,
	// independent of phase, to support the "render while isRendering"
	// recompile-skip rule distinct from the TickStart/TickEnd phases.
	rendering bool
}

var activeStates sync.Map // goid -> *activeState

func currentActiveState() *activeState {
	gid := goid.Get()
	v, ok := activeStates.Load(gid)
	if !ok {
		return nil
	}
	return v.(*activeState)
}

// withActivePhase installs phase as current on this goroutine for fn's
// duration, restoring the previous value afterward.
func withActivePhase(c *Compiler, phase Phase, fn func()) {
	gid := goid.Get()
	prev, had := activeStates.Load(gid)
	activeStates.Store(gid, &activeState{compiler: c, phase: phase})
	defer func() {
		if had {
			activeStates.Store(gid, prev)
		} else {
			activeStates.Delete(gid)
		}
	}()
	fn()
}

// withRendering marks the current goroutine as mid-render for fn's
// duration, preserving whatever phase was already installed.
func withRendering(fn func()) {
	st := currentActiveState()
	if st == nil {
		fn()
		return
	}
	prev := st.rendering
	st.rendering = true
	defer func() { st.rendering = prev }()
	fn()
}

// isRendering reports whether the current goroutine is mid-render.
func isRendering() bool {
	st := currentActiveState()
	return st != nil && st.rendering
}

// isInTickStart / isInTickEnd report the current goroutine's compiler
// phase.
func isInTickStart() bool {
	st := currentActiveState()
	return st != nil && st.phase == PhaseTickStart
}

func isInTickEnd() bool {
	st := currentActiveState()
	return st != nil && st.phase == PhaseTickEnd
}

// shouldSkipRecompile implements the compiler's recompile-request policy:
// tick/teardown phases and an in-progress render (e.g. a class-component
// mount triggered from inside another render) resolve on their own, so a
// recompile request during either is skipped rather than queued.
func shouldSkipRecompile() bool {
	st := currentActiveState()
	if st == nil {
		return false
	}
	switch st.phase {
	case PhaseTickStart, PhaseTickEnd, PhaseComplete, PhaseUnmount:
		return true
	}
	if st.rendering {
		return true
	}
	return false
}

// requestRecompileIfAllowed is the single chokepoint hooks and COM-bound
// signals use to ask the active compiler for another pass, honoring the
// phase gate above. It is a silent no-op with no active compiler installed
// (e.g. a hook exercised directly in a unit test outside Compile).
func requestRecompileIfAllowed(rc *RenderContext, reason string) {
	if shouldSkipRecompile() {
		return
	}
	st := currentActiveState()
	if st == nil || st.compiler == nil {
		return
	}
	st.compiler.requestRecompile(reason)
}
