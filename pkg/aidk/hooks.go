package aidk

import (
	"fmt"

	"github.com/rlindgren/aidk/internal/initcache"
)

// HookTag discriminates a hook cell's behavior.
type HookTag uint8

const (
	HookState HookTag = iota
	HookReducer
	HookSignal
	HookComputed
	HookComState
	HookWatch
	HookEffect
	HookInit
	HookTickStart
	HookTickEnd
	HookAfterCompile
	HookOnMount
	HookUnmount
	HookOnMessage
	HookMemo
	HookCallback
	HookRef
)

func (t HookTag) String() string {
	names := [...]string{"State", "Reducer", "Signal", "Computed", "ComState", "Watch",
		"Effect", "Init", "TickStart", "TickEnd", "AfterCompile", "OnMount", "Unmount", "OnMessage", "Memo", "Callback", "Ref"}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// HookCell is one node of a fiber's per-render hook state list.
type HookCell struct {
	Tag           HookTag
	MemoizedState any
	BaseState     any
	Queue         []any // pending update/action queue, drained on next read
	Effect        *EffectDescriptor
	Next          *HookCell
}

// EffectDescriptor is one effect registration.
type EffectDescriptor struct {
	Phase      EffectPhase
	Create     func() (cleanup func(), err error)
	Destroy    func()
	Deps       []any
	Pending    bool
	DebugLabel string
}

// EffectPhase is the closed set of effect lifecycle buckets.
type EffectPhase uint8

const (
	EffectPhaseMount EffectPhase = iota
	EffectPhaseCommit
	EffectPhaseTickStart
	EffectPhaseAfterCompile
	EffectPhaseTickEnd
	EffectPhaseUnmount
	EffectPhaseOnMessage
)

// HookOrderError is raised when a fiber's hook call sequence diverges
// across renders.
type HookOrderError struct {
	FiberName string
	Detail    string
}

func (e *HookOrderError) Error() string {
	return fmt.Sprintf("AIDK-E001: hook order violation in %q: %s", e.FiberName, e.Detail)
}

// RenderContext holds the state of one function-component render.
// Components and hooks receive it as an explicit rc parameter; there is no
// implicit dispatcher-style lookup of the current render context.
type RenderContext struct {
	Fiber  *Fiber
	Com    ComAccess
	Tick   any
	Dev    bool

	// initCache backs useInit's across-remount caching. May be
	// nil in tests that construct a RenderContext directly.
	initCache *initcache.Cache
	// initCallIndex counts useInit calls made so far this render, so two
	// useInit calls on the same fiber get distinct cache keys. Safe because
	// the hook-order invariant guarantees the Nth useInit call is always the
	// same logical call site across renders.
	initCallIndex int

	// currentHook walks the *previous* render's hook list on update.
	currentHook *HookCell
	// workInProgressHook is the tail of the hook list being built this
	// render; nil until the first hook call allocates it.
	workInProgressHook *HookCell

	// requestRecompile is not set by the reconciler and no hook reads it;
	// hooks ask for a recompile through requestRecompileIfAllowed instead.
	requestRecompile func(reason string)

	effects []*EffectDescriptor
}

// isMount reports whether this render has no previous hook list to walk.
func (rc *RenderContext) isMount() bool {
	return rc.Fiber.Alternate == nil || rc.Fiber.MemoizedState == nil
}

// nextCell returns the cell for the next hook call, allocating on mount and
// advancing/copying on update, enforcing the order invariant.
func (rc *RenderContext) nextCell(tag HookTag) *HookCell {
	mount := rc.Fiber.Alternate == nil
	if mount {
		cell := &HookCell{Tag: tag}
		rc.appendWIP(cell)
		return cell
	}

	if rc.currentHook == nil {
		if rc.workInProgressHook == nil {
			rc.currentHook = rc.Fiber.Alternate.MemoizedState
		}
	}
	if rc.currentHook == nil {
		panic(&HookOrderError{FiberName: rc.Fiber.DebugName, Detail: "rendered more hooks than before"})
	}
	if rc.currentHook.Tag != tag {
		panic(&HookOrderError{FiberName: rc.Fiber.DebugName,
			Detail: fmt.Sprintf("expected hook %s, got %s", rc.currentHook.Tag, tag)})
	}

	next := &HookCell{
		Tag:           tag,
		MemoizedState: rc.currentHook.MemoizedState,
		BaseState:     rc.currentHook.BaseState,
		Queue:         rc.currentHook.Queue,
		Effect:        rc.currentHook.Effect,
	}
	rc.currentHook = rc.currentHook.Next
	rc.appendWIP(next)
	return next
}

func (rc *RenderContext) appendWIP(cell *HookCell) {
	if rc.workInProgressHook == nil {
		rc.Fiber.MemoizedState = cell
	} else {
		rc.workInProgressHook.Next = cell
	}
	rc.workInProgressHook = cell
}

// finish validates that the previous render's list is fully consumed (no
// fewer hooks than before).
func (rc *RenderContext) finish() {
	if rc.Fiber.Alternate == nil {
		return
	}
	remaining := rc.currentHook
	if rc.workInProgressHook == nil {
		// No hook was called this render, so the walk never started.
		remaining = rc.Fiber.Alternate.MemoizedState
	}
	if remaining != nil {
		panic(&HookOrderError{FiberName: rc.Fiber.DebugName, Detail: "rendered fewer hooks than before"})
	}
}

func depsChanged(prev, next []any) bool {
	if prev == nil {
		return true
	}
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if !shallowEqual(prev[i], next[i]) {
			return true
		}
	}
	return false
}

func shallowEqual(a, b any) bool {
	return a == b
}
