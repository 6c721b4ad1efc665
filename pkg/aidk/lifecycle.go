package aidk

import (
	"log/slog"

	comstore "github.com/rlindgren/aidk/pkg/com"
)

// ClassComponent is the minimal contract a class-shaped component must
// satisfy: Render is mandatory, everything else is an optional interface a
// concrete type may additionally implement.
type ClassComponent interface {
	Render(com ComAccess, tick any) (any, error)
}

// Optional lifecycle interfaces. A concrete ClassComponent
// implements any subset; the dispatcher type-asserts before calling.
type OnStarter interface{ OnStart() error }
type OnMounter interface{ OnMount(com comstore.COM) error }
type OnUnmounter interface{ OnUnmount() error }
type OnTickStarter interface{ OnTickStart(tick any) error }
type OnTickEnder interface{ OnTickEnd(tick any) error }
type OnAfterCompiler interface {
	OnAfterCompile(compiled *CompiledStructure, tick any, ctx IterationContext) error
}
type OnCompleter interface{ OnComplete(finalState any) error }
type OnMessager interface{ OnMessage(com comstore.COM, msg any, tick any) error }

// RecoveryAction is returned by OnError to request the execution continue.
type RecoveryAction struct {
	Continue bool
	Detail   string
}

type OnErrorer interface {
	OnError(state TickErrorState) (*RecoveryAction, error)
}

// TickErrorState is the synthesized tick state handed to OnError when a
// tick-end lifecycle method fails.
type TickErrorState struct {
	Error       error
	Phase       string
	Recoverable bool
	Tick        any
}

// HookMiddleware wraps a lifecycle method call for observability. It is
// handed the method name and component name; registered middleware is not
// keyed or filtered by method, component class, component name or tags,
// and wraps every call. It must preserve call semantics.
type HookMiddleware func(methodName, componentName string, next func() error) error

// middlewareRegistry holds globally registered middleware, applied to every
// wrapped lifecycle call in registration order.
var middlewareRegistry []HookMiddleware

// RegisterMiddleware adds m to the global lifecycle middleware chain.
func RegisterMiddleware(m HookMiddleware) {
	middlewareRegistry = append(middlewareRegistry, m)
}

// invokeWrapped runs call through the registered middleware chain, then
// call itself, innermost-last.
func invokeWrapped(methodName, componentName string, call func() error) error {
	next := call
	for i := len(middlewareRegistry) - 1; i >= 0; i-- {
		mw := middlewareRegistry[i]
		prevNext := next
		next = func() error { return mw(methodName, componentName, prevNext) }
	}
	return next()
}

func logLifecycleError(logger *slog.Logger, componentName, method string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("aidk: lifecycle error", "component", componentName, "method", method, "error", err)
}

// notifyStart calls OnStart where present, depth-first.
func (c *Compiler) notifyStart() {
	if c.root == nil {
		return
	}
	WalkPreOrder(c.root, func(f *Fiber) {
		if inst, ok := f.StateNode.(OnStarter); ok {
			err := invokeWrapped("OnStart", f.DebugName, inst.OnStart)
			if err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "OnStart", err)
			}
		}
	})
}

// notifyTickStart sets phase tickStart, runs TickStart effects/hooks, calls
// OnTickStart, then re-registers tools from the fiber tree.
func (c *Compiler) notifyTickStart(tick any) {
	if c.root == nil {
		return
	}
	withActivePhase(c, PhaseTickStart, func() {
		WalkPreOrder(c.root, func(f *Fiber) {
			runHookFamily(f, HookTickStart, func(fn any) {
				if typed, ok := fn.(func(any) error); ok {
					if err := typed(tick); err != nil {
						logLifecycleError(c.config.Logger, f.DebugName, "UseTickStart", err)
					}
				}
			})
			if inst, ok := f.StateNode.(OnTickStarter); ok {
				err := invokeWrapped("OnTickStart", f.DebugName, func() error { return inst.OnTickStart(tick) })
				if err != nil {
					logLifecycleError(c.config.Logger, f.DebugName, "OnTickStart", err)
				}
			}
		})
	})
	registerTools(c, tick)
}

// notifyTickEnd sets phase tickEnd, runs TickEnd effects/hooks, calls
// OnTickEnd; a thrown error routes through the same fiber's OnError if
// present. An error with no owning OnError is rethrown to the caller
// instead of logged, aborting the rest of the traversal.
func (c *Compiler) notifyTickEnd(tick any) error {
	if c.root == nil {
		return nil
	}
	var unhandled error
	withActivePhase(c, PhaseTickEnd, func() {
		WalkPreOrder(c.root, func(f *Fiber) {
			if unhandled != nil {
				return
			}
			runHookFamily(f, HookTickEnd, func(fn any) {
				if unhandled != nil {
					return
				}
				if typed, ok := fn.(func(any) error); ok {
					if err := typed(tick); err != nil {
						unhandled = routeTickEndError(c, f, tick, err)
					}
				}
			})
			if unhandled != nil {
				return
			}
			if inst, ok := f.StateNode.(OnTickEnder); ok {
				err := invokeWrapped("OnTickEnd", f.DebugName, func() error { return inst.OnTickEnd(tick) })
				if err != nil {
					unhandled = routeTickEndError(c, f, tick, err)
				}
			}
		})
	})
	return unhandled
}

// routeTickEndError routes err through f's OnError if present (logging a
// failure from OnError itself rather than propagating it) and returns nil;
// with no OnError on f, it returns err unchanged for the caller to rethrow.
func routeTickEndError(c *Compiler, f *Fiber, tick any, err error) error {
	if inst, ok := f.StateNode.(OnErrorer); ok {
		state := TickErrorState{Error: err, Phase: "tick_end", Recoverable: true, Tick: tick}
		if _, recErr := inst.OnError(state); recErr != nil {
			logLifecycleError(c.config.Logger, f.DebugName, "OnError", recErr)
		}
		return nil
	}
	return err
}

// notifyOnMessage traverses the committed tree and invokes every OnMessage
// hook and lifecycle method.
func (c *Compiler) notifyOnMessage(com comstore.COM, msg any, tick any) {
	if c.root == nil {
		return
	}
	WalkPreOrder(c.root, func(f *Fiber) {
		runHookFamily(f, HookOnMessage, func(fn any) {
			if typed, ok := fn.(func(comstore.COM, any, any) error); ok {
				if err := typed(com, msg, tick); err != nil {
					logLifecycleError(c.config.Logger, f.DebugName, "UseOnMessage", err)
				}
			}
		})
		if inst, ok := f.StateNode.(OnMessager); ok {
			err := invokeWrapped("OnMessage", f.DebugName, func() error { return inst.OnMessage(com, msg, tick) })
			if err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "OnMessage", err)
			}
		}
	})
}

// notifyAfterCompile calls OnAfterCompile and every AfterCompile hook with
// the freshly compiled structure.
func (c *Compiler) notifyAfterCompile(compiled *CompiledStructure, tick any, ctx IterationContext) {
	if c.root == nil {
		return
	}
	WalkPreOrder(c.root, func(f *Fiber) {
		runHookFamily(f, HookAfterCompile, func(fn any) {
			if typed, ok := fn.(func(*CompiledStructure, IterationContext) error); ok {
				if err := typed(compiled, ctx); err != nil {
					logLifecycleError(c.config.Logger, f.DebugName, "UseAfterCompile", err)
				}
			}
		})
		if inst, ok := f.StateNode.(OnAfterCompiler); ok {
			err := invokeWrapped("OnAfterCompile", f.DebugName, func() error {
				return inst.OnAfterCompile(compiled, tick, ctx)
			})
			if err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "OnAfterCompile", err)
			}
		}
	})
}

// notifyComplete sets phase complete and calls OnComplete.
func (c *Compiler) notifyComplete(finalState any) {
	if c.root == nil {
		return
	}
	withActivePhase(c, PhaseComplete, func() {
		WalkPreOrder(c.root, func(f *Fiber) {
			if inst, ok := f.StateNode.(OnCompleter); ok {
				err := invokeWrapped("OnComplete", f.DebugName, func() error { return inst.OnComplete(finalState) })
				if err != nil {
					logLifecycleError(c.config.Logger, f.DebugName, "OnComplete", err)
				}
			}
		})
	})
}

// notifyErrorAll calls every OnError in the tree, returning the first
// RecoveryAction with Continue:true.
func (c *Compiler) notifyErrorAll(state TickErrorState) *RecoveryAction {
	if c.root == nil {
		return nil
	}
	var result *RecoveryAction
	WalkPreOrder(c.root, func(f *Fiber) {
		if result != nil {
			return
		}
		if inst, ok := f.StateNode.(OnErrorer); ok {
			action, err := inst.OnError(state)
			if err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "OnError", err)
				return
			}
			if action != nil && action.Continue {
				result = action
			}
		}
	})
	return result
}

// runHookFamily walks f's hook list invoking visit(cell.MemoizedState) for
// every cell tagged tag, regardless of commit status (TickStart/TickEnd/
// AfterCompile/OnMessage hooks are drained at notify time, not commit time).
func runHookFamily(f *Fiber, tag HookTag, visit func(any)) {
	for cell := f.MemoizedState; cell != nil; cell = cell.Next {
		if cell.Tag == tag {
			visit(cell.MemoizedState)
		}
	}
}

// registerTools walks each class-instance fiber, resolves every tool
// registration pattern it exposes, and upserts each by name.
func registerTools(c *Compiler, tick any) {
	if c.com == nil || c.root == nil {
		return
	}
	WalkPreOrder(c.root, func(f *Fiber) {
		if f.StateNode == nil {
			return
		}
		for _, tool := range resolveToolDescriptors(f.StateNode) {
			built, err := tool.toComTool()
			if err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "tool registration", err)
				continue
			}
			if err := c.com.AddTool(built); err != nil {
				logLifecycleError(c.config.Logger, f.DebugName, "tool registration", err)
			}
		}
	})
}
