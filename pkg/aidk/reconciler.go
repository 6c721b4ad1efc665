package aidk

import "reflect"

// reconcileRoot reconciles the whole tree starting at root element against
// the previous committed fiber (nil on first compile), returning the new
// work-in-progress root.
func reconcileRoot(c *Compiler, prevRoot *Fiber, el Element) (*Fiber, error) {
	var wip *Fiber
	if prevRoot != nil && sameType(elementOf(prevRoot), el) && prevRoot.Key == el.Key {
		wip = createWorkInProgress(prevRoot, el.Props)
	} else {
		wip = createFiber(el, el.Key)
		wip.PendingProps = el.Props
		if prevRoot != nil {
			// Root type changed: unmount the whole previous tree.
			unmountFiber(c, prevRoot)
		}
	}
	if err := beginWork(c, wip); err != nil {
		return nil, err
	}
	return wip, nil
}

// elementOf reconstructs a comparable Element view of a fiber's identity
// for sameType checks against a freshly authored Element.
func elementOf(f *Fiber) Element {
	return Element{Kind: f.Kind, Tag: f.Tag, Primitive: f.Primitive, Name: f.DebugName, Function: f.Function, Class: f.Class}
}

// beginWork sets fiber.Props from PendingProps and dispatches on its kind.
func beginWork(c *Compiler, fiber *Fiber) error {
	if fiber.PendingProps != nil {
		fiber.Props = fiber.PendingProps
	}

	switch fiber.Kind {
	case KindFragment:
		children := NormalizeChildren(fiber.Props.Children(), c.config.IsContentBlock)
		return reconcileChildList(c, fiber, children)

	case KindHostTag, KindPrimitive:
		children := NormalizeChildren(fiber.Props.Children(), c.config.IsContentBlock)
		return reconcileChildList(c, fiber, children)

	case KindClass:
		return beginClassWork(c, fiber)

	case KindInstance:
		return beginInstanceWork(c, fiber)

	case KindFunction:
		return beginFunctionWork(c, fiber)

	default:
		return nil
	}
}

func beginClassWork(c *Compiler, fiber *Fiber) error {
	if fiber.StateNode == nil {
		inst := fiber.Class(fiber.Props)
		fiber.StateNode = inst
		if mounter, ok := inst.(OnMounter); ok {
			if err := invokeWrapped("OnMount", fiber.DebugName, func() error { return mounter.OnMount(c.com) }); err != nil {
				return &RenderError{FiberName: fiber.DebugName, Cause: err}
			}
		}
		fiber.mounted = true
	}
	inst := fiber.StateNode.(ClassComponent)
	var child any
	var err error
	withRendering(func() {
		child, err = invokeRenderCatchingPanic(fiber.DebugName, func() (any, error) {
			return inst.Render(c.com, c.tickState)
		})
	})
	if err != nil {
		return &RenderError{FiberName: fiber.DebugName, Cause: err}
	}
	return reconcileChildList(c, fiber, NormalizeChildren(child, c.config.IsContentBlock))
}

func beginInstanceWork(c *Compiler, fiber *Fiber) error {
	if fiber.StateNode == nil {
		fiber.StateNode = fiber.Instance
		if mounter, ok := fiber.Instance.(OnMounter); ok {
			if err := invokeWrapped("OnMount", fiber.DebugName, func() error { return mounter.OnMount(c.com) }); err != nil {
				return &RenderError{FiberName: fiber.DebugName, Cause: err}
			}
		}
		fiber.mounted = true
	}
	var child any
	var err error
	withRendering(func() {
		child, err = invokeRenderCatchingPanic(fiber.DebugName, func() (any, error) {
			return fiber.Instance.Render(c.com, c.tickState)
		})
	})
	if err != nil {
		return &RenderError{FiberName: fiber.DebugName, Cause: err}
	}
	return reconcileChildList(c, fiber, NormalizeChildren(child, c.config.IsContentBlock))
}

func beginFunctionWork(c *Compiler, fiber *Fiber) error {
	rc := &RenderContext{Fiber: fiber, Com: c.com, Tick: c.tickState, Dev: c.config.Dev, initCache: c.initCache}

	var result any
	var renderErr error
	withRendering(func() {
		// rc.finish() runs inside the same panic-catching call as the render
		// itself: a "rendered fewer hooks than before" violation panics from
		// finish(), not from fiber.Function, but must abort the compile the
		// same way a mismatched-hook-tag panic from inside render does.
		result, renderErr = invokeRenderCatchingPanic(fiber.DebugName, func() (any, error) {
			r, err := fiber.Function(rc, fiber.Props)
			rc.finish()
			return r, err
		})
	})
	if renderErr != nil {
		return &RenderError{FiberName: fiber.DebugName, Cause: renderErr}
	}

	c.pendingEffects = append(c.pendingEffects, rc.effects...)

	if selfReferential(fiber, result) {
		// Terminal primitive marker: no recursion into
		// the same function type, but props.children still reconciles.
		return reconcileChildList(c, fiber, NormalizeChildren(fiber.Props.Children(), c.config.IsContentBlock))
	}
	return reconcileChildList(c, fiber, NormalizeChildren(result, c.config.IsContentBlock))
}

func invokeRenderCatchingPanic(name string, call func() (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = &RenderError{FiberName: name, Cause: errAsString(r)}
			}
		}
	}()
	return call()
}

type stringError string

func (e stringError) Error() string { return string(e) }

func errAsString(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return stringError(toDisplayString(r))
}

func toDisplayString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return reflect.TypeOf(v).String()
}

// selfReferential reports whether result is an Element of the same
// function identity as fiber.
func selfReferential(fiber *Fiber, result any) bool {
	el, ok := result.(Element)
	if !ok || el.Kind != KindFunction || fiber.Function == nil || el.Function == nil {
		return false
	}
	return reflect.ValueOf(fiber.Function).Pointer() == reflect.ValueOf(el.Function).Pointer()
}

// reconcileChildList reconciles fiber's child chain against a freshly
// normalized list of children.
func reconcileChildList(c *Compiler, fiber *Fiber, children []NormalizedChild) error {
	oldByKey := make(map[string]*Fiber)
	oldByPosition := make([]*Fiber, 0)
	for old := fiber.Child; old != nil; old = old.Sibling {
		oldByPosition = append(oldByPosition, old)
		if old.Key != "" {
			oldByKey[old.Key] = old
		}
	}
	consumed := make(map[*Fiber]bool, len(oldByPosition))

	var headChild, prevChild *Fiber
	for i, nc := range children {
		el := nc.elementOrSynthetic(i)
		key := el.Key

		// Unkeyed children reuse by position only if that position's old
		// fiber is itself unkeyed.
		var old *Fiber
		if key != "" {
			if cand, ok := oldByKey[key]; ok && !consumed[cand] {
				old = cand
			}
		} else if i < len(oldByPosition) {
			cand := oldByPosition[i]
			if cand.Key == "" && !consumed[cand] {
				old = cand
			}
		}

		var newFiber *Fiber
		if old != nil && sameType(elementOf(old), el) && old.Key == key {
			consumed[old] = true
			newFiber = createWorkInProgress(old, el.Props)
		} else {
			newFiber = createFiber(el, key)
			newFiber.PendingProps = el.Props
		}
		newFiber.Parent = fiber
		newFiber.Index = i

		if err := beginWork(c, newFiber); err != nil {
			return err
		}

		if headChild == nil {
			headChild = newFiber
		} else {
			prevChild.Sibling = newFiber
		}
		prevChild = newFiber
	}

	for _, old := range oldByPosition {
		if !consumed[old] {
			fiber.Deletions = append(fiber.Deletions, old)
			fiber.Flags |= ChildDeletion
		}
	}

	fiber.Child = headChild
	return nil
}

// unmountFiber recursively runs unmount work for f and its subtree,
// depth-first.
func unmountFiber(c *Compiler, f *Fiber) {
	WalkPostOrder(f, func(n *Fiber) {
		for cell := n.MemoizedState; cell != nil; cell = cell.Next {
			switch cell.Tag {
			case HookEffect, HookOnMount:
				if cell.Effect != nil && cell.Effect.Destroy != nil {
					runEffectDestroy(c, n, cell.Effect)
				}
			case HookUnmount:
				if fn, ok := cell.MemoizedState.(func()); ok {
					safeRunUnmount(c, n, fn)
				}
			case HookSignal:
				if sig, ok := cell.MemoizedState.(interface{ Dispose() }); ok {
					sig.Dispose()
				}
			}
		}
		if n.StateNode != nil {
			if unmounter, ok := n.StateNode.(OnUnmounter); ok {
				err := invokeWrapped("OnUnmount", n.DebugName, unmounter.OnUnmount)
				if err != nil {
					logLifecycleError(c.config.Logger, n.DebugName, "OnUnmount", err)
				}
			}
			if n.Ref != "" {
				c.com.RemoveRef(n.Ref)
			}
		}
	})
}

func safeRunUnmount(c *Compiler, f *Fiber, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logLifecycleError(c.config.Logger, f.DebugName, "UseOnUnmount", errAsString(r))
		}
	}()
	fn()
}
