package aidk

// commitWork runs the post-render commit pass: subtree deletions first
// (depth-first unmount), then Mount effects, then Commit effects, in that
// order.
func commitWork(c *Compiler, root *Fiber) {
	commitDeletions(c, root)

	var mountEffects, commitEffects []*EffectDescriptor
	for _, e := range c.pendingEffects {
		if !e.Pending {
			continue
		}
		switch e.Phase {
		case EffectPhaseMount:
			mountEffects = append(mountEffects, e)
		case EffectPhaseCommit:
			commitEffects = append(commitEffects, e)
		}
	}
	c.pendingEffects = nil

	runEffectBatch(c, mountEffects)
	runEffectBatch(c, commitEffects)
}

// commitDeletions walks the tree and unmounts every fiber recorded in each
// node's Deletions list, depth-first.
func commitDeletions(c *Compiler, f *Fiber) {
	if f == nil {
		return
	}
	if f.Flags.Has(ChildDeletion) {
		for _, deleted := range f.Deletions {
			unmountFiber(c, deleted)
		}
		f.Deletions = nil
	}
	f.ForEachChild(func(child *Fiber) { commitDeletions(c, child) })
}

func runEffectBatch(c *Compiler, effects []*EffectDescriptor) {
	for _, e := range effects {
		runEffectDestroy(c, nil, e)
		if e.Create == nil {
			e.Pending = false
			continue
		}
		destroy, err := runEffectCreate(c, e)
		if err != nil {
			logLifecycleError(c.config.Logger, e.DebugLabel, "effect", err)
		}
		e.Destroy = destroy
		e.Pending = false
	}
}

// runEffectCreate runs e.Create according to Config.AsyncEffects: inline on
// the compiling goroutine when false, or on its own goroutine behind a
// completion fence (a buffered channel this call blocks on) when true.
// Either way the next effect in the batch never starts before this one's
// create has returned, preserving the phase-ordered drain guarantee; the
// fenced path only changes which goroutine the create body runs on.
func runEffectCreate(c *Compiler, e *EffectDescriptor) (destroy func(), err error) {
	if !c.config.AsyncEffects {
		return safeRunEffectCreate(e)
	}
	type outcome struct {
		destroy func()
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		d, err := safeRunEffectCreate(e)
		done <- outcome{d, err}
	}()
	o := <-done
	return o.destroy, o.err
}

func safeRunEffectCreate(e *EffectDescriptor) (destroy func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errAsString(r)
		}
	}()
	return e.Create()
}

// runEffectDestroy invokes e's previous destroy (if any), isolating panics
// and errors per effect.
func runEffectDestroy(c *Compiler, f *Fiber, e *EffectDescriptor) {
	if e.Destroy == nil {
		return
	}
	destroy := e.Destroy
	e.Destroy = nil
	func() {
		defer func() {
			if r := recover(); r != nil {
				var label string
				if f != nil {
					label = f.DebugName
				} else {
					label = e.DebugLabel
				}
				logLifecycleError(c.config.Logger, label, "effect cleanup", errAsString(r))
			}
		}()
		destroy()
	}()
}
