package aidk

import comstore "github.com/rlindgren/aidk/pkg/com"

// comBinding is the per-cell state backing UseComState/UseWatch: a
// subscription to COM's "state:changed" event, filtered to one key.
type comBinding struct {
	key        string
	handlerID  int
	disposed   bool
}

// UseComState binds a hook cell to a COM key: reads are live (COM is the
// authoritative store), writes go through to COM and are a no-op when eq is
// non-nil and reports the write equal to the current value; with a nil eq
// every write goes through, equal or not. Writing during compile
// requests a recompile through the active-compiler phase gate.
func UseComState[T any](rc *RenderContext, c comstore.COM, key string, eq func(a, b T) bool) (T, func(T)) {
	cell := rc.nextCell(HookComState)
	binding, _ := cell.MemoizedState.(*comBinding)
	if binding == nil {
		binding = &comBinding{key: key}
		binding.handlerID = c.On("state:changed", func(changedKey string, _ any) {
			if changedKey == key {
				requestRecompileIfAllowed(rc, "com state changed: "+key)
			}
		})
		cell.MemoizedState = binding
	}
	UseOnUnmount(rc, func() {
		if !binding.disposed {
			binding.disposed = true
			c.Off("state:changed", binding.handlerID)
		}
	})

	current, _ := valueOrZero[T](c.GetState(key))
	setter := func(next T) {
		cur, ok := valueOrZero[T](c.GetState(key))
		if ok && eq != nil && eq(cur, next) {
			return
		}
		c.SetState(key, next)
		requestRecompileIfAllowed(rc, "com state write: "+key)
	}
	return current, setter
}

// UseWatch is the read-only variant of UseComState.
func UseWatch[T any](rc *RenderContext, c comstore.COM, key string) T {
	cell := rc.nextCell(HookWatch)
	binding, _ := cell.MemoizedState.(*comBinding)
	if binding == nil {
		binding = &comBinding{key: key}
		binding.handlerID = c.On("state:changed", func(changedKey string, _ any) {
			if changedKey == key {
				requestRecompileIfAllowed(rc, "com state changed: "+key)
			}
		})
		cell.MemoizedState = binding
	}
	UseOnUnmount(rc, func() {
		if !binding.disposed {
			binding.disposed = true
			c.Off("state:changed", binding.handlerID)
		}
	})
	v, _ := valueOrZero[T](c.GetState(key))
	return v
}

func valueOrZero[T any](v any, ok bool) (T, bool) {
	if !ok {
		var zero T
		return zero, false
	}
	t, okType := v.(T)
	if !okType {
		var zero T
		return zero, false
	}
	return t, true
}
