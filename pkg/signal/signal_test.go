package signal

import (
	"testing"
)

func TestSignal_GetSet(t *testing.T) {
	s := New(42, func(a, b int) bool { return a == b })

	if got := s.Peek(); got != 42 {
		t.Errorf("expected initial value 42, got %d", got)
	}

	if changed := s.Set(100); !changed {
		t.Errorf("expected Set to report a change")
	}
	if got := s.Peek(); got != 100 {
		t.Errorf("expected value 100 after Set, got %d", got)
	}
}

func TestSignal_EqualWriteIsNoOp(t *testing.T) {
	s := New(7, func(a, b int) bool { return a == b })

	var notified int
	s.Subscribe(func() { notified++ })

	if changed := s.Set(7); changed {
		t.Errorf("expected equal write to report no change")
	}
	if notified != 0 {
		t.Errorf("expected no notification for a no-op write, got %d", notified)
	}

	s.Set(8)
	if notified != 1 {
		t.Errorf("expected exactly one notification for a real write, got %d", notified)
	}
}

func TestSignal_DependencyTracking(t *testing.T) {
	s := New(1, func(a, b int) bool { return a == b })

	var reran int
	var last int
	var cancel func()
	var rerun func()

	rerun = func() {
		// Drop the previous run's subscription before re-tracking.
		if cancel != nil {
			cancel()
		}
		reran++
		Track(func(subscribe func(onChange func()) (cancel func())) {
			cancel = subscribe(rerun)
		}, func() {
			last = s.Get()
		})
	}
	rerun()

	if reran != 1 || last != 1 {
		t.Fatalf("expected one run with value 1, got reran=%d last=%d", reran, last)
	}

	s.Set(2)
	if reran != 2 || last != 2 {
		t.Fatalf("expected rerun to observe new value, got reran=%d last=%d", reran, last)
	}

	cancel()
	s.Set(3)
	if reran != 2 {
		t.Fatalf("expected no further rerun after cancel, got reran=%d", reran)
	}
}

func TestSignal_DisposedWriteDoesNotNotify(t *testing.T) {
	s := New("a", func(a, b string) bool { return a == b })
	var notified bool
	s.Subscribe(func() { notified = true })

	s.Dispose()
	s.Set("b")

	if notified {
		t.Errorf("expected disposed signal to skip notification")
	}
	if got := s.Peek(); got != "b" {
		t.Errorf("expected disposed signal to still store the latest value, got %q", got)
	}
}

func TestBatch_CoalescesNotifications(t *testing.T) {
	a := New(1, func(x, y int) bool { return x == y })
	b := New(1, func(x, y int) bool { return x == y })

	var notifications int
	notify := func() { notifications++ }
	a.Subscribe(notify)
	b.Subscribe(notify)

	Batch(func() {
		a.Set(2)
		b.Set(2)
		if notifications != 0 {
			t.Fatalf("expected no notification while batch is open, got %d", notifications)
		}
	})

	if notifications != 2 {
		t.Fatalf("expected one notification per subscriber at batch exit, got %d", notifications)
	}
}

func TestBatch_NestedFlushesOnce(t *testing.T) {
	a := New(1, func(x, y int) bool { return x == y })
	var notifications int
	a.Subscribe(func() { notifications++ })

	Batch(func() {
		Batch(func() {
			a.Set(9)
		})
		if notifications != 0 {
			t.Fatalf("expected inner batch exit not to flush, got %d notifications", notifications)
		}
	})

	if notifications != 1 {
		t.Fatalf("expected exactly one flush at outermost batch exit, got %d", notifications)
	}
}

func TestComputed_MemoizesUntilDependencyChanges(t *testing.T) {
	a := New(2, func(x, y int) bool { return x == y })
	b := New(3, func(x, y int) bool { return x == y })

	var computations int
	sum := NewComputed("sum", func() int {
		computations++
		return a.Get() + b.Get()
	})

	if got := sum.Get(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := sum.Get(); got != 5 || computations != 1 {
		t.Fatalf("expected memoized read with 1 computation, got value=%d computations=%d", got, computations)
	}

	a.Set(10)
	if got := sum.Get(); got != 13 || computations != 2 {
		t.Fatalf("expected recomputation after dependency change, got value=%d computations=%d", got, computations)
	}
}

func TestComputed_BatchedDependenciesRecomputeOnce(t *testing.T) {
	a := New(1, func(x, y int) bool { return x == y })
	b := New(2, func(x, y int) bool { return x == y })

	var computations int
	sum := NewComputed("sum", func() int {
		computations++
		return a.Get() + b.Get()
	})
	_ = sum.Get()
	computations = 0

	var effectRuns int
	eff := NewEffect(func() (func(), error) {
		effectRuns++
		sum.Get()
		return nil, nil
	}, nil)
	defer eff.Dispose()
	effectRuns = 0

	Batch(func() {
		a.Set(10)
		b.Set(20)
	})

	if effectRuns != 1 {
		t.Fatalf("expected the effect to rerun exactly once after a batched update, got %d", effectRuns)
	}
	if got := sum.Get(); got != 30 {
		t.Fatalf("expected sum 30 after batch, got %d", got)
	}
}

func TestComputed_SelfCycleFails(t *testing.T) {
	var c *Computed[int]
	c = NewComputed("cyclic", func() int {
		return c.Get() + 1
	})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a cycle panic")
		}
		if _, ok := r.(*CycleError); !ok {
			t.Fatalf("expected *CycleError, got %T: %v", r, r)
		}
	}()
	c.Get()
}

func TestEffect_CleanupRunsBeforeRerunAndOnDispose(t *testing.T) {
	s := New(1, func(a, b int) bool { return a == b })

	var cleanups int
	eff := NewEffect(func() (func(), error) {
		s.Get()
		return func() { cleanups++ }, nil
	}, nil)

	s.Set(2)
	if cleanups != 1 {
		t.Fatalf("expected cleanup to run once before rerun, got %d", cleanups)
	}

	eff.Dispose()
	if cleanups != 2 {
		t.Fatalf("expected cleanup to run once at dispose, got %d", cleanups)
	}
}

func TestEffect_ErrorIsolatedToOnError(t *testing.T) {
	var caught error
	eff := NewEffect(func() (func(), error) {
		return nil, errTestBoom
	}, func(err error) { caught = err })
	defer eff.Dispose()

	if caught != errTestBoom {
		t.Fatalf("expected onError to observe the body error, got %v", caught)
	}
}

var errTestBoom = &testBoomError{}

type testBoomError struct{}

func (*testBoomError) Error() string { return "boom" }
