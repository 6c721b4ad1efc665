package aidk

import (
	"fmt"

	"github.com/rlindgren/aidk/internal/initcache"
	comstore "github.com/rlindgren/aidk/pkg/com"
)

// Compiler is one execution's fiber-tree state: the committed root, the
// COM it renders against, and the tick state threaded through the current
// compile.
type Compiler struct {
	root   *Fiber
	com    comstore.COM
	config Config

	tickState any

	pendingEffects []*EffectDescriptor

	// initCache survives across a fiber being unmounted and recreated at the
	// same tree position in the same process, so useInit does
	// not re-run an expensive initializer after a conditional remount.
	initCache *initcache.Cache

	started bool
}

// NewCompiler creates a Compiler bound to com with the given config
// (zero-valued fields filled via Config.WithDefaults).
func NewCompiler(com comstore.COM, config Config) *Compiler {
	return &Compiler{
		com:       com,
		config:    config.WithDefaults(),
		initCache: initcache.New(initcache.DefaultConfig()),
	}
}

// requestRecompile forwards a recompile request to the bound COM, which
// accumulates it for the stabilization driver to drain.
func (c *Compiler) requestRecompile(reason string) {
	if c.com != nil {
		c.com.RequestRecompile(reason)
	}
}

// Compile performs a single reconcile+commit+collect pass over element and
// returns the resulting CompiledStructure. A contract-violation panic
// (hook order mismatch, signal cycle, ...) that escapes reconciliation is
// recovered here, discarding the half-built WIP and surfacing the original
// typed error to the caller instead of crashing the process; withActivePhase
// has already reset the phase by the time this recover runs.
func (c *Compiler) Compile(element Element, tickState any) (result *CompiledStructure, err error) {
	c.tickState = tickState
	if !c.started {
		c.notifyStart()
		c.started = true
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errAsString(r)
		}
	}()

	var compileErr error
	withActivePhase(c, PhaseCompile, func() {
		wip, werr := reconcileRoot(c, c.root, element)
		if werr != nil {
			compileErr = werr
			return
		}
		commitWork(c, wip)
		c.root = wip
		result = CollectStructure(c.root, c.config)
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return result, nil
}

// StabilizationResult is CompileUntilStable's return value.
type StabilizationResult struct {
	Compiled        *CompiledStructure
	Iterations      int
	ForcedStable    bool
	RecompileReasons []string
}

// CompileUntilStable runs the bounded recompile loop: compile, run
// after-compile hooks, drain recompile reasons, and repeat while a
// recompile was requested, up to maxIterations.
func (c *Compiler) CompileUntilStable(element Element, tickState any, maxIterations int) (*StabilizationResult, error) {
	if maxIterations <= 0 {
		maxIterations = c.config.MaxCompileIterations
	}
	iterations := 0
	var reasons []string
	var compiled *CompiledStructure
	forcedStable := false

	for {
		if c.com != nil {
			c.com.ResetRecompileRequest()
		}
		var err error
		compiled, err = c.Compile(element, tickState)
		if err != nil {
			return nil, err
		}

		c.notifyAfterCompile(compiled, tickState, IterationContext{Iteration: iterations, MaxIterations: maxIterations})

		if c.com != nil {
			for _, r := range c.com.RecompileReasons() {
				reasons = append(reasons, fmt.Sprintf("[iteration %d] %s", iterations, r))
			}
		}

		iterations++
		requested := c.com != nil && c.com.WasRecompileRequested()
		if !requested {
			break
		}
		if iterations >= maxIterations {
			forcedStable = true
			c.config.Logger.Warn("aidk: stabilization forced stable", "iterations", iterations, "reasons", reasons)
			break
		}
	}

	return &StabilizationResult{
		Compiled: compiled, Iterations: iterations, ForcedStable: forcedStable, RecompileReasons: reasons,
	}, nil
}

// NotifyStart calls OnStart on every class instance in the committed tree,
// once per execution.
func (c *Compiler) NotifyStart() { c.notifyStart() }

// NotifyTickStart sets phase tickStart, drains TickStart effects/hooks,
// calls OnTickStart, then re-registers tools.
func (c *Compiler) NotifyTickStart(tickState any) { c.notifyTickStart(tickState) }

// NotifyTickEnd sets phase tickEnd, drains TickEnd effects/hooks, calls
// OnTickEnd, routing errors through OnError when present. An error from a
// fiber with no OnError is returned rather than swallowed.
func (c *Compiler) NotifyTickEnd(tickState any) error { return c.notifyTickEnd(tickState) }

// NotifyOnMessage invokes every OnMessage hook and lifecycle method in the
// committed tree.
func (c *Compiler) NotifyOnMessage(msg any, tickState any) {
	c.notifyOnMessage(c.com, msg, tickState)
}

// NotifyAfterCompile invokes OnAfterCompile and AfterCompile hooks with the
// given compiled structure. CompileUntilStable calls this
// automatically; exposed directly for a caller driving a single Compile.
func (c *Compiler) NotifyAfterCompile(compiled *CompiledStructure, tickState any, ctx IterationContext) {
	c.notifyAfterCompile(compiled, tickState, ctx)
}

// NotifyComplete sets phase complete and calls OnComplete.
func (c *Compiler) NotifyComplete(finalState any) { c.notifyComplete(finalState) }

// NotifyError calls every OnError in the tree and returns the first
// RecoveryAction requesting continuation, or nil.
func (c *Compiler) NotifyError(state TickErrorState) *RecoveryAction {
	return c.notifyErrorAll(state)
}

// Unmount depth-first unmounts the committed root and clears it.
func (c *Compiler) Unmount() {
	if c.root == nil {
		return
	}
	withActivePhase(c, PhaseUnmount, func() {
		unmountFiber(c, c.root)
	})
	c.root = nil
}

// Root exposes the current committed fiber tree for tests and tooling
// (e.g. cmd/aidkc's tree inspector).
func (c *Compiler) Root() *Fiber { return c.root }
