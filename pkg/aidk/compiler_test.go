package aidk

import (
	"testing"

	"github.com/rlindgren/aidk/pkg/com"
)

// section is a small helper producing a Section primitive element for
// tests, mirroring how a real component tree declares one.
func section(id string, props Props, children ...any) Element {
	if props == nil {
		props = Props{}
	}
	props["id"] = id
	return Prim(PrimSection, props, children...)
}

func TestCompile_SimpleSection(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())
	el := section("s", Props{"content": "hello"})

	compiled, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, ok := compiled.Sections["s"]
	if !ok {
		t.Fatalf("expected section %q", "s")
	}
	if got.Content != "hello" {
		t.Fatalf("expected content %q, got %v", "hello", got.Content)
	}
	if len(compiled.SystemMessageItems) != 1 || compiled.SystemMessageItems[0].Index != 0 {
		t.Fatalf("expected one system message item at index 0, got %+v", compiled.SystemMessageItems)
	}
}

type counterComponent struct {
	count int
}

func (c *counterComponent) OnTickStart(tick any) error {
	c.count++
	return nil
}

func (c *counterComponent) Render(comAccess ComAccess, tick any) (any, error) {
	return section("counter", Props{"content": "Count: " + itoa(c.count)}), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestCompile_CounterAcrossTicks(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())
	el := Class("Counter", func(props Props) ClassComponent { return &counterComponent{} }, Props{})

	var compiled *CompiledStructure
	for tick := 0; tick < 3; tick++ {
		c.NotifyTickStart(tick)
		var err error
		compiled, err = c.Compile(el, tick)
		if err != nil {
			t.Fatalf("compile tick %d: %v", tick, err)
		}
		if err := c.NotifyTickEnd(tick); err != nil {
			t.Fatalf("notify tick end %d: %v", tick, err)
		}
	}

	got := compiled.Sections["counter"]
	if got == nil || got.Content != "Count: 2" {
		t.Fatalf("expected Count: 2, got %+v", got)
	}
}

type toggleA struct{ onUnmountCalled *int }

func (a *toggleA) Render(com ComAccess, tick any) (any, error) { return nil, nil }
func (a *toggleA) OnUnmount() error                            { *a.onUnmountCalled++; return nil }

type toggleB struct{ onMountCalled *int }

func (b *toggleB) Render(com ComAccess, tick any) (any, error) { return nil, nil }
func (b *toggleB) OnMount(c com.COM) error                     { *b.onMountCalled++; return nil }

func TestCompile_ConditionalUnmount(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())
	var unmountCount, mountCount int

	elA := Class("A", func(props Props) ClassComponent { return &toggleA{onUnmountCalled: &unmountCount} }, Props{})
	if _, err := c.Compile(elA, nil); err != nil {
		t.Fatalf("tick1: %v", err)
	}

	elB := Class("B", func(props Props) ClassComponent { return &toggleB{onMountCalled: &mountCount} }, Props{})
	if _, err := c.Compile(elB, nil); err != nil {
		t.Fatalf("tick2: %v", err)
	}

	if unmountCount != 1 {
		t.Fatalf("expected A.OnUnmount exactly once, got %d", unmountCount)
	}
	if mountCount != 1 {
		t.Fatalf("expected B.OnMount exactly once, got %d", mountCount)
	}
}

func TestCompile_MessageContentVariants(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())

	el := Prim(PrimEntry, Props{"kind": "message", "message": map[string]any{"role": "user", "content": "hi"}})
	compiled, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(compiled.TimelineEntries) != 1 {
		t.Fatalf("expected one timeline entry, got %d", len(compiled.TimelineEntries))
	}
	entry := compiled.TimelineEntries[0]
	if entry.Message == nil || len(entry.Message.Content) != 1 || entry.Message.Content[0].Text != "hi" {
		t.Fatalf("expected content [{text hi}], got %+v", entry.Message)
	}

	elWithChild := Prim(PrimEntry, Props{"kind": "message", "message": map[string]any{"role": "user", "content": "ignored"}},
		Prim(PrimText, Props{"text": "used"}))
	compiled2, err := NewCompiler(com.NewMemory(), DefaultConfig()).Compile(elWithChild, nil)
	if err != nil {
		t.Fatalf("compile2: %v", err)
	}
	entry2 := compiled2.TimelineEntries[0]
	if len(entry2.Message.Content) != 1 || entry2.Message.Content[0].Type != ContentText {
		t.Fatalf("expected a single text content block, got %+v", entry2.Message.Content)
	}
}

type recompileOnceComponent struct {
	requested bool
}

func (r *recompileOnceComponent) OnAfterCompile(compiled *CompiledStructure, tick any, ctx IterationContext) error {
	if !r.requested {
		r.requested = true
		return nil
	}
	return nil
}

func TestCompileUntilStable(t *testing.T) {
	memory := com.NewMemory()
	c := NewCompiler(memory, DefaultConfig())

	requestedOnce := false
	el := FC("Once", func(rc *RenderContext, props Props) (any, error) {
		UseAfterCompile(rc, func(compiled *CompiledStructure, ctx IterationContext) error {
			if ctx.Iteration == 0 && !requestedOnce {
				requestedOnce = true
				memory.RequestRecompile("first pass wants another look")
			}
			return nil
		})
		return section("s", Props{"content": "x"}), nil
	}, Props{})

	result, err := c.CompileUntilStable(el, nil, 10)
	if err != nil {
		t.Fatalf("compileUntilStable: %v", err)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", result.Iterations)
	}
	if result.ForcedStable {
		t.Fatalf("expected ForcedStable=false")
	}
	if len(result.RecompileReasons) != 1 {
		t.Fatalf("expected exactly one recompile reason, got %v", result.RecompileReasons)
	}
}

func TestCompile_ToolLastWriteWins(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())
	a := ToolDescriptor{Name: "t", Description: "a"}
	b := ToolDescriptor{Name: "t", Description: "b"}

	el := Frag("", Prim(PrimTool, Props{"definition": a}), Prim(PrimTool, Props{"definition": b}))
	compiled, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(compiled.Tools) != 1 {
		t.Fatalf("expected exactly one tool, got %d", len(compiled.Tools))
	}
	if compiled.Tools[0].Tool.Description != "b" {
		t.Fatalf("expected last-write-wins tool b, got %+v", compiled.Tools[0].Tool)
	}
}

func TestCompile_IdempotentReReconciliation(t *testing.T) {
	c := NewCompiler(com.NewMemory(), DefaultConfig())
	el := section("s", Props{"content": "hello"})

	first, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if first.Sections["s"].Content != second.Sections["s"].Content {
		t.Fatalf("expected idempotent content, got %v vs %v", first.Sections["s"].Content, second.Sections["s"].Content)
	}
}
