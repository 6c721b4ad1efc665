// Package scenario builds the demo component tree the aidkc CLI compiles.
// It is not part of the compiler's public contract; it exists purely so the CLI's compile,
// watch, serve, and tree subcommands have a concrete tree to drive through
// NewCompiler/CompileUntilStable, exercising hooks, class lifecycle, COM
// state, tool registration and ephemeral content the way a real agent-loop
// caller would.
package scenario

import (
	"context"
	"fmt"

	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/com"
)

// Config parameterizes one run of the demo scenario.
type Config struct {
	Goal string
}

// DefaultConfig returns a scenario config suitable for a first run.
func DefaultConfig() Config {
	return Config{Goal: "summarize the repository"}
}

// Build returns the root element compiled once per tick: a stateful
// counter class component, a function component greeting the operator,
// and a standalone tool declaration.
func Build(cfg Config) aidk.Element {
	return aidk.Frag("root",
		aidk.Class("Counter", newCounter, aidk.Props{}),
		aidk.FC("Greeter", greeter, aidk.Props{"goal": cfg.Goal}),
		aidk.Prim(aidk.PrimTool, aidk.Props{"definition": echoTool}),
	)
}

// counter is a class component incrementing a tick counter in OnTickStart
// and rendering its value into a section.
type counter struct {
	count int
}

func newCounter(props aidk.Props) aidk.ClassComponent { return &counter{} }

func (c *counter) OnTickStart(tick any) error {
	c.count++
	return nil
}

func (c *counter) Render(comAccess aidk.ComAccess, tick any) (any, error) {
	return aidk.Prim(aidk.PrimSection, aidk.Props{
		"id":      "counter",
		"title":   "Tick counter",
		"content": fmt.Sprintf("Count: %d", c.count),
	}), nil
}

// StaticTool exposes a reset_counter tool so the demo exercises the static
// tool-registration path.
// pattern (a) (a static metadata+run provider on the class instance).
func (c *counter) StaticTool() aidk.ToolDescriptor {
	return aidk.ToolDescriptor{
		Name:        "reset_counter",
		Description: "Reset the tick counter back to zero",
		Run: func(ctx context.Context, input map[string]any) (any, error) {
			c.count = 0
			return map[string]any{"reset": true}, nil
		},
	}
}

// greeter is a function component exercising UseState, UseEffect,
// UseOnMount, UseTickEnd and an ephemeral reminder, rendering a
// user-visible entry announcing the configured goal on every render.
func greeter(rc *aidk.RenderContext, props aidk.Props) (any, error) {
	goal, _ := props["goal"].(string)
	greeted, setGreeted := aidk.UseState(rc, false)

	aidk.UseOnMount(rc, func() (func(), error) {
		return nil, nil
	})

	aidk.UseEffect(rc, []any{goal}, func() (func(), error) {
		if !greeted {
			setGreeted(true)
		}
		return nil, nil
	})

	aidk.UseTickEnd(rc, func(tick any) error {
		return nil
	})

	message := fmt.Sprintf("Ready to help with: %s", goal)
	return aidk.Frag("",
		aidk.Prim(aidk.PrimEntry, aidk.Props{
			"kind":    "message",
			"message": map[string]any{"role": "assistant", "content": message},
		}),
		aidk.Prim(aidk.PrimEphemeral, aidk.Props{
			"content":  "thinking...",
			"position": "start",
			"order":    0,
		}),
	), nil
}

// echoTool is a standalone tool declared independently of any component,
// exercising the Tool primitive's flat-descriptor form.
var echoTool = aidk.ToolDescriptor{
	Name:        "echo",
	Description: "Echo the given text back unchanged",
	Run: func(ctx context.Context, input map[string]any) (any, error) {
		return input["text"], nil
	},
}

// NewCOM returns a fresh reference COM for one scenario run.
func NewCOM() com.COM { return com.NewMemory() }
