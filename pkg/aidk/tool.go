package aidk

import (
	"context"

	comstore "github.com/rlindgren/aidk/pkg/com"
)

// ToolDescriptor is a tool descriptor: either a flat shape
// (Name/Description/Input/Run, auto-lifted) or an already-shaped one
// (Metadata/Run). Both forms bridge to pkg/com.Tool.
type ToolDescriptor struct {
	// Flat form.
	Name        string
	Description string
	Input       any
	Run         func(ctx context.Context, input map[string]any) (any, error) `json:"-" yaml:"-"`

	// Pre-shaped form; when Metadata.Name is non-empty it wins over the
	// flat fields above.
	Metadata comstore.ToolMetadata
}

func (t ToolDescriptor) toComTool() (comstore.Tool, error) {
	meta := t.Metadata
	if meta.Name == "" {
		meta = comstore.ToolMetadata{Name: t.Name, Description: t.Description, Input: t.Input}
	}
	if meta.Name == "" {
		return comstore.Tool{}, &ToolRegistrationError{Detail: "missing name"}
	}
	run := t.Run
	return comstore.Tool{
		Metadata: meta,
		Run: func(ctx context.Context, input map[string]any) (any, error) {
			if run == nil {
				return nil, nil
			}
			return run(ctx, input)
		},
	}, nil
}

// ToolRegistrationError documents a skipped tool registration.
type ToolRegistrationError struct {
	Detail string
}

func (e *ToolRegistrationError) Error() string {
	return "AIDK-E005: tool registration skipped: " + e.Detail
}

// StaticToolProvider and ToolHolder cover the three tool registration
// patterns a class instance may expose, attempted in order and all
// registered when more than one applies: a static metadata+run pair
// directly on the instance (StaticToolProvider), and a static or a distinct
// instance `Tool` property (both ToolHolder).

// StaticToolProvider is pattern (a): metadata+run declared directly on the
// class (or instance) as a single combined value.
type StaticToolProvider interface {
	StaticTool() ToolDescriptor
}

// ToolHolder is patterns (b)/(c): a `Tool` field/property returning a
// descriptor. A type may implement both StaticToolProvider and ToolHolder;
// when it does, both are registered, since an instance-level ToolHolder may
// return a different descriptor than the static one on every tick.
type ToolHolder interface {
	Tool() ToolDescriptor
}

// resolveToolDescriptors collects every pattern stateNode satisfies, in
// StaticToolProvider-then-ToolHolder order.
func resolveToolDescriptors(stateNode any) []ToolDescriptor {
	var out []ToolDescriptor
	if p, ok := stateNode.(StaticToolProvider); ok {
		out = append(out, p.StaticTool())
	}
	if h, ok := stateNode.(ToolHolder); ok {
		out = append(out, h.Tool())
	}
	return out
}
