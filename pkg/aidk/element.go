package aidk

// Package aidk implements the fiber compiler: a tick-based reconciliation
// engine that compiles a tree of declarative components into a
// CompiledStructure consumed by an agent loop.

// ElementKind is the tagged-union discriminant for an Element's type slot.
// Identification always prefers this explicit tag; name-based matching is
// reserved as a cross-module fallback.
type ElementKind uint8

const (
	// KindFunction is a function component: render(props [, com [, tick]]).
	KindFunction ElementKind = iota
	// KindClass is a class-shaped component: a constructor producing a
	// ClassComponent instance.
	KindClass
	// KindInstance is a pre-built object instance already carrying Render.
	KindInstance
	// KindHostTag is a plain string host tag with no special primitive
	// meaning (transparently reconciles its children).
	KindHostTag
	// KindFragment groups children at one tree position with no wrapper.
	KindFragment
	// KindPrimitive is a recognized structural/content host primitive
	// (Section, Entry, Tool, ...); never invoked as a function.
	KindPrimitive
)

func (k ElementKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindHostTag:
		return "host"
	case KindFragment:
		return "fragment"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// Primitive is the closed set of recognized structural/content host
// primitives.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimSection
	PrimEntry
	PrimTimeline
	PrimTool
	PrimEphemeral
	PrimText
	PrimImage
	PrimCode
	PrimJSON
	PrimDocument
	PrimAudio
	PrimVideo
	PrimRenderer
)

var primitiveNames = map[Primitive]string{
	PrimSection:   "Section",
	PrimEntry:     "Entry",
	PrimTimeline:  "Timeline",
	PrimTool:      "Tool",
	PrimEphemeral: "Ephemeral",
	PrimText:      "Text",
	PrimImage:     "Image",
	PrimCode:      "Code",
	PrimJSON:      "Json",
	PrimDocument:  "Document",
	PrimAudio:     "Audio",
	PrimVideo:     "Video",
	PrimRenderer:  "Renderer",
}

var primitivesByName = func() map[string]Primitive {
	out := make(map[string]Primitive, len(primitiveNames))
	for p, n := range primitiveNames {
		out[n] = p
	}
	return out
}()

// String returns the canonical name used for name-based fallback identity.
func (p Primitive) String() string {
	if n, ok := primitiveNames[p]; ok {
		return n
	}
	return "none"
}

// PrimitiveByName resolves the name-based fallback used for cross-module
// identity when a primitive can't be matched by its explicit tag.
func PrimitiveByName(name string) (Primitive, bool) {
	p, ok := primitivesByName[name]
	return p, ok
}

// FragmentTag is the canonical fragment symbol name, which Frag stores in
// Element.Tag. The reconciler identifies fragments by Kind (KindFragment)
// only; neither this tag nor the bare name "Fragment" is consulted.
const FragmentTag = "aidk.fragment"

// Props is the generic property bag attached to every Element. Reserved
// keys ("children", "key", "content", "id", "kind", "message", "definition",
// "instance") are interpreted by the reconciler and collector; everything
// else passes through to the component/primitive untouched.
type Props map[string]any

// Children returns props["children"] (nil if absent). It is provided
// because "children" participates in normalization (NormalizeChildren)
// rather than being a first-class Element field, matching the original's
// treatment of children as just another prop.
func (p Props) Children() any {
	if p == nil {
		return nil
	}
	return p["children"]
}

// Component is a function-component body. rc carries the render context
// (fiber, COM, tick state) hooks consult; the original's three call arities
// (props) / (props, com) / (props, tick state) collapse into this one
// signature since Go has no optional-arity dispatch — a component that
// never touches rc.Com/rc.Tick behaves exactly like the 1-arity form.
type Component func(rc *RenderContext, props Props) (any, error)

// ComAccess is the subset of pkg/com.COM a function/class component is
// handed during render; pkg/com.COM satisfies it structurally.
type ComAccess interface {
	GetState(key string) (any, bool)
	SetState(key string, value any)
}

// ClassFactory constructs a new ClassComponent instance from props.
type ClassFactory func(props Props) ClassComponent

// Element is the immutable declarative input to the compiler.
type Element struct {
	Kind ElementKind

	// Tag is the host tag name for KindHostTag; Prim and Frag also fill it
	// with the primitive's canonical name and FragmentTag. Function/class
	// debug names come from Name (falling back to the kind name), not Tag.
	Tag string

	// Primitive is set only for KindPrimitive.
	Primitive Primitive

	// Function is set only for KindFunction.
	Function Component

	// Class is set only for KindClass.
	Class ClassFactory

	// Instance is set only for KindInstance: a pre-built object already
	// carrying Render, reconciled the same way a class instance is.
	Instance InstanceComponent

	// Name is the debug/display name used for name-based identity fallback
	// and for debugName propagation onto fibers.
	Name string

	Props Props
	Key   string
}

// InstanceComponent is a pre-built object instance standing in for a class
// component: an opaque object carrying a Render method. It shares
// ClassComponent's render signature but is not constructed via a factory;
// the instance itself becomes stateNode.
type InstanceComponent interface {
	Render(com ComAccess, tick any) (any, error)
}

// Frag creates a fragment element wrapping children.
func Frag(key string, children ...any) Element {
	return Element{Kind: KindFragment, Tag: FragmentTag, Key: key, Props: Props{"children": children}}
}

// Host creates a plain string host-tag element.
func Host(tag string, props Props, children ...any) Element {
	if props == nil {
		props = Props{}
	}
	if len(children) > 0 {
		props["children"] = children
	}
	key, _ := props["key"].(string)
	return Element{Kind: KindHostTag, Tag: tag, Props: props, Key: key}
}

// FC wraps a function body into a function-component Element.
func FC(name string, fn Component, props Props, children ...any) Element {
	if props == nil {
		props = Props{}
	}
	if len(children) > 0 {
		props["children"] = children
	}
	key, _ := props["key"].(string)
	return Element{Kind: KindFunction, Function: fn, Name: name, Props: props, Key: key}
}

// Class wraps a ClassFactory into a class-component Element.
func Class(name string, factory ClassFactory, props Props, children ...any) Element {
	if props == nil {
		props = Props{}
	}
	if len(children) > 0 {
		props["children"] = children
	}
	key, _ := props["key"].(string)
	return Element{Kind: KindClass, Class: factory, Name: name, Props: props, Key: key}
}

// Prim creates a recognized host-primitive element (Section, Entry, Tool,
// ...). Tag is set to the primitive's canonical name; identity is resolved
// by the Primitive tag.
func Prim(p Primitive, props Props, children ...any) Element {
	if props == nil {
		props = Props{}
	}
	if len(children) > 0 {
		props["children"] = children
	}
	key, _ := props["key"].(string)
	return Element{Kind: KindPrimitive, Primitive: p, Tag: p.String(), Props: props, Key: key}
}

// displayName returns the debug name used in error messages and fiber
// debugName fields.
func (e Element) displayName() string {
	switch e.Kind {
	case KindPrimitive:
		return e.Primitive.String()
	case KindHostTag:
		return e.Tag
	case KindFragment:
		return "Fragment"
	default:
		if e.Name != "" {
			return e.Name
		}
		return e.Kind.String()
	}
}

// sameType reports whether two elements are reconcilable onto the same
// fiber (same kind and identity).
func sameType(a, b Element) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindHostTag:
		return a.Tag == b.Tag
	case KindPrimitive:
		return a.Primitive == b.Primitive
	case KindFragment:
		return true
	case KindFunction:
		return a.Name == b.Name
	case KindClass:
		return a.Name == b.Name
	case KindInstance:
		return true
	default:
		return false
	}
}
