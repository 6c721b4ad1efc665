package aidk

import "strconv"

// ChildKind discriminates a normalized child position.
type ChildKind uint8

const (
	ChildElement ChildKind = iota
	ChildContentBlock
	ChildText
)

// NormalizedChild is one position in a reconcilable child list.
type NormalizedChild struct {
	Kind    ChildKind
	Element Element
	Block   ContentBlock
	Text    string
}

// NormalizeChildren flattens raw props.children into an ordered sequence of
// NormalizedChild:
//   - nil, bool false are filtered (bool true is also dropped: neither
//     renders a node, matching the host's JSX-style truthy/falsy filter)
//   - numbers are stringified
//   - nested slices are flattened one level per call (recursively, so a
//     slice of slices of slices still fully flattens, matching a host
//     runtime's recursive children flattening)
//   - Element values pass through as their own kind; strings become text
//     children
//   - anything isContentBlock reports true for becomes a content-block
//     child, coerced via coerceWireContentBlock; isContentBlock nil falls
//     back to defaultIsContentBlock (matches ContentBlock values only)
//   - anything else is dropped
func NormalizeChildren(children any, isContentBlock func(v any) bool) []NormalizedChild {
	if isContentBlock == nil {
		isContentBlock = defaultIsContentBlock
	}
	var out []NormalizedChild
	appendChild(&out, children, isContentBlock)
	return out
}

func appendChild(out *[]NormalizedChild, v any, isContentBlock func(v any) bool) {
	switch t := v.(type) {
	case nil:
		return
	case bool:
		return
	case Element:
		*out = append(*out, NormalizedChild{Kind: ChildElement, Element: t})
		return
	case *Element:
		if t != nil {
			*out = append(*out, NormalizedChild{Kind: ChildElement, Element: *t})
		}
		return
	case string:
		if t != "" {
			*out = append(*out, NormalizedChild{Kind: ChildText, Text: t})
		}
		return
	case int:
		*out = append(*out, NormalizedChild{Kind: ChildText, Text: strconv.Itoa(t)})
		return
	case int64:
		*out = append(*out, NormalizedChild{Kind: ChildText, Text: strconv.FormatInt(t, 10)})
		return
	case float64:
		*out = append(*out, NormalizedChild{Kind: ChildText, Text: strconv.FormatFloat(t, 'g', -1, 64)})
		return
	case []any:
		for _, child := range t {
			appendChild(out, child, isContentBlock)
		}
		return
	case []Element:
		for _, child := range t {
			appendChild(out, child, isContentBlock)
		}
		return
	case []NormalizedChild:
		*out = append(*out, t...)
		return
	}

	if isContentBlock(v) {
		if block, ok := coerceWireContentBlock(v); ok {
			*out = append(*out, NormalizedChild{Kind: ChildContentBlock, Block: block})
		}
		return
	}
	// Anything else (unrecognized, non-content-block type) is dropped.
}

// elementOrSynthetic returns the Element to reconcile for a normalized
// child: the child's own Element, or a synthetic "text" / "content-block"
// host element wrapping a text or content-block child. index is not used.
func (c NormalizedChild) elementOrSynthetic(index int) Element {
	switch c.Kind {
	case ChildElement:
		return c.Element
	case ChildText:
		return Element{Kind: KindHostTag, Tag: "text", Props: Props{"text": c.Text}}
	case ChildContentBlock:
		return Element{Kind: KindHostTag, Tag: "content-block", Props: Props{"block": c.Block}}
	default:
		return Element{Kind: KindHostTag, Tag: "text", Props: Props{"text": ""}}
	}
}
