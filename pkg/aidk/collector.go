package aidk

import (
	"strconv"
	"sync/atomic"
)

// CompiledSection is one entry of CompiledStructure.Sections.
type CompiledSection struct {
	ID         string
	Title      string
	Content    any // string, []ContentBlock, or a merged []any{a, b} pair when two sections share an id
	Visibility string
	Audience   string
	Tags       []string
	Metadata   map[string]any
	Renderer   any
}

// MessageEntry is the message payload of a CompiledTimelineEntry whose Kind
// is "message".
type MessageEntry struct {
	Role    string
	Content []ContentBlock
}

// CompiledTimelineEntry is one entry of CompiledStructure.TimelineEntries.
type CompiledTimelineEntry struct {
	Kind       string // "message" | "event"
	Message    *MessageEntry
	Event      any
	Visibility string
	Tags       []string
	Metadata   map[string]any
	Renderer   any
}

// SystemMessageItem preserves tree encounter order for system-facing
// content.
type SystemMessageItem struct {
	Type      string // "section" | "message" | "loose"
	SectionID string
	Content   any
	Index     int
	Renderer  any
}

// NamedTool is one entry of CompiledStructure.Tools.
type NamedTool struct {
	Name string
	Tool ToolDescriptor
}

// CompiledEphemeral is one entry of CompiledStructure.Ephemeral.
type CompiledEphemeral struct {
	Content  any
	Type     string
	Position string // "start" | "end"
	Order    int
	ID       string
	Tags     []string
	Metadata map[string]any
	Renderer any
}

// CompiledStructure is the compiler's output.
type CompiledStructure struct {
	Sections           map[string]*CompiledSection
	sectionOrder       []string
	TimelineEntries    []CompiledTimelineEntry
	SystemMessageItems []SystemMessageItem
	Tools              []NamedTool
	Ephemeral          []CompiledEphemeral
	Metadata           map[string]any
}

// SectionsInOrder returns sections in first-insertion order.
func (s *CompiledStructure) SectionsInOrder() []*CompiledSection {
	out := make([]*CompiledSection, 0, len(s.sectionOrder))
	for _, id := range s.sectionOrder {
		out = append(out, s.Sections[id])
	}
	return out
}

// collectState carries the collector's per-walk mutable context: a
// monotonic orderIndex and a stack of ContentRenderer instances. Whether
// the walk is inside a section or message is a collectWalk parameter.
type collectState struct {
	cfg           Config
	out           *CompiledStructure
	orderIndex    int
	rendererStack []any
}

func (cs *collectState) currentRenderer() any {
	if len(cs.rendererStack) == 0 {
		return cs.cfg.DefaultRenderer
	}
	return cs.rendererStack[len(cs.rendererStack)-1]
}

func (cs *collectState) nextOrderIndex() int {
	idx := cs.orderIndex
	cs.orderIndex++
	return idx
}

var anonSectionCounter int64

func nextAnonSectionID() string {
	return "section-" + strconv.FormatInt(atomic.AddInt64(&anonSectionCounter, 1), 10)
}

// CollectStructure runs the post-commit collector walk over root, producing
// a fresh CompiledStructure. Called by Compiler.Compile after
// commitWork.
func CollectStructure(root *Fiber, cfg Config) *CompiledStructure {
	out := &CompiledStructure{
		Sections: make(map[string]*CompiledSection),
		Metadata: make(map[string]any),
	}
	cs := &collectState{cfg: cfg, out: out}
	if cfg.DefaultRenderer != nil {
		cs.rendererStack = append(cs.rendererStack, cfg.DefaultRenderer)
	}
	if root != nil {
		collectWalk(cs, root, false)
	}
	return out
}

// collectWalk visits f and recurses into children, dispatching on the
// recognized host primitives. inSectionOrMessage tracks whether f is nested
// under a Section/Entry/Ephemeral so top-level content blocks are captured
// as "loose" system message items instead.
func collectWalk(cs *collectState, f *Fiber, inSectionOrMessage bool) {
	if f.Kind == KindPrimitive {
		switch f.Primitive {
		case PrimRenderer:
			if inst, ok := f.Props["instance"]; ok {
				cs.rendererStack = append(cs.rendererStack, inst)
				f.ForEachChild(func(c *Fiber) { collectWalk(cs, c, inSectionOrMessage) })
				cs.rendererStack = cs.rendererStack[:len(cs.rendererStack)-1]
				return
			}
		case PrimSection:
			collectSection(cs, f)
			return
		case PrimEntry:
			collectEntry(cs, f)
			return
		case PrimEphemeral:
			collectEphemeral(cs, f)
			return
		case PrimTool:
			collectTool(cs, f)
			return
		}
	}

	if !inSectionOrMessage {
		if blocks := collectLooseContentBlocks(f); len(blocks) > 0 {
			cs.out.SystemMessageItems = append(cs.out.SystemMessageItems, SystemMessageItem{
				Type: "loose", Content: blocks, Index: cs.nextOrderIndex(), Renderer: cs.currentRenderer(),
			})
		}
	}

	f.ForEachChild(func(c *Fiber) { collectWalk(cs, c, inSectionOrMessage) })
}

func collectSection(cs *collectState, f *Fiber) {
	id, _ := f.Props["id"].(string)
	if id == "" {
		id = nextAnonSectionID()
	}
	content := resolveSectionContent(cs, f)
	title, _ := f.Props["title"].(string)
	visibility, _ := f.Props["visibility"].(string)
	audience, _ := f.Props["audience"].(string)
	tags, _ := f.Props["tags"].([]string)
	metadata, _ := f.Props["metadata"].(map[string]any)

	section := &CompiledSection{
		ID: id, Title: title, Content: content, Visibility: visibility,
		Audience: audience, Tags: tags, Metadata: metadata, Renderer: cs.currentRenderer(),
	}
	if existing, ok := cs.out.Sections[id]; ok {
		cs.out.Sections[id] = mergeSections(existing, section)
	} else {
		cs.out.Sections[id] = section
		cs.out.sectionOrder = append(cs.out.sectionOrder, id)
	}
	cs.out.SystemMessageItems = append(cs.out.SystemMessageItems, SystemMessageItem{
		Type: "section", SectionID: id, Index: cs.nextOrderIndex(), Renderer: cs.currentRenderer(),
	})
}

// resolveSectionContent implements the Open Question resolution recorded
// in SPEC_FULL.md: prefer reconciled children when any child fiber exists,
// otherwise fall back to props.content.
func resolveSectionContent(cs *collectState, f *Fiber) any {
	if f.Child != nil {
		return collectContentBlocks(cs, f)
	}
	if content, ok := f.Props["content"]; ok {
		return content
	}
	return ""
}

// mergeSections implements the section merge laws: string content joins
// with a newline, block-array content concatenates, and anything else is
// wrapped into a 2-element pair.
func mergeSections(existing, incoming *CompiledSection) *CompiledSection {
	merged := *incoming // non-content fields: incoming wins (last-writer-wins)
	merged.Content = mergeContent(existing.Content, incoming.Content)
	return &merged
}

func mergeContent(a, b any) any {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as + "\n" + bs
	}
	aBlocks, aIsBlocks := a.([]ContentBlock)
	bBlocks, bIsBlocks := b.([]ContentBlock)
	if aIsBlocks && bIsBlocks {
		out := make([]ContentBlock, 0, len(aBlocks)+len(bBlocks))
		out = append(out, aBlocks...)
		out = append(out, bBlocks...)
		return out
	}
	return []any{a, b}
}

func collectEntry(cs *collectState, f *Fiber) {
	kind, _ := f.Props["kind"].(string)
	visibility, _ := f.Props["visibility"].(string)
	tags, _ := f.Props["tags"].([]string)
	metadata, _ := f.Props["metadata"].(map[string]any)
	renderer := cs.currentRenderer()

	if kind == "message" {
		msgProp, _ := f.Props["message"].(map[string]any)
		role, _ := msgProp["role"].(string)
		var content []ContentBlock
		if f.Child != nil {
			content = collectContentBlocks(cs, f)
		} else if raw, ok := msgProp["content"]; ok {
			content = coerceContentBlocks(raw, cs.cfg.IsContentBlock)
		}
		entry := CompiledTimelineEntry{
			Kind: "message", Message: &MessageEntry{Role: role, Content: content},
			Visibility: visibility, Tags: tags, Metadata: metadata, Renderer: renderer,
		}
		if role == "system" {
			cs.out.SystemMessageItems = append(cs.out.SystemMessageItems, SystemMessageItem{
				Type: "message", Content: content, Index: cs.nextOrderIndex(), Renderer: renderer,
			})
			return
		}
		cs.out.TimelineEntries = append(cs.out.TimelineEntries, entry)
		return
	}

	// kind == "event" (or unspecified, which defaults to the event branch)
	event := f.Props["event"]
	cs.out.TimelineEntries = append(cs.out.TimelineEntries, CompiledTimelineEntry{
		Kind: "event", Event: event, Visibility: visibility, Tags: tags, Metadata: metadata, Renderer: renderer,
	})
}

func collectEphemeral(cs *collectState, f *Fiber) {
	position, _ := f.Props["position"].(string)
	if position == "" {
		position = "end"
	}
	order, _ := f.Props["order"].(int)
	id, _ := f.Props["id"].(string)
	tags, _ := f.Props["tags"].([]string)
	metadata, _ := f.Props["metadata"].(map[string]any)
	ephType, _ := f.Props["type"].(string)

	var content any
	if f.Child != nil {
		content = collectContentBlocks(cs, f)
	} else {
		content = f.Props["content"]
	}
	cs.out.Ephemeral = append(cs.out.Ephemeral, CompiledEphemeral{
		Content: content, Type: ephType, Position: position, Order: order, ID: id,
		Tags: tags, Metadata: metadata, Renderer: cs.currentRenderer(),
	})
}

func collectTool(cs *collectState, f *Fiber) {
	def, hasDef := f.Props["definition"]
	var desc ToolDescriptor
	switch v := def.(type) {
	case ToolDescriptor:
		desc = v
	case string:
		desc = ToolDescriptor{Name: v}
	default:
		if !hasDef {
			return
		}
	}
	if desc.Name == "" && desc.Metadata.Name == "" {
		return
	}
	name := desc.Metadata.Name
	if name == "" {
		name = desc.Name
	}
	for i, t := range cs.out.Tools {
		if t.Name == name {
			cs.out.Tools[i] = NamedTool{Name: name, Tool: desc}
			return
		}
	}
	cs.out.Tools = append(cs.out.Tools, NamedTool{Name: name, Tool: desc})
}

// collectContentBlocks runs inline content collection over f's children.
func collectContentBlocks(cs *collectState, f *Fiber) []ContentBlock {
	var blocks []ContentBlock
	f.ForEachChild(func(c *Fiber) {
		blocks = append(blocks, collectOneContentChild(cs, c)...)
	})
	return blocks
}

func collectOneContentChild(cs *collectState, f *Fiber) []ContentBlock {
	switch f.Tag {
	case "text":
		text, _ := f.Props["text"].(string)
		return []ContentBlock{Text(text)}
	case "content-block":
		if b, ok := f.Props["block"].(ContentBlock); ok {
			return []ContentBlock{b}
		}
		return nil
	}
	if f.Primitive == PrimRenderer {
		if inst, ok := f.Props["instance"]; ok {
			cs.rendererStack = append(cs.rendererStack, inst)
			defer func() { cs.rendererStack = cs.rendererStack[:len(cs.rendererStack)-1] }()
		}
		return collectContentBlocks(cs, f)
	}
	if mapped, ok := contentMapperFor(f); ok {
		return []ContentBlock{mapped}
	}
	if semantic, ok := inlineSemanticFor(f.Tag); ok {
		node := &SemanticNode{Semantic: semantic, Children: collectContentBlocks(cs, f), Props: propsMinusChildren(f.Props)}
		return []ContentBlock{{Type: ContentText, Text: "", Semantic: node}}
	}
	// Transparent host: flatten children in place.
	return collectContentBlocks(cs, f)
}

func propsMinusChildren(p Props) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if k == "children" {
			continue
		}
		out[k] = v
	}
	return out
}

// collectLooseContentBlocks captures top-level content blocks that appear
// outside any Section/Entry/Ephemeral.
func collectLooseContentBlocks(f *Fiber) []ContentBlock {
	if f.Tag == "content-block" {
		if b, ok := f.Props["block"].(ContentBlock); ok {
			return []ContentBlock{b}
		}
	}
	return nil
}

// coerceContentBlocks converts a raw message.content value (the fallback
// path used when a message entry has no reconciled children) into
// []ContentBlock: a typed slice/value passes straight through, a plain
// string becomes a single text block, and a []any of mixed typed values and
// raw wire-shape maps is coerced element-by-element via isContentBlock
// (nil falls back to defaultIsContentBlock).
func coerceContentBlocks(raw any, isContentBlock func(v any) bool) []ContentBlock {
	if isContentBlock == nil {
		isContentBlock = defaultIsContentBlock
	}
	switch v := raw.(type) {
	case []ContentBlock:
		return v
	case string:
		return []ContentBlock{Text(v)}
	case ContentBlock:
		return []ContentBlock{v}
	case []any:
		var out []ContentBlock
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, Text(s))
				continue
			}
			if isContentBlock(item) {
				if block, ok := coerceWireContentBlock(item); ok {
					out = append(out, block)
				}
			}
		}
		return out
	default:
		if isContentBlock(raw) {
			if block, ok := coerceWireContentBlock(raw); ok {
				return []ContentBlock{block}
			}
		}
		return nil
	}
}

// contentMapperRegistry maps a content Primitive to a block converter.
var contentMapperRegistry = map[Primitive]func(f *Fiber) ContentBlock{
	PrimText: func(f *Fiber) ContentBlock {
		text, _ := f.Props["text"].(string)
		return Text(text)
	},
	PrimImage:    func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentImage, Fields: propsMinusChildren(f.Props)} },
	PrimCode:     func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentCode, Fields: propsMinusChildren(f.Props)} },
	PrimJSON:     func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentJSON, Fields: propsMinusChildren(f.Props)} },
	PrimDocument: func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentDocument, Fields: propsMinusChildren(f.Props)} },
	PrimAudio:    func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentAudio, Fields: propsMinusChildren(f.Props)} },
	PrimVideo:    func(f *Fiber) ContentBlock { return ContentBlock{Type: ContentVideo, Fields: propsMinusChildren(f.Props)} },
}

func contentMapperFor(f *Fiber) (ContentBlock, bool) {
	if f.Kind != KindPrimitive {
		return ContentBlock{}, false
	}
	mapper, ok := contentMapperRegistry[f.Primitive]
	if !ok {
		return ContentBlock{}, false
	}
	return mapper(f), true
}

// inlineSemanticRegistry is the inline host-tag→semantic table.
var inlineSemanticRegistry = map[string]SemanticKind{
	"inlineCode": SemanticCode, "code": SemanticCode,
	"strong": SemanticStrong, "b": SemanticStrong,
	"em": SemanticEmphasis, "i": SemanticEmphasis,
	"u": SemanticUnderline,
	"s": SemanticStrikethrough, "del": SemanticStrikethrough,
	"mark": SemanticMark,
	"sub":  SemanticSubscript,
	"sup":  SemanticSuperscript,
	"small": SemanticSmall,
	"a":    SemanticLink,
	"q":    SemanticQuote,
	"cite": SemanticCitation,
	"kbd":  SemanticKeyboard,
	"var":  SemanticVariable,
	"p":    SemanticParagraph,
	"blockquote": SemanticBlockquote,
	"img":   SemanticImage,
	"audio": SemanticAudio,
	"video": SemanticVideo,
}

func inlineSemanticFor(tag string) (SemanticKind, bool) {
	s, ok := inlineSemanticRegistry[tag]
	return s, ok
}
