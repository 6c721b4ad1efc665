package aidk

// ContentBlockType is the closed set of content-block kinds carried
// verbatim through compilation.
type ContentBlockType string

const (
	ContentText       ContentBlockType = "text"
	ContentImage      ContentBlockType = "image"
	ContentDocument   ContentBlockType = "document"
	ContentAudio      ContentBlockType = "audio"
	ContentVideo      ContentBlockType = "video"
	ContentCode       ContentBlockType = "code"
	ContentJSON       ContentBlockType = "json"
	ContentToolUse    ContentBlockType = "tool_use"
	ContentToolResult ContentBlockType = "tool_result"
	ContentReasoning  ContentBlockType = "reasoning"
	ContentUserAction ContentBlockType = "user_action"
	ContentSystemEvent ContentBlockType = "system_event"
	ContentStateChange ContentBlockType = "state_change"
)

// SemanticKind is the closed set of inline semantic node shapes produced by
// the inline semantic extraction table.
type SemanticKind string

const (
	SemanticCode          SemanticKind = "code"
	SemanticStrong        SemanticKind = "strong"
	SemanticEmphasis      SemanticKind = "em"
	SemanticUnderline     SemanticKind = "underline"
	SemanticStrikethrough SemanticKind = "strikethrough"
	SemanticMark          SemanticKind = "mark"
	SemanticSubscript     SemanticKind = "subscript"
	SemanticSuperscript   SemanticKind = "superscript"
	SemanticSmall         SemanticKind = "small"
	SemanticLink          SemanticKind = "link"
	SemanticQuote         SemanticKind = "quote"
	SemanticCitation      SemanticKind = "citation"
	SemanticKeyboard      SemanticKind = "keyboard"
	SemanticVariable      SemanticKind = "variable"
	SemanticParagraph     SemanticKind = "paragraph"
	SemanticBlockquote    SemanticKind = "blockquote"
	SemanticImage         SemanticKind = "image"
	SemanticAudio         SemanticKind = "audio"
	SemanticVideo         SemanticKind = "video"
	SemanticCustom        SemanticKind = "custom"
)

// SemanticNode is the shape inline host tags are converted to when they
// appear inside text-bearing content.
type SemanticNode struct {
	Semantic SemanticKind
	Children []ContentBlock
	Props    map[string]any
}

// ContentBlock is the wire shape of a single content payload element: a
// closed-set Type plus a type-specific payload. Text blocks use Text;
// every other kind stores its payload verbatim in Fields so authors and
// content mappers can round-trip arbitrary keys (image/audio/video source,
// code language, json value, tool_use/tool_result ids, ...).
type ContentBlock struct {
	Type ContentBlockType
	Text string
	// Semantic is set only on the empty text block produced for a host tag
	// with an inline semantic mapping (inlineSemanticFor) inside
	// text-bearing content; host tags with no mapping are flattened into
	// their children and produce no Semantic node.
	Semantic *SemanticNode
	// Fields carries the rest of the block's payload verbatim (e.g. "source"
	// for image/audio/video, "language" for code, "value" for json,
	// "id"/"name"/"input" for tool_use, "id"/"content" for tool_result).
	Fields map[string]any
}

// Text is a convenience constructor for a plain text content block.
func Text(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// wireContentBlockTypes is the closed set of content-block kind strings
// recognized in a raw wire-shape map ({ type: <kind>, ...payload }).
var wireContentBlockTypes = map[string]ContentBlockType{
	"text": ContentText, "image": ContentImage, "document": ContentDocument,
	"audio": ContentAudio, "video": ContentVideo, "code": ContentCode,
	"json": ContentJSON, "tool_use": ContentToolUse, "tool_result": ContentToolResult,
	"reasoning": ContentReasoning, "user_action": ContentUserAction,
	"system_event": ContentSystemEvent, "state_change": ContentStateChange,
}

// coerceWireContentBlock converts a value a Config.IsContentBlock predicate
// has already identified as a content block into a ContentBlock: a
// ContentBlock/*ContentBlock value passes through unchanged, and a raw
// { type, ...payload } map (the shape a content block travels in when
// authored as plain data rather than the typed struct) is read into Type/
// Text/Fields by its "type" key.
func coerceWireContentBlock(v any) (ContentBlock, bool) {
	switch t := v.(type) {
	case ContentBlock:
		return t, true
	case *ContentBlock:
		if t == nil {
			return ContentBlock{}, false
		}
		return *t, true
	case map[string]any:
		kind, _ := t["type"].(string)
		typ, ok := wireContentBlockTypes[kind]
		if !ok {
			return ContentBlock{}, false
		}
		text, _ := t["text"].(string)
		var fields map[string]any
		for k, val := range t {
			if k == "type" || k == "text" {
				continue
			}
			if fields == nil {
				fields = make(map[string]any, len(t))
			}
			fields[k] = val
		}
		return ContentBlock{Type: typ, Text: text, Fields: fields}, true
	default:
		return ContentBlock{}, false
	}
}

// Clone returns a deep-enough copy of the block suitable for merging:
// Fields is copied shallowly since its values are themselves treated as
// opaque/immutable payload.
func (b ContentBlock) Clone() ContentBlock {
	out := b
	if b.Fields != nil {
		out.Fields = make(map[string]any, len(b.Fields))
		for k, v := range b.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
