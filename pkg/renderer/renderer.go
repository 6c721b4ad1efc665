// Package renderer defines the ContentRenderer abstraction the fiber
// compiler's collector stacks and scopes, and ships one default
// implementation: a plain string-builder text renderer.
//
// The default renderer is a stdlib strings.Builder visitor switching on
// node kind, rendering a CompiledStructure (or a fragment of one) to a
// display string.
package renderer

import (
	"fmt"
	"strings"

	"github.com/rlindgren/aidk/pkg/aidk"
)

// ContentRenderer renders a section, timeline entry, or ephemeral item to a
// display form. Compile's collector attaches whichever renderer is on top
// of its scoping stack to each collected item; engines decide when (or
// whether) to actually invoke Render.
type ContentRenderer interface {
	Name() string
	RenderSection(s *aidk.CompiledSection) (string, error)
	RenderTimelineEntry(e aidk.CompiledTimelineEntry) (string, error)
	RenderEphemeral(e aidk.CompiledEphemeral) (string, error)
	RenderBlocks(blocks []aidk.ContentBlock) (string, error)
}

// TextRenderer is the default ContentRenderer: it joins content blocks into
// plain text, rendering non-text block types as a bracketed placeholder.
type TextRenderer struct{}

// Default is the package-level TextRenderer instance, suitable as
// aidk.Config.DefaultRenderer.
var Default ContentRenderer = TextRenderer{}

func (TextRenderer) Name() string { return "text" }

func (r TextRenderer) RenderSection(s *aidk.CompiledSection) (string, error) {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString(s.Title)
		b.WriteString("\n")
	}
	switch content := s.Content.(type) {
	case string:
		b.WriteString(content)
	case []aidk.ContentBlock:
		rendered, err := r.RenderBlocks(content)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	case []any:
		for i, part := range content {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%v", part)
		}
	default:
		fmt.Fprintf(&b, "%v", content)
	}
	return b.String(), nil
}

func (r TextRenderer) RenderTimelineEntry(e aidk.CompiledTimelineEntry) (string, error) {
	if e.Kind == "message" && e.Message != nil {
		text, err := r.RenderBlocks(e.Message.Content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", e.Message.Role, text), nil
	}
	return fmt.Sprintf("event: %v", e.Event), nil
}

func (r TextRenderer) RenderEphemeral(e aidk.CompiledEphemeral) (string, error) {
	switch content := e.Content.(type) {
	case string:
		return content, nil
	case []aidk.ContentBlock:
		return r.RenderBlocks(content)
	default:
		return fmt.Sprintf("%v", content), nil
	}
}

func (r TextRenderer) RenderBlocks(blocks []aidk.ContentBlock) (string, error) {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderOneBlock(block))
	}
	return b.String(), nil
}

func renderOneBlock(block aidk.ContentBlock) string {
	if block.Semantic != nil {
		return renderSemanticNode(*block.Semantic)
	}
	switch block.Type {
	case aidk.ContentText:
		return block.Text
	default:
		return fmt.Sprintf("[%s]", block.Type)
	}
}

func renderSemanticNode(n aidk.SemanticNode) string {
	var b strings.Builder
	for i, child := range n.Children {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(renderOneBlock(child))
	}
	inner := b.String()
	switch n.Semantic {
	case aidk.SemanticStrong:
		return "**" + inner + "**"
	case aidk.SemanticEmphasis:
		return "_" + inner + "_"
	case aidk.SemanticCode:
		return "`" + inner + "`"
	case aidk.SemanticStrikethrough:
		return "~~" + inner + "~~"
	case aidk.SemanticLink:
		if href, ok := n.Props["href"]; ok {
			return fmt.Sprintf("[%s](%v)", inner, href)
		}
		return inner
	default:
		return inner
	}
}
