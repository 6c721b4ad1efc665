package renderer

import (
	"testing"

	"github.com/rlindgren/aidk/pkg/aidk"
)

func TestTextRenderer_RenderSection(t *testing.T) {
	tests := []struct {
		name     string
		section  *aidk.CompiledSection
		expected string
	}{
		{
			name:     "plain string content",
			section:  &aidk.CompiledSection{ID: "s1", Content: "hello"},
			expected: "hello",
		},
		{
			name:     "titled section",
			section:  &aidk.CompiledSection{ID: "s1", Title: "Notes", Content: "hello"},
			expected: "Notes\nhello",
		},
		{
			name:     "content blocks",
			section:  &aidk.CompiledSection{ID: "s1", Content: []aidk.ContentBlock{aidk.Text("a"), aidk.Text("b")}},
			expected: "a\nb",
		},
	}

	r := Default
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.RenderSection(tt.section)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("RenderSection() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTextRenderer_RenderTimelineEntry(t *testing.T) {
	msg := aidk.CompiledTimelineEntry{
		Kind:    "message",
		Message: &aidk.MessageEntry{Role: "assistant", Content: []aidk.ContentBlock{aidk.Text("hi there")}},
	}
	event := aidk.CompiledTimelineEntry{Kind: "event", Event: map[string]any{"name": "tool_started"}}

	r := Default
	got, err := r.RenderTimelineEntry(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "assistant: hi there"; got != want {
		t.Errorf("RenderTimelineEntry(message) = %q, want %q", got, want)
	}

	got, err = r.RenderTimelineEntry(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "event: map[name:tool_started]"; got != want {
		t.Errorf("RenderTimelineEntry(event) = %q, want %q", got, want)
	}
}

func TestTextRenderer_RenderBlocks_NonTextPlaceholder(t *testing.T) {
	blocks := []aidk.ContentBlock{
		aidk.Text("before"),
		{Type: aidk.ContentImage, Fields: map[string]any{"source": "cat.png"}},
	}

	got, err := Default.RenderBlocks(blocks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "before\n[image]"; got != want {
		t.Errorf("RenderBlocks() = %q, want %q", got, want)
	}
}

func TestTextRenderer_SemanticNodes(t *testing.T) {
	tests := []struct {
		name     string
		block    aidk.ContentBlock
		expected string
	}{
		{
			name: "strong",
			block: aidk.ContentBlock{Semantic: &aidk.SemanticNode{
				Semantic: aidk.SemanticStrong,
				Children: []aidk.ContentBlock{aidk.Text("bold")},
			}},
			expected: "**bold**",
		},
		{
			name: "link with href",
			block: aidk.ContentBlock{Semantic: &aidk.SemanticNode{
				Semantic: aidk.SemanticLink,
				Children: []aidk.ContentBlock{aidk.Text("docs")},
				Props:    map[string]any{"href": "https://example.com"},
			}},
			expected: "[docs](https://example.com)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default.RenderBlocks([]aidk.ContentBlock{tt.block})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
