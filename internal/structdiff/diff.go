// Package structdiff computes structural diffs between two
// CompiledStructure snapshots, for streaming incremental updates to an
// inspector client (cmd/aidkc's serve subcommand) instead of re-sending the
// whole structure every tick.
//
// The diff is an ordered sequence of typed patch operations
// (SectionUpserted/ToolRemoved/...). There is no "apply" phase here since
// nothing commits a CompiledStructure back onto a live tree; callers only
// ever consume the patch list to render an update.
package structdiff

import (
	"encoding/json"

	"github.com/rlindgren/aidk/pkg/aidk"
)

// PatchOp is the closed set of structural differences between two
// snapshots.
type PatchOp uint8

const (
	SectionUpserted PatchOp = iota
	SectionRemoved
	TimelineAppended
	ToolUpserted
	ToolRemoved
	EphemeralChanged
)

func (op PatchOp) String() string {
	switch op {
	case SectionUpserted:
		return "section_upserted"
	case SectionRemoved:
		return "section_removed"
	case TimelineAppended:
		return "timeline_appended"
	case ToolUpserted:
		return "tool_upserted"
	case ToolRemoved:
		return "tool_removed"
	case EphemeralChanged:
		return "ephemeral_changed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the patch op by its String name rather than its
// numeric value, so inspector clients don't need PatchOp's Go definition.
func (op PatchOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

// Patch is one structural change between an old and new CompiledStructure.
type Patch struct {
	Op        PatchOp
	SectionID string
	Section   *aidk.CompiledSection
	Entry     *aidk.CompiledTimelineEntry
	ToolName  string
	Tool      *aidk.NamedTool
}

// Diff compares prev (possibly nil, for a first snapshot) against next and
// returns an ordered patch list.
func Diff(prev, next *aidk.CompiledStructure) []Patch {
	var patches []Patch
	patches = append(patches, diffSections(prev, next)...)
	patches = append(patches, diffTimeline(prev, next)...)
	patches = append(patches, diffTools(prev, next)...)
	if ephemeralChanged(prev, next) {
		patches = append(patches, Patch{Op: EphemeralChanged})
	}
	return patches
}

func diffSections(prev, next *aidk.CompiledStructure) []Patch {
	var patches []Patch
	prevSections := map[string]*aidk.CompiledSection{}
	if prev != nil {
		prevSections = prev.Sections
	}
	for _, section := range next.SectionsInOrder() {
		old, existed := prevSections[section.ID]
		if !existed || !sectionsEqual(old, section) {
			s := *section
			patches = append(patches, Patch{Op: SectionUpserted, SectionID: section.ID, Section: &s})
		}
	}
	for id := range prevSections {
		if _, stillPresent := next.Sections[id]; !stillPresent {
			patches = append(patches, Patch{Op: SectionRemoved, SectionID: id})
		}
	}
	return patches
}

func sectionsEqual(a, b *aidk.CompiledSection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Title == b.Title && a.Visibility == b.Visibility && a.Audience == b.Audience &&
		contentEqual(a.Content, b.Content)
}

func contentEqual(a, b any) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	ab, aIsBlocks := a.([]aidk.ContentBlock)
	bb, bIsBlocks := b.([]aidk.ContentBlock)
	if aIsBlocks && bIsBlocks {
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i].Type != bb[i].Type || ab[i].Text != bb[i].Text {
				return false
			}
		}
		return true
	}
	return false
}

func diffTimeline(prev, next *aidk.CompiledStructure) []Patch {
	prevLen := 0
	if prev != nil {
		prevLen = len(prev.TimelineEntries)
	}
	if len(next.TimelineEntries) <= prevLen {
		return nil
	}
	var patches []Patch
	for _, e := range next.TimelineEntries[prevLen:] {
		entry := e
		patches = append(patches, Patch{Op: TimelineAppended, Entry: &entry})
	}
	return patches
}

func diffTools(prev, next *aidk.CompiledStructure) []Patch {
	var patches []Patch
	prevTools := map[string]aidk.NamedTool{}
	if prev != nil {
		for _, t := range prev.Tools {
			prevTools[t.Name] = t
		}
	}
	seen := map[string]bool{}
	for _, t := range next.Tools {
		seen[t.Name] = true
		if old, existed := prevTools[t.Name]; !existed || old.Tool.Name != t.Tool.Name {
			tool := t
			patches = append(patches, Patch{Op: ToolUpserted, ToolName: t.Name, Tool: &tool})
		}
	}
	for name := range prevTools {
		if !seen[name] {
			patches = append(patches, Patch{Op: ToolRemoved, ToolName: name})
		}
	}
	return patches
}

func ephemeralChanged(prev, next *aidk.CompiledStructure) bool {
	prevLen := 0
	if prev != nil {
		prevLen = len(prev.Ephemeral)
	}
	return len(next.Ephemeral) != prevLen
}
