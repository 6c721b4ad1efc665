package main

import "github.com/rlindgren/aidk/pkg/aidk"

// structureView is a flattened, marshal-friendly projection of a
// CompiledStructure: CompiledStructure.Sections is keyed by id
// with a separate insertion-order slice, which round-trips awkwardly
// through YAML/JSON, so the CLI dumps sections in SectionsInOrder() form
// instead.
type structureView struct {
	Sections           []*aidk.CompiledSection     `yaml:"sections" json:"sections"`
	TimelineEntries    []aidk.CompiledTimelineEntry `yaml:"timeline_entries" json:"timeline_entries"`
	SystemMessageItems []aidk.SystemMessageItem     `yaml:"system_message_items" json:"system_message_items"`
	Tools              []aidk.NamedTool             `yaml:"tools" json:"tools"`
	Ephemeral          []aidk.CompiledEphemeral     `yaml:"ephemeral" json:"ephemeral"`
	Metadata           map[string]any               `yaml:"metadata" json:"metadata"`
}

func newStructureView(s *aidk.CompiledStructure) structureView {
	if s == nil {
		return structureView{}
	}
	return structureView{
		Sections:           s.SectionsInOrder(),
		TimelineEntries:    s.TimelineEntries,
		SystemMessageItems: s.SystemMessageItems,
		Tools:              s.Tools,
		Ephemeral:          s.Ephemeral,
		Metadata:           s.Metadata,
	}
}
