package structdiff

import (
	"testing"

	"github.com/rlindgren/aidk/pkg/aidk"
	"github.com/rlindgren/aidk/pkg/com"
)

func compileSection(t *testing.T, c *aidk.Compiler, id, content string) *aidk.CompiledStructure {
	t.Helper()
	el := aidk.Prim(aidk.PrimSection, aidk.Props{"id": id, "content": content})
	compiled, err := c.Compile(el, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return compiled
}

func TestDiff_FirstSnapshotUpsertsEverything(t *testing.T) {
	c := aidk.NewCompiler(com.NewMemory(), aidk.DefaultConfig())
	next := compileSection(t, c, "s1", "hello")

	patches := Diff(nil, next)

	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d: %+v", len(patches), patches)
	}
	if patches[0].Op != SectionUpserted || patches[0].SectionID != "s1" {
		t.Errorf("unexpected patch: %+v", patches[0])
	}
}

func TestDiff_UnchangedSectionProducesNoPatch(t *testing.T) {
	c := aidk.NewCompiler(com.NewMemory(), aidk.DefaultConfig())
	prev := compileSection(t, c, "s1", "hello")
	next := compileSection(t, c, "s1", "hello")

	if patches := Diff(prev, next); len(patches) != 0 {
		t.Errorf("expected no patches for an unchanged section, got %+v", patches)
	}
}

func TestDiff_ChangedContentUpserts(t *testing.T) {
	c := aidk.NewCompiler(com.NewMemory(), aidk.DefaultConfig())
	prev := compileSection(t, c, "s1", "hello")
	next := compileSection(t, c, "s1", "goodbye")

	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != SectionUpserted {
		t.Fatalf("expected a single SectionUpserted patch, got %+v", patches)
	}
	if patches[0].Section.Content != "goodbye" {
		t.Errorf("patch carries stale content: %+v", patches[0].Section)
	}
}

func TestDiff_RemovedSection(t *testing.T) {
	c := aidk.NewCompiler(com.NewMemory(), aidk.DefaultConfig())
	prev := compileSection(t, c, "s1", "hello")
	// Re-render with a tree that no longer has s1.
	next, err := c.Compile(aidk.Frag(""), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != SectionRemoved || patches[0].SectionID != "s1" {
		t.Fatalf("expected a single SectionRemoved patch, got %+v", patches)
	}
}

func TestPatchOp_MarshalJSON(t *testing.T) {
	data, err := SectionUpserted.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `"section_upserted"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
