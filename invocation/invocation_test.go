package invocation

import (
	"context"
	"reflect"
	"testing"

	"github.com/parleyhq/parley/tools"
)

type fakeTool struct {
	name string
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "fake" }
func (t *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	return "", nil
}

func toolList(names ...string) []tools.Tool {
	list := make([]tools.Tool, 0, len(names))
	for _, name := range names {
		list = append(list, &fakeTool{name: name})
	}
	return list
}

func TestFindOrdersByToolConfiguration(t *testing.T) {
	completion := "<a>1</a><b>2</b><a>3</a>"

	found := Find(completion, toolList("b", "a"))

	want := []Invocation{
		{ToolName: "b", ToolInput: "2"},
		{ToolName: "a", ToolInput: "1"},
		{ToolName: "a", ToolInput: "3"},
	}
	if !reflect.DeepEqual(found, want) {
		t.Errorf("Expected %v, got %v", want, found)
	}
}

func TestFindIgnoresUnknownMarkers(t *testing.T) {
	completion := "<mystery>secret</mystery> then <search>golang</search>"

	found := Find(completion, toolList("search"))

	if len(found) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(found))
	}
	if found[0].ToolName != "search" || found[0].ToolInput != "golang" {
		t.Errorf("Unexpected invocation: %+v", found[0])
	}
}

func TestFindMultilineInput(t *testing.T) {
	completion := "<write_file>notes.txt\nline one\nline two</write_file>"

	found := Find(completion, toolList("write_file"))

	if len(found) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(found))
	}
	if found[0].ToolInput != "notes.txt\nline one\nline two" {
		t.Errorf("Expected multiline input preserved, got %q", found[0].ToolInput)
	}
}

func TestFindBackToBackMarkersStaySeparate(t *testing.T) {
	completion := "<calc>1+1</calc><calc>2+2</calc>"

	found := Find(completion, toolList("calc"))

	if len(found) != 2 {
		t.Fatalf("Expected 2 invocations, got %d", len(found))
	}
	if found[0].ToolInput != "1+1" || found[1].ToolInput != "2+2" {
		t.Errorf("Expected non-greedy matches, got %+v", found)
	}
}

func TestFindQualifiedToolNames(t *testing.T) {
	completion := "<github:create_issue>bug report</github:create_issue>"

	found := Find(completion, toolList("github:create_issue"))

	if len(found) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(found))
	}
	if found[0].ToolInput != "bug report" {
		t.Errorf("Unexpected input: %q", found[0].ToolInput)
	}
}

func TestFindNothing(t *testing.T) {
	if found := Find("a plain answer with no markers", toolList("search")); len(found) != 0 {
		t.Errorf("Expected no invocations, got %+v", found)
	}
	if found := Find("<search>query</search>", nil); len(found) != 0 {
		t.Errorf("Expected no invocations with no tools configured, got %+v", found)
	}
}
