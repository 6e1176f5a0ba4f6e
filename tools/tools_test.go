package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parleyhq/parley/config"
)

func TestValidateName(t *testing.T) {
	valid := []string{"search", "read_file", "srv:lookup", "a-b.c"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("expected %q to be a valid tool name, got %v", name, err)
		}
	}

	invalid := []string{"", "has space", "a<b", "a>b", "a&b", "a/b", "line\nbreak"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestNameAndDescription(t *testing.T) {
	cfg := &config.Config{}
	tool := &ReadFileTool{fsAccess: &cfg.FilesystemAccess}
	got := NameAndDescription(tool)
	if !strings.HasPrefix(got, "read_file: ") {
		t.Errorf("expected 'name: description' form, got %q", got)
	}
}

func TestResolveToolset(t *testing.T) {
	cfg := &config.Config{}
	r := NewRegistry(cfg)

	ts := &config.Toolset{Name: "default", Tools: []string{"read_file", "run_command"}}
	active, err := r.Resolve(ts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(active))
	}
	if active[0].Name() != "read_file" || active[1].Name() != "run_command" {
		t.Errorf("toolset order not preserved: %s, %s", active[0].Name(), active[1].Name())
	}
}

func TestResolveUnknownTool(t *testing.T) {
	cfg := &config.Config{}
	r := NewRegistry(cfg)

	ts := &config.Toolset{Name: "bad", Tools: []string{"no_such_tool"}}
	if _, err := r.Resolve(ts); err == nil {
		t.Fatal("expected error for unregistered tool")
	}
}

type staticTool struct {
	name string
}

func (s *staticTool) Name() string        { return s.name }
func (s *staticTool) Description() string { return "static" }
func (s *staticTool) Execute(ctx context.Context, input string) (string, error) {
	return input, nil
}

func TestResolveServerWildcard(t *testing.T) {
	cfg := &config.Config{}
	r := NewRegistry(cfg)
	r.Register(&staticTool{name: "files:read"})
	r.Register(&staticTool{name: "files:write"})
	r.Register(&staticTool{name: "other:thing"})

	ts := &config.Toolset{Name: "wild", Tools: []string{"files:*"}}
	active, err := r.Resolve(ts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 expanded tools, got %d", len(active))
	}
	if active[0].Name() != "files:read" || active[1].Name() != "files:write" {
		t.Errorf("wildcard expansion not sorted: %s, %s", active[0].Name(), active[1].Name())
	}

	empty := &config.Toolset{Name: "empty", Tools: []string{"missing:*"}}
	if _, err := r.Resolve(empty); err == nil {
		t.Fatal("expected error for wildcard with no registered tools")
	}
}

func TestIsCommandAllowed(t *testing.T) {
	allowed := []string{`^ls\b`, `^git status$`}

	cases := []struct {
		command string
		want    bool
	}{
		{"ls -la", true},
		{"git status", true},
		{"rm -rf /", false},
		{"", false},
	}
	for _, c := range cases {
		got, err := isCommandAllowed(c.command, allowed)
		if err != nil {
			t.Fatalf("isCommandAllowed(%q) failed: %v", c.command, err)
		}
		if got != c.want {
			t.Errorf("isCommandAllowed(%q) = %v, want %v", c.command, got, c.want)
		}
	}
}

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	tool := &ReadFileTool{fsAccess: &cfg.FilesystemAccess}
	out, err := tool.Execute(context.Background(), path+"\n")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected file content %q, got %q", "hello", out)
	}
}

func TestReadFileToolHiddenPath(t *testing.T) {
	cfg := &config.Config{
		FilesystemAccess: config.FilesystemAccess{Hidden: []string{"**/secret/**"}},
	}
	tool := &ReadFileTool{fsAccess: &cfg.FilesystemAccess}
	if _, err := tool.Execute(context.Background(), "/etc/secret/key"); err == nil {
		t.Fatal("expected hidden path to be denied")
	}
}

func TestWriteFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	cfg := &config.Config{}
	tool := &WriteFileTool{fsAccess: &cfg.FilesystemAccess}
	input := path + "\nline one\nline two"
	if _, err := tool.Execute(context.Background(), input); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "line one\nline two" {
		t.Errorf("unexpected file content %q", string(content))
	}
}

func TestWriteFileToolReadOnlyPath(t *testing.T) {
	cfg := &config.Config{
		FilesystemAccess: config.FilesystemAccess{ReadOnly: []string{"**/*.lock"}},
	}
	tool := &WriteFileTool{fsAccess: &cfg.FilesystemAccess}
	if _, err := tool.Execute(context.Background(), "/tmp/x.lock\ndata"); err == nil {
		t.Fatal("expected read-only path to be denied")
	}
}

func TestRunCommandToolDeniesUnlisted(t *testing.T) {
	tool := &RunCommandTool{allowedCommands: []string{`^echo\b`}}
	if _, err := tool.Execute(context.Background(), "cat /etc/passwd"); err == nil {
		t.Fatal("expected unlisted command to be denied")
	}
}
